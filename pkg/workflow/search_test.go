package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/axdrive/axdrive/pkg/ax"
)

func f(v float64) *float64 { return &v }

// fakeSession scripts the daemon: Tree pops from a queue, everything else is
// recorded and succeeds.
type fakeSession struct {
	trees   []*ax.Snapshot
	treeErr error

	clicks  [][2]float64
	typed   []string
	returns int
	waits   []time.Duration
}

func (s *fakeSession) Tree(ctx context.Context) (*ax.Snapshot, error) {
	if s.treeErr != nil {
		return nil, s.treeErr
	}
	if len(s.trees) == 0 {
		return nil, context.Canceled
	}
	snap := s.trees[0]
	s.trees = s.trees[1:]
	return snap, nil
}

func (s *fakeSession) Click(ctx context.Context, x, y float64) error {
	s.clicks = append(s.clicks, [2]float64{x, y})
	return nil
}

func (s *fakeSession) TypeText(ctx context.Context, text string) error {
	s.typed = append(s.typed, text)
	return nil
}

func (s *fakeSession) PressReturn(ctx context.Context) error {
	s.returns++
	return nil
}

func (s *fakeSession) Wait(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func snapshotOf(root *ax.Node) *ax.Snapshot {
	return &ax.Snapshot{App: "com.apple.weather", CapturedAt: time.Now(), Tree: root}
}

func baselineWithSearchField() *ax.Snapshot {
	return snapshotOf(&ax.Node{
		Role: "Group",
		Children: []*ax.Node{
			{Role: "Button", Title: "Sidebar"},
			{
				Role:     "TextField",
				Title:    "Search",
				Position: &ax.Point{X: f(100), Y: f(100)},
				Size:     &ax.Size{Width: f(200), Height: f(40)},
			},
		},
	})
}

func resultTree() *ax.Snapshot {
	return snapshotOf(&ax.Node{
		Role: "Group",
		Children: []*ax.Node{
			{Role: "StaticText", Value: "東京都"},
			{Role: "StaticText", Value: "23°C"},
			{Role: "StaticText", Value: "晴れ"},
			{Role: "StaticText", Value: "Details"},
		},
	})
}

func TestLocationSearchHappyPath(t *testing.T) {
	session := &fakeSession{trees: []*ax.Snapshot{baselineWithSearchField(), resultTree()}}
	search := &LocationSearch{
		Session:    session,
		Query:      "Tokyo",
		SettleWait: 3 * time.Second,
		FallbackX:  400,
		FallbackY:  200,
	}

	report := NewRunner(nil).Run(context.Background(), search.Query, search.Steps())
	if report.State != StateSucceeded {
		t.Fatalf("run failed: %+v", report)
	}
	if report.Estimated() {
		t.Fatal("no fallback was needed, nothing should be estimated")
	}

	if len(session.clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(session.clicks))
	}
	if session.clicks[0] != [2]float64{200, 120} {
		t.Fatalf("clicked %v, expected the field's center (200,120)", session.clicks[0])
	}
	if len(session.typed) != 1 || session.typed[0] != "Tokyo" {
		t.Fatalf("typed %v", session.typed)
	}
	if session.returns != 1 {
		t.Fatalf("expected one confirm, got %d", session.returns)
	}

	final := report.Steps[len(report.Steps)-1]
	if final.StepName != "extract_findings" {
		t.Fatalf("unexpected final step %s", final.StepName)
	}
	if final.Extracted["temperature"] != "23°C" {
		t.Fatalf("temperature not extracted: %v", final.Extracted)
	}
	if final.Extracted["condition"] != "晴れ" {
		t.Fatalf("condition not extracted: %v", final.Extracted)
	}
	locations, ok := final.Extracted["locations"].([]string)
	if !ok || len(locations) != 1 || locations[0] != "東京都" {
		t.Fatalf("locations not extracted: %v", final.Extracted["locations"])
	}
}

func TestLocationSearchFallsBackWithoutField(t *testing.T) {
	// Baseline tree has no search-capable element at all.
	baseline := snapshotOf(&ax.Node{
		Role:     "Group",
		Children: []*ax.Node{{Role: "Button", Title: "Sidebar"}},
	})
	session := &fakeSession{trees: []*ax.Snapshot{baseline, resultTree()}}
	search := &LocationSearch{
		Session:   session,
		Query:     "Tokyo",
		FallbackX: 400,
		FallbackY: 200,
	}

	report := NewRunner(nil).Run(context.Background(), search.Query, search.Steps())
	if report.State != StateSucceeded {
		t.Fatalf("fallback path must still complete: %+v", report)
	}
	if !report.Estimated() {
		t.Fatal("fallback click must be flagged as estimated")
	}
	if session.clicks[0] != [2]float64{400, 200} {
		t.Fatalf("expected fallback click at (400,200), got %v", session.clicks[0])
	}
}

func TestLocationSearchSkipsDisabledFields(t *testing.T) {
	disabled := false
	baseline := snapshotOf(&ax.Node{
		Role: "Group",
		Children: []*ax.Node{
			{Role: "TextField", Title: "ReadOnly", Enabled: &disabled},
			{
				Role:     "SearchField",
				Title:    "Search",
				Position: &ax.Point{X: f(10), Y: f(10)},
				Size:     &ax.Size{Width: f(20), Height: f(20)},
			},
		},
	})
	session := &fakeSession{trees: []*ax.Snapshot{baseline, resultTree()}}
	search := &LocationSearch{Session: session, Query: "Tokyo", FallbackX: 400, FallbackY: 200}

	report := NewRunner(nil).Run(context.Background(), search.Query, search.Steps())
	if report.State != StateSucceeded {
		t.Fatalf("run failed: %+v", report)
	}
	if session.clicks[0] != [2]float64{20, 20} {
		t.Fatalf("expected the enabled search field's center, got %v", session.clicks[0])
	}
}

func TestLocationSearchFailsFastOnProtocolError(t *testing.T) {
	session := &fakeSession{treeErr: context.DeadlineExceeded}
	search := &LocationSearch{Session: session, Query: "Tokyo", FallbackX: 400, FallbackY: 200}

	report := NewRunner(nil).Run(context.Background(), search.Query, search.Steps())
	if report.State != StateFailed || report.FailedStep != "capture_baseline" {
		t.Fatalf("expected failure at capture_baseline: %+v", report)
	}
	if len(session.clicks) != 0 || len(session.typed) != 0 {
		t.Fatal("no synthetic input may run after a failed capture")
	}
}
