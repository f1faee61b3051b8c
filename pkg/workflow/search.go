package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/axdrive/axdrive/pkg/ax"
)

// Automator is the slice of the daemon session the search workflow drives.
// *mcp.Session satisfies it; tests substitute a scripted fake.
type Automator interface {
	Tree(ctx context.Context) (*ax.Snapshot, error)
	Click(ctx context.Context, x, y float64) error
	TypeText(ctx context.Context, text string) error
	PressReturn(ctx context.Context) error
	Wait(ctx context.Context, d time.Duration) error
}

// Roles that can accept a typed search query, tried in this order of
// preference within one traversal.
var searchRoles = []string{"TextField", "SearchField", "ComboBox"}

// LocationSearch is the standard workflow: focus the app's search input,
// type a location, confirm, let the UI settle, then classify the refreshed
// tree for weather and location content. Missing elements or geometry fall
// back to a configured screen estimate instead of aborting.
type LocationSearch struct {
	Session    Automator
	Classifier *ax.Classifier
	Query      string
	SettleWait time.Duration
	FallbackX  float64
	FallbackY  float64

	baseline  *ax.Snapshot
	target    *ax.Node
	x, y      float64
	estimated bool
	after     *ax.Snapshot
}

// Steps returns the workflow's step sequence bound to this run's state.
func (w *LocationSearch) Steps() []Step {
	if w.Classifier == nil {
		w.Classifier = ax.DefaultClassifier()
	}
	if w.SettleWait <= 0 {
		w.SettleWait = 3 * time.Second
	}
	return []Step{
		{Name: "capture_baseline", Run: w.captureBaseline},
		{Name: "locate_search_field", Run: w.locateSearchField},
		{Name: "click_search_field", Run: w.clickSearchField},
		{Name: "enter_query", Run: w.enterQuery},
		{Name: "confirm_search", Run: w.confirmSearch},
		{Name: "capture_result", Run: w.captureResult},
		{Name: "extract_findings", Run: w.extractFindings},
	}
}

func (w *LocationSearch) captureBaseline(ctx context.Context) (Result, error) {
	snap, err := w.Session.Tree(ctx)
	if err != nil {
		return Result{}, err
	}
	w.baseline = snap
	counts := ax.CountByRole(snap.Tree)
	total := 0
	for _, n := range counts {
		total += n
	}
	return Result{Data: map[string]any{
		"app":      snap.App,
		"elements": total,
	}}, nil
}

func (w *LocationSearch) locateSearchField(ctx context.Context) (Result, error) {
	for _, role := range searchRoles {
		for _, n := range ax.FindByRole(w.baseline.Tree, role) {
			if n.IsEnabled() {
				w.target = n
				return Result{Data: map[string]any{
					"found": true,
					"role":  n.Role,
					"title": n.Title,
				}}, nil
			}
		}
	}
	// No search-capable element; the click step falls back to the estimate.
	return Result{
		Data:      map[string]any{"found": false},
		Estimated: true,
	}, nil
}

func (w *LocationSearch) clickSearchField(ctx context.Context) (Result, error) {
	x, y, ok := ax.ClickPoint(w.target)
	if !ok {
		x, y = w.FallbackX, w.FallbackY
		w.estimated = true
	}
	w.x, w.y = x, y
	if err := w.Session.Click(ctx, x, y); err != nil {
		return Result{}, err
	}
	// Short settle before typing so focus lands.
	if err := w.Session.Wait(ctx, time.Second); err != nil {
		return Result{}, err
	}
	return Result{
		Data:      map[string]any{"x": x, "y": y},
		Estimated: w.estimated,
	}, nil
}

func (w *LocationSearch) enterQuery(ctx context.Context) (Result, error) {
	if w.Query == "" {
		return Result{}, fmt.Errorf("empty search query")
	}
	if err := w.Session.TypeText(ctx, w.Query); err != nil {
		return Result{}, err
	}
	if err := w.Session.Wait(ctx, 2*time.Second); err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{"query": w.Query}}, nil
}

func (w *LocationSearch) confirmSearch(ctx context.Context) (Result, error) {
	if err := w.Session.PressReturn(ctx); err != nil {
		return Result{}, err
	}
	if err := w.Session.Wait(ctx, w.SettleWait); err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{"settledFor": w.SettleWait.String()}}, nil
}

func (w *LocationSearch) captureResult(ctx context.Context) (Result, error) {
	snap, err := w.Session.Tree(ctx)
	if err != nil {
		return Result{}, err
	}
	w.after = snap
	return Result{Data: map[string]any{
		"roleCounts": ax.CountByRole(snap.Tree),
	}}, nil
}

func (w *LocationSearch) extractFindings(ctx context.Context) (Result, error) {
	_ = ctx
	var weather, locations []string
	ax.Walk(w.after.Tree, func(n *ax.Node) {
		switch w.Classifier.Classify(n) {
		case ax.ClassWeather:
			weather = append(weather, n.Text())
		case ax.ClassLocation:
			locations = append(locations, n.Text())
		}
	})

	data := map[string]any{
		"weather":   weather,
		"locations": locations,
		"hits":      len(weather) + len(locations),
	}
	if t := pickTemperature(weather); t != "" {
		data["temperature"] = t
	}
	if c := pickCondition(weather, w.Classifier); c != "" {
		data["condition"] = c
	}
	return Result{Data: data}, nil
}

// pickTemperature returns the first weather hit that reads like a numeric
// temperature.
func pickTemperature(weather []string) string {
	for _, text := range weather {
		if !strings.Contains(text, "°") {
			continue
		}
		for _, r := range text {
			if unicode.IsDigit(r) {
				return text
			}
		}
	}
	return ""
}

// pickCondition returns the first weather hit with no digits, which in
// practice is a condition word like "Cloudy" or 晴れ.
func pickCondition(weather []string, c *ax.Classifier) string {
	for _, text := range weather {
		if strings.ContainsFunc(text, unicode.IsDigit) || strings.Contains(text, "°") {
			continue
		}
		if c.ClassifyText(text) == ax.ClassWeather {
			return text
		}
	}
	return ""
}
