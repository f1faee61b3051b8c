package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/axdrive/axdrive/pkg/workflow"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func sampleReport() *workflow.Report {
	started := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	return &workflow.Report{
		RunID:      workflow.NewRunID(),
		Query:      "Tokyo",
		State:      workflow.StateSucceeded,
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
		Steps: []workflow.StepResult{
			{StepName: "capture_baseline", Succeeded: true, Extracted: map[string]any{"elements": float64(42)}},
			{StepName: "click_search_field", Succeeded: true, Estimated: true, Extracted: map[string]any{"x": float64(400), "y": float64(200)}},
		},
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	report := sampleReport()
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadReport(ctx, report.RunID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.RunID != report.RunID || loaded.Query != "Tokyo" || loaded.State != workflow.StateSucceeded {
		t.Fatalf("header mismatch: %+v", loaded)
	}
	if len(loaded.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(loaded.Steps))
	}
	if loaded.Steps[1].StepName != "click_search_field" || !loaded.Steps[1].Estimated {
		t.Fatalf("step order or flags lost: %+v", loaded.Steps)
	}
	if loaded.Steps[0].Extracted["elements"] != float64(42) {
		t.Fatalf("extracted data lost: %v", loaded.Steps[0].Extracted)
	}
}

func TestSaveFailedRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	report := sampleReport()
	report.State = workflow.StateFailed
	report.FailedStep = "capture_result"
	report.Steps = append(report.Steps, workflow.StepResult{
		StepName: "capture_result",
		Error:    "rpc: resources/read timed out after 15s",
	})
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadReport(ctx, report.RunID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.FailedStep != "capture_result" {
		t.Fatalf("failed step lost: %+v", loaded)
	}
	last := loaded.Steps[len(loaded.Steps)-1]
	if last.Succeeded || last.Error == "" {
		t.Fatalf("failure detail lost: %+v", last)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	older := sampleReport()
	older.StartedAt = time.Now().Add(-2 * time.Hour)
	older.FinishedAt = older.StartedAt.Add(time.Minute)
	newer := sampleReport()

	if err := store.SaveReport(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.SaveReport(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != newer.RunID || runs[1].RunID != older.RunID {
		t.Fatalf("ordering wrong: %v then %v", runs[0].RunID, runs[1].RunID)
	}
}

func TestLoadMissingRun(t *testing.T) {
	store := openStore(t)
	_, err := store.LoadReport(context.Background(), "01BXDOESNOTEXIST")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
