package workflow

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// State tracks where a run is in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// StepResult records the outcome of one named step. Estimated marks data
// produced by a fallback guess rather than a genuine extraction.
type StepResult struct {
	StepName  string         `json:"stepName"`
	Succeeded bool           `json:"succeeded"`
	Estimated bool           `json:"estimated,omitempty"`
	Extracted map[string]any `json:"extracted,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Report accumulates the per-step results of a run.
type Report struct {
	RunID      string       `json:"runId"`
	Query      string       `json:"query,omitempty"`
	State      State        `json:"state"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	FailedStep string       `json:"failedStep,omitempty"`
	Steps      []StepResult `json:"steps"`
}

// Estimated reports whether any step substituted a fallback value.
func (r *Report) Estimated() bool {
	for _, s := range r.Steps {
		if s.Estimated {
			return true
		}
	}
	return false
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewRunID generates a ULID string for new runs.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
