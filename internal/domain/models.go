package domain

import "time"

// Domain contains the records produced by smoke runs.

// StepResult captures the outcome of one request issued during a run.
type StepResult struct {
	Op        string        `json:"op"`
	Method    string        `json:"method"`
	URL       string        `json:"url"`
	Status    int           `json:"status"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Err       string        `json:"error,omitempty"`
	StudentID string        `json:"student_id,omitempty"`
}

// Passed reports whether the step reached the server and got a 2xx back.
func (s StepResult) Passed() bool {
	return s.Err == "" && s.Status >= 200 && s.Status < 300
}

// FixtureResult groups the steps run for one fixture.
type FixtureResult struct {
	FixtureID string       `json:"fixture_id"`
	StudentID string       `json:"student_id,omitempty"`
	Steps     []StepResult `json:"steps"`
}

// Passed reports whether every step of the fixture passed.
func (f FixtureResult) Passed() bool {
	if len(f.Steps) == 0 {
		return false
	}
	for _, s := range f.Steps {
		if !s.Passed() {
			return false
		}
	}
	return true
}

// RunReport summarizes one smoke run.
type RunReport struct {
	RunID      string          `json:"run_id"`
	BaseURL    string          `json:"base_url"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Fixtures   []FixtureResult `json:"fixtures"`
	Passed     int             `json:"passed"`
	Failed     int             `json:"failed"`
}

// Tally recomputes the pass/fail counters from Fixtures.
func (r *RunReport) Tally() {
	r.Passed, r.Failed = 0, 0
	for _, f := range r.Fixtures {
		if f.Passed() {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}

// OK is true when no fixture failed.
func (r RunReport) OK() bool { return r.Failed == 0 }
