package publishers

import (
	"time"

	"github.com/samvad-hq/students-e2e/internal/domain"
)

const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Event represents the payload published downstream after a smoke run.
type Event struct {
	RunID       string           `json:"run_id"`
	Status      string           `json:"status"`
	Report      domain.RunReport `json:"report"`
	PublishedAt time.Time        `json:"published_at"`
}

// NewEvent constructs an Event for the given report.
func NewEvent(report domain.RunReport) Event {
	status := StatusPassed
	if !report.OK() {
		status = StatusFailed
	}
	return Event{
		RunID:       report.RunID,
		Status:      status,
		Report:      report,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are attached as message attributes by queue/topic publishers.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"run_id": e.RunID,
		"status": e.Status,
	}
}
