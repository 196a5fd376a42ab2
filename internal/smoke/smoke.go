package smoke

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/students-e2e/internal/domain"
	"github.com/samvad-hq/students-e2e/internal/logger"
	"github.com/samvad-hq/students-e2e/pkg/fixtures"
	"github.com/samvad-hq/students-e2e/pkg/httpclient"
	"github.com/samvad-hq/students-e2e/pkg/resource"
	"github.com/samvad-hq/students-e2e/pkg/students"
)

// Ledger records students created by a run until they are deleted again.
type Ledger interface {
	Track(id string) error
	Release(id string) error
}

// Service drives fixtures through the create/list/get/replace/update/delete cycle.
type Service struct {
	client *students.Client
	ledger Ledger
	log    logger.Logger
}

// NewService wires a smoke service around a students client.
func NewService(client *students.Client, ledger Ledger, log logger.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{client: client, ledger: ledger, log: log}
}

// Run executes every fixture once and returns the report. The error is
// non-nil only when the service cannot run at all; failed steps are
// reported in the RunReport.
func (s *Service) Run(ctx context.Context, runID string, set []fixtures.Fixture) (domain.RunReport, error) {
	if s == nil || s.client == nil {
		return domain.RunReport{}, fmt.Errorf("smoke service is not initialized")
	}
	if len(set) == 0 {
		return domain.RunReport{}, fmt.Errorf("no fixtures configured for smoke run")
	}

	report := domain.RunReport{
		RunID:     runID,
		BaseURL:   s.client.Resource().CollectionURL(),
		StartedAt: time.Now().UTC(),
		Fixtures:  make([]domain.FixtureResult, 0, len(set)),
	}

	for _, f := range set {
		if ctx.Err() != nil {
			break
		}
		result := s.runFixture(ctx, f.ForRun(runID))
		report.Fixtures = append(report.Fixtures, result)
		if !result.Passed() {
			s.log.ErrorObj("fixture failed", "fixture_error", map[string]any{
				"run_id":     runID,
				"fixture_id": f.ID,
				"student_id": result.StudentID,
			})
		}
	}

	report.FinishedAt = time.Now().UTC()
	report.Tally()
	return report, nil
}

func (s *Service) runFixture(ctx context.Context, f fixtures.Fixture) domain.FixtureResult {
	result := domain.FixtureResult{FixtureID: f.ID}
	res := s.client.Resource()

	create, resp := s.step(ctx, resource.OpCreate, res.CollectionURL(), "", func() (httpclient.Response, error) {
		return s.client.CreateStudent(ctx, f.Student)
	})
	if create.Passed() {
		id, err := students.IDFromResponse(resp)
		if err != nil {
			create.Err = err.Error()
		} else {
			create.StudentID = id
			result.StudentID = id
		}
	}
	result.Steps = append(result.Steps, create)
	if !create.Passed() {
		return result
	}

	id := result.StudentID
	if s.ledger != nil {
		if err := s.ledger.Track(id); err != nil {
			s.log.WarnObj("ledger track failed", "ledger_error", map[string]any{"student_id": id, "error": err.Error()})
		}
	}

	steps := []struct {
		op  resource.Op
		url string
		fn  func() (httpclient.Response, error)
	}{
		{resource.OpList, res.CollectionURL(), func() (httpclient.Response, error) { return s.client.GetStudents(ctx) }},
		{resource.OpGet, res.ItemURL(id), func() (httpclient.Response, error) { return s.client.GetStudent(ctx, id) }},
		{resource.OpReplace, res.ItemURL(id), func() (httpclient.Response, error) { return s.client.ReplaceStudent(ctx, id, *f.Replacement) }},
		{resource.OpUpdate, res.ItemURL(id), func() (httpclient.Response, error) { return s.client.PatchStudent(ctx, id, f.Patch) }},
		{resource.OpDelete, res.ItemURL(id), func() (httpclient.Response, error) { return s.client.DeleteStudent(ctx, id) }},
	}

	for _, st := range steps {
		if err := sleepCtx(ctx, f.StepDelay()); err != nil {
			result.Steps = append(result.Steps, domain.StepResult{Op: st.op.String(), Method: st.op.Method(), URL: st.url, StudentID: id, Err: err.Error()})
			return result
		}
		sr, _ := s.step(ctx, st.op, st.url, id, st.fn)
		result.Steps = append(result.Steps, sr)
		if st.op == resource.OpDelete && sr.Passed() && s.ledger != nil {
			if err := s.ledger.Release(id); err != nil {
				s.log.WarnObj("ledger release failed", "ledger_error", map[string]any{"student_id": id, "error": err.Error()})
			}
		}
	}
	return result
}

func (s *Service) step(ctx context.Context, op resource.Op, url, id string, fn func() (httpclient.Response, error)) (domain.StepResult, httpclient.Response) {
	start := time.Now()
	resp, err := fn()
	sr := domain.StepResult{
		Op:        op.String(),
		Method:    op.Method(),
		URL:       url,
		Elapsed:   time.Since(start),
		StudentID: id,
	}
	if err != nil {
		sr.Err = err.Error()
	} else if resp != nil {
		sr.Status = resp.StatusCode()
		if resp.IsError() {
			sr.Err = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
		}
	}

	s.log.DebugObj("smoke step finished", "step", sr)
	return sr, resp
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func bodySnippet(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	if len(body) == 0 {
		return "<empty>"
	}
	return string(body)
}
