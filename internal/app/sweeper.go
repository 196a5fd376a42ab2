package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samvad-hq/students-e2e/internal/config"
	"github.com/samvad-hq/students-e2e/internal/logger"
	"github.com/samvad-hq/students-e2e/internal/storage"
	"github.com/samvad-hq/students-e2e/pkg/students"
)

// SweepResult counts what a sweep did.
type SweepResult struct {
	Pending  int `json:"pending"`
	Released int `json:"released"`
	Failed   int `json:"failed"`
}

// Sweeper deletes students left behind by interrupted runs.
type Sweeper struct {
	client *students.Client
	ledger storage.Ledger
	log    logger.Logger
	owned  bool
}

// NewSweeper builds a standalone sweeper from config; it owns its ledger.
func NewSweeper(cfg *config.Config, log logger.Logger) (*Sweeper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	client, err := newStudentsClient(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	s := newSweeper(client, ledger, log)
	s.owned = true
	return s, nil
}

func newSweeper(client *students.Client, ledger storage.Ledger, log logger.Logger) *Sweeper {
	log = logger.OrNop(log)
	return &Sweeper{client: client, ledger: ledger, log: log}
}

// Sweep issues DELETE for every pending ledger id. Ids answered with 2xx or
// 404 are released; anything else stays for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if s == nil || s.client == nil || s.ledger == nil {
		return SweepResult{}, fmt.Errorf("sweeper is not initialized")
	}

	ids, err := s.ledger.Pending()
	if err != nil {
		return SweepResult{}, fmt.Errorf("list pending fixtures: %w", err)
	}
	res := SweepResult{Pending: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		resp, err := s.client.DeleteStudent(ctx, id)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("delete student %s: %w", id, err))
			continue
		}
		if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
			res.Failed++
			errs = append(errs, fmt.Errorf("delete student %s: status %d", id, resp.StatusCode()))
			continue
		}
		if err := s.ledger.Release(id); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("release student %s: %w", id, err))
			continue
		}
		res.Released++
	}

	s.log.InfoObj("ledger sweep completed", "sweep_result", res)
	return res, errors.Join(errs...)
}

// Close releases the ledger when the sweeper opened it.
func (s *Sweeper) Close() error {
	if s == nil || !s.owned || s.ledger == nil {
		return nil
	}
	return s.ledger.Close()
}
