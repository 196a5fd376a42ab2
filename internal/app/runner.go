package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/students-e2e/internal/config"
	"github.com/samvad-hq/students-e2e/internal/domain"
	"github.com/samvad-hq/students-e2e/internal/logger"
	"github.com/samvad-hq/students-e2e/internal/smoke"
	"github.com/samvad-hq/students-e2e/internal/storage"
	"github.com/samvad-hq/students-e2e/pkg/fixtures"
	"github.com/samvad-hq/students-e2e/pkg/publishers"
)

// ErrRunFailed is returned by a single-shot Run when any fixture failed.
var ErrRunFailed = errors.New("smoke run failed")

// Runner represents the smoke runtime. It sweeps leftovers, runs the CRUD
// scenario once or on an interval, and publishes every report.
type Runner struct {
	cfg      *config.Config
	fixtures *fixtures.Set
	fanout   *publishers.Fanout
	smoke    *smoke.Service
	sweeper  *Sweeper
	ledger   storage.Ledger
	interval time.Duration
	log      logger.Logger
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	return newRunner(ctx, cfg, publishers.DefaultBuilders(), log)
}

func newRunner(ctx context.Context, cfg *config.Config, builders publishers.Builders, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.OrNop(log)
	if ctx == nil {
		ctx = context.Background()
	}

	set, err := fixtures.Load(cfg.FixturesFile)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	fixtureIDs := make([]string, 0, set.Len())
	for _, f := range set.All() {
		fixtureIDs = append(fixtureIDs, f.ID)
	}
	log.InfoObj("fixtures loaded", "fixtures_meta", map[string]any{
		"count": len(fixtureIDs),
		"ids":   fixtureIDs,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, builders, log)
	if err != nil {
		return nil, err
	}

	client, err := newStudentsClient(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.StoragePath(),
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Runner{
		cfg:      cfg,
		fixtures: set,
		fanout:   fanout,
		smoke:    smoke.NewService(client, ledger, log),
		sweeper:  newSweeper(client, ledger, log),
		ledger:   ledger,
		interval: cfg.RunInterval,
		log:      log,
	}, nil
}

func buildFanout(ctx context.Context, path string, builders publishers.Builders, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		log.InfoObj("no publishers file configured; reports are logged only", "publishers_meta", map[string]any{"count": 0})
		return publishers.NewFanout(nil), nil
	}

	cfgs, err := publishers.LoadConfigs(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	enabled := publishers.Enabled(cfgs)
	pubClients, err := builders.Build(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run executes the smoke scenario. With no interval it runs once and returns
// ErrRunFailed if any fixture failed; otherwise it loops until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.smoke == nil {
		return fmt.Errorf("runner is not initialized")
	}
	defer r.close()

	if _, err := r.sweeper.Sweep(ctx); err != nil {
		r.log.WarnObj("leftover sweep incomplete", "error", err.Error())
	}

	report, err := r.RunOnce(ctx)
	if r.interval <= 0 {
		if err != nil {
			return err
		}
		if !report.OK() {
			return ErrRunFailed
		}
		return nil
	}
	if err != nil {
		r.log.ErrorObj("initial smoke run failed", "error", err.Error())
	}

	r.log.InfoObj("smoke loop starting", "runner_state", map[string]any{
		"fixtures_count":   r.fixtures.Len(),
		"publishers_count": r.fanout.Size(),
		"run_interval":     r.interval.String(),
	})

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("smoke loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.ErrorObj("scheduled smoke run failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single smoke pass and publishes its report.
func (r *Runner) RunOnce(ctx context.Context) (domain.RunReport, error) {
	runID := uuid.NewString()
	start := time.Now()
	r.log.InfoObj("smoke run started", "run_meta", map[string]any{
		"run_id":         runID,
		"fixtures_count": r.fixtures.Len(),
		"started_at":     start.UTC(),
	})

	report, err := r.smoke.Run(ctx, runID, r.fixtures.All())
	if err != nil {
		return report, err
	}

	r.log.InfoObj("smoke run completed", "run_meta", map[string]any{
		"run_id":     runID,
		"passed":     report.Passed,
		"failed":     report.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if r.fanout.Size() > 0 {
		delivered, err := r.fanout.Publish(ctx, publishers.NewEvent(report))
		if err != nil {
			r.log.ErrorObj("report publish failed", "publish_error", map[string]any{
				"run_id":    runID,
				"delivered": delivered,
				"error":     err.Error(),
			})
		}
	}
	return report, nil
}

// close releases storage and publisher connections, logging any errors encountered.
func (r *Runner) close() {
	if r == nil {
		return
	}
	if r.ledger != nil {
		if err := r.ledger.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publisher close failed", "error", err.Error())
	}
}
