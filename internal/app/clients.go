package app

import (
	"fmt"

	"github.com/samvad-hq/students-e2e/internal/config"
	"github.com/samvad-hq/students-e2e/internal/storage"
	"github.com/samvad-hq/students-e2e/pkg/httpclient"
	"github.com/samvad-hq/students-e2e/pkg/resource"
	"github.com/samvad-hq/students-e2e/pkg/students"
)

// newStudentsClient builds the resty-backed students client. The token is
// read from cfg.TokenEnv on every request.
func newStudentsClient(cfg *config.Config) (*students.Client, error) {
	exec := httpclient.NewRestyClient(cfg.RequestTimeout)
	res, err := resource.New(exec, resource.EnvToken(cfg.TokenEnv),
		resource.WithBaseURL(cfg.BaseURL),
		resource.WithResource(cfg.Resource),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource client: %w", err)
	}
	return students.New(res)
}

func openLedger(cfg *config.Config) (storage.Ledger, error) {
	opts := storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	ledger, err := storage.NewLedger(cfg.StorageType, cfg.StoragePath(), opts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return ledger, nil
}
