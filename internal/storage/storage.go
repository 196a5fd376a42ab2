// Package storage keeps a local ledger of students created by smoke runs so
// leftovers from interrupted runs can be swept later.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Ledger tracks ids of students that were created but not yet deleted.
type Ledger interface {
	Close() error
	Track(id string) error
	Release(id string) error
	Pending() ([]string, error)
}

// Options controls retention characteristics for concrete ledger implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewLedger creates the configured storage backend.
func NewLedger(typ, path string, opts Options) (Ledger, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopLedger{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case "sqlite":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopLedger struct{}

func (noopLedger) Close() error               { return nil }
func (noopLedger) Track(string) error         { return nil }
func (noopLedger) Release(string) error       { return nil }
func (noopLedger) Pending() ([]string, error) { return nil, nil }
