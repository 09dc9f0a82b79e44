// Package store persists accepted game snapshots so that running games
// survive a restart.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/config"
)

// ErrNotFound is returned when no snapshot exists for a game.
var ErrNotFound = errors.New("snapshot not found")

// Record is one persisted snapshot. Data is the canonical encoding of the
// full authoritative state.
type Record struct {
	GameID    string
	Version   int
	Phase     string
	Round     int
	Checksum  string
	Data      []byte
	UpdatedAt time.Time
}

// Store keeps the latest snapshot per game. Save never replaces a record
// with an older version.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, gameID string) (Record, error)
	Delete(ctx context.Context, gameID string) error
	// List returns the stored game ids in sorted order.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "postgres":
		return NewPostgres(ctx, cfg.DSN, cfg.MaxConns, logger)
	case "sqlite":
		return NewSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
