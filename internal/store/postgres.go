package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	game_id    TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	phase      TEXT NOT NULL,
	round      INTEGER NOT NULL,
	checksum   TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Postgres stores snapshots as JSONB rows, one per game.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres connects to dsn and creates the snapshot table if needed.
func NewPostgres(ctx context.Context, dsn string, maxConns int32, logger *zap.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	stats := pool.Stat()
	logger.Info("postgres snapshot store ready",
		zap.Int32("max_conns", stats.MaxConns()),
		zap.Int32("total_conns", stats.TotalConns()),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO game_snapshots (game_id, version, phase, round, checksum, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id) DO UPDATE SET
			version = EXCLUDED.version,
			phase = EXCLUDED.phase,
			round = EXCLUDED.round,
			checksum = EXCLUDED.checksum,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
		WHERE game_snapshots.version <= EXCLUDED.version
	`,
		rec.GameID,
		rec.Version,
		rec.Phase,
		rec.Round,
		rec.Checksum,
		rec.Data,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s@%d: %w", rec.GameID, rec.Version, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, gameID string) (Record, error) {
	var rec Record
	err := p.pool.QueryRow(ctx, `
		SELECT game_id, version, phase, round, checksum, data, updated_at
		FROM game_snapshots
		WHERE game_id = $1
	`, gameID).Scan(
		&rec.GameID,
		&rec.Version,
		&rec.Phase,
		&rec.Round,
		&rec.Checksum,
		&rec.Data,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load snapshot %s: %w", gameID, err)
	}
	return rec, nil
}

func (p *Postgres) Delete(ctx context.Context, gameID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM game_snapshots WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT game_id FROM game_snapshots ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return ids, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
