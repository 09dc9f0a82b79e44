package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	game_id    TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	phase      TEXT NOT NULL,
	round      INTEGER NOT NULL,
	checksum   TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite stores snapshots in a single database file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens the database at path and creates the snapshot table.
func NewSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	logger.Info("sqlite snapshot store ready", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_snapshots (game_id, version, phase, round, checksum, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			version = excluded.version,
			phase = excluded.phase,
			round = excluded.round,
			checksum = excluded.checksum,
			data = excluded.data,
			updated_at = excluded.updated_at
		WHERE game_snapshots.version <= excluded.version
	`,
		rec.GameID,
		rec.Version,
		rec.Phase,
		rec.Round,
		rec.Checksum,
		rec.Data,
		rec.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s@%d: %w", rec.GameID, rec.Version, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, gameID string) (Record, error) {
	var (
		rec       Record
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT game_id, version, phase, round, checksum, data, updated_at
		FROM game_snapshots
		WHERE game_id = ?
	`, gameID).Scan(
		&rec.GameID,
		&rec.Version,
		&rec.Phase,
		&rec.Round,
		&rec.Checksum,
		&rec.Data,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load snapshot %s: %w", gameID, err)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_snapshots WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", gameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", gameID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM game_snapshots ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return ids, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
