package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game"
)

// Saver adapts a Store to game.SnapshotSaver.
type Saver struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewSaver wraps st.
func NewSaver(st Store, logger *zap.Logger) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{store: st, logger: logger, now: time.Now}
}

// SaveSnapshot encodes s and stores it as the latest record of its game.
func (sv *Saver) SaveSnapshot(ctx context.Context, s *game.State) error {
	rec, err := NewRecord(s, sv.now())
	if err != nil {
		return err
	}
	return sv.store.Save(ctx, rec)
}

// NewRecord builds the record persisted for s at time at.
func NewRecord(s *game.State, at time.Time) (Record, error) {
	data, err := game.Encode(s)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sum, err := game.Checksum(s)
	if err != nil {
		return Record{}, fmt.Errorf("failed to checksum snapshot: %w", err)
	}
	return Record{
		GameID:    s.ID,
		Version:   s.Version,
		Phase:     s.Phase.String(),
		Round:     s.Round,
		Checksum:  sum.Hash,
		Data:      data,
		UpdatedAt: at.UTC(),
	}, nil
}

// LoadState decodes the stored snapshot of a game and checks it against
// the stored checksum.
func (sv *Saver) LoadState(ctx context.Context, gameID string) (*game.State, error) {
	rec, err := sv.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s, err := game.Decode(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", gameID, err)
	}
	sum, err := game.Checksum(s)
	if err != nil {
		return nil, err
	}
	if sum.Hash != rec.Checksum {
		return nil, fmt.Errorf("snapshot %s@%d failed checksum verification", gameID, rec.Version)
	}
	return s, nil
}

// RestoreAll resumes every stored game that has not finished. Games that
// fail to load are logged and skipped.
func (sv *Saver) RestoreAll(ctx context.Context, m *game.Manager) (int, error) {
	ids, err := sv.store.List(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, id := range ids {
		s, err := sv.LoadState(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			sv.logger.Warn("skipping unreadable snapshot", zap.String("game_id", id), zap.Error(err))
			continue
		}
		if s.Phase.Terminal() {
			continue
		}
		if err := m.Restore(ctx, s); err != nil {
			sv.logger.Warn("failed to restore game", zap.String("game_id", id), zap.Error(err))
			continue
		}
		restored++
	}
	sv.logger.Info("restored games", zap.Int("count", restored), zap.Int("stored", len(ids)))
	return restored, nil
}
