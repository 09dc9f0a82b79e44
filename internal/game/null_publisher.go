package game

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// NullPublisher is a Publisher and SnapshotSaver that only logs and keeps
// the latest snapshot per game. It is the default when nothing else is wired.
type NullPublisher struct {
	logger *zap.Logger

	mu     sync.RWMutex
	latest map[string]*State
}

// NewNullPublisher creates a null publisher.
func NewNullPublisher(logger *zap.Logger) *NullPublisher {
	return &NullPublisher{
		logger: logger,
		latest: make(map[string]*State),
	}
}

// Publish records the snapshot.
func (n *NullPublisher) Publish(_ context.Context, s *State) {
	n.mu.Lock()
	n.latest[s.ID] = s
	n.mu.Unlock()

	if n.logger != nil {
		n.logger.Debug("null publisher received snapshot",
			zap.String("game_id", s.ID),
			zap.Int("version", s.Version),
			zap.String("phase", s.Phase.String()),
		)
	}
}

// SaveSnapshot records the snapshot and never fails.
func (n *NullPublisher) SaveSnapshot(ctx context.Context, s *State) error {
	n.Publish(ctx, s)
	return nil
}

// Latest returns the most recent snapshot seen for a game.
func (n *NullPublisher) Latest(gameID string) (*State, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	s, ok := n.latest[gameID]
	return s, ok
}
