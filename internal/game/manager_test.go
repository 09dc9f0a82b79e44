package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// manualScheduler collects timers and fires them only when told to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, timer)
	return &manualHandle{s: s, timer: timer}
}

// armed returns the delays of the timers that are neither stopped nor fired.
func (s *manualScheduler) armed() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired {
			out = append(out, timer.delay)
		}
	}
	return out
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	var due []func()
	for _, timer := range s.timers {
		if !timer.stopped && !timer.fired {
			timer.fired = true
			due = append(due, timer.f)
		}
	}
	s.mu.Unlock()
	for _, f := range due {
		f()
	}
}

type manualHandle struct {
	s     *manualScheduler
	timer *manualTimer
}

func (h *manualHandle) Stop() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.timer.stopped || h.timer.fired {
		return false
	}
	h.timer.stopped = true
	return true
}

var managerEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T, opts ...game.ManagerOption) *game.Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts = append([]game.ManagerOption{game.WithClock(func() time.Time { return managerEpoch })}, opts...)
	m := game.NewManager(game.NewEngine(logger), logger, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, m.Shutdown(ctx))
	})
	return m
}

func TestManagerCreateAndSubmit(t *testing.T) {
	publisher := game.NewNullPublisher(zaptest.NewLogger(t))
	m := newManager(t,
		game.WithPublisher(publisher),
		game.WithSaver(publisher),
		game.WithScheduler(&manualScheduler{}),
	)

	s, err := m.Create(t.Context(), game.Setup{ID: "g1", Players: players("a", "b"), Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, managerEpoch, s.StartedAt)
	assert.Equal(t, rules.PhaseDeploy, s.Phase)

	latest, ok := publisher.Latest("g1")
	require.True(t, ok)
	assert.Same(t, s, latest)

	next, err := m.Submit(t.Context(), "g1", game.DeployTrait("a", s.Players[0].Hand[0].ID, "", false, ""))
	require.NoError(t, err)
	assert.Equal(t, s.Version+1, next.Version)
	assert.Len(t, next.Players[0].Continent, 1)

	snapshot, err := m.Snapshot("g1")
	require.NoError(t, err)
	assert.Same(t, next, snapshot)
	latest, _ = publisher.Latest("g1")
	assert.Same(t, next, latest)

	rejected, err := m.Submit(t.Context(), "g1", game.EndTurn("a"))
	require.Error(t, err)
	assert.Equal(t, rules.KindNotYourTurn, rules.KindOf(err))
	assert.Same(t, next, rejected)

	stats, err := m.Stats("g1")
	require.NoError(t, err)
	assert.Contains(t, stats, "actions")

	_, err = m.Create(t.Context(), game.Setup{ID: "g1", Players: players("a", "b")})
	assert.Error(t, err, "ids are unique")
}

func TestManagerUnknownGame(t *testing.T) {
	m := newManager(t, game.WithScheduler(&manualScheduler{}))

	_, err := m.Submit(t.Context(), "nope", game.EndTurn("a"))
	assert.ErrorIs(t, err, game.ErrGameNotFound)
	_, err = m.Snapshot("nope")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
	_, err = m.Stats("nope")
	assert.ErrorIs(t, err, game.ErrGameNotFound)
	assert.ErrorIs(t, m.Close("nope"), game.ErrGameNotFound)
}

func TestManagerGamesAndClose(t *testing.T) {
	m := newManager(t, game.WithScheduler(&manualScheduler{}))
	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Create(t.Context(), game.Setup{ID: id, Players: players("x", "y")})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.Games())

	require.NoError(t, m.Close("b"))
	assert.Equal(t, []string{"a", "c"}, m.Games())
	_, err := m.Submit(t.Context(), "b", game.EndTurn("x"))
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.Empty(t, m.Games())
}

func TestManagerTurnTimer(t *testing.T) {
	scheduler := &manualScheduler{}
	m := newManager(t, game.WithScheduler(scheduler))

	s, err := m.Create(t.Context(), game.Setup{ID: "g", Players: players("a", "b"), Settings: game.DefaultSettings()})
	require.NoError(t, err)
	require.Equal(t, managerEpoch.Add(2*time.Minute), s.TurnDeadline)

	require.Eventually(t, func() bool {
		return len(scheduler.armed()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []time.Duration{2 * time.Minute}, scheduler.armed())

	scheduler.fireAll()
	require.Eventually(t, func() bool {
		snap, err := m.Snapshot("g")
		return err == nil && snap.Players[0].TimedOut
	}, time.Second, 5*time.Millisecond)

	snap, err := m.Snapshot("g")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Current().ID)
	require.Eventually(t, func() bool {
		return len(scheduler.armed()) == 1
	}, time.Second, 5*time.Millisecond, "the next turn gets its own timer")
}

func TestManagerWithoutBudgetsArmsNothing(t *testing.T) {
	scheduler := &manualScheduler{}
	m := newManager(t, game.WithScheduler(scheduler))

	s, err := m.Create(t.Context(), game.Setup{ID: "g", Players: players("a", "b")})
	require.NoError(t, err)
	_, err = m.Submit(t.Context(), "g", game.DeployTrait("a", s.Players[0].Hand[0].ID, "", false, ""))
	require.NoError(t, err)
	assert.Empty(t, scheduler.armed())
}

func TestManagerHaltsOnlyTheBrokenGame(t *testing.T) {
	m := newManager(t, game.WithScheduler(&manualScheduler{}))

	broken := openQuestion(t)
	broken.ID = "broken"
	broken.Question.DefaultAnswer = &game.Answer{Kind: game.AnswerTailLoss, TraitID: "ghost"}
	require.NoError(t, m.Restore(t.Context(), broken))

	healthy, err := m.Create(t.Context(), game.Setup{ID: "healthy", Players: players("a", "b")})
	require.NoError(t, err)

	timeout := game.Action{Type: rules.ActionQuestionTimeout, QuestionID: broken.Question.ID}
	state, err := m.Submit(t.Context(), "broken", timeout)
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrGameHalted)
	assert.ErrorIs(t, err, rules.ErrInvariant)
	assert.Same(t, broken, state)

	_, err = m.Submit(t.Context(), "broken", timeout)
	assert.ErrorIs(t, err, game.ErrGameHalted)
	snap, err := m.Snapshot("broken")
	require.NoError(t, err)
	assert.Same(t, broken, snap)

	next, err := m.Submit(t.Context(), "healthy", game.DeployTrait("a", healthy.Players[0].Hand[0].ID, "", false, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Version)
}

func TestManagerRestoreRejectsInvalidState(t *testing.T) {
	m := newManager(t, game.WithScheduler(&manualScheduler{}))
	s := openQuestion(t)
	s.Question.DefaultAnswer = nil
	err := m.Restore(t.Context(), s)
	assert.ErrorIs(t, err, rules.ErrInvariant)
	assert.Empty(t, m.Games())
}

func TestManagerRecordsReplays(t *testing.T) {
	recorder := game.NewReplayRecorder(zaptest.NewLogger(t), t.TempDir())
	m := newManager(t, game.WithScheduler(&manualScheduler{}), game.WithRecorder(recorder))

	s, err := m.Create(t.Context(), game.Setup{ID: "rec", Players: players("a", "b"), Seed: 9})
	require.NoError(t, err)
	_, err = m.Submit(t.Context(), "rec", game.DeployTrait("a", s.Players[0].Hand[0].ID, "", false, ""))
	require.NoError(t, err)

	replay, ok := recorder.GetReplay("rec")
	require.True(t, ok)
	assert.Equal(t, 2, replay.Size())
	require.NoError(t, replay.Verify(t.Context(), game.NewEngine(zaptest.NewLogger(t))))
}
