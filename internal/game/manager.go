package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

var (
	// ErrGameNotFound is returned for unknown or closed games.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameHalted is returned once a game hit an invariant violation.
	ErrGameHalted = errors.New("game halted")
)

// Publisher receives every accepted snapshot. Snapshots are immutable and
// shared; implementations must not modify them.
type Publisher interface {
	Publish(ctx context.Context, s *State)
}

// SnapshotSaver persists accepted snapshots.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, s *State) error
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Production code uses wall-clock
// timers; tests inject a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPublisher sets where accepted snapshots are published.
func WithPublisher(p Publisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

// WithSaver sets where accepted snapshots are persisted.
func WithSaver(s SnapshotSaver) ManagerOption {
	return func(m *Manager) { m.saver = s }
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) { m.scheduler = s }
}

// WithRecorder records every game for replay.
func WithRecorder(rr *ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = rr }
}

// WithClock replaces time.Now for stamping actions.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager runs one session per game. Each session applies its actions
// strictly one at a time; sessions share nothing and run in parallel.
type Manager struct {
	engine    *Engine
	logger    *zap.Logger
	publisher Publisher
	saver     SnapshotSaver
	scheduler Scheduler
	recorder  *ReplayRecorder
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// NewManager creates a manager around engine.
func NewManager(engine *Engine, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		engine:    engine,
		logger:    logger,
		publisher: NewNullPublisher(logger),
		saver:     NewNullPublisher(logger),
		scheduler: wallClock{},
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new game and its session.
func (m *Manager) Create(ctx context.Context, setup Setup) (*State, error) {
	if setup.At.IsZero() {
		setup.At = m.stamp()
	}
	s, err := m.engine.NewGame(ctx, setup)
	if err != nil {
		return nil, err
	}
	if m.recorder != nil {
		m.recorder.StartRecording(s.ID)
		m.recorder.Record(s.ID, nil, s)
	}
	if err := m.start(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore resumes a game from a persisted snapshot.
func (m *Manager) Restore(ctx context.Context, s *State) error {
	if err := Validate(s); err != nil {
		return err
	}
	return m.start(ctx, s)
}

func (m *Manager) start(ctx context.Context, s *State) error {
	m.mu.Lock()
	if _, exists := m.sessions[s.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("game %s already running", s.ID)
	}
	sess := newSession(m, s)
	m.sessions[s.ID] = sess
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sess.run()
	}()

	m.persist(ctx, s)
	m.publisher.Publish(ctx, s)
	sess.enqueue(request{ctx: context.Background(), reconcile: true})

	m.logger.Info("game session started",
		zap.String("game_id", s.ID),
		zap.String("phase", s.Phase.String()),
		zap.Int("version", s.Version),
	)
	return nil
}

// Submit queues an action and waits for its outcome. The returned state is
// the accepted snapshot; on rejection it is the unchanged current snapshot.
func (m *Manager) Submit(ctx context.Context, gameID string, action Action) (*State, error) {
	sess, err := m.session(gameID)
	if err != nil {
		return nil, err
	}
	reply := make(chan result, 1)
	if !sess.enqueueCtx(ctx, request{ctx: ctx, action: action, reply: reply}) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrGameNotFound
	}
	select {
	case res := <-reply:
		return res.state, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot returns the latest accepted state of a game.
func (m *Manager) Snapshot(gameID string) (*State, error) {
	sess, err := m.session(gameID)
	if err != nil {
		return nil, err
	}
	return sess.state.Load(), nil
}

// Stats returns the instrumentation counters of a game.
func (m *Manager) Stats(gameID string) (map[string]interface{}, error) {
	sess, err := m.session(gameID)
	if err != nil {
		return nil, err
	}
	return sess.in.Summary(), nil
}

// Games lists running game ids in sorted order.
func (m *Manager) Games() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops a game's session.
func (m *Manager) Close(gameID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[gameID]
	if ok {
		delete(m.sessions, gameID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrGameNotFound
	}
	sess.stop()
	return nil
}

// Shutdown stops every session and waits for them to drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.stop()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) session(gameID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return sess, nil
}

func (m *Manager) stamp() time.Time {
	return m.now().UTC().Round(0)
}

func (m *Manager) persist(ctx context.Context, s *State) {
	if err := m.saver.SaveSnapshot(ctx, s); err != nil {
		m.logger.Warn("failed to save snapshot",
			zap.String("game_id", s.ID),
			zap.Int("version", s.Version),
			zap.Error(err),
		)
	}
}

type request struct {
	ctx       context.Context
	action    Action
	reply     chan result
	reconcile bool
}

type result struct {
	state *State
	err   error
}

type timerKind int

const (
	timerQuestion timerKind = iota
	timerAmbush
	timerTurn
	timerKinds
)

type scheduled struct {
	key   string
	timer Timer
}

// session owns one game. Only the run goroutine touches timers and halted.
type session struct {
	id     string
	m      *Manager
	inbox  chan request
	quit   chan struct{}
	once   sync.Once
	state  atomic.Pointer[State]
	in     *Instrumentation
	halted bool
	timers [timerKinds]scheduled
}

func newSession(m *Manager, s *State) *session {
	sess := &session{
		id:    s.ID,
		m:     m,
		inbox: make(chan request, 64),
		quit:  make(chan struct{}),
		in:    NewInstrumentation(),
	}
	sess.state.Store(s)
	return sess
}

func (s *session) run() {
	defer s.stopTimers()
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.inbox:
			if req.reconcile {
				s.reconcile(s.state.Load())
				continue
			}
			res := s.handle(req)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

func (s *session) stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *session) enqueue(req request) bool {
	return s.enqueueCtx(context.Background(), req)
}

func (s *session) enqueueCtx(ctx context.Context, req request) bool {
	select {
	case s.inbox <- req:
		return true
	case <-s.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *session) handle(req request) result {
	current := s.state.Load()
	if s.halted {
		return result{state: current, err: ErrGameHalted}
	}

	action := req.action
	action.At = s.m.stamp()
	ctx := WithInstrumentation(req.ctx, s.in)
	next, err := s.apply(ctx, current, action)
	if err != nil {
		if rules.IsRejection(err) {
			return result{state: current, err: err}
		}
		s.halted = true
		s.stopTimers()
		s.m.logger.Error("game halted",
			zap.String("game_id", s.id),
			zap.String("action", string(action.Type)),
			zap.Int("version", current.Version),
			zap.Error(err),
		)
		return result{state: current, err: fmt.Errorf("%w: %w", ErrGameHalted, err)}
	}

	s.state.Store(next)
	if rec := s.m.recorder; rec != nil {
		rec.Record(s.id, &action, next)
	}
	s.m.persist(req.ctx, next)
	s.m.publisher.Publish(req.ctx, next)

	if next.Phase.Terminal() {
		s.stopTimers()
		s.finish(next)
	} else {
		s.reconcile(next)
	}
	return result{state: next}
}

func (s *session) apply(ctx context.Context, st *State, action Action) (next *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = st, fmt.Errorf("%w: panic: %v", rules.ErrInvariant, r)
		}
	}()
	return s.m.engine.Apply(ctx, st, action)
}

func (s *session) finish(st *State) {
	s.m.logger.Info("game finished",
		zap.String("game_id", s.id),
		zap.String("winner_id", st.WinnerID),
		zap.Any("stats", s.in.Summary()),
	)
	if rec := s.m.recorder; rec != nil && rec.IsRecording(s.id) {
		if err := rec.SaveReplay(s.id); err != nil {
			s.m.logger.Warn("failed to save replay", zap.String("game_id", s.id), zap.Error(err))
		}
	}
}

// reconcile arms exactly the timers the state needs: one per open question,
// one per open ambush, and the turn timer unless every player paused.
func (s *session) reconcile(st *State) {
	var want [timerKinds]struct {
		key    string
		at     time.Time
		action Action
	}
	if q := st.Question; q != nil && q.Budget > 0 {
		want[timerQuestion].key = q.ID
		want[timerQuestion].at = q.Deadline()
		want[timerQuestion].action = Action{Type: rules.ActionQuestionTimeout, QuestionID: q.ID}
	}
	if a := st.Ambush; a != nil && a.Budget > 0 {
		want[timerAmbush].key = a.ID
		want[timerAmbush].at = a.Deadline()
		want[timerAmbush].action = Action{Type: rules.ActionAmbushTimeout, AmbushID: a.ID}
	}
	if current := st.Current(); current != nil && !st.TurnDeadline.IsZero() && st.Question == nil && !AllPaused(st) {
		want[timerTurn].key = fmt.Sprintf("%d/%s", st.Turn, st.TurnDeadline.Format(time.RFC3339Nano))
		want[timerTurn].at = st.TurnDeadline
		want[timerTurn].action = Action{Type: rules.ActionTurnTimeout, PlayerID: current.ID, Turn: st.Turn}
	}

	now := s.m.stamp()
	for kind := range want {
		w := want[kind]
		if s.timers[kind].key == w.key {
			continue
		}
		if s.timers[kind].timer != nil {
			s.timers[kind].timer.Stop()
		}
		s.timers[kind] = scheduled{}
		if w.key == "" {
			continue
		}
		action := w.action
		delay := max(w.at.Sub(now), 0)
		s.timers[kind] = scheduled{
			key: w.key,
			timer: s.m.scheduler.AfterFunc(delay, func() {
				s.fire(action)
			}),
		}
	}
}

// fire delivers a timer expiry through the inbox like any other action.
func (s *session) fire(action Action) {
	go func() {
		reply := make(chan result, 1)
		if !s.enqueue(request{ctx: context.Background(), action: action, reply: reply}) {
			return
		}
		var res result
		select {
		case res = <-reply:
		case <-s.quit:
			return
		}
		if res.err != nil {
			s.m.logger.Debug("timer action rejected",
				zap.String("game_id", s.id),
				zap.String("action", string(action.Type)),
				zap.Error(res.err),
			)
		}
	}()
}

func (s *session) stopTimers() {
	for kind := range s.timers {
		if s.timers[kind].timer != nil {
			s.timers[kind].timer.Stop()
		}
		s.timers[kind] = scheduled{}
	}
}
