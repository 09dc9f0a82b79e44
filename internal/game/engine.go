package game

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// MinPlayers and MaxPlayers bound the table size.
const (
	MinPlayers = 2
	MaxPlayers = 8
)

// Engine validates and applies actions. It holds no game state: every call
// receives a *State and returns a new one, so one Engine serves any number
// of games concurrently.
type Engine struct {
	logger *zap.Logger
	random dice.Factory
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandomizer replaces the seeded randomizer, e.g. with dice.NewFixed in tests.
func WithRandomizer(factory dice.Factory) Option {
	return func(e *Engine) {
		if factory != nil {
			e.random = factory
		}
	}
}

// NewEngine creates an engine.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger: logger,
		random: dice.SeededFactory,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlayerInfo identifies a seat. Identity is owned by an external provider.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Setup describes a new game.
type Setup struct {
	ID       string
	Players  []PlayerInfo
	Settings Settings
	// Seed drives all randomness of the game. Zero draws a secret seed;
	// explicit seeds are for fixtures and tests.
	Seed int64
	At   time.Time
}

// NewGame runs PREPARE: it builds and shuffles the deck, deals the opening
// hands and enters DEPLOY.
func (e *Engine) NewGame(ctx context.Context, setup Setup) (*State, error) {
	if len(setup.Players) < MinPlayers || len(setup.Players) > MaxPlayers {
		return nil, fmt.Errorf("game needs %d to %d players, got %d", MinPlayers, MaxPlayers, len(setup.Players))
	}
	seen := make(map[string]bool, len(setup.Players))
	for _, info := range setup.Players {
		if info.ID == "" {
			return nil, fmt.Errorf("player id must not be empty")
		}
		if seen[info.ID] {
			return nil, fmt.Errorf("duplicate player %q", info.ID)
		}
		seen[info.ID] = true
	}

	settings := setup.Settings.withDefaults()
	composition, err := traits.Deck(settings.Deck)
	if err != nil {
		return nil, fmt.Errorf("failed to build deck: %w", err)
	}

	id := setup.ID
	if id == "" {
		id = uuid.NewString()
	}
	seed := setup.Seed
	if seed == 0 {
		if seed, err = dice.NewSeed(); err != nil {
			return nil, fmt.Errorf("failed to seed game: %w", err)
		}
	}

	s := &State{
		ID:          id,
		Phase:       rules.PhasePrepare,
		Players:     make([]Player, 0, len(setup.Players)),
		Deck:        make([]Card, 0, traits.DeckSize(composition)),
		Continents:  []Continent{{ID: "main", Name: "main"}},
		Food:        -1,
		AmbushQueue: []string{},
		Cooldowns:   cooldowns.New(),
		Log:         []rules.LogEntry{},
		Settings:    settings,
		Seed:        seed,
		StartedAt:   setup.At,
	}
	for i, info := range setup.Players {
		s.Players = append(s.Players, Player{
			ID:        info.ID,
			Name:      info.Name,
			Index:     i,
			Hand:      []Card{},
			Continent: []Animal{},
			Playing:   true,
		})
	}

	t := e.begin(ctx, s, setup.At)
	for _, entry := range composition {
		for i := 0; i < entry.Count; i++ {
			s.Deck = append(s.Deck, Card{Trait1: entry.Trait1, Trait2: entry.Trait2})
		}
	}
	dice.Shuffle(t.rng, len(s.Deck), func(i, j int) {
		s.Deck[i], s.Deck[j] = s.Deck[j], s.Deck[i]
	})
	// ids follow deck position so an id never reveals the card
	for i := range s.Deck {
		s.Deck[i].ID = s.NextID()
	}

	t.log(rules.LogEntry{Type: rules.EventGameStarted, Amount: len(s.Players)})
	for i := range s.Players {
		t.deal(&s.Players[i], settings.HandSize)
	}
	if err := t.enterPhase(rules.PhaseDeploy); err != nil {
		return nil, err
	}
	t.commit()

	if err := Validate(s); err != nil {
		return nil, err
	}

	e.logger.Info("game created",
		zap.String("game_id", s.ID),
		zap.Int("players", len(s.Players)),
		zap.Int("deck", len(s.Deck)),
	)
	return s, nil
}

// Apply validates an action against s and returns the resulting state. On
// any error the input state is returned unchanged. Rule rejections match
// rules.Error kinds; errors wrapping rules.ErrInvariant mean the game can no
// longer be trusted.
func (e *Engine) Apply(ctx context.Context, s *State, action Action) (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", rules.ErrInvariant)
	}
	in := InstrumentationFrom(ctx)
	in.trackAction(action.Type)

	if err := e.validate(s, action); err != nil {
		return e.reject(s, action, in, err)
	}

	next := s.Clone()
	t := e.begin(ctx, next, action.At)
	if err := t.dispatch(action); err != nil {
		if rules.IsRejection(err) {
			return e.reject(s, action, in, err)
		}
		return s, err
	}
	if err := t.settle(); err != nil {
		return s, err
	}
	t.commit()
	next.Version++

	if err := Validate(next); err != nil {
		return s, err
	}
	return next, nil
}

func (e *Engine) reject(s *State, action Action, in *Instrumentation, err error) (*State, error) {
	in.trackRejection(err)
	e.logger.Debug("action rejected",
		zap.String("game_id", s.ID),
		zap.String("action", string(action.Type)),
		zap.String("player_id", action.PlayerID),
		zap.Error(err),
	)
	return s, err
}

// validate runs the checks shared by every action type: game over, seat,
// question/ambush exclusivity, then phase.
func (e *Engine) validate(s *State, action Action) error {
	if s.Phase.Terminal() {
		return rules.Reject(rules.KindIllegalPhase, "game is over")
	}
	switch action.Type {
	case rules.ActionQuestionTimeout, rules.ActionAmbushTimeout:
		// addressed by record id, not by seat
	default:
		player, ok := s.Player(action.PlayerID)
		if !ok {
			return rules.Reject(rules.KindUnauthorized, "unknown player %q", action.PlayerID)
		}
		if !player.Playing {
			return rules.Reject(rules.KindUnauthorized, "player %s left the game", player.ID)
		}
	}
	if s.Question != nil && !allowedDuringQuestion(action.Type) {
		return rules.Reject(rules.KindQuestionPending, "question %s is pending", s.Question.ID)
	}
	if s.Ambush != nil && !allowedDuringAmbush(action.Type) {
		return rules.Reject(rules.KindAmbushPending, "ambush %s is pending", s.Ambush.ID)
	}
	if !rules.AllowedIn(action.Type, s.Phase) {
		return rules.Reject(rules.KindIllegalPhase, "%s is not allowed in %s", action.Type, s.Phase)
	}
	return nil
}

func allowedDuringQuestion(action rules.ActionType) bool {
	switch action {
	case rules.ActionAnswerQuestion, rules.ActionQuestionTimeout, rules.ActionLeaveGame, rules.ActionSetPause:
		return true
	default:
		return false
	}
}

func allowedDuringAmbush(action rules.ActionType) bool {
	switch action {
	case rules.ActionAnswerAmbush, rules.ActionAmbushTimeout, rules.ActionLeaveGame, rules.ActionSetPause:
		return true
	default:
		return false
	}
}

// tx is one engine call in progress. It mutates a private clone of the
// state; nothing is visible to callers until Apply returns it.
type tx struct {
	ctx    context.Context
	engine *Engine
	s      *State
	rng    dice.Randomizer
	at     time.Time
	in     *Instrumentation
}

func (e *Engine) begin(ctx context.Context, s *State, at time.Time) *tx {
	return &tx{
		ctx:    ctx,
		engine: e,
		s:      s,
		rng:    e.random(s.Seed, s.RollCount),
		at:     at,
		in:     InstrumentationFrom(ctx),
	}
}

// commit records consumed randomness and refreshes the derived size fields.
func (t *tx) commit() {
	t.s.RollCount += uint64(t.rng.Draws())
	t.s.DeckSize = len(t.s.Deck)
	for i := range t.s.Players {
		t.s.Players[i].HandSize = len(t.s.Players[i].Hand)
	}
}

func (t *tx) dispatch(action Action) error {
	switch action.Type {
	case rules.ActionDeployTrait:
		return t.deployTrait(action)
	case rules.ActionEndTurn:
		return t.endTurn(action.PlayerID)
	case rules.ActionActivateTrait:
		return t.activate(action)
	case rules.ActionTakeFood:
		return t.takeFood(action)
	case rules.ActionAnswerQuestion:
		return t.answerQuestion(action)
	case rules.ActionQuestionTimeout:
		return t.questionTimeout(action)
	case rules.ActionAnswerAmbush:
		return t.answerAmbush(action)
	case rules.ActionAmbushTimeout:
		return t.ambushTimeout(action)
	case rules.ActionTurnTimeout:
		return t.turnTimeout(action)
	case rules.ActionLeaveGame:
		return t.leave(action.PlayerID)
	case rules.ActionSetPause:
		return t.setPause(action)
	default:
		return rules.Reject(rules.KindInvalidAction, "unknown action type %q", action.Type)
	}
}

// settle runs the checks that may advance the phase after any accepted action.
func (t *tx) settle() error {
	if t.s.Phase == rules.PhaseFeeding && t.s.Question == nil && t.feedingExhausted() {
		return t.endFeeding()
	}
	return nil
}

func (t *tx) log(entry rules.LogEntry) {
	entry.Round = t.s.Round
	entry.Turn = t.s.Turn
	entry.Phase = t.s.Phase
	t.s.Log = append(t.s.Log, entry)
}

// requireTurn returns the acting player if it is their turn.
func (t *tx) requireTurn(playerID string) (*Player, error) {
	current := t.s.Current()
	if current == nil || current.ID != playerID {
		return nil, rules.Reject(rules.KindNotYourTurn, "it is not %s's turn", playerID)
	}
	if current.Ended {
		return nil, rules.Reject(rules.KindNotYourTurn, "player %s has ended the phase", playerID)
	}
	return current, nil
}

// NextID allocates a deterministic id. Ids are name-based UUIDs over the game
// id and a counter, so replaying the same actions yields the same ids.
func (s *State) NextID() string {
	s.IDCounter++
	namespace := uuid.NewSHA1(uuid.NameSpaceURL, []byte("evolution:"+s.ID))
	return uuid.NewSHA1(namespace, []byte(strconv.FormatUint(s.IDCounter, 10))).String()
}
