package game

import (
	"time"

	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// Settings are the per-game tunables fixed at game creation.
type Settings struct {
	HandSize        int           `json:"handSize"`
	Deck            string        `json:"deck"`
	TurnTime        time.Duration `json:"turnTime"`
	QuestionTime    time.Duration `json:"questionTime"`
	AmbushTime      time.Duration `json:"ambushTime"`
	MaxCascadeSteps int           `json:"maxCascadeSteps"`
}

// DefaultSettings returns the settings used when none are supplied.
func DefaultSettings() Settings {
	return Settings{
		HandSize:        6,
		Deck:            "base",
		TurnTime:        2 * time.Minute,
		QuestionTime:    30 * time.Second,
		AmbushTime:      30 * time.Second,
		MaxCascadeSteps: 64,
	}
}

func (s Settings) withDefaults() Settings {
	defaults := DefaultSettings()
	if s.HandSize <= 0 {
		s.HandSize = defaults.HandSize
	}
	if s.Deck == "" {
		s.Deck = defaults.Deck
	}
	if s.MaxCascadeSteps <= 0 {
		s.MaxCascadeSteps = defaults.MaxCascadeSteps
	}
	return s
}

// Card is a face-down card. Trait2 is set on dual-trait cards.
type Card struct {
	ID     string      `json:"id"`
	Trait1 traits.Type `json:"trait1,omitempty"`
	Trait2 traits.Type `json:"trait2,omitempty"`
}

// Trait is a trait instance attached to an animal. Linked traits exist as a
// mirrored pair: each endpoint holds one instance pointing at the other.
type Trait struct {
	ID           string      `json:"id"`
	Type         traits.Type `json:"type"`
	OwnerID      string      `json:"ownerId"`
	HostAnimalID string      `json:"hostAnimalId"`
	LinkAnimalID string      `json:"linkAnimalId,omitempty"`
	LinkTraitID  string      `json:"linkTraitId,omitempty"`
}

// Linked reports whether the instance is one end of a linked pair.
func (t Trait) Linked() bool {
	return t.LinkAnimalID != ""
}

// Animal is a creature on a player's continent.
type Animal struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"ownerId"`
	Traits      []Trait `json:"traits"`
	Food        int     `json:"food"`
	Poisoned    bool    `json:"poisoned,omitempty"`
	Hibernating bool    `json:"hibernating,omitempty"`
}

// Has reports whether the animal carries a trait of the given type.
func (a *Animal) Has(t traits.Type) bool {
	return a.Count(t) > 0
}

// Count returns how many instances of a trait type the animal carries.
func (a *Animal) Count(t traits.Type) int {
	n := 0
	for _, trait := range a.Traits {
		if trait.Type == t {
			n++
		}
	}
	return n
}

// Trait returns the attached instance with the given id.
func (a *Animal) Trait(id string) (*Trait, bool) {
	for i := range a.Traits {
		if a.Traits[i].ID == id {
			return &a.Traits[i], true
		}
	}
	return nil, false
}

// Needs is the food required to be fed.
func (a *Animal) Needs() int {
	needs := 1
	for _, trait := range a.Traits {
		needs += trait.Type.Spec().FoodBonus
	}
	return needs
}

// Capacity is the most food the animal can hold, including fat storage.
func (a *Animal) Capacity() int {
	capacity := a.Needs()
	for _, trait := range a.Traits {
		capacity += trait.Type.Spec().Storage
	}
	return capacity
}

// Fed reports whether the animal's needs are met.
func (a *Animal) Fed() bool {
	return a.Food >= a.Needs()
}

// Full reports whether the animal cannot store more food.
func (a *Animal) Full() bool {
	return a.Food >= a.Capacity()
}

// Score is the animal's contribution to its owner's final score.
func (a *Animal) Score() int {
	score := 2
	for _, trait := range a.Traits {
		score += 1 + trait.Type.Spec().FoodBonus
	}
	return score
}

// Player is one seat at the table.
type Player struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Index      int      `json:"index"`
	Hand       []Card   `json:"hand"`
	HandSize   int      `json:"handSize"`
	Continent  []Animal `json:"continent"`
	Playing    bool     `json:"playing"`
	Ended      bool     `json:"ended"`
	Acted      bool     `json:"acted"`
	TimedOut   bool     `json:"timedOut"`
	WantsPause bool     `json:"wantsPause"`
	ScoreDead  int      `json:"scoreDead"`
}

// PauseRequested reports whether the player asked for, or implied, a pause.
func (p *Player) PauseRequested() bool {
	return p.WantsPause || p.TimedOut
}

// ScoreNormal sums the scores of the player's living animals.
func (p *Player) ScoreNormal() int {
	score := 0
	for i := range p.Continent {
		score += p.Continent[i].Score()
	}
	return score
}

// Continent is a shared board area.
type Continent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FoodBonus int    `json:"foodBonus"`
}

// QuestionType distinguishes the interactive sub-decisions.
type QuestionType string

const (
	QuestionDefense   QuestionType = "DEFENSE"
	QuestionIntellect QuestionType = "INTELLECT"
)

// AnswerKind enumerates question responses.
type AnswerKind string

const (
	AnswerNone      AnswerKind = "NONE"
	AnswerTailLoss  AnswerKind = "TAIL_LOSS"
	AnswerMimicry   AnswerKind = "MIMICRY"
	AnswerIntellect AnswerKind = "INTELLECT"
)

// Answer is a response to a question. TraitID is set for TAIL_LOSS and
// INTELLECT, AnimalID for MIMICRY.
type Answer struct {
	Kind     AnswerKind `json:"kind"`
	TraitID  string     `json:"traitId,omitempty"`
	AnimalID string     `json:"animalId,omitempty"`
}

// Attack is a hunt in progress. It is parked on a question while the
// defender or attacker decides.
type Attack struct {
	AttackerID     string   `json:"attackerId"`
	TargetID       string   `json:"targetId"`
	IgnoredTraitID string   `json:"ignoredTraitId,omitempty"`
	Visited        []string `json:"visited,omitempty"`
	Intellect      bool     `json:"intellect,omitempty"`
	Ambush         bool     `json:"ambush,omitempty"`
}

// Question is a pending interactive decision.
type Question struct {
	ID             string        `json:"id"`
	Type           QuestionType  `json:"type"`
	PlayerID       string        `json:"playerId"`
	SourcePlayerID string        `json:"sourcePlayerId"`
	SourceAnimalID string        `json:"sourceAnimalId"`
	TraitID        string        `json:"traitId"`
	TargetPlayerID string        `json:"targetPlayerId"`
	TargetAnimalID string        `json:"targetAnimalId"`
	Options        []Answer      `json:"options"`
	DefaultAnswer  *Answer       `json:"defaultAnswer,omitempty"`
	Attack         Attack        `json:"attack"`
	CreatedAt      time.Time     `json:"createdAt"`
	Budget         time.Duration `json:"budget"`
	TurnPlayerID   string        `json:"turnPlayerId"`
	TurnRemaining  time.Duration `json:"turnRemaining"`
}

// Deadline is when the question defaults.
func (q *Question) Deadline() time.Time {
	return q.CreatedAt.Add(q.Budget)
}

// AmbushDecision is the choice of one ambushing animal.
type AmbushDecision string

const (
	DecisionPending AmbushDecision = "PENDING"
	DecisionAttack  AmbushDecision = "ATTACK"
	DecisionPass    AmbushDecision = "PASS"
)

// Ambusher is one animal waiting to strike.
type Ambusher struct {
	AnimalID string         `json:"animalId"`
	OwnerID  string         `json:"ownerId"`
	Decision AmbushDecision `json:"decision"`
}

// Ambush is the open ambush situation for one target animal.
type Ambush struct {
	ID            string        `json:"id"`
	TargetID      string        `json:"targetId"`
	TargetOwnerID string        `json:"targetOwnerId"`
	Ambushers     []Ambusher    `json:"ambushers"`
	CreatedAt     time.Time     `json:"createdAt"`
	Budget        time.Duration `json:"budget"`
}

// Deadline is when undecided ambushers pass.
func (a *Ambush) Deadline() time.Time {
	return a.CreatedAt.Add(a.Budget)
}

// Next returns the first undecided ambusher, or nil.
func (a *Ambush) Next() *Ambusher {
	for i := range a.Ambushers {
		if a.Ambushers[i].Decision == DecisionPending {
			return &a.Ambushers[i]
		}
	}
	return nil
}

// ScoreEntry is one row of the final scoreboard.
type ScoreEntry struct {
	PlayerID    string `json:"playerId"`
	Playing     bool   `json:"playing"`
	ScoreNormal int    `json:"scoreNormal"`
	ScoreDead   int    `json:"scoreDead"`
}

// State is the authoritative state of one game. Engine calls never mutate a
// State they receive; they return a new one.
type State struct {
	ID            string           `json:"id"`
	Phase         rules.Phase      `json:"phase"`
	Turn          int              `json:"turn"`
	Round         int              `json:"round"`
	PhaseSeq      int              `json:"phaseSeq"`
	CurrentPlayer int              `json:"currentPlayer"`
	RoundPlayer   int              `json:"roundPlayer"`
	Players       []Player         `json:"players"`
	Deck          []Card           `json:"deck"`
	DeckSize      int              `json:"deckSize"`
	Continents    []Continent      `json:"continents"`
	Food          int              `json:"food"`
	Question      *Question        `json:"question,omitempty"`
	Ambush        *Ambush          `json:"ambush,omitempty"`
	AmbushQueue   []string         `json:"ambushQueue"`
	Cooldowns     cooldowns.Table  `json:"cooldowns"`
	Log           []rules.LogEntry `json:"log"`
	Scoreboard    []ScoreEntry     `json:"scoreboard,omitempty"`
	WinnerID      string           `json:"winnerId,omitempty"`
	Settings      Settings         `json:"settings"`
	Seed          int64            `json:"seed"`
	RollCount     uint64           `json:"rollCount"`
	IDCounter     uint64           `json:"idCounter"`
	TurnDeadline  time.Time        `json:"turnDeadline"`
	StartedAt     time.Time        `json:"startedAt"`
	Version       int              `json:"version"`
}

// Clock returns the counters cooldowns are measured against.
func (s *State) Clock() cooldowns.Clock {
	return cooldowns.Clock{Turn: s.Turn, Phase: s.PhaseSeq, Round: s.Round}
}

// Player returns the player with the given id.
func (s *State) Player(id string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// Current returns the player whose turn it is.
func (s *State) Current() *Player {
	if s.CurrentPlayer < 0 || s.CurrentPlayer >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentPlayer]
}

// Animal locates an animal anywhere on the board.
func (s *State) Animal(id string) (*Animal, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.Players {
		for j := range s.Players[i].Continent {
			if s.Players[i].Continent[j].ID == id {
				return &s.Players[i].Continent[j], true
			}
		}
	}
	return nil, false
}

// Card locates a card in any hand and returns it with its holder.
func (s *State) Card(id string) (*Card, *Player, bool) {
	for i := range s.Players {
		for j := range s.Players[i].Hand {
			if s.Players[i].Hand[j].ID == id {
				return &s.Players[i].Hand[j], &s.Players[i], true
			}
		}
	}
	return nil, nil, false
}

// PlayingCount returns the number of players still in the game.
func (s *State) PlayingCount() int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Playing {
			n++
		}
	}
	return n
}

// Clone returns a deep copy sharing no memory with s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = cloneSlice(s.Players)
	for i := range out.Players {
		out.Players[i] = out.Players[i].clone()
	}
	out.Deck = cloneSlice(s.Deck)
	out.Continents = cloneSlice(s.Continents)
	if s.Question != nil {
		q := *s.Question
		q.Options = cloneSlice(s.Question.Options)
		if s.Question.DefaultAnswer != nil {
			answer := *s.Question.DefaultAnswer
			q.DefaultAnswer = &answer
		}
		q.Attack.Visited = cloneSlice(s.Question.Attack.Visited)
		out.Question = &q
	}
	if s.Ambush != nil {
		a := *s.Ambush
		a.Ambushers = cloneSlice(s.Ambush.Ambushers)
		out.Ambush = &a
	}
	out.AmbushQueue = cloneSlice(s.AmbushQueue)
	out.Cooldowns = s.Cooldowns.Clone()
	out.Log = cloneSlice(s.Log)
	out.Scoreboard = cloneSlice(s.Scoreboard)
	return &out
}

func (p Player) clone() Player {
	p.Hand = cloneSlice(p.Hand)
	p.Continent = cloneSlice(p.Continent)
	for i := range p.Continent {
		p.Continent[i].Traits = cloneSlice(p.Continent[i].Traits)
	}
	return p
}

// cloneSlice copies a slice and keeps nil and empty slices distinct.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
