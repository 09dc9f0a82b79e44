// Package fixture builds game states from a compact YAML description.
//
// A fixture names the phase, the food pool, the deck and, per seat, the hand
// and the continent:
//
//	phase: feeding
//	food: 4
//	players:
//	  - hand: 2 comm, carn/fat
//	    continent: $a carn, $b +1 comm=$c, $c
//	  -
//
// Card lists are comma separated; a leading count repeats a card and
// "a/b" is a dual-trait card. Continents list animals separated by commas.
// Each animal starts with "$" or "$label" and is followed by trait names,
// "+N" for stored food, "poisoned", "hibernating", and "type=$label" for a
// linked trait to another labelled animal. Empty seats ("-") get an empty
// hand and continent.
package fixture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// Game is the YAML shape of a fixture.
type Game struct {
	ID          string    `yaml:"id"`
	Phase       Phase     `yaml:"phase"`
	Food        *int      `yaml:"food"`
	Deck        string    `yaml:"deck"`
	Seed        int64     `yaml:"seed"`
	Round       int       `yaml:"round"`
	Turn        int       `yaml:"turn"`
	Current     int       `yaml:"current"`
	RoundPlayer int       `yaml:"roundPlayer"`
	Settings    *Settings `yaml:"settings"`
	Players     []*Seat   `yaml:"players"`
}

// Settings overrides game.DefaultSettings. Time budgets default to zero in
// fixtures so no deadlines are armed unless asked for.
type Settings struct {
	HandSize        int           `yaml:"handSize"`
	Deck            string        `yaml:"deck"`
	TurnTime        time.Duration `yaml:"turnTime"`
	QuestionTime    time.Duration `yaml:"questionTime"`
	AmbushTime      time.Duration `yaml:"ambushTime"`
	MaxCascadeSteps int           `yaml:"maxCascadeSteps"`
}

// Seat describes one player.
type Seat struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Hand      string `yaml:"hand"`
	Continent string `yaml:"continent"`
	Left      bool   `yaml:"left"`
	Ended     bool   `yaml:"ended"`
	ScoreDead int    `yaml:"scoreDead"`
}

// Phase accepts a phase name ("feeding") or its ordinal (2).
type Phase rules.Phase

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Phase) UnmarshalYAML(node *yaml.Node) error {
	if n, err := strconv.Atoi(node.Value); err == nil {
		phase := rules.Phase(n)
		if _, err := phase.MarshalText(); err != nil {
			return err
		}
		*p = Phase(phase)
		return nil
	}
	phase, err := rules.ParsePhase(node.Value)
	if err != nil {
		return err
	}
	*p = Phase(phase)
	return nil
}

// Parse builds a state from fixture text. The result passes game.Validate.
func Parse(text string) (*game.State, error) {
	var spec Game
	if err := yaml.Unmarshal([]byte(text), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return Build(spec)
}

// MustParse is Parse for tests and static fixtures.
func MustParse(text string) *game.State {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Build turns a decoded fixture into a state.
func Build(spec Game) (*game.State, error) {
	if len(spec.Players) == 0 {
		return nil, fmt.Errorf("fixture needs at least one player")
	}
	id := spec.ID
	if id == "" {
		id = "fixture"
	}
	phase := rules.Phase(spec.Phase)

	settings := game.DefaultSettings()
	settings.TurnTime = 0
	settings.QuestionTime = 0
	settings.AmbushTime = 0
	if o := spec.Settings; o != nil {
		if o.HandSize > 0 {
			settings.HandSize = o.HandSize
		}
		if o.Deck != "" {
			settings.Deck = o.Deck
		}
		if o.MaxCascadeSteps > 0 {
			settings.MaxCascadeSteps = o.MaxCascadeSteps
		}
		settings.TurnTime = o.TurnTime
		settings.QuestionTime = o.QuestionTime
		settings.AmbushTime = o.AmbushTime
	}

	s := &game.State{
		ID:            id,
		Phase:         phase,
		Turn:          spec.Turn,
		Round:         spec.Round,
		CurrentPlayer: spec.Current,
		RoundPlayer:   spec.RoundPlayer,
		Players:       make([]game.Player, 0, len(spec.Players)),
		Continents:    []game.Continent{{ID: "main", Name: "main"}},
		Food:          -1,
		AmbushQueue:   []string{},
		Cooldowns:     cooldowns.New(),
		Log:           []rules.LogEntry{},
		Settings:      settings,
		Seed:          spec.Seed,
	}
	if phase != rules.PhasePrepare && phase != rules.PhaseDeploy {
		s.Food = 0
	}
	if spec.Food != nil {
		s.Food = *spec.Food
	}

	deck, err := cards(s, spec.Deck)
	if err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	s.Deck = deck
	s.DeckSize = len(deck)

	b := &builder{s: s, labels: make(map[string]string)}
	for i, seat := range spec.Players {
		if seat == nil {
			seat = &Seat{}
		}
		playerID := seat.ID
		if playerID == "" {
			playerID = fmt.Sprintf("u%d", i)
		}
		hand, err := cards(s, seat.Hand)
		if err != nil {
			return nil, fmt.Errorf("player %s hand: %w", playerID, err)
		}
		s.Players = append(s.Players, game.Player{
			ID:        playerID,
			Name:      seat.Name,
			Index:     i,
			Hand:      hand,
			HandSize:  len(hand),
			Continent: []game.Animal{},
			Playing:   !seat.Left,
			Ended:     seat.Ended || seat.Left,
			ScoreDead: seat.ScoreDead,
		})
		if err := b.continent(&s.Players[i], seat.Continent); err != nil {
			return nil, fmt.Errorf("player %s continent: %w", playerID, err)
		}
	}
	if err := b.resolveLinks(); err != nil {
		return nil, err
	}
	if err := game.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// cards parses a card list such as "3 carn, comm/carn, CardCommunication".
func cards(s *game.State, list string) ([]game.Card, error) {
	out := []game.Card{}
	for _, item := range split(list, ",") {
		count := 1
		fields := strings.Fields(item)
		if n, err := strconv.Atoi(fields[0]); err == nil {
			if n < 0 || len(fields) != 2 {
				return nil, fmt.Errorf("bad card entry %q", item)
			}
			count = n
			fields = fields[1:]
		}
		if len(fields) != 1 {
			return nil, fmt.Errorf("bad card entry %q", item)
		}
		names := strings.SplitN(strings.TrimPrefix(strings.ToLower(fields[0]), "card"), "/", 2)
		trait1, err := traits.Parse(names[0])
		if err != nil {
			return nil, err
		}
		var trait2 traits.Type
		if len(names) == 2 {
			if trait2, err = traits.Parse(names[1]); err != nil {
				return nil, err
			}
		}
		for i := 0; i < count; i++ {
			out = append(out, game.Card{ID: s.NextID(), Trait1: trait1, Trait2: trait2})
		}
	}
	return out, nil
}

type pendingLink struct {
	animalID string
	trait    traits.Type
	label    string
}

type builder struct {
	s      *game.State
	labels map[string]string
	links  []pendingLink
}

func (b *builder) continent(p *game.Player, list string) error {
	for _, item := range split(list, ",") {
		fields := strings.Fields(item)
		animal := game.Animal{ID: b.s.NextID(), OwnerID: p.ID, Traits: []game.Trait{}}
		if strings.HasPrefix(fields[0], "$") {
			if label := fields[0][1:]; label != "" {
				if _, dup := b.labels[label]; dup {
					return fmt.Errorf("duplicate label $%s", label)
				}
				b.labels[label] = animal.ID
			}
			fields = fields[1:]
		}
		for _, field := range fields {
			switch {
			case strings.HasPrefix(field, "+"):
				n, err := strconv.Atoi(field[1:])
				if err != nil || n < 0 {
					return fmt.Errorf("bad food %q", field)
				}
				animal.Food = n
			case field == "poisoned":
				animal.Poisoned = true
			case field == "hibernating":
				animal.Hibernating = true
			case strings.Contains(field, "=$"):
				name, label, _ := strings.Cut(field, "=$")
				t, err := traits.Parse(name)
				if err != nil {
					return err
				}
				if !t.Linked() {
					return fmt.Errorf("%s is not a linked trait", t)
				}
				b.links = append(b.links, pendingLink{animalID: animal.ID, trait: t, label: label})
			default:
				t, err := traits.Parse(field)
				if err != nil {
					return err
				}
				if t.Linked() {
					return fmt.Errorf("%s needs a partner: use %s=$label", t, field)
				}
				animal.Traits = append(animal.Traits, game.Trait{
					ID:           b.s.NextID(),
					Type:         t,
					OwnerID:      p.ID,
					HostAnimalID: animal.ID,
				})
			}
		}
		p.Continent = append(p.Continent, animal)
	}
	return nil
}

// resolveLinks attaches the mirrored pairs once every label is known.
func (b *builder) resolveLinks() error {
	for _, link := range b.links {
		otherID, ok := b.labels[link.label]
		if !ok {
			return fmt.Errorf("unknown label $%s", link.label)
		}
		host, _ := b.s.Animal(link.animalID)
		other, _ := b.s.Animal(otherID)
		if host.ID == other.ID {
			return fmt.Errorf("%s links animal $%s to itself", link.trait, link.label)
		}
		hostTrait := game.Trait{ID: b.s.NextID(), Type: link.trait, OwnerID: host.OwnerID, HostAnimalID: host.ID, LinkAnimalID: other.ID}
		otherTrait := game.Trait{ID: b.s.NextID(), Type: link.trait, OwnerID: other.OwnerID, HostAnimalID: other.ID, LinkAnimalID: host.ID}
		hostTrait.LinkTraitID = otherTrait.ID
		otherTrait.LinkTraitID = hostTrait.ID
		host.Traits = append(host.Traits, hostTrait)
		other.Traits = append(other.Traits, otherTrait)
	}
	return nil
}

func split(list, sep string) []string {
	var out []string
	for _, item := range strings.Split(list, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
