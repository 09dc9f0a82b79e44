package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

func TestParseDeployFixture(t *testing.T) {
	s, err := Parse(`
phase: 1
players:
  -
  - hand: 8 CardCommunication
    continent: $, $, $
`)
	require.NoError(t, err)

	assert.Equal(t, rules.PhaseDeploy, s.Phase)
	assert.Equal(t, -1, s.Food)
	require.Len(t, s.Players, 2)
	assert.Equal(t, "u0", s.Players[0].ID)
	assert.Empty(t, s.Players[0].Hand)
	assert.Empty(t, s.Players[0].Continent)

	p1 := s.Players[1]
	require.Len(t, p1.Hand, 8)
	assert.Equal(t, 8, p1.HandSize)
	for _, card := range p1.Hand {
		assert.Equal(t, traits.Communication, card.Trait1)
		assert.Equal(t, traits.Invalid, card.Trait2)
	}
	require.Len(t, p1.Continent, 3)
	for _, animal := range p1.Continent {
		assert.Equal(t, "u1", animal.OwnerID)
		assert.Empty(t, animal.Traits)
	}
	assert.True(t, p1.Playing)
	assert.False(t, p1.Ended)
}

func TestParseFeedingFixture(t *testing.T) {
	s, err := Parse(`
id: g1
phase: feeding
food: 5
deck: 3 carn, graze/fat
seed: 42
players:
  - id: alice
    continent: $a carn +1 fat fat, $b comm=$a poisoned
  - id: bob
    continent: $ big hibernating
    ended: true
`)
	require.NoError(t, err)

	assert.Equal(t, "g1", s.ID)
	assert.Equal(t, rules.PhaseFeeding, s.Phase)
	assert.Equal(t, 5, s.Food)
	assert.Equal(t, int64(42), s.Seed)
	require.Len(t, s.Deck, 4)
	assert.Equal(t, 4, s.DeckSize)
	assert.Equal(t, traits.Grazing, s.Deck[3].Trait1)
	assert.Equal(t, traits.FatTissue, s.Deck[3].Trait2)

	a := s.Players[0].Continent[0]
	b := s.Players[0].Continent[1]
	assert.Equal(t, 1, a.Food)
	assert.Equal(t, 2, a.Count(traits.FatTissue))
	assert.True(t, b.Poisoned)

	link := a.Traits[len(a.Traits)-1]
	mirror := b.Traits[0]
	assert.Equal(t, traits.Communication, link.Type)
	assert.Equal(t, b.ID, link.LinkAnimalID)
	assert.Equal(t, mirror.ID, link.LinkTraitID)
	assert.Equal(t, a.ID, mirror.LinkAnimalID)
	assert.Equal(t, link.ID, mirror.LinkTraitID)

	bob := s.Players[1]
	assert.True(t, bob.Ended)
	assert.True(t, bob.Continent[0].Hibernating)
	require.NoError(t, game.Validate(s))
}

func TestParseSettings(t *testing.T) {
	s, err := Parse(`
phase: deploy
settings:
  handSize: 3
  turnTime: 45s
  maxCascadeSteps: 2
players:
  -
  -
`)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Settings.HandSize)
	assert.Equal(t, "45s", s.Settings.TurnTime.String())
	assert.Equal(t, 2, s.Settings.MaxCascadeSteps)
	assert.Zero(t, s.Settings.QuestionTime)
}

func TestParseRejectsBadFixtures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no players", "phase: deploy"},
		{"unknown phase", "phase: lunch\nplayers:\n  -"},
		{"unknown trait", "players:\n  - continent: $ wings"},
		{"unknown label", "players:\n  - continent: $a comm=$b"},
		{"unlinked link trait", "players:\n  - continent: $ comm"},
		{"self link", "players:\n  - continent: $a coop=$a"},
		{"bad food", "players:\n  - continent: $ +x"},
		{"negative food pool", "phase: feeding\nfood: -3\nplayers:\n  -"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	const text = `
phase: feeding
players:
  - continent: $a coop=$b, $b
  - hand: 2 carn
`
	first := MustParse(text)
	second := MustParse(text)

	sum1, err := game.Checksum(first)
	require.NoError(t, err)
	sum2, err := game.Checksum(second)
	require.NoError(t, err)
	assert.Equal(t, sum1.Hash, sum2.Hash)
}
