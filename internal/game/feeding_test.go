package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/fixture"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

func TestTakeFood(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 3
players:
  - continent: $, $ +1
  - continent: $
`)
	hungry := tb.animal(0, 0).ID
	tb.do(game.TakeFood("u0", hungry))

	assert.Equal(t, 2, tb.state.Food)
	assert.Equal(t, 1, tb.animal(0, 0).Food)
	assert.True(t, tb.player(0).Acted)
	assert.Equal(t, 0, tb.state.CurrentPlayer, "taking food keeps the turn")

	tb.reject(game.TakeFood("u0", tb.animal(0, 1).ID), rules.KindOnCooldown)

	tb.do(game.EndTurn("u0"))
	assert.False(t, tb.player(0).Ended, "a player who acted only passes the turn")
	assert.Equal(t, 1, tb.state.CurrentPlayer)
}

func TestTakeFoodRejections(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 3
players:
  - continent: $ +1, $
  - continent: $
`)
	full, hungry, enemy := tb.animal(0, 0).ID, tb.animal(0, 1).ID, tb.animal(1, 0).ID

	tb.reject(game.TakeFood("u1", enemy), rules.KindNotYourTurn)
	tb.reject(game.TakeFood("u0", enemy), rules.KindUnauthorized)
	tb.reject(game.TakeFood("u0", "missing"), rules.KindNotFound)
	tb.reject(game.TakeFood("u0", full), rules.KindInvalidTarget)
	tb.reject(game.TakeFood("ghost", hungry), rules.KindUnauthorized)
	tb.reject(game.DeployTrait("u0", "card", hungry, false, ""), rules.KindIllegalPhase)
}

func TestTakeFoodFromEmptyPool(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 0
players:
  - continent: $ graze
  - continent: $
`)
	tb.reject(game.TakeFood("u0", tb.animal(0, 0).ID), rules.KindInvalidAction)
	tb.reject(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Grazing, ""), rules.KindInvalidAction)
}

func TestLinkedChainCascade(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		wantPool int
	}{
		{name: "cooperation shares for free", link: "coop", wantPool: 9},
		{name: "communication takes from the pool", link: "comm", wantPool: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTable(t, `
phase: feeding
food: 10
players:
  - continent: $a `+tt.link+`=$b, $b `+tt.link+`=$c, $c `+tt.link+`=$d, $d
  - continent: $
`)
			tb.do(game.TakeFood("u0", tb.animal(0, 0).ID))

			for i := 0; i < 4; i++ {
				assert.Equal(t, 1, tb.animal(0, i).Food, "animal %d", i)
			}
			assert.Equal(t, tt.wantPool, tb.state.Food)
			assert.Len(t, tb.events(rules.EventFoodShared), 3)
		})
	}
}

func TestCommunicationLinksFromDeploy(t *testing.T) {
	tb := newTable(t, `
phase: deploy
deck: 12 carn
players:
  -
  - hand: 8 CardCommunication
    continent: $, $, $, $
`, game.WithRandomizer(dice.NewFixed(6).Factory()))

	tb.do(game.EndTurn("u0"))
	ids := []string{tb.animal(1, 0).ID, tb.animal(1, 1).ID, tb.animal(1, 2).ID, tb.animal(1, 3).ID}
	tb.do(game.DeployTrait("u1", tb.card(1, 0), ids[0], false, ids[1]))
	tb.do(game.DeployTrait("u1", tb.card(1, 0), ids[1], false, ids[2]))
	tb.do(game.DeployTrait("u1", tb.card(1, 0), ids[1], false, ids[3]))
	for len(tb.player(1).Hand) > 0 {
		tb.do(game.DeployTrait("u1", tb.card(1, 0), "", false, ""))
	}
	require.Equal(t, rules.PhaseFeeding, tb.state.Phase)
	require.Equal(t, 8, tb.state.Food)

	assert.Len(t, tb.animal(1, 0).Traits, 1)
	assert.Len(t, tb.animal(1, 1).Traits, 3)
	assert.Len(t, tb.animal(1, 2).Traits, 1)
	assert.Len(t, tb.animal(1, 3).Traits, 1)

	// u0 has no animals and sits out the feeding phase
	require.Equal(t, 1, tb.state.CurrentPlayer)
	tb.do(game.TakeFood("u1", ids[0]))
	for i := 0; i < 4; i++ {
		assert.Equal(t, 1, tb.animal(1, i).Food, "animal %d", i)
	}
	assert.Equal(t, 4, tb.state.Food)
}

func TestCooperationSharesHuntedFood(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $a carn coop=$b, $b
  - continent: $
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))

	assert.Equal(t, 2, tb.animal(0, 0).Food)
	assert.Equal(t, 1, tb.animal(0, 1).Food, "cooperation shares free food")
	assert.Equal(t, 5, tb.state.Food)
}

func TestCommunicationIgnoresFreeFood(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $a carn comm=$b, $b
  - continent: $
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))

	assert.Equal(t, 2, tb.animal(0, 0).Food)
	assert.Equal(t, 0, tb.animal(0, 1).Food)
	assert.Equal(t, 5, tb.state.Food)
}

func TestCascadeIsBounded(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 10
settings:
  maxCascadeSteps: 2
players:
  - continent: $a coop=$b, $b coop=$c, $c coop=$d, $d
  - continent: $
`)
	in := game.NewInstrumentation()
	next, err := tb.engine.Apply(game.WithInstrumentation(t.Context(), in), tb.state, game.TakeFood("u0", tb.animal(0, 0).ID))
	require.NoError(t, err)
	tb.state = next

	assert.Equal(t, 1, tb.animal(0, 0).Food)
	assert.Equal(t, 1, tb.animal(0, 1).Food)
	assert.Equal(t, 1, tb.animal(0, 2).Food)
	assert.Equal(t, 0, tb.animal(0, 3).Food)
	assert.Equal(t, 1, in.Summary()["cascades_truncated"])
}

func TestCascadeCycleVisitsEachAnimalOnce(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 10
players:
  - continent: $a coop=$b fat, $b coop=$c fat, $c coop=$a fat
  - continent: $
`)
	tb.do(game.TakeFood("u0", tb.animal(0, 0).ID))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, tb.animal(0, i).Food, "animal %d", i)
	}
	assert.Len(t, tb.events(rules.EventFoodShared), 2)
}

func TestGenerateFood(t *testing.T) {
	s := fixture.MustParse(`
phase: feeding
players:
  - continent: $ plantation, $ plantation
  - continent: $
  - continent: $
`)
	// three players roll 2d6
	assert.Equal(t, 2+2+4, game.GenerateFood(s, dice.NewFixed(2, 2)))

	s.Continents[0].FoodBonus = 3
	assert.Equal(t, 6+6+4+3, game.GenerateFood(s, dice.NewFixed(6)))

	s.Players = s.Players[:2]
	assert.Equal(t, 1+2+4+3, game.GenerateFood(s, dice.NewFixed(1)))

	s.Players = s.Players[:1]
	fixed := dice.NewFixed(6)
	assert.Equal(t, 10+4+3, game.GenerateFood(s, fixed))
	assert.Zero(t, fixed.Draws())
}

func TestFeedingEndsWhenFoodRunsOut(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 1
deck: 6 carn
players:
  - continent: $
  - continent: $ +1
`)
	tb.do(game.TakeFood("u0", tb.animal(0, 0).ID))

	// nobody can do anything with an empty pool, so the round moves on
	assert.Equal(t, rules.PhaseDeploy, tb.state.Phase)
	assert.Equal(t, 1, tb.state.Round)
	assert.Empty(t, tb.events(rules.EventAnimalStarved))
	assert.Equal(t, 0, tb.animal(0, 0).Food, "food resets at regeneration")
}
