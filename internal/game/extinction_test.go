package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

func TestExtinctionRemovesStarvedAnimals(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 0
deck: 10 carn
players:
  - continent: $ +1, $
  - continent: $ +1
    ended: true
`)
	survivor := tb.animal(0, 0).ID
	tb.do(game.EndTurn("u0"))

	require.Len(t, tb.player(0).Continent, 1)
	assert.Equal(t, survivor, tb.animal(0, 0).ID)
	assert.Equal(t, 1, tb.player(0).ScoreDead)
	assert.Len(t, tb.events(rules.EventAnimalStarved), 1)

	// regeneration opened round 1 with u1 first
	assert.Equal(t, rules.PhaseDeploy, tb.state.Phase)
	assert.Equal(t, 1, tb.state.Round)
	assert.Equal(t, 1, tb.state.RoundPlayer)
	assert.Equal(t, 1, tb.state.CurrentPlayer)
	assert.Equal(t, -1, tb.state.Food)
	assert.Len(t, tb.player(0).Hand, 2)
	assert.Len(t, tb.player(1).Hand, 2)
	assert.Equal(t, 6, tb.state.DeckSize)
	assert.Empty(t, tb.state.AmbushQueue)
}

func TestExtinctionSparesHibernatingAndKillsPoisoned(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 0
deck: 10 carn
players:
  - continent: $ hibernating, $ +1 poisoned
  - continent: $ +1
    ended: true
`)
	sleeper := tb.animal(0, 0).ID
	tb.do(game.EndTurn("u0"))

	require.Len(t, tb.player(0).Continent, 1)
	assert.Equal(t, sleeper, tb.animal(0, 0).ID)
	assert.False(t, tb.animal(0, 0).Hibernating, "hibernation lasts one round")
	assert.Len(t, tb.events(rules.EventAnimalPoisoned), 1)
	assert.Empty(t, tb.events(rules.EventAnimalStarved))
	assert.Equal(t, 1, tb.player(0).ScoreDead)
}

func TestRegenerationKeepsFatStorage(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 0
deck: 10 carn
players:
  - continent: $ fat fat +3, $ fat +1, $ carn fat +3
  - continent: $ +1
    ended: true
`)
	tb.do(game.EndTurn("u0"))

	require.Len(t, tb.player(0).Continent, 3)
	assert.Equal(t, 2, tb.animal(0, 0).Food, "surplus fills fat storage")
	assert.Equal(t, 0, tb.animal(0, 1).Food, "no surplus")
	assert.Equal(t, 1, tb.animal(0, 2).Food, "the carnivore needs two before storing")
	assert.Equal(t, 0, tb.animal(1, 0).Food)
}

func TestGameEndsWhenDeckIsEmpty(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 0
players:
  - continent: $ carn +2, $ +1
  - continent: $ +1, $
    ended: true
    scoreDead: 4
`)
	tb.do(game.EndTurn("u0"))

	require.Equal(t, rules.PhaseFinal, tb.state.Phase)
	assert.Equal(t, 5, tb.player(1).ScoreDead)
	assert.Equal(t, "u0", tb.state.WinnerID)
	assert.Equal(t, []game.ScoreEntry{
		{PlayerID: "u0", Playing: true, ScoreNormal: 6, ScoreDead: 0},
		{PlayerID: "u1", Playing: true, ScoreNormal: 2, ScoreDead: 5},
	}, tb.state.Scoreboard)
	assert.Len(t, tb.events(rules.EventGameEnded), 1)
	assert.True(t, tb.state.TurnDeadline.IsZero())

	tb.reject(game.EndTurn("u0"), rules.KindIllegalPhase)
	tb.reject(game.Action{Type: rules.ActionLeaveGame, PlayerID: "u1"}, rules.KindIllegalPhase)
	tb.reject(game.Action{Type: rules.ActionQuestionTimeout, QuestionID: "q"}, rules.KindIllegalPhase)
}

func TestScoreboardOrdering(t *testing.T) {
	t.Run("dead score breaks ties", func(t *testing.T) {
		tb := newTable(t, `
phase: feeding
food: 0
players:
  - continent: $ +1
  - continent: $ +1
    ended: true
    scoreDead: 3
`)
		tb.do(game.EndTurn("u0"))
		require.Equal(t, rules.PhaseFinal, tb.state.Phase)
		assert.Equal(t, "u1", tb.state.WinnerID)
	})

	t.Run("players who left rank last", func(t *testing.T) {
		tb := newTable(t, `
phase: feeding
food: 0
players:
  - continent: $ +1
  - continent: $ +1
    ended: true
  - continent: $ carn big fat +3
    left: true
`)
		tb.do(game.EndTurn("u0"))
		require.Equal(t, rules.PhaseFinal, tb.state.Phase)
		require.Len(t, tb.state.Scoreboard, 3)
		assert.Equal(t, "u2", tb.state.Scoreboard[2].PlayerID)
		assert.False(t, tb.state.Scoreboard[2].Playing)
		assert.Contains(t, []string{"u0", "u1"}, tb.state.WinnerID)
	})

	t.Run("remaining ties follow the seed", func(t *testing.T) {
		const text = `
phase: feeding
food: 0
seed: 7
players:
  - continent: $ +1
  - continent: $ +1
    ended: true
`
		first := newTable(t, text)
		second := newTable(t, text)
		first.do(game.EndTurn("u0"))
		second.do(game.EndTurn("u0"))
		assert.Equal(t, first.state.WinnerID, second.state.WinnerID)
		assert.Equal(t, first.state.Scoreboard, second.state.Scoreboard)
	})
}

func TestAnimalScore(t *testing.T) {
	animal := game.Animal{Traits: []game.Trait{
		{Type: traits.Carnivorous},
		{Type: traits.Big},
		{Type: traits.Camouflage},
	}}
	// 2 for the animal, 1 per trait, plus the food bonus of carnivorous and big
	assert.Equal(t, 2+3+1+1, animal.Score())
}

func TestLeavingEndsTwoPlayerGame(t *testing.T) {
	tb := newTable(t, `
phase: deploy
players:
  - hand: 2 carn
  - hand: 2 carn
`)
	tb.do(game.Action{Type: rules.ActionLeaveGame, PlayerID: "u1"})

	assert.Equal(t, rules.PhaseFinal, tb.state.Phase)
	assert.Equal(t, "u0", tb.state.WinnerID)
	require.Len(t, tb.state.Scoreboard, 2)
	assert.False(t, tb.state.Scoreboard[1].Playing)
	assert.Len(t, tb.events(rules.EventPlayerLeft), 1)
	assert.Len(t, tb.events(rules.EventGameEnded), 1)

	tb.reject(game.Action{Type: rules.ActionLeaveGame, PlayerID: "u0"}, rules.KindIllegalPhase)
}

func TestLeavingPassesTheTurn(t *testing.T) {
	tb := newTable(t, `
phase: deploy
players:
  - hand: 2 carn
  - hand: 2 carn
  - hand: 2 carn
`)
	tb.do(game.Action{Type: rules.ActionLeaveGame, PlayerID: "u0"})

	assert.Equal(t, rules.PhaseDeploy, tb.state.Phase)
	assert.Equal(t, 1, tb.state.CurrentPlayer)
	assert.False(t, tb.player(0).Playing)
	tb.reject(game.EndTurn("u0"), rules.KindUnauthorized)
}

func TestLeavingWithOpenQuestionAppliesDefault(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ tail
  - continent: $
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))
	require.NotNil(t, tb.state.Question)
	require.Equal(t, "u1", tb.state.Question.PlayerID)

	tb.do(game.Action{Type: rules.ActionLeaveGame, PlayerID: "u1"})

	assert.Nil(t, tb.state.Question)
	require.Len(t, tb.player(1).Continent, 1)
	assert.Empty(t, tb.animal(1, 0).Traits)
	assert.Equal(t, 1, tb.animal(0, 0).Food)
	assert.Equal(t, 0, tb.state.CurrentPlayer)
}
