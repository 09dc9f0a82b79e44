package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

func TestCarnivoreKillsAndScavengerEats(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ big, $ scavenger
`)
	hunter := tb.animal(0, 0).ID
	prey := tb.animal(1, 0).ID

	// big prey needs a big hunter
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, prey), rules.KindInvalidTarget)

	tb.state.Players[1].Continent[0].Traits = []game.Trait{}
	tb.do(game.ActivateTrait("u0", hunter, traits.Carnivorous, prey))

	require.Len(t, tb.player(1).Continent, 1)
	assert.Equal(t, 1, tb.player(1).ScoreDead)
	assert.Equal(t, 2, tb.animal(0, 0).Food)
	assert.Equal(t, 1, tb.animal(1, 0).Food, "the scavenger gets a share")
	assert.Equal(t, 5, tb.state.Food)
	assert.True(t, tb.player(0).Acted)
	assert.False(t, game.CanActivate(tb.state, hunter, traits.Carnivorous))
	assert.True(t, tb.state.Cooldowns.Active("u0", cooldowns.LinkFoodAction, tb.state.Clock()))

	assert.Len(t, tb.events(rules.EventAttack), 1)
	assert.Len(t, tb.events(rules.EventAnimalKilled), 1)
	assert.Len(t, tb.events(rules.EventScavenged), 1)
}

func TestCarnivoreActivationRejections(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn, $, $ carn +2
  - continent: $ camo, $ swim, $ burrow +1, $
`)
	hunter, plain, full := tb.animal(0, 0).ID, tb.animal(0, 1).ID, tb.animal(0, 2).ID
	camo, swim, burrow, prey := tb.animal(1, 0).ID, tb.animal(1, 1).ID, tb.animal(1, 2).ID, tb.animal(1, 3).ID

	tb.reject(game.ActivateTrait("u1", prey, traits.Carnivorous, hunter), rules.KindNotYourTurn)
	tb.reject(game.ActivateTrait("u0", prey, traits.Carnivorous, hunter), rules.KindUnauthorized)
	tb.reject(game.ActivateTrait("u0", "missing", traits.Carnivorous, prey), rules.KindNotFound)
	tb.reject(game.ActivateTrait("u0", plain, traits.Carnivorous, prey), rules.KindNotFound)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Big, prey), rules.KindInvalidAction)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, ""), rules.KindInvalidTarget)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, "missing"), rules.KindNotFound)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, plain), rules.KindInvalidTarget)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, camo), rules.KindInvalidTarget)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, swim), rules.KindInvalidTarget)
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, burrow), rules.KindInvalidTarget)
	tb.reject(game.ActivateTrait("u0", full, traits.Carnivorous, prey), rules.KindInvalidTarget)

	tb.do(game.TakeFood("u0", plain))
	tb.reject(game.ActivateTrait("u0", hunter, traits.Carnivorous, prey), rules.KindOnCooldown)
}

func TestRunningEscape(t *testing.T) {
	tests := []struct {
		name    string
		roll    int
		escaped bool
	}{
		{name: "four escapes", roll: 4, escaped: true},
		{name: "six escapes", roll: 6, escaped: true},
		{name: "three is caught", roll: 3, escaped: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ run
`, game.WithRandomizer(dice.NewFixed(tt.roll).Factory()))
			tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))

			if tt.escaped {
				assert.Len(t, tb.player(1).Continent, 1)
				assert.Equal(t, 0, tb.animal(0, 0).Food)
				assert.Len(t, tb.events(rules.EventEscaped), 1)
			} else {
				assert.Empty(t, tb.player(1).Continent)
				assert.Equal(t, 2, tb.animal(0, 0).Food)
			}
			assert.False(t, game.CanActivate(tb.state, tb.animal(0, 0).ID, traits.Carnivorous))
		})
	}
}

func TestTailLossQuestion(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ tail fat
`)
	hunter, prey := tb.animal(0, 0).ID, tb.animal(1, 0).ID
	tail, fat := tb.animal(1, 0).Traits[0].ID, tb.animal(1, 0).Traits[1].ID
	tb.do(game.ActivateTrait("u0", hunter, traits.Carnivorous, prey))

	q := tb.state.Question
	require.NotNil(t, q)
	assert.Equal(t, game.QuestionDefense, q.Type)
	assert.Equal(t, "u1", q.PlayerID)
	assert.Equal(t, hunter, q.SourceAnimalID)
	assert.Equal(t, prey, q.TargetAnimalID)
	assert.Equal(t, tb.animal(0, 0).Traits[0].ID, q.TraitID)
	assert.Equal(t, []game.Answer{
		{Kind: game.AnswerTailLoss, TraitID: tail},
		{Kind: game.AnswerTailLoss, TraitID: fat},
		{Kind: game.AnswerNone},
	}, q.Options)
	require.NotNil(t, q.DefaultAnswer)
	assert.Equal(t, game.Answer{Kind: game.AnswerTailLoss, TraitID: fat}, *q.DefaultAnswer)

	// everything else waits for the answer
	tb.reject(game.TakeFood("u0", hunter), rules.KindQuestionPending)
	tb.reject(game.EndTurn("u0"), rules.KindQuestionPending)
	tb.reject(game.DeployTrait("u0", "card", hunter, false, ""), rules.KindQuestionPending)
	tb.reject(game.AnswerQuestion("u0", q.ID, game.Answer{Kind: game.AnswerNone}), rules.KindNotYourTurn)
	tb.reject(game.AnswerQuestion("u1", "other", game.Answer{Kind: game.AnswerNone}), rules.KindNotFound)
	tb.reject(game.AnswerQuestion("u1", q.ID, game.Answer{Kind: game.AnswerTailLoss, TraitID: "missing"}), rules.KindInvalidTarget)

	tb.do(game.AnswerQuestion("u1", q.ID, game.Answer{Kind: game.AnswerTailLoss, TraitID: tail}))

	assert.Nil(t, tb.state.Question)
	require.Len(t, tb.player(1).Continent, 1)
	survivor := tb.animal(1, 0)
	require.Len(t, survivor.Traits, 1)
	assert.Equal(t, traits.FatTissue, survivor.Traits[0].Type)
	assert.Equal(t, 1, tb.animal(0, 0).Food)
	assert.Equal(t, 0, tb.state.CurrentPlayer)
	assert.Len(t, tb.events(rules.EventTailDropped), 1)
}

func TestQuestionTimeoutAppliesDefault(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ tail fat
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))
	q := tb.state.Question
	require.NotNil(t, q)

	tb.reject(game.Action{Type: rules.ActionQuestionTimeout, QuestionID: "stale"}, rules.KindNotFound)
	tb.do(game.Action{Type: rules.ActionQuestionTimeout, QuestionID: q.ID})

	assert.Nil(t, tb.state.Question)
	survivor := tb.animal(1, 0)
	require.Len(t, survivor.Traits, 1)
	assert.Equal(t, traits.TailLoss, survivor.Traits[0].Type, "the default drops the last trait")
	assert.Len(t, tb.events(rules.EventQuestionDefault), 1)

	tb.reject(game.Action{Type: rules.ActionQuestionTimeout, QuestionID: q.ID}, rules.KindNotFound)
}

func TestDeclinedDefenseKills(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ tail
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))
	q := tb.state.Question
	require.NotNil(t, q)

	tb.do(game.AnswerQuestion("u1", q.ID, game.Answer{Kind: game.AnswerNone}))
	assert.Empty(t, tb.player(1).Continent)
	assert.Equal(t, 2, tb.player(1).ScoreDead)
	assert.Equal(t, 2, tb.animal(0, 0).Food)
}

func TestMimicryRedirects(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ mimicry, $ swim, $
`)
	hunter := tb.animal(0, 0).ID
	mimic, swimmer, decoy := tb.animal(1, 0).ID, tb.animal(1, 1).ID, tb.animal(1, 2).ID
	tb.do(game.ActivateTrait("u0", hunter, traits.Carnivorous, mimic))

	q := tb.state.Question
	require.NotNil(t, q)
	assert.Equal(t, []game.Answer{
		{Kind: game.AnswerMimicry, AnimalID: decoy},
		{Kind: game.AnswerNone},
	}, q.Options, "the swimmer cannot be hunted by this carnivore")

	tb.do(game.AnswerQuestion("u1", q.ID, game.Answer{Kind: game.AnswerMimicry, AnimalID: decoy}))

	p1 := tb.player(1)
	require.Len(t, p1.Continent, 2)
	assert.Equal(t, mimic, p1.Continent[0].ID)
	assert.Equal(t, swimmer, p1.Continent[1].ID)
	assert.Len(t, tb.events(rules.EventMimicry), 1)
}

func TestMimicryChainDoesNotLoop(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn
  - continent: $ mimicry, $ mimicry
`)
	first, second := tb.animal(1, 0).ID, tb.animal(1, 1).ID
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, first))

	q := tb.state.Question
	require.NotNil(t, q)
	tb.do(game.AnswerQuestion("u1", q.ID, game.Answer{Kind: game.AnswerMimicry, AnimalID: second}))

	// the second mimic cannot send the attack back to the first
	assert.Nil(t, tb.state.Question)
	require.Len(t, tb.player(1).Continent, 1)
	assert.Equal(t, first, tb.animal(1, 0).ID)
}

func TestPoisonousPrey(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
deck: 6 carn
players:
  - continent: $ carn
  - continent: $ poison
`)
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))
	assert.True(t, tb.animal(0, 0).Poisoned)
	assert.Equal(t, 2, tb.animal(0, 0).Food)

	// the poisoned hunter dies at extinction even though it is fed
	tb.do(game.EndTurn("u0"))
	require.Equal(t, rules.PhaseFeeding, tb.state.Phase)
	tb.do(game.EndTurn("u1"))
	tb.do(game.EndTurn("u0"))

	assert.Equal(t, rules.PhaseDeploy, tb.state.Phase)
	assert.Empty(t, tb.player(0).Continent)
	assert.Equal(t, 2, tb.player(0).ScoreDead)
	assert.Len(t, tb.events(rules.EventAnimalPoisoned), 1)
}

func TestIntellectQuestion(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn intellect
  - continent: $ run poison
`, game.WithRandomizer(dice.NewFixed(1).Factory()))
	hunter := tb.animal(0, 0)
	intellect := hunter.Traits[1].ID
	running, poison := tb.animal(1, 0).Traits[0].ID, tb.animal(1, 0).Traits[1].ID

	tb.do(game.ActivateTrait("u0", hunter.ID, traits.Carnivorous, tb.animal(1, 0).ID))

	q := tb.state.Question
	require.NotNil(t, q)
	assert.Equal(t, game.QuestionIntellect, q.Type)
	assert.Equal(t, "u0", q.PlayerID)
	assert.Equal(t, intellect, q.TraitID)
	assert.Equal(t, []game.Answer{
		{Kind: game.AnswerIntellect, TraitID: running},
		{Kind: game.AnswerIntellect, TraitID: poison},
	}, q.Options)

	tb.do(game.AnswerQuestion("u0", q.ID, game.Answer{Kind: game.AnswerIntellect, TraitID: poison}))

	// running still rolls (a 1 is caught), poison is ignored
	assert.Empty(t, tb.player(1).Continent)
	assert.False(t, tb.animal(0, 0).Poisoned)
	assert.Equal(t, 2, tb.animal(0, 0).Food)
	assert.Len(t, tb.events(rules.EventTraitIgnored), 1)
}

func TestIntellectIgnoresSingleDefense(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ carn intellect
  - continent: $ run
`, game.WithRandomizer(dice.NewFixed(6).Factory()))
	tb.do(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Carnivorous, tb.animal(1, 0).ID))

	assert.Nil(t, tb.state.Question)
	assert.Empty(t, tb.player(1).Continent, "running was ignored so the six did not matter")
	assert.Empty(t, tb.events(rules.EventEscaped))
}

func TestPiracyCooldown(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 5
players:
  - continent: $ piracy, $
  - continent: $ big +1, $ +1
`)
	pirate := tb.animal(0, 0).ID
	victim, fed := tb.animal(1, 0).ID, tb.animal(1, 1).ID

	tb.reject(game.ActivateTrait("u0", pirate, traits.Piracy, fed), rules.KindInvalidTarget)
	tb.do(game.ActivateTrait("u0", pirate, traits.Piracy, victim))
	assert.Equal(t, 0, tb.animal(1, 0).Food)
	assert.Equal(t, 1, tb.animal(0, 0).Food)
	assert.Len(t, tb.events(rules.EventFoodStolen), 1)

	// piracy is not the food action
	tb.do(game.TakeFood("u0", tb.animal(0, 1).ID))

	tb.reject(game.ActivateTrait("u0", pirate, traits.Piracy, victim), rules.KindOnCooldown)
	tb.do(game.EndTurn("u0"))
	tb.do(game.EndTurn("u1"))
	require.Equal(t, 0, tb.state.CurrentPlayer)
	tb.reject(game.ActivateTrait("u0", pirate, traits.Piracy, victim), rules.KindOnCooldown)

	next := tb.state.Clone()
	next.Round++
	assert.True(t, game.CanActivate(next, pirate, traits.Piracy))
}

func TestGrazingAndHibernation(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 2
deck: 6 carn
players:
  - continent: $ graze hiber
  - continent: $
`)
	grazer := tb.animal(0, 0).ID
	tb.do(game.ActivateTrait("u0", grazer, traits.Grazing, ""))
	assert.Equal(t, 1, tb.state.Food)
	tb.reject(game.ActivateTrait("u0", grazer, traits.Grazing, ""), rules.KindOnCooldown)

	tb.do(game.ActivateTrait("u0", grazer, traits.Hibernation, ""))
	assert.True(t, tb.animal(0, 0).Hibernating)
	tb.reject(game.ActivateTrait("u0", grazer, traits.Hibernation, ""), rules.KindOnCooldown)

	// the hibernating animal survives extinction unfed
	tb.do(game.EndTurn("u0"))
	tb.do(game.TakeFood("u1", tb.animal(1, 0).ID))
	require.Equal(t, rules.PhaseDeploy, tb.state.Phase)
	require.Len(t, tb.player(0).Continent, 1)
	assert.False(t, tb.animal(0, 0).Hibernating, "regeneration wakes the animal")
	assert.Empty(t, tb.events(rules.EventAnimalStarved))
}

func TestHibernationNotInLastRound(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 2
players:
  - continent: $ hiber
  - continent: $
`)
	tb.reject(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Hibernation, ""), rules.KindInvalidAction)
}

func TestHibernationWhileHibernating(t *testing.T) {
	tb := newTable(t, `
phase: feeding
food: 2
deck: 4 carn
players:
  - continent: $ hiber hibernating
  - continent: $
`)
	tb.reject(game.ActivateTrait("u0", tb.animal(0, 0).ID, traits.Hibernation, ""), rules.KindInvalidAction)
}
