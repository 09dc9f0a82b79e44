package game

import (
	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

func traitLink(trait traits.Type) cooldowns.Link {
	return cooldowns.Link(trait.String())
}

// CanActivate reports whether the (animal, trait type) pair is free of
// cooldowns at the state's current clock.
func CanActivate(s *State, animalID string, trait traits.Type) bool {
	return !s.Cooldowns.Active(animalID, traitLink(trait), s.Clock())
}

// MarkActivated returns a copy of s in which the pair is blocked for the
// trait type's cooldown window. Traits without a cooldown leave the table
// unchanged.
func MarkActivated(s *State, animalID string, trait traits.Type) *State {
	next := s.Clone()
	next.Cooldowns = markActivated(next, animalID, trait)
	return next
}

func markActivated(s *State, animalID string, trait traits.Type) cooldowns.Table {
	policy := trait.Spec().Cooldown
	if policy.Unlimited() {
		return s.Cooldowns
	}
	return s.Cooldowns.Mark(animalID, traitLink(trait), policy.Scope, policy.Length, s.Clock())
}
