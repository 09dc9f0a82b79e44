package game

import (
	"fmt"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// Validate checks the structural invariants of a state. A failure wraps
// rules.ErrInvariant: the state cannot be trusted and its game must stop.
func Validate(s *State) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", rules.ErrInvariant)
	}
	if s.Question != nil && s.Ambush != nil {
		return fmt.Errorf("%w: question %s and ambush %s are both open", rules.ErrInvariant, s.Question.ID, s.Ambush.ID)
	}
	if s.Question != nil {
		if s.Phase != rules.PhaseFeeding {
			return fmt.Errorf("%w: question open in %s", rules.ErrInvariant, s.Phase)
		}
		if s.Question.DefaultAnswer == nil {
			return fmt.Errorf("%w: question %s has no default answer", rules.ErrInvariant, s.Question.ID)
		}
	}
	if s.Ambush != nil && s.Phase != rules.PhaseAmbush {
		return fmt.Errorf("%w: ambush open in %s", rules.ErrInvariant, s.Phase)
	}
	if s.Food < -1 {
		return fmt.Errorf("%w: food pool %d", rules.ErrInvariant, s.Food)
	}
	if len(s.Players) > 0 && (s.CurrentPlayer < 0 || s.CurrentPlayer >= len(s.Players)) {
		return fmt.Errorf("%w: current player %d out of range", rules.ErrInvariant, s.CurrentPlayer)
	}
	if len(s.Players) > 0 && (s.RoundPlayer < 0 || s.RoundPlayer >= len(s.Players)) {
		return fmt.Errorf("%w: round player %d out of range", rules.ErrInvariant, s.RoundPlayer)
	}

	players := make(map[string]bool, len(s.Players))
	ids := make(map[string]bool)
	for i := range s.Players {
		p := &s.Players[i]
		if players[p.ID] {
			return fmt.Errorf("%w: duplicate player %s", rules.ErrInvariant, p.ID)
		}
		players[p.ID] = true
		for j := range p.Continent {
			animal := &p.Continent[j]
			if animal.OwnerID != p.ID {
				return fmt.Errorf("%w: animal %s owned by %s sits on %s's continent", rules.ErrInvariant, animal.ID, animal.OwnerID, p.ID)
			}
			if ids[animal.ID] {
				return fmt.Errorf("%w: duplicate id %s", rules.ErrInvariant, animal.ID)
			}
			ids[animal.ID] = true
			if animal.Food < 0 {
				return fmt.Errorf("%w: animal %s has %d food", rules.ErrInvariant, animal.ID, animal.Food)
			}
			for _, trait := range animal.Traits {
				if ids[trait.ID] {
					return fmt.Errorf("%w: duplicate id %s", rules.ErrInvariant, trait.ID)
				}
				ids[trait.ID] = true
				if trait.HostAnimalID != animal.ID {
					return fmt.Errorf("%w: trait %s hosted by %s sits on %s", rules.ErrInvariant, trait.ID, trait.HostAnimalID, animal.ID)
				}
				if err := validateLink(s, trait); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// validateLink checks that a linked trait has a mirror pointing back.
func validateLink(s *State, trait Trait) error {
	if !trait.Linked() {
		if trait.Type.Linked() {
			return fmt.Errorf("%w: linked trait %s has no partner", rules.ErrInvariant, trait.ID)
		}
		return nil
	}
	other, ok := s.Animal(trait.LinkAnimalID)
	if !ok {
		return fmt.Errorf("%w: trait %s links to missing animal %s", rules.ErrInvariant, trait.ID, trait.LinkAnimalID)
	}
	mirror, ok := other.Trait(trait.LinkTraitID)
	if !ok || mirror.Type != trait.Type || mirror.LinkAnimalID != trait.HostAnimalID || mirror.LinkTraitID != trait.ID {
		return fmt.Errorf("%w: trait %s has no matching mirror on animal %s", rules.ErrInvariant, trait.ID, other.ID)
	}
	return nil
}
