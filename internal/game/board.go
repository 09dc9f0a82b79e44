package game

import (
	"fmt"
	"slices"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// removeTrait detaches one trait instance and, for linked traits, its mirror
// on the other endpoint.
func (t *tx) removeTrait(animal *Animal, traitID string) error {
	trait, ok := animal.Trait(traitID)
	if !ok {
		return fmt.Errorf("%w: trait %s not on animal %s", rules.ErrInvariant, traitID, animal.ID)
	}
	removed := *trait
	animal.Traits = slices.DeleteFunc(animal.Traits, func(tr Trait) bool { return tr.ID == traitID })
	if removed.Linked() {
		if err := t.unlink(removed); err != nil {
			return err
		}
	}
	t.log(rules.LogEntry{Type: rules.EventTraitRemoved, PlayerID: animal.OwnerID, TargetID: animal.ID, Trait: removed.Type.String()})
	return nil
}

// unlink removes the mirror of a linked trait instance.
func (t *tx) unlink(trait Trait) error {
	other, ok := t.s.Animal(trait.LinkAnimalID)
	if !ok {
		return fmt.Errorf("%w: trait %s links to missing animal %s", rules.ErrInvariant, trait.ID, trait.LinkAnimalID)
	}
	if _, ok := other.Trait(trait.LinkTraitID); !ok {
		return fmt.Errorf("%w: trait %s has no mirror on animal %s", rules.ErrInvariant, trait.ID, other.ID)
	}
	other.Traits = slices.DeleteFunc(other.Traits, func(tr Trait) bool { return tr.ID == trait.LinkTraitID })
	return nil
}

// killAnimal removes an animal from the board and credits its owner's dead
// score with one point plus one per trait it carried.
func (t *tx) killAnimal(animalID string, event rules.EventType) error {
	animal, ok := t.s.Animal(animalID)
	if !ok {
		return fmt.Errorf("%w: animal %s vanished before death", rules.ErrInvariant, animalID)
	}
	owner, ok := t.s.Player(animal.OwnerID)
	if !ok {
		return fmt.Errorf("%w: animal %s has unknown owner %s", rules.ErrInvariant, animal.ID, animal.OwnerID)
	}
	owner.ScoreDead += 1 + len(animal.Traits)
	t.log(rules.LogEntry{Type: event, PlayerID: owner.ID, TargetID: animal.ID, Amount: len(animal.Traits)})
	return t.removeAnimal(owner, animalID)
}

func (t *tx) removeAnimal(owner *Player, animalID string) error {
	idx := slices.IndexFunc(owner.Continent, func(a Animal) bool { return a.ID == animalID })
	if idx < 0 {
		return fmt.Errorf("%w: animal %s not on %s's continent", rules.ErrInvariant, animalID, owner.ID)
	}
	for _, trait := range owner.Continent[idx].Traits {
		if !trait.Linked() {
			continue
		}
		if err := t.unlink(trait); err != nil {
			return err
		}
	}
	owner.Continent = slices.DeleteFunc(owner.Continent, func(a Animal) bool { return a.ID == animalID })
	t.s.Cooldowns = t.s.Cooldowns.Forget(animalID)
	return nil
}
