package game

import (
	"fmt"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// activation is the behavior of one activatable trait type. check validates
// the request without touching state; resolve applies it. target is nil for
// self activations.
type activation struct {
	check   func(t *tx, source, target *Animal) error
	resolve func(t *tx, source, target *Animal) error
}

// activations is indexed by trait type. Every type whose registry row is
// activatable must have an entry.
var activations [traits.Count]activation

func init() {
	activations[traits.Carnivorous] = activation{check: checkCarnivorous, resolve: resolveCarnivorous}
	activations[traits.Piracy] = activation{check: checkPiracy, resolve: resolvePiracy}
	activations[traits.Grazing] = activation{check: checkGrazing, resolve: resolveGrazing}
	activations[traits.Hibernation] = activation{check: checkHibernation, resolve: resolveHibernation}
}

// activate implements ACTIVATE_TRAIT. Checks run in order: turn, ownership,
// cooldown, target legality.
func (t *tx) activate(action Action) error {
	p, err := t.requireTurn(action.PlayerID)
	if err != nil {
		return err
	}
	source, ok := t.s.Animal(action.AnimalID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", action.AnimalID)
	}
	if source.OwnerID != p.ID {
		return rules.Reject(rules.KindUnauthorized, "animal %s belongs to %s", source.ID, source.OwnerID)
	}
	if !action.Trait.Activatable() {
		return rules.Reject(rules.KindInvalidAction, "%s cannot be activated", action.Trait)
	}
	if !source.Has(action.Trait) {
		return rules.Reject(rules.KindNotFound, "animal %s has no %s", source.ID, action.Trait)
	}

	spec := action.Trait.Spec()
	if !CanActivate(t.s, source.ID, action.Trait) {
		return rules.Reject(rules.KindOnCooldown, "%s of animal %s is on cooldown", action.Trait, source.ID)
	}
	if spec.ConsumesFood && foodActionUsed(t.s, p.ID) {
		return rules.Reject(rules.KindOnCooldown, "food action already used this turn")
	}

	var target *Animal
	if spec.Activation == traits.ActivationTargeted {
		if action.TargetID == "" {
			return rules.Reject(rules.KindInvalidTarget, "%s needs a target", action.Trait)
		}
		target, ok = t.s.Animal(action.TargetID)
		if !ok {
			return rules.Reject(rules.KindNotFound, "animal %s not found", action.TargetID)
		}
		if !spec.Target.Holds(source.OwnerID, target.OwnerID) {
			return rules.Reject(rules.KindInvalidTarget, "%s cannot target animal %s", action.Trait, target.ID)
		}
	}

	handler := activations[action.Trait]
	if handler.resolve == nil {
		return fmt.Errorf("%w: no activation handler for %s", rules.ErrInvariant, action.Trait)
	}
	if err := handler.check(t, source, target); err != nil {
		return err
	}

	t.s.Cooldowns = markActivated(t.s, source.ID, action.Trait)
	if spec.ConsumesFood {
		t.markFoodAction(p.ID)
	}
	p.Acted = true
	return handler.resolve(t, source, target)
}

// activationAvailable reports whether animal could activate trait right now
// against some target, assuming its cooldown is clear.
func (t *tx) activationAvailable(animal *Animal, trait traits.Type) bool {
	handler := activations[trait]
	if handler.check == nil {
		return false
	}
	spec := trait.Spec()
	if spec.Activation != traits.ActivationTargeted {
		return handler.check(t, animal, nil) == nil
	}
	for i := range t.s.Players {
		for j := range t.s.Players[i].Continent {
			target := &t.s.Players[i].Continent[j]
			if !spec.Target.Holds(animal.OwnerID, target.OwnerID) {
				continue
			}
			if handler.check(t, animal, target) == nil {
				return true
			}
		}
	}
	return false
}

func checkCarnivorous(_ *tx, source, target *Animal) error {
	return canAttack(source, target)
}

func resolveCarnivorous(t *tx, source, target *Animal) error {
	t.in.trackAttack()
	t.log(rules.LogEntry{
		Type:     rules.EventAttack,
		PlayerID: source.OwnerID,
		SourceID: source.ID,
		TargetID: target.ID,
		Trait:    traits.Carnivorous.String(),
	})
	return t.startAttack(Attack{AttackerID: source.ID, TargetID: target.ID})
}

func checkPiracy(_ *tx, source, target *Animal) error {
	if source.Full() {
		return rules.Reject(rules.KindInvalidTarget, "animal %s cannot hold more food", source.ID)
	}
	if target.Food <= 0 || target.Fed() {
		return rules.Reject(rules.KindInvalidTarget, "animal %s has nothing to steal", target.ID)
	}
	return nil
}

func resolvePiracy(t *tx, source, target *Animal) error {
	target.Food--
	t.log(rules.LogEntry{
		Type:     rules.EventFoodStolen,
		PlayerID: source.OwnerID,
		SourceID: source.ID,
		TargetID: target.ID,
		Amount:   1,
	})
	_, err := t.feed(source.ID, 1)
	return err
}

func checkGrazing(t *tx, _, _ *Animal) error {
	if t.s.Food <= 0 {
		return rules.Reject(rules.KindInvalidAction, "food pool is empty")
	}
	return nil
}

func resolveGrazing(t *tx, source, _ *Animal) error {
	t.s.Food--
	t.log(rules.LogEntry{Type: rules.EventFoodDestroyed, PlayerID: source.OwnerID, SourceID: source.ID, Amount: 1})
	return nil
}

func checkHibernation(t *tx, source, _ *Animal) error {
	if source.Hibernating {
		return rules.Reject(rules.KindInvalidAction, "animal %s is already hibernating", source.ID)
	}
	if len(t.s.Deck) == 0 {
		return rules.Reject(rules.KindInvalidAction, "cannot hibernate in the last round")
	}
	return nil
}

func resolveHibernation(t *tx, source, _ *Animal) error {
	source.Hibernating = true
	t.log(rules.LogEntry{Type: rules.EventHibernated, PlayerID: source.OwnerID, SourceID: source.ID})
	return nil
}
