package game

import (
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// canAttack checks whether attacker may hunt target, ignoring cooldowns and
// the food action. Passive traits of both animals restrict the pairing.
func canAttack(attacker, target *Animal) error {
	switch {
	case attacker.ID == target.ID:
		return rules.Reject(rules.KindInvalidTarget, "animal %s cannot attack itself", attacker.ID)
	case !traits.Carnivorous.Spec().Target.Holds(attacker.OwnerID, target.OwnerID):
		return rules.Reject(rules.KindInvalidTarget, "animal %s cannot attack own animal %s", attacker.ID, target.ID)
	case attacker.Full():
		return rules.Reject(rules.KindInvalidTarget, "animal %s is full", attacker.ID)
	case attacker.Hibernating:
		return rules.Reject(rules.KindInvalidTarget, "animal %s is hibernating", attacker.ID)
	case target.Has(traits.Camouflage) && !attacker.Has(traits.SharpVision):
		return rules.Reject(rules.KindInvalidTarget, "animal %s is camouflaged", target.ID)
	case target.Has(traits.Burrowing) && target.Fed():
		return rules.Reject(rules.KindInvalidTarget, "animal %s is hiding in its burrow", target.ID)
	case target.Has(traits.Swimming) != attacker.Has(traits.Swimming):
		return rules.Reject(rules.KindInvalidTarget, "animals %s and %s do not share a habitat", attacker.ID, target.ID)
	case target.Has(traits.Big) && !attacker.Has(traits.Big):
		return rules.Reject(rules.KindInvalidTarget, "animal %s is too big for %s", target.ID, attacker.ID)
	}
	return nil
}

// hasActive reports whether the target carries an instance of trait that the
// current attack does not ignore.
func hasActive(target *Animal, att Attack, trait traits.Type) bool {
	for _, instance := range target.Traits {
		if instance.Type == trait && instance.ID != att.IgnoredTraitID {
			return true
		}
	}
	return false
}
