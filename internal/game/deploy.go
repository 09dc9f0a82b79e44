package game

import (
	"slices"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// deployTrait plays one card from the current player's hand, either as a new
// animal or as a trait on an existing one. Deploying passes the turn.
func (t *tx) deployTrait(action Action) error {
	p, err := t.requireTurn(action.PlayerID)
	if err != nil {
		return err
	}
	card, holder, ok := t.s.Card(action.CardID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "card %s not found", action.CardID)
	}
	if holder.ID != p.ID {
		return rules.Reject(rules.KindUnauthorized, "card %s is not in %s's hand", card.ID, p.ID)
	}

	if action.AnimalID == "" {
		animal := Animal{ID: t.s.NextID(), OwnerID: p.ID, Traits: []Trait{}}
		p.Continent = append(p.Continent, animal)
		t.log(rules.LogEntry{Type: rules.EventAnimalCreated, PlayerID: p.ID, TargetID: animal.ID})
	} else {
		trait := card.Trait1
		if action.Alternate {
			if card.Trait2 == traits.Invalid {
				return rules.Reject(rules.KindInvalidAction, "card %s has a single trait", card.ID)
			}
			trait = card.Trait2
		}
		if err := t.attach(p, trait, action.AnimalID, action.TargetID); err != nil {
			return err
		}
	}

	p.Hand = removeCard(p.Hand, action.CardID)
	if len(p.Hand) == 0 {
		p.Ended = true
		t.log(rules.LogEntry{Type: rules.EventPlayerEnded, PlayerID: p.ID})
	}
	return t.passTurn()
}

// attach places a trait on the host animal. Linked types need a second
// animal and are stored as a mirrored pair.
func (t *tx) attach(p *Player, trait traits.Type, hostID, targetID string) error {
	spec, ok := traits.Lookup(trait)
	if !ok {
		return rules.Reject(rules.KindInvalidAction, "unknown trait %s", trait)
	}
	host, ok := t.s.Animal(hostID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", hostID)
	}
	if !spec.Placement.Holds(p.ID, host.OwnerID) {
		return rules.Reject(rules.KindInvalidTarget, "%s cannot be placed on animal %s", trait, host.ID)
	}

	if !trait.Linked() {
		if !spec.Stackable && host.Has(trait) {
			return rules.Reject(rules.KindInvalidTarget, "animal %s already has %s", host.ID, trait)
		}
		if conflicting(host, trait) {
			return rules.Reject(rules.KindInvalidTarget, "%s conflicts with a trait of animal %s", trait, host.ID)
		}
		instance := Trait{ID: t.s.NextID(), Type: trait, OwnerID: p.ID, HostAnimalID: host.ID}
		host.Traits = append(host.Traits, instance)
		t.log(rules.LogEntry{Type: rules.EventTraitDeployed, PlayerID: p.ID, TargetID: host.ID, Trait: trait.String()})
		return nil
	}

	if targetID == "" {
		return rules.Reject(rules.KindInvalidTarget, "%s needs a second animal", trait)
	}
	if targetID == host.ID {
		return rules.Reject(rules.KindInvalidTarget, "%s cannot link an animal to itself", trait)
	}
	linked, ok := t.s.Animal(targetID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", targetID)
	}
	if !spec.Link.Holds(host.OwnerID, linked.OwnerID) {
		return rules.Reject(rules.KindInvalidTarget, "%s cannot link animals %s and %s", trait, host.ID, linked.ID)
	}
	for _, existing := range host.Traits {
		if existing.Type == trait && existing.LinkAnimalID == linked.ID {
			return rules.Reject(rules.KindInvalidTarget, "animals %s and %s are already linked by %s", host.ID, linked.ID, trait)
		}
	}

	a := Trait{ID: t.s.NextID(), Type: trait, OwnerID: p.ID, HostAnimalID: host.ID, LinkAnimalID: linked.ID}
	b := Trait{ID: t.s.NextID(), Type: trait, OwnerID: p.ID, HostAnimalID: linked.ID, LinkAnimalID: host.ID}
	a.LinkTraitID = b.ID
	b.LinkTraitID = a.ID
	host.Traits = append(host.Traits, a)
	linked.Traits = append(linked.Traits, b)
	t.log(rules.LogEntry{
		Type:     rules.EventTraitDeployed,
		PlayerID: p.ID,
		SourceID: host.ID,
		TargetID: linked.ID,
		Trait:    trait.String(),
	})
	return nil
}

// conflicting reports trait pairs that may not share an animal.
func conflicting(animal *Animal, trait traits.Type) bool {
	switch trait {
	case traits.Carnivorous:
		return animal.Has(traits.Scavenger)
	case traits.Scavenger:
		return animal.Has(traits.Carnivorous)
	default:
		return false
	}
}

func removeCard(hand []Card, cardID string) []Card {
	return slices.DeleteFunc(hand, func(c Card) bool { return c.ID == cardID })
}
