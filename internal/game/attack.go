package game

import (
	"fmt"
	"slices"

	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// runningEscape is the lowest d6 face on which a running animal gets away.
const runningEscape = 4

// startAttack begins a hunt. An attacker with Intellect first picks a
// defensive trait of the target to ignore; with several candidates the
// attacker's owner is asked.
func (t *tx) startAttack(att Attack) error {
	attacker, target, err := t.attackParties(att)
	if err != nil {
		return err
	}
	if att.Ambush || att.Intellect || !attacker.Has(traits.Intellect) {
		return t.resolveDefenses(att)
	}

	att.Intellect = true
	options := intellectOptions(target)
	switch len(options) {
	case 0:
		return t.resolveDefenses(att)
	case 1:
		return t.applyAnswer(att, options[0])
	default:
		return t.openQuestion(QuestionIntellect, attacker.OwnerID, att, options, options[0])
	}
}

func intellectOptions(target *Animal) []Answer {
	var options []Answer
	for _, trait := range target.Traits {
		if trait.Type.Defensive() && trait.Type.Spec().Ignorable {
			options = append(options, Answer{Kind: AnswerIntellect, TraitID: trait.ID})
		}
	}
	return options
}

// resolveDefenses runs the target's defenses in a fixed order: Running, then
// the interactive TailLoss and Mimicry, then the kill.
func (t *tx) resolveDefenses(att Attack) error {
	attacker, target, err := t.attackParties(att)
	if err != nil {
		return err
	}

	if hasActive(target, att, traits.Running) {
		if dice.Roll(t.rng, 6) >= runningEscape {
			t.log(rules.LogEntry{
				Type:     rules.EventEscaped,
				PlayerID: target.OwnerID,
				SourceID: attacker.ID,
				TargetID: target.ID,
				Trait:    traits.Running.String(),
			})
			return nil
		}
	}

	options := t.defenseOptions(att, attacker, target)
	if len(options) == 0 {
		return t.kill(att)
	}
	def := defaultDefense(options)
	owner, _ := t.s.Player(target.OwnerID)
	if att.Ambush || owner == nil || !owner.Playing {
		return t.applyAnswer(att, def)
	}
	return t.openQuestion(QuestionDefense, target.OwnerID, att, options, def)
}

// defenseOptions lists the interactive responses of the target in trait
// attachment order, plus NONE when any exist.
func (t *tx) defenseOptions(att Attack, attacker, target *Animal) []Answer {
	var options []Answer
	tailDone, mimicryDone := false, false
	for _, trait := range target.Traits {
		if trait.ID == att.IgnoredTraitID || !trait.Type.Spec().Interactive {
			continue
		}
		switch trait.Type {
		case traits.TailLoss:
			if tailDone {
				continue
			}
			tailDone = true
			for _, lost := range target.Traits {
				options = append(options, Answer{Kind: AnswerTailLoss, TraitID: lost.ID})
			}
		case traits.Mimicry:
			if mimicryDone {
				continue
			}
			mimicryDone = true
			owner, ok := t.s.Player(target.OwnerID)
			if !ok {
				continue
			}
			for i := range owner.Continent {
				decoy := &owner.Continent[i]
				if decoy.ID == target.ID || slices.Contains(att.Visited, decoy.ID) {
					continue
				}
				if canAttack(attacker, decoy) == nil {
					options = append(options, Answer{Kind: AnswerMimicry, AnimalID: decoy.ID})
				}
			}
		}
	}
	if len(options) > 0 {
		options = append(options, Answer{Kind: AnswerNone})
	}
	return options
}

// defaultDefense drops the most recently attached trait when TailLoss is
// available, otherwise redirects to the first decoy, otherwise gives up.
func defaultDefense(options []Answer) Answer {
	var tail, mimicry *Answer
	for i := range options {
		switch options[i].Kind {
		case AnswerTailLoss:
			tail = &options[i]
		case AnswerMimicry:
			if mimicry == nil {
				mimicry = &options[i]
			}
		}
	}
	switch {
	case tail != nil:
		return *tail
	case mimicry != nil:
		return *mimicry
	default:
		return Answer{Kind: AnswerNone}
	}
}

// applyAnswer continues an attack with a chosen or defaulted response.
func (t *tx) applyAnswer(att Attack, answer Answer) error {
	attacker, target, err := t.attackParties(att)
	if err != nil {
		return err
	}
	switch answer.Kind {
	case AnswerNone:
		return t.kill(att)
	case AnswerIntellect:
		att.IgnoredTraitID = answer.TraitID
		if ignored, ok := target.Trait(answer.TraitID); ok {
			t.log(rules.LogEntry{
				Type:     rules.EventTraitIgnored,
				PlayerID: attacker.OwnerID,
				SourceID: attacker.ID,
				TargetID: target.ID,
				Trait:    ignored.Type.String(),
			})
		}
		return t.resolveDefenses(att)
	case AnswerTailLoss:
		lost, ok := target.Trait(answer.TraitID)
		if !ok {
			return fmt.Errorf("%w: tail loss of missing trait %s", rules.ErrInvariant, answer.TraitID)
		}
		t.log(rules.LogEntry{
			Type:     rules.EventTailDropped,
			PlayerID: target.OwnerID,
			SourceID: attacker.ID,
			TargetID: target.ID,
			Trait:    lost.Type.String(),
		})
		if err := t.removeTrait(target, answer.TraitID); err != nil {
			return err
		}
		_, err := t.feed(att.AttackerID, 1)
		return err
	case AnswerMimicry:
		t.log(rules.LogEntry{
			Type:     rules.EventMimicry,
			PlayerID: target.OwnerID,
			SourceID: target.ID,
			TargetID: answer.AnimalID,
			Trait:    traits.Mimicry.String(),
		})
		att.Visited = append(att.Visited, att.TargetID)
		att.TargetID = answer.AnimalID
		att.IgnoredTraitID = ""
		return t.resolveDefenses(att)
	default:
		return rules.Reject(rules.KindInvalidAction, "unknown answer %q", answer.Kind)
	}
}

// kill ends a successful hunt: the target dies, a poisonous target poisons
// the attacker, the attacker eats and one scavenger gets a share.
func (t *tx) kill(att Attack) error {
	attacker, target, err := t.attackParties(att)
	if err != nil {
		return err
	}
	poisonous := hasActive(target, att, traits.Poisonous)
	attackerOwner := attacker.OwnerID

	if err := t.killAnimal(target.ID, rules.EventAnimalKilled); err != nil {
		return err
	}

	// the continent may have shifted
	attacker, ok := t.s.Animal(att.AttackerID)
	if !ok {
		return fmt.Errorf("%w: attacker %s vanished", rules.ErrInvariant, att.AttackerID)
	}
	if poisonous {
		attacker.Poisoned = true
		t.log(rules.LogEntry{Type: rules.EventPoisoned, PlayerID: attackerOwner, TargetID: attacker.ID})
	}
	if _, err := t.feed(attacker.ID, 2); err != nil {
		return err
	}
	return t.scavenge(attackerOwner, attacker.ID)
}

// scavenge feeds the first hungry scavenger in seating order starting with
// the attacker's owner.
func (t *tx) scavenge(fromPlayerID, attackerID string) error {
	first := 0
	if p, ok := t.s.Player(fromPlayerID); ok {
		first = p.Index
	}
	n := len(t.s.Players)
	for offset := 0; offset < n; offset++ {
		p := &t.s.Players[(first+offset)%n]
		for i := range p.Continent {
			animal := &p.Continent[i]
			if animal.ID == attackerID || !animal.Has(traits.Scavenger) || animal.Fed() {
				continue
			}
			gained, err := t.feed(animal.ID, 1)
			if err != nil {
				return err
			}
			if gained > 0 {
				t.log(rules.LogEntry{Type: rules.EventScavenged, PlayerID: p.ID, TargetID: animal.ID, Amount: gained})
				return nil
			}
		}
	}
	return nil
}

func (t *tx) attackParties(att Attack) (*Animal, *Animal, error) {
	attacker, ok := t.s.Animal(att.AttackerID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: attacker %s not on the board", rules.ErrInvariant, att.AttackerID)
	}
	target, ok := t.s.Animal(att.TargetID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: target %s not on the board", rules.ErrInvariant, att.TargetID)
	}
	return attacker, target, nil
}
