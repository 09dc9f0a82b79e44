package game

import (
	"slices"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// hasAmbushSituation reports whether any animal could be ambushed now.
func (t *tx) hasAmbushSituation() bool {
	target, _ := t.findAmbush()
	return target != nil
}

// findAmbush scans animals that ate this round, in seating order from the
// round player, for the first one with eligible ambushers. Targets already
// handled this phase are skipped.
func (t *tx) findAmbush() (*Animal, []Ambusher) {
	n := len(t.s.Players)
	for offset := 0; offset < n; offset++ {
		p := &t.s.Players[(t.s.RoundPlayer+offset)%n]
		for i := range p.Continent {
			target := &p.Continent[i]
			if target.Food <= 0 || slices.Contains(t.s.AmbushQueue, target.ID) {
				continue
			}
			if ambushers := t.ambushersFor(target); len(ambushers) > 0 {
				return target, ambushers
			}
		}
	}
	return nil, nil
}

// ambushersFor lists the animals that may strike target, in seating order
// from the round player and continent order within a player.
func (t *tx) ambushersFor(target *Animal) []Ambusher {
	var ambushers []Ambusher
	n := len(t.s.Players)
	for offset := 0; offset < n; offset++ {
		p := &t.s.Players[(t.s.RoundPlayer+offset)%n]
		if !p.Playing || p.ID == target.OwnerID {
			continue
		}
		for i := range p.Continent {
			animal := &p.Continent[i]
			if !animal.Has(traits.Ambush) || !animal.Has(traits.Carnivorous) || animal.Poisoned {
				continue
			}
			if !CanActivate(t.s, animal.ID, traits.Carnivorous) || canAttack(animal, target) != nil {
				continue
			}
			ambushers = append(ambushers, Ambusher{AnimalID: animal.ID, OwnerID: p.ID, Decision: DecisionPending})
		}
	}
	return ambushers
}

// nextAmbush opens the next ambush record, or moves on to EXTINCTION when
// no target is left.
func (t *tx) nextAmbush() error {
	target, ambushers := t.findAmbush()
	if target == nil {
		return t.enterPhase(rules.PhaseExtinction)
	}
	amb := &Ambush{
		ID:            t.s.NextID(),
		TargetID:      target.ID,
		TargetOwnerID: target.OwnerID,
		Ambushers:     ambushers,
		CreatedAt:     t.at,
		Budget:        t.s.Settings.AmbushTime,
	}
	t.s.AmbushQueue = append(t.s.AmbushQueue, target.ID)
	t.s.Ambush = amb
	t.in.trackAmbush()
	t.log(rules.LogEntry{Type: rules.EventAmbushOpened, PlayerID: target.OwnerID, TargetID: target.ID, Amount: len(ambushers)})
	return nil
}

// answerAmbush implements ANSWER_AMBUSH. Ambushers decide one at a time in
// record order.
func (t *tx) answerAmbush(action Action) error {
	amb := t.s.Ambush
	if amb == nil || amb.ID != action.AmbushID {
		return rules.Reject(rules.KindNotFound, "ambush %s is not open", action.AmbushID)
	}
	idx := slices.IndexFunc(amb.Ambushers, func(a Ambusher) bool { return a.AnimalID == action.AnimalID })
	if idx < 0 {
		return rules.Reject(rules.KindNotFound, "animal %s is not ambushing", action.AnimalID)
	}
	ambusher := &amb.Ambushers[idx]
	if ambusher.OwnerID != action.PlayerID {
		return rules.Reject(rules.KindUnauthorized, "animal %s belongs to %s", ambusher.AnimalID, ambusher.OwnerID)
	}
	if ambusher.Decision != DecisionPending {
		return rules.Reject(rules.KindInvalidAction, "animal %s already decided", ambusher.AnimalID)
	}
	if amb.Next() != ambusher {
		return rules.Reject(rules.KindNotYourTurn, "another ambusher decides first")
	}

	if !action.Attack {
		t.decide(amb, ambusher, DecisionPass)
		return t.advanceAmbush()
	}

	attacker, ok := t.s.Animal(ambusher.AnimalID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", ambusher.AnimalID)
	}
	target, ok := t.s.Animal(amb.TargetID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", amb.TargetID)
	}
	if !CanActivate(t.s, attacker.ID, traits.Carnivorous) {
		return rules.Reject(rules.KindOnCooldown, "%s of animal %s is on cooldown", traits.Carnivorous, attacker.ID)
	}
	if err := canAttack(attacker, target); err != nil {
		return err
	}

	t.decide(amb, ambusher, DecisionAttack)
	t.s.Cooldowns = markActivated(t.s, attacker.ID, traits.Carnivorous)
	t.in.trackAttack()
	t.log(rules.LogEntry{
		Type:     rules.EventAttack,
		PlayerID: attacker.OwnerID,
		SourceID: attacker.ID,
		TargetID: target.ID,
		Trait:    traits.Ambush.String(),
	})
	if err := t.startAttack(Attack{AttackerID: attacker.ID, TargetID: target.ID, Ambush: true}); err != nil {
		return err
	}
	return t.advanceAmbush()
}

// ambushTimeout makes every undecided ambusher pass.
func (t *tx) ambushTimeout(action Action) error {
	amb := t.s.Ambush
	if amb == nil || amb.ID != action.AmbushID {
		return rules.Reject(rules.KindNotFound, "ambush %s is not open", action.AmbushID)
	}
	for i := range amb.Ambushers {
		if amb.Ambushers[i].Decision == DecisionPending {
			t.decide(amb, &amb.Ambushers[i], DecisionPass)
		}
	}
	t.engine.logger.Info("ambush timed out",
		zap.String("game_id", t.s.ID),
		zap.String("ambush_id", amb.ID),
	)
	return t.advanceAmbush()
}

func (t *tx) decide(amb *Ambush, ambusher *Ambusher, decision AmbushDecision) {
	ambusher.Decision = decision
	t.log(rules.LogEntry{
		Type:     rules.EventAmbushDecision,
		PlayerID: ambusher.OwnerID,
		SourceID: ambusher.AnimalID,
		TargetID: amb.TargetID,
		Detail:   string(decision),
	})
}

// advanceAmbush closes the record once every ambusher decided. A dead
// target makes the remaining ambushers pass.
func (t *tx) advanceAmbush() error {
	amb := t.s.Ambush
	if amb == nil {
		return nil
	}
	if _, alive := t.s.Animal(amb.TargetID); !alive {
		for i := range amb.Ambushers {
			if amb.Ambushers[i].Decision == DecisionPending {
				t.decide(amb, &amb.Ambushers[i], DecisionPass)
			}
		}
	}
	if amb.Next() != nil {
		return nil
	}
	t.log(rules.LogEntry{Type: rules.EventAmbushClosed, PlayerID: amb.TargetOwnerID, TargetID: amb.TargetID})
	t.s.Ambush = nil
	return t.nextAmbush()
}
