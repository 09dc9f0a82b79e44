package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/dice"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// foodRoll is one row of the food table: Dice d6 plus Bonus.
type foodRoll struct {
	Dice  int
	Bonus int
}

// foodTable is indexed by the number of playing players.
var foodTable = [...]foodRoll{
	{Dice: 0, Bonus: 10},
	{Dice: 0, Bonus: 10},
	{Dice: 1, Bonus: 2},
	{Dice: 2, Bonus: 0},
	{Dice: 2, Bonus: 2},
	{Dice: 3, Bonus: 2},
	{Dice: 3, Bonus: 4},
	{Dice: 4, Bonus: 2},
	{Dice: 4, Bonus: 4},
}

// GenerateFood rolls the food pool for a round: the table value for the
// number of playing players, plus the pool bonus of every trait on the
// board, plus continent bonuses.
func GenerateFood(s *State, r dice.Randomizer) int {
	row := foodTable[min(s.PlayingCount(), len(foodTable)-1)]
	food := row.Bonus
	// rows below two players roll no dice
	if rolled, err := dice.Sum(r, row.Dice, 6); err == nil {
		food += rolled
	}
	for i := range s.Players {
		for _, animal := range s.Players[i].Continent {
			for _, trait := range animal.Traits {
				food += trait.Type.Spec().PoolBonus
			}
		}
	}
	for _, continent := range s.Continents {
		food += continent.FoodBonus
	}
	return food
}

// takeFood moves one unit from the pool to an own animal. It is the
// player's food action for the turn and may start a cascade along links.
func (t *tx) takeFood(action Action) error {
	p, err := t.requireTurn(action.PlayerID)
	if err != nil {
		return err
	}
	animal, ok := t.s.Animal(action.AnimalID)
	if !ok {
		return rules.Reject(rules.KindNotFound, "animal %s not found", action.AnimalID)
	}
	if animal.OwnerID != p.ID {
		return rules.Reject(rules.KindUnauthorized, "animal %s belongs to %s", animal.ID, animal.OwnerID)
	}
	if foodActionUsed(t.s, p.ID) {
		return rules.Reject(rules.KindOnCooldown, "food action already used this turn")
	}
	if t.s.Food <= 0 {
		return rules.Reject(rules.KindInvalidAction, "food pool is empty")
	}
	if animal.Full() {
		return rules.Reject(rules.KindInvalidTarget, "animal %s cannot hold more food", animal.ID)
	}

	t.s.Food--
	animal.Food++
	p.Acted = true
	t.markFoodAction(p.ID)
	t.log(rules.LogEntry{Type: rules.EventFoodTaken, PlayerID: p.ID, TargetID: animal.ID, Amount: 1})
	return t.cascade(animal.ID, true)
}

// feed gives an animal free food up to its capacity and lets it share
// through Cooperation links. It returns the amount actually stored.
func (t *tx) feed(animalID string, amount int) (int, error) {
	animal, ok := t.s.Animal(animalID)
	if !ok {
		return 0, nil
	}
	gained := min(amount, animal.Capacity()-animal.Food)
	if gained <= 0 {
		return 0, nil
	}
	animal.Food += gained
	return gained, t.cascade(animalID, false)
}

type cascadeItem struct {
	animalID string
	fromPool bool
}

// cascade shares food across linked animals, breadth first from the animal
// that just ate. Links are followed in attachment order. Communication
// fires only for food that came from the pool and takes the shared unit
// from the pool; Cooperation fires for any food and shares it for free.
// Each animal receives at most once per cascade and the walk is capped by
// Settings.MaxCascadeSteps.
func (t *tx) cascade(startID string, fromPool bool) error {
	visited := map[string]bool{startID: true}
	queue := []cascadeItem{{animalID: startID, fromPool: fromPool}}
	limit := t.s.Settings.MaxCascadeSteps
	steps := 0
	truncated := false

	for len(queue) > 0 && !truncated {
		item := queue[0]
		queue = queue[1:]

		source, ok := t.s.Animal(item.animalID)
		if !ok {
			continue
		}
		for _, link := range source.Traits {
			if !link.Linked() || visited[link.LinkAnimalID] {
				continue
			}
			if link.Type != traits.Communication && link.Type != traits.Cooperation {
				continue
			}
			if steps >= limit {
				truncated = true
				break
			}
			linked, ok := t.s.Animal(link.LinkAnimalID)
			if !ok {
				return fmt.Errorf("%w: trait %s links to missing animal %s", rules.ErrInvariant, link.ID, link.LinkAnimalID)
			}
			if linked.Full() {
				continue
			}

			if link.Type == traits.Communication {
				if !item.fromPool || t.s.Food <= 0 {
					continue
				}
				t.s.Food--
			}
			linked.Food++
			visited[linked.ID] = true
			steps++
			queue = append(queue, cascadeItem{animalID: linked.ID, fromPool: link.Type == traits.Communication})
			t.log(rules.LogEntry{
				Type:     rules.EventFoodShared,
				PlayerID: linked.OwnerID,
				SourceID: source.ID,
				TargetID: linked.ID,
				Trait:    link.Type.String(),
				Amount:   1,
			})
		}
	}

	t.in.trackCascade(steps, truncated)
	if truncated {
		t.engine.logger.Warn("food cascade truncated",
			zap.String("game_id", t.s.ID),
			zap.String("animal_id", startID),
			zap.Int("steps", steps),
		)
	}
	return nil
}

// feedingExhausted reports whether FEEDING can end early: the pool is empty
// and nobody has a legal feeding activation left.
func (t *tx) feedingExhausted() bool {
	if t.s.Food > 0 {
		return false
	}
	for i := range t.s.Players {
		p := &t.s.Players[i]
		if p.Playing && !p.Ended && t.hasFeedingOptions(p) {
			return false
		}
	}
	return true
}

// hasFeedingOptions reports whether any of the player's animals has an
// activation that would currently be accepted, ignoring the per-turn food
// action which resets on the player's next turn.
func (t *tx) hasFeedingOptions(p *Player) bool {
	for i := range p.Continent {
		animal := &p.Continent[i]
		for _, trait := range animal.Traits {
			if !trait.Type.Activatable() || !CanActivate(t.s, animal.ID, trait.Type) {
				continue
			}
			if t.activationAvailable(animal, trait.Type) {
				return true
			}
		}
	}
	return false
}

func foodActionUsed(s *State, playerID string) bool {
	return s.Cooldowns.Active(playerID, cooldowns.LinkFoodAction, s.Clock())
}

func (t *tx) markFoodAction(playerID string) {
	t.s.Cooldowns = t.s.Cooldowns.Mark(playerID, cooldowns.LinkFoodAction, cooldowns.ScopeTurn, 1, t.s.Clock())
}
