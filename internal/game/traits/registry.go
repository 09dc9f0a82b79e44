package traits

import (
	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
)

// Class is the broad behavioral classification of a trait.
type Class int

const (
	ClassPassive Class = iota
	ClassAttack
	ClassDefensive
	ClassFriendlyLink
	ClassEconomy
)

func (c Class) String() string {
	switch c {
	case ClassPassive:
		return "PASSIVE"
	case ClassAttack:
		return "ATTACK"
	case ClassDefensive:
		return "DEFENSIVE"
	case ClassFriendlyLink:
		return "FRIENDLY_LINK"
	case ClassEconomy:
		return "ECONOMY"
	default:
		return "UNKNOWN"
	}
}

// Relation describes which animals a trait may reference, relative to the
// acting player or the host animal.
type Relation int

const (
	// RelationNone means no other animal is involved.
	RelationNone Relation = iota
	// RelationFriend requires a different animal with the same owner.
	RelationFriend
	// RelationEnemy requires an animal with a different owner.
	RelationEnemy
)

func (r Relation) String() string {
	switch r {
	case RelationNone:
		return "NONE"
	case RelationFriend:
		return "FRIEND"
	case RelationEnemy:
		return "ENEMY"
	default:
		return "UNKNOWN"
	}
}

// Holds reports whether two owners satisfy the relation.
func (r Relation) Holds(ownerA, ownerB string) bool {
	switch r {
	case RelationFriend:
		return ownerA == ownerB
	case RelationEnemy:
		return ownerA != ownerB
	default:
		return true
	}
}

// Activation describes how a trait is triggered by its controller.
type Activation int

const (
	// ActivationNone traits are never activated explicitly.
	ActivationNone Activation = iota
	// ActivationSelf traits act on their host or the food pool.
	ActivationSelf
	// ActivationTargeted traits need a target animal.
	ActivationTargeted
)

// Cooldown is the activation throttle of a trait type.
type Cooldown struct {
	Scope  cooldowns.Scope
	Length int
}

// Unlimited reports whether the trait can be activated without throttling.
func (c Cooldown) Unlimited() bool {
	return c.Length <= 0
}

// Spec describes a trait type's behavior.
type Spec struct {
	Name  string
	Class Class

	// Placement is the relation between the deploying player and the host
	// animal: RelationFriend for own animals, RelationEnemy for opponents'.
	Placement Relation
	// Link is the relation required between the two endpoints of a linked
	// trait. RelationNone for single-animal traits.
	Link Relation
	// Stackable traits may be attached to the same animal more than once.
	Stackable bool

	Activation Activation
	// Target is the relation between host and target for targeted activations.
	Target   Relation
	Cooldown Cooldown
	// ConsumesFood marks activations that count as the player's food action for the turn.
	ConsumesFood bool

	// FoodBonus is the extra food the host needs to be fed.
	FoodBonus int
	// Storage is extra food capacity beyond the animal's needs.
	Storage int
	// PoolBonus is added to the food pool per instance when food is generated.
	PoolBonus int

	// Interactive defensive traits are resolved through a question to the host's owner.
	Interactive bool
	// Ignorable defensive traits can be bypassed by an attacker with Intellect.
	Ignorable bool
}

var registry = [Count]Spec{
	Invalid: {Name: "Invalid"},
	Carnivorous: {
		Name:         "Carnivorous",
		Class:        ClassAttack,
		Placement:    RelationFriend,
		Activation:   ActivationTargeted,
		Target:       RelationEnemy,
		Cooldown:     Cooldown{Scope: cooldowns.ScopePhase, Length: 1},
		ConsumesFood: true,
		FoodBonus:    1,
	},
	Big: {
		Name:      "Big",
		Class:     ClassPassive,
		Placement: RelationFriend,
		FoodBonus: 1,
	},
	Swimming: {
		Name:      "Swimming",
		Class:     ClassPassive,
		Placement: RelationFriend,
	},
	Running: {
		Name:      "Running",
		Class:     ClassDefensive,
		Placement: RelationFriend,
		Ignorable: true,
	},
	Mimicry: {
		Name:        "Mimicry",
		Class:       ClassDefensive,
		Placement:   RelationFriend,
		Interactive: true,
		Ignorable:   true,
	},
	TailLoss: {
		Name:        "TailLoss",
		Class:       ClassDefensive,
		Placement:   RelationFriend,
		Interactive: true,
		Ignorable:   true,
	},
	Camouflage: {
		Name:      "Camouflage",
		Class:     ClassPassive,
		Placement: RelationFriend,
	},
	SharpVision: {
		Name:      "SharpVision",
		Class:     ClassPassive,
		Placement: RelationFriend,
	},
	Burrowing: {
		Name:      "Burrowing",
		Class:     ClassPassive,
		Placement: RelationFriend,
	},
	Poisonous: {
		Name:      "Poisonous",
		Class:     ClassDefensive,
		Placement: RelationFriend,
		Ignorable: true,
	},
	Scavenger: {
		Name:      "Scavenger",
		Class:     ClassPassive,
		Placement: RelationFriend,
	},
	Parasite: {
		Name:      "Parasite",
		Class:     ClassPassive,
		Placement: RelationEnemy,
		FoodBonus: 2,
	},
	FatTissue: {
		Name:      "FatTissue",
		Class:     ClassEconomy,
		Placement: RelationFriend,
		Stackable: true,
		Storage:   1,
	},
	Hibernation: {
		Name:       "Hibernation",
		Class:      ClassEconomy,
		Placement:  RelationFriend,
		Activation: ActivationSelf,
		Cooldown:   Cooldown{Scope: cooldowns.ScopeRound, Length: 2},
	},
	Grazing: {
		Name:       "Grazing",
		Class:      ClassEconomy,
		Placement:  RelationFriend,
		Activation: ActivationSelf,
		Cooldown:   Cooldown{Scope: cooldowns.ScopePhase, Length: 1},
	},
	Piracy: {
		Name:       "Piracy",
		Class:      ClassAttack,
		Placement:  RelationFriend,
		Activation: ActivationTargeted,
		Target:     RelationEnemy,
		Cooldown:   Cooldown{Scope: cooldowns.ScopeRound, Length: 1},
	},
	Intellect: {
		Name:      "Intellect",
		Class:     ClassPassive,
		Placement: RelationFriend,
		FoodBonus: 1,
	},
	Ambush: {
		Name:      "Ambush",
		Class:     ClassAttack,
		Placement: RelationFriend,
	},
	Plantation: {
		Name:      "Plantation",
		Class:     ClassEconomy,
		Placement: RelationFriend,
		PoolBonus: 2,
	},
	Communication: {
		Name:      "Communication",
		Class:     ClassFriendlyLink,
		Placement: RelationFriend,
		Link:      RelationFriend,
	},
	Cooperation: {
		Name:      "Cooperation",
		Class:     ClassFriendlyLink,
		Placement: RelationFriend,
		Link:      RelationFriend,
	},
}

// Lookup returns the registry row of a trait type.
func Lookup(t Type) (Spec, bool) {
	if !t.Valid() {
		return Spec{}, false
	}
	return registry[t], true
}

// Spec returns the registry row of a valid trait type, or the zero Spec.
func (t Type) Spec() Spec {
	spec, _ := Lookup(t)
	return spec
}

// Linked reports whether the trait spans two animals.
func (t Type) Linked() bool {
	return t.Spec().Link != RelationNone
}

// Activatable reports whether the trait can be explicitly activated.
func (t Type) Activatable() bool {
	return t.Spec().Activation != ActivationNone
}

// Defensive reports whether the trait participates in attack resolution.
func (t Type) Defensive() bool {
	return t.Spec().Class == ClassDefensive
}
