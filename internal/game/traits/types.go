// Package traits defines the trait vocabulary of the game and the registry
// that describes how each trait type behaves.
//
// Trait types form a closed enumeration. The registry is an array indexed by
// Type, so every type has exactly one entry and adding a trait means adding a
// constant and its registry row.
package traits

import (
	"fmt"
	"strings"
)

// Type enumerates trait kinds.
type Type uint8

const (
	Invalid Type = iota
	Carnivorous
	Big
	Swimming
	Running
	Mimicry
	TailLoss
	Camouflage
	SharpVision
	Burrowing
	Poisonous
	Scavenger
	Parasite
	FatTissue
	Hibernation
	Grazing
	Piracy
	Intellect
	Ambush
	Plantation
	Communication
	Cooperation

	// Count is the number of trait types including Invalid.
	Count
)

// All returns every valid trait type in declaration order.
func All() []Type {
	types := make([]Type, 0, int(Count)-1)
	for t := Invalid + 1; t < Count; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is a registered trait type.
func (t Type) Valid() bool {
	return t > Invalid && t < Count
}

func (t Type) String() string {
	if t.Valid() {
		return registry[t].Name
	}
	return fmt.Sprintf("Trait(%d)", uint8(t))
}

// aliases are the short names accepted by Parse in addition to full names.
var aliases = map[string]Type{
	"carn":    Carnivorous,
	"massive": Big,
	"swim":    Swimming,
	"run":     Running,
	"tail":    TailLoss,
	"camo":    Camouflage,
	"vision":  SharpVision,
	"burrow":  Burrowing,
	"poison":  Poisonous,
	"fat":     FatTissue,
	"hiber":   Hibernation,
	"graze":   Grazing,
	"comm":    Communication,
	"coop":    Cooperation,
}

// Parse resolves a trait type by name or alias (case-insensitive). The
// "Trait" prefix used by clients is accepted.
func Parse(name string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "trait")
	if key == "" {
		return Invalid, fmt.Errorf("empty trait name")
	}
	if t, ok := aliases[key]; ok {
		return t, nil
	}
	for t := Invalid + 1; t < Count; t++ {
		if strings.ToLower(registry[t].Name) == key {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown trait %q", name)
}

// MarshalText encodes the trait type by name.
func (t Type) MarshalText() ([]byte, error) {
	if t == Invalid {
		return []byte(""), nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("unknown trait type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trait name. The empty string decodes to Invalid.
func (t *Type) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = Invalid
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
