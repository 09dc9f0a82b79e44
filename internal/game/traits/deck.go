package traits

import "fmt"

// DeckEntry describes Count identical cards. Trait2 is Invalid for
// single-trait cards.
type DeckEntry struct {
	Count  int
	Trait1 Type
	Trait2 Type
}

// DeckBase is the standard deck.
var DeckBase = []DeckEntry{
	{Count: 4, Trait1: Camouflage},
	{Count: 4, Trait1: Burrowing},
	{Count: 4, Trait1: SharpVision},
	{Count: 4, Trait1: Swimming},
	{Count: 4, Trait1: Running},
	{Count: 4, Trait1: Mimicry},
	{Count: 4, Trait1: Scavenger},
	{Count: 4, Trait1: TailLoss},
	{Count: 4, Trait1: Piracy},
	{Count: 4, Trait1: Poisonous},
	{Count: 4, Trait1: Communication, Trait2: Carnivorous},
	{Count: 4, Trait1: Grazing, Trait2: FatTissue},
	{Count: 4, Trait1: Big, Trait2: Carnivorous},
	{Count: 4, Trait1: Hibernation, Trait2: Carnivorous},
	{Count: 4, Trait1: Cooperation, Trait2: Carnivorous},
	{Count: 4, Trait1: Parasite, Trait2: Carnivorous},
	{Count: 4, Trait1: Parasite, Trait2: FatTissue},
	{Count: 4, Trait1: Cooperation, Trait2: FatTissue},
	{Count: 4, Trait1: Big, Trait2: FatTissue},
	{Count: 4, Trait1: Intellect, Trait2: Ambush},
	{Count: 2, Trait1: Plantation},
	{Count: 2, Trait1: Ambush, Trait2: Carnivorous},
}

// DeckTest is a small deterministic deck for tests and local games.
var DeckTest = []DeckEntry{
	{Count: 6, Trait1: Carnivorous},
	{Count: 6, Trait1: Communication},
	{Count: 6, Trait1: Cooperation},
	{Count: 6, Trait1: FatTissue},
}

var decks = map[string][]DeckEntry{
	"base": DeckBase,
	"test": DeckTest,
}

// Deck returns a named deck composition.
func Deck(name string) ([]DeckEntry, error) {
	deck, ok := decks[name]
	if !ok {
		return nil, fmt.Errorf("unknown deck %q", name)
	}
	return deck, nil
}

// DeckSize returns the total number of cards in a composition.
func DeckSize(entries []DeckEntry) int {
	total := 0
	for _, entry := range entries {
		total += entry.Count
	}
	return total
}
