// Package dice provides the randomness used by the rules engine.
//
// Every random decision (food dice, deck shuffles, escape rolls, scoreboard
// ties) goes through a Randomizer. The default source is seeded from
// the game state so a game can be replayed from its action history.
package dice

import (
	"errors"
	"math/rand/v2"
)

// ErrInvalidDie is returned for dice with fewer than one side or count.
var ErrInvalidDie = errors.New("dice must have at least one side and count")

// Randomizer supplies uniform random values.
type Randomizer interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
	// Draws returns how many values were drawn so far.
	Draws() int
}

// Factory builds the randomizer used for one engine call. stream is the
// number of draws already consumed by the game.
type Factory func(seed int64, stream uint64) Randomizer

// Seeded is a deterministic PCG-backed randomizer.
type Seeded struct {
	rng   *rand.Rand
	draws int
}

// NewSeeded creates a randomizer for the given seed and stream. The same
// pair always produces the same sequence.
func NewSeeded(seed int64, stream uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(uint64(seed), stream))}
}

// SeededFactory is the Factory used in production.
func SeededFactory(seed int64, stream uint64) Randomizer {
	return NewSeeded(seed, stream)
}

func (s *Seeded) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	s.draws++
	return s.rng.IntN(n)
}

func (s *Seeded) Draws() int {
	return s.draws
}

// Fixed replays a scripted list of values, cycling when exhausted. Values
// are interpreted as die faces: IntN(n) returns (v-1) mod n, so a scripted 4
// rolls a 4 on a d6.
type Fixed struct {
	values []int
	next   int
	draws  int
}

// NewFixed creates a scripted randomizer. With no values every draw is 0.
func NewFixed(values ...int) *Fixed {
	return &Fixed{values: append([]int(nil), values...)}
}

// Factory returns a Factory that always hands out f.
func (f *Fixed) Factory() Factory {
	return func(int64, uint64) Randomizer { return f }
}

func (f *Fixed) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	f.draws++
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	r := (v - 1) % n
	if r < 0 {
		r += n
	}
	return r
}

func (f *Fixed) Draws() int {
	return f.draws
}

// Roll rolls one die with the given number of sides.
func Roll(r Randomizer, sides int) int {
	return r.IntN(sides) + 1
}

// Sum rolls count dice of the given sides and returns the total.
func Sum(r Randomizer, count, sides int) (int, error) {
	if count <= 0 || sides <= 0 {
		return 0, ErrInvalidDie
	}
	total := 0
	for i := 0; i < count; i++ {
		total += Roll(r, sides)
	}
	return total, nil
}

// Shuffle permutes n elements with a Fisher-Yates shuffle driven by r.
func Shuffle(r Randomizer, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		swap(i, j)
	}
}
