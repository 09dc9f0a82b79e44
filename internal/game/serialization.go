package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evoserver/evolution-server-go/internal/game/cooldowns"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// Encode produces the canonical JSON encoding of a state. Field order is
// fixed by the struct definitions and every collection is a slice, so equal
// states encode to equal bytes.
func Encode(s *State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot encode nil state")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Decode reconstructs a state produced by Encode. Empty collections are
// normalized so that Decode(Encode(s)) equals s for every state the engine
// produces.
func Decode(data []byte) (*State, error) {
	var s State
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	normalize(&s)
	return &s, nil
}

// normalize restores the collection shapes the engine maintains: lists the
// engine always allocates are empty rather than nil, and optional lists are
// nil rather than empty.
func normalize(s *State) {
	if s.Players == nil {
		s.Players = []Player{}
	}
	for i := range s.Players {
		p := &s.Players[i]
		if p.Hand == nil {
			p.Hand = []Card{}
		}
		if p.Continent == nil {
			p.Continent = []Animal{}
		}
		for j := range p.Continent {
			if p.Continent[j].Traits == nil {
				p.Continent[j].Traits = []Trait{}
			}
		}
	}
	if s.Deck == nil {
		s.Deck = []Card{}
	}
	if s.Continents == nil {
		s.Continents = []Continent{}
	}
	if s.AmbushQueue == nil {
		s.AmbushQueue = []string{}
	}
	if s.Cooldowns.Entries == nil {
		s.Cooldowns = cooldowns.New()
	}
	if s.Log == nil {
		s.Log = []rules.LogEntry{}
	}
	if len(s.Scoreboard) == 0 {
		s.Scoreboard = nil
	}
	if q := s.Question; q != nil {
		if q.Options == nil {
			q.Options = []Answer{}
		}
		if len(q.Attack.Visited) == 0 {
			q.Attack.Visited = nil
		}
	}
}

// SerializationChecksum identifies a state for divergence detection.
type SerializationChecksum struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// checksumVersion changes whenever the canonical representation does.
const checksumVersion = 1

// Checksum hashes the public, deterministic part of a state. Hidden content
// (hands, deck order, seed) contributes only its size, so a projection has
// the same checksum as the state it was derived from.
func Checksum(s *State) (*SerializationChecksum, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot checksum nil state")
	}
	hash := sha256.New()
	if _, err := hash.Write([]byte(canonical(s))); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	return &SerializationChecksum{
		Hash:    hex.EncodeToString(hash.Sum(nil)),
		Version: checksumVersion,
	}, nil
}

// canonical builds the line-oriented representation hashed by Checksum.
// Order matters everywhere: seating, continents, trait attachment and the
// log are all part of the game's meaning.
func canonical(s *State) string {
	var buf strings.Builder

	deckSize := s.DeckSize
	if s.Deck != nil {
		deckSize = len(s.Deck)
	}
	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%d|%d|%d|%d|%d|%d|%s|%d\n",
		s.ID, s.Phase, s.Turn, s.Round, s.PhaseSeq,
		s.CurrentPlayer, s.RoundPlayer, s.Food, deckSize, s.WinnerID, s.Version,
	)

	for i := range s.Players {
		p := &s.Players[i]
		handSize := p.HandSize
		if p.Hand != nil {
			handSize = len(p.Hand)
		}
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d|%t|%t|%t|%t|%t|%d\n",
			p.ID, p.Index, handSize, p.Playing, p.Ended, p.Acted, p.TimedOut, p.WantsPause, p.ScoreDead,
		)
		for j := range p.Continent {
			a := &p.Continent[j]
			fmt.Fprintf(&buf, "  ANIMAL:%s|%d|%t|%t\n", a.ID, a.Food, a.Poisoned, a.Hibernating)
			for _, tr := range a.Traits {
				fmt.Fprintf(&buf, "    TRAIT:%s|%s|%s|%s|%s\n", tr.ID, tr.Type, tr.OwnerID, tr.LinkAnimalID, tr.LinkTraitID)
			}
		}
	}

	for _, c := range s.Continents {
		fmt.Fprintf(&buf, "CONTINENT:%s|%d\n", c.ID, c.FoodBonus)
	}
	if q := s.Question; q != nil {
		fmt.Fprintf(&buf, "QUESTION:%s|%s|%s|%s|%s|%s|%s\n",
			q.ID, q.Type, q.PlayerID, q.SourceAnimalID, q.TargetAnimalID, q.Attack.IgnoredTraitID, strings.Join(q.Attack.Visited, ","))
		for _, o := range q.Options {
			fmt.Fprintf(&buf, "  OPTION:%s|%s|%s\n", o.Kind, o.TraitID, o.AnimalID)
		}
	}
	if a := s.Ambush; a != nil {
		fmt.Fprintf(&buf, "AMBUSH:%s|%s\n", a.ID, a.TargetID)
		for _, am := range a.Ambushers {
			fmt.Fprintf(&buf, "  AMBUSHER:%s|%s\n", am.AnimalID, am.Decision)
		}
	}
	fmt.Fprintf(&buf, "AMBUSH_QUEUE:%s\n", strings.Join(s.AmbushQueue, ","))
	for _, e := range s.Cooldowns.Entries {
		fmt.Fprintf(&buf, "COOLDOWN:%s|%s|%s|%d\n", e.SubjectID, e.Link, e.Scope, e.Until)
	}
	for _, e := range s.Scoreboard {
		fmt.Fprintf(&buf, "SCORE:%s|%t|%d|%d\n", e.PlayerID, e.Playing, e.ScoreNormal, e.ScoreDead)
	}
	fmt.Fprintf(&buf, "LOG:%d\n", len(s.Log))
	for _, e := range s.Log {
		fmt.Fprintf(&buf, "  %s|%d|%d|%s|%s|%s|%s|%s|%d|%s\n",
			e.Type, e.Round, e.Turn, e.Phase, e.PlayerID, e.SourceID, e.TargetID, e.Trait, e.Amount, e.Detail)
	}
	return buf.String()
}

// VerifyChecksum reports whether s still matches a stored checksum.
func VerifyChecksum(s *State, expected *SerializationChecksum) (bool, error) {
	computed, err := Checksum(s)
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	if expected.Version != computed.Version {
		return false, fmt.Errorf("checksum version %d, expected %d", expected.Version, computed.Version)
	}
	return computed.Hash == expected.Hash, nil
}

// ValidateSerializationRoundtrip encodes and decodes s and compares both the
// checksums and the canonical encodings.
func ValidateSerializationRoundtrip(s *State) error {
	original, err := Checksum(s)
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	roundtrip, err := Checksum(decoded)
	if err != nil {
		return fmt.Errorf("failed to compute decoded checksum: %w", err)
	}
	if original.Hash != roundtrip.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, decoded=%s", original.Hash, roundtrip.Hash)
	}
	again, err := Encode(decoded)
	if err != nil {
		return err
	}
	if !bytes.Equal(data, again) {
		return fmt.Errorf("encoding is not stable across a roundtrip")
	}
	return nil
}
