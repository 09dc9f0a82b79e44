// Package cooldowns tracks activation throttles for (subject, link) pairs.
//
// A subject is an animal or player id; a link names what is throttled (a
// trait type name or a player-level action). Entries expire lazily: an entry
// blocks while the game clock counter for its scope is below the recorded
// limit, so no timer is needed.
package cooldowns

import "fmt"

// Scope selects which game counter an entry is measured against.
type Scope int

const (
	ScopeTurn Scope = iota
	ScopePhase
	ScopeRound
)

var scopeNames = map[Scope]string{
	ScopeTurn:  "TURN",
	ScopePhase: "PHASE",
	ScopeRound: "ROUND",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SCOPE_%d", int(s))
}

// MarshalText encodes the scope by name.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a scope name.
func (s *Scope) UnmarshalText(text []byte) error {
	for scope, name := range scopeNames {
		if name == string(text) {
			*s = scope
			return nil
		}
	}
	return fmt.Errorf("unknown cooldown scope %q", text)
}

// Link names the throttled activation.
type Link string

// LinkFoodAction throttles a player's single food action (take food or hunt) per turn.
const LinkFoodAction Link = "FOOD_ACTION"

// Clock is a reading of the game counters cooldowns are measured against.
type Clock struct {
	Turn  int
	Phase int
	Round int
}

func (c Clock) value(scope Scope) int {
	switch scope {
	case ScopeTurn:
		return c.Turn
	case ScopePhase:
		return c.Phase
	default:
		return c.Round
	}
}

// Entry blocks a (subject, link) pair until the scope counter reaches Until.
type Entry struct {
	SubjectID string `json:"subjectId"`
	Link      Link   `json:"link"`
	Scope     Scope  `json:"scope"`
	Until     int    `json:"until"`
}

// Table is an immutable set of cooldown entries. Every mutating method
// returns a new Table and leaves the receiver untouched.
type Table struct {
	Entries []Entry `json:"entries"`
}

// New returns an empty table.
func New() Table {
	return Table{Entries: []Entry{}}
}

// Active reports whether the pair is currently blocked.
func (t Table) Active(subjectID string, link Link, clock Clock) bool {
	for _, entry := range t.Entries {
		if entry.SubjectID == subjectID && entry.Link == link && clock.value(entry.Scope) < entry.Until {
			return true
		}
	}
	return false
}

// Remaining returns how many scope steps remain for the pair, or 0.
func (t Table) Remaining(subjectID string, link Link, clock Clock) int {
	remaining := 0
	for _, entry := range t.Entries {
		if entry.SubjectID != subjectID || entry.Link != link {
			continue
		}
		if left := entry.Until - clock.value(entry.Scope); left > remaining {
			remaining = left
		}
	}
	return remaining
}

// Mark blocks the pair for length steps of scope starting now. A length of
// zero or less leaves the table unchanged.
func (t Table) Mark(subjectID string, link Link, scope Scope, length int, clock Clock) Table {
	if length <= 0 {
		return t
	}
	next := Table{Entries: make([]Entry, 0, len(t.Entries)+1)}
	for _, entry := range t.Entries {
		if entry.SubjectID == subjectID && entry.Link == link && entry.Scope == scope {
			continue
		}
		next.Entries = append(next.Entries, entry)
	}
	next.Entries = append(next.Entries, Entry{
		SubjectID: subjectID,
		Link:      link,
		Scope:     scope,
		Until:     clock.value(scope) + length,
	})
	return next
}

// Expire drops entries that no longer block anything at clock.
func (t Table) Expire(clock Clock) Table {
	next := Table{Entries: make([]Entry, 0, len(t.Entries))}
	for _, entry := range t.Entries {
		if clock.value(entry.Scope) < entry.Until {
			next.Entries = append(next.Entries, entry)
		}
	}
	return next
}

// Forget drops every entry of a subject, e.g. when an animal dies.
func (t Table) Forget(subjectID string) Table {
	next := Table{Entries: make([]Entry, 0, len(t.Entries))}
	for _, entry := range t.Entries {
		if entry.SubjectID != subjectID {
			next.Entries = append(next.Entries, entry)
		}
	}
	return next
}

// Clone returns a copy that shares no memory with t.
func (t Table) Clone() Table {
	if t.Entries == nil {
		return Table{}
	}
	entries := make([]Entry, len(t.Entries))
	copy(entries, t.Entries)
	return Table{Entries: entries}
}

// Len returns the number of stored entries, expired or not.
func (t Table) Len() int {
	return len(t.Entries)
}
