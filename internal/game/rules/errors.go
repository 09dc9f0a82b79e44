package rules

import (
	"errors"
	"fmt"
)

// Kind classifies why an action was rejected.
type Kind int

const (
	KindIllegalPhase Kind = iota + 1
	KindNotYourTurn
	KindUnauthorized
	KindInvalidTarget
	KindOnCooldown
	KindQuestionPending
	KindAmbushPending
	KindNotFound
	KindInvalidAction
)

var kindNames = map[Kind]string{
	KindIllegalPhase:    "ILLEGAL_PHASE",
	KindNotYourTurn:     "NOT_YOUR_TURN",
	KindUnauthorized:    "UNAUTHORIZED",
	KindInvalidTarget:   "INVALID_TARGET",
	KindOnCooldown:      "ON_COOLDOWN",
	KindQuestionPending: "QUESTION_PENDING",
	KindAmbushPending:   "AMBUSH_PENDING",
	KindNotFound:        "NOT_FOUND",
	KindInvalidAction:   "INVALID_ACTION",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Sentinel errors, one per rejection kind. Use errors.Is against these.
var (
	ErrIllegalPhase    = &Error{Kind: KindIllegalPhase}
	ErrNotYourTurn     = &Error{Kind: KindNotYourTurn}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrInvalidTarget   = &Error{Kind: KindInvalidTarget}
	ErrOnCooldown      = &Error{Kind: KindOnCooldown}
	ErrQuestionPending = &Error{Kind: KindQuestionPending}
	ErrAmbushPending   = &Error{Kind: KindAmbushPending}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidAction   = &Error{Kind: KindInvalidAction}
)

// ErrInvariant marks an internal inconsistency. It is fatal for the game
// instance that produced it.
var ErrInvariant = errors.New("game invariant violated")

// Error is a recoverable rejection of an action. Rejections never mutate state.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any rule error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Reject builds a rule error of the given kind.
func Reject(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the rejection kind from an error chain, or 0 when err is not a rule error.
func KindOf(err error) Kind {
	var ruleErr *Error
	if errors.As(err, &ruleErr) {
		return ruleErr.Kind
	}
	return 0
}

// IsRejection reports whether err is an expected rule rejection.
func IsRejection(err error) bool {
	return KindOf(err) != 0
}
