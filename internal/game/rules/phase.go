package rules

import (
	"fmt"
	"strings"
)

// Phase represents the phases of an Evolution round.
type Phase int

const (
	PhasePrepare Phase = iota
	PhaseDeploy
	PhaseFeeding
	PhaseAmbush
	PhaseExtinction
	PhaseRegeneration
	PhaseFinal
)

var phaseNames = map[Phase]string{
	PhasePrepare:      "PREPARE",
	PhaseDeploy:       "DEPLOY",
	PhaseFeeding:      "FEEDING",
	PhaseAmbush:       "AMBUSH",
	PhaseExtinction:   "EXTINCTION",
	PhaseRegeneration: "REGENERATION",
	PhaseFinal:        "FINAL",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// ParsePhase resolves a phase from its name (case-insensitive).
func ParsePhase(name string) (Phase, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for phase, phaseName := range phaseNames {
		if phaseName == upper {
			return phase, nil
		}
	}
	return PhasePrepare, fmt.Errorf("unknown phase %q", name)
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if _, ok := phaseNames[p]; !ok {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	phase, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = phase
	return nil
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseFinal
}

// Interactive reports whether players take turns during the phase.
func (p Phase) Interactive() bool {
	return p == PhaseDeploy || p == PhaseFeeding
}

// transitions lists the legal successors of each phase. REGENERATION loops
// back to DEPLOY for the next round; AMBUSH is optional after FEEDING.
var transitions = map[Phase][]Phase{
	PhasePrepare:      {PhaseDeploy},
	PhaseDeploy:       {PhaseFeeding},
	PhaseFeeding:      {PhaseAmbush, PhaseExtinction},
	PhaseAmbush:       {PhaseExtinction},
	PhaseExtinction:   {PhaseRegeneration, PhaseFinal},
	PhaseRegeneration: {PhaseDeploy, PhaseFinal},
	PhaseFinal:        nil,
}

// CanTransition reports whether moving from one phase to another is legal.
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a phase change and returns the target phase.
func Transition(from, to Phase) (Phase, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvariant, from, to)
	}
	return to, nil
}

// ActionPhases lists the phases in which each action type is accepted.
var ActionPhases = map[ActionType][]Phase{
	ActionDeployTrait:     {PhaseDeploy},
	ActionEndTurn:         {PhaseDeploy, PhaseFeeding},
	ActionActivateTrait:   {PhaseFeeding},
	ActionTakeFood:        {PhaseFeeding},
	ActionAnswerQuestion:  {PhaseFeeding},
	ActionQuestionTimeout: {PhaseFeeding},
	ActionAnswerAmbush:    {PhaseAmbush},
	ActionAmbushTimeout:   {PhaseAmbush},
	ActionTurnTimeout:     {PhaseDeploy, PhaseFeeding},
	ActionLeaveGame:       {PhaseDeploy, PhaseFeeding, PhaseAmbush},
	ActionSetPause:        {PhaseDeploy, PhaseFeeding, PhaseAmbush},
}

// AllowedIn reports whether an action type may be submitted during a phase.
func AllowedIn(action ActionType, phase Phase) bool {
	for _, p := range ActionPhases[action] {
		if p == phase {
			return true
		}
	}
	return false
}

// Abandon ends the game early from any non-terminal phase, e.g. when too
// few players remain.
func Abandon(from Phase) (Phase, error) {
	if from.Terminal() {
		return from, fmt.Errorf("%w: game already finished", ErrInvariant)
	}
	return PhaseFinal, nil
}
