package rules

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPhaseRoundSequence(t *testing.T) {
	round := []Phase{PhaseDeploy, PhaseFeeding, PhaseAmbush, PhaseExtinction, PhaseRegeneration, PhaseDeploy}

	if !CanTransition(PhasePrepare, PhaseDeploy) {
		t.Fatalf("expected PREPARE -> DEPLOY to be legal")
	}
	for i := 0; i < len(round)-1; i++ {
		if !CanTransition(round[i], round[i+1]) {
			t.Fatalf("step %d: expected %s -> %s to be legal", i, round[i], round[i+1])
		}
	}
}

func TestPhaseAmbushIsOptional(t *testing.T) {
	if !CanTransition(PhaseFeeding, PhaseExtinction) {
		t.Fatalf("expected FEEDING -> EXTINCTION to skip AMBUSH")
	}
}

func TestPhaseNeverMovesBackward(t *testing.T) {
	illegal := [][2]Phase{
		{PhaseFeeding, PhaseDeploy},
		{PhaseExtinction, PhaseFeeding},
		{PhaseRegeneration, PhasePrepare},
		{PhaseDeploy, PhasePrepare},
		{PhaseFinal, PhaseDeploy},
		{PhaseDeploy, PhaseExtinction},
	}
	for _, pair := range illegal {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be illegal", pair[0], pair[1])
		}
		if _, err := Transition(pair[0], pair[1]); !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected invariant error for %s -> %s, got %v", pair[0], pair[1], err)
		}
	}
}

func TestPhaseFinalIsTerminal(t *testing.T) {
	if !PhaseFinal.Terminal() {
		t.Fatalf("expected FINAL to be terminal")
	}
	for phase := PhasePrepare; phase < PhaseFinal; phase++ {
		if phase.Terminal() {
			t.Fatalf("expected %s to be non-terminal", phase)
		}
	}
}

func TestPhaseTextRoundTrip(t *testing.T) {
	for phase := PhasePrepare; phase <= PhaseFinal; phase++ {
		data, err := json.Marshal(phase)
		if err != nil {
			t.Fatalf("marshal %s: %v", phase, err)
		}
		var decoded Phase
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if decoded != phase {
			t.Fatalf("expected %s, got %s", phase, decoded)
		}
	}
	if _, err := ParsePhase("lunch"); err == nil {
		t.Fatalf("expected unknown phase to fail")
	}
}

func TestActionAllowedIn(t *testing.T) {
	if !AllowedIn(ActionDeployTrait, PhaseDeploy) {
		t.Fatalf("deploy must be allowed in DEPLOY")
	}
	if AllowedIn(ActionDeployTrait, PhaseFeeding) {
		t.Fatalf("deploy must not be allowed in FEEDING")
	}
	if AllowedIn(ActionTakeFood, PhaseDeploy) {
		t.Fatalf("take food must not be allowed in DEPLOY")
	}
	if !AllowedIn(ActionAnswerAmbush, PhaseAmbush) {
		t.Fatalf("ambush answers must be allowed in AMBUSH")
	}
	for _, phase := range []Phase{PhaseExtinction, PhaseRegeneration, PhaseFinal, PhasePrepare} {
		for action := range ActionPhases {
			if AllowedIn(action, phase) {
				t.Fatalf("%s must not be allowed in %s", action, phase)
			}
		}
	}
}

func TestRuleErrorMatching(t *testing.T) {
	err := Reject(KindOnCooldown, "trait %s", "Piracy")
	if !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("expected cooldown error to match sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("cooldown error must not match not-found")
	}
	if KindOf(err) != KindOnCooldown {
		t.Fatalf("expected kind ON_COOLDOWN, got %s", KindOf(err))
	}
	if IsRejection(ErrInvariant) {
		t.Fatalf("invariant violations are not rejections")
	}
	if err.Error() != "ON_COOLDOWN: trait Piracy" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
