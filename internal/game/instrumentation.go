package game

import (
	"context"
	"sync"

	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// Instrumentation collects per-game counters. It travels with the context
// of an engine call; a nil *Instrumentation records nothing.
type Instrumentation struct {
	mu sync.Mutex

	actions           int
	actionsByType     map[rules.ActionType]int
	rejectionsByKind  map[rules.Kind]int
	cascadeSteps      int
	maxCascade        int
	cascadesTruncated int
	questionsOpened   int
	questionsDefault  int
	ambushesOpened    int
	attacks           int
}

// NewInstrumentation creates an empty collector.
func NewInstrumentation() *Instrumentation {
	return &Instrumentation{
		actionsByType:    make(map[rules.ActionType]int),
		rejectionsByKind: make(map[rules.Kind]int),
	}
}

type instrumentationKey struct{}

// WithInstrumentation attaches a collector to ctx.
func WithInstrumentation(ctx context.Context, in *Instrumentation) context.Context {
	return context.WithValue(ctx, instrumentationKey{}, in)
}

// InstrumentationFrom returns the collector attached to ctx, or nil.
func InstrumentationFrom(ctx context.Context) *Instrumentation {
	if ctx == nil {
		return nil
	}
	in, _ := ctx.Value(instrumentationKey{}).(*Instrumentation)
	return in
}

func (in *Instrumentation) trackAction(action rules.ActionType) {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.actions++
	in.actionsByType[action]++
}

func (in *Instrumentation) trackRejection(err error) {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.rejectionsByKind[rules.KindOf(err)]++
}

// trackCascade records the length of one food cascade.
func (in *Instrumentation) trackCascade(steps int, truncated bool) {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cascadeSteps += steps
	if steps > in.maxCascade {
		in.maxCascade = steps
	}
	if truncated {
		in.cascadesTruncated++
	}
}

func (in *Instrumentation) trackQuestion(defaulted bool) {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if defaulted {
		in.questionsDefault++
		return
	}
	in.questionsOpened++
}

func (in *Instrumentation) trackAmbush() {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.ambushesOpened++
}

func (in *Instrumentation) trackAttack() {
	if in == nil {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.attacks++
}

// Summary returns a snapshot of the counters.
func (in *Instrumentation) Summary() map[string]interface{} {
	if in == nil {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	byType := make(map[string]int, len(in.actionsByType))
	for action, n := range in.actionsByType {
		byType[string(action)] = n
	}
	byKind := make(map[string]int, len(in.rejectionsByKind))
	for kind, n := range in.rejectionsByKind {
		byKind[kind.String()] = n
	}

	return map[string]interface{}{
		"actions":             in.actions,
		"actions_by_type":     byType,
		"rejections_by_kind":  byKind,
		"cascade_steps":       in.cascadeSteps,
		"max_cascade":         in.maxCascade,
		"cascades_truncated":  in.cascadesTruncated,
		"questions_opened":    in.questionsOpened,
		"questions_defaulted": in.questionsDefault,
		"ambushes_opened":     in.ambushesOpened,
		"attacks":             in.attacks,
	}
}
