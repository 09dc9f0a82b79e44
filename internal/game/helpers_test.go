package game_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/fixture"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

// table bundles an engine with the state it is driving.
type table struct {
	t      *testing.T
	engine *game.Engine
	state  *game.State
}

func newTable(t *testing.T, text string, opts ...game.Option) *table {
	t.Helper()
	s, err := fixture.Parse(text)
	require.NoError(t, err)
	return &table{
		t:      t,
		engine: game.NewEngine(zaptest.NewLogger(t), opts...),
		state:  s,
	}
}

// do applies an action that must be accepted.
func (tb *table) do(action game.Action) *game.State {
	tb.t.Helper()
	next, err := tb.engine.Apply(context.Background(), tb.state, action)
	require.NoError(tb.t, err)
	tb.state = next
	return next
}

// reject applies an action that must be rejected with kind and checks that
// the state did not change.
func (tb *table) reject(action game.Action, kind rules.Kind) {
	tb.t.Helper()
	before, err := game.Encode(tb.state)
	require.NoError(tb.t, err)

	next, err := tb.engine.Apply(context.Background(), tb.state, action)
	require.Error(tb.t, err)
	assert.Equal(tb.t, kind, rules.KindOf(err), "unexpected rejection: %v", err)
	assert.Same(tb.t, tb.state, next)

	after, err := game.Encode(tb.state)
	require.NoError(tb.t, err)
	assert.Equal(tb.t, string(before), string(after))
}

// animal returns the idx-th animal of the player at seat.
func (tb *table) animal(seat, idx int) *game.Animal {
	tb.t.Helper()
	p := tb.state.Players[seat]
	require.Greater(tb.t, len(p.Continent), idx, "player %s has %d animals", p.ID, len(p.Continent))
	return &p.Continent[idx]
}

func (tb *table) player(seat int) *game.Player {
	return &tb.state.Players[seat]
}

func (tb *table) card(seat, idx int) string {
	tb.t.Helper()
	p := tb.state.Players[seat]
	require.Greater(tb.t, len(p.Hand), idx)
	return p.Hand[idx].ID
}

// events returns the log entries of one type.
func (tb *table) events(kind rules.EventType) []rules.LogEntry {
	var out []rules.LogEntry
	for _, entry := range tb.state.Log {
		if entry.Type == kind {
			out = append(out, entry)
		}
	}
	return out
}
