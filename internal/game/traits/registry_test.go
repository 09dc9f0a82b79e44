package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversEveryType(t *testing.T) {
	for _, typ := range All() {
		spec, ok := Lookup(typ)
		require.True(t, ok, "%d has no registry row", typ)
		assert.NotEmpty(t, spec.Name)
	}
	_, ok := Lookup(Invalid)
	assert.False(t, ok)
	_, ok = Lookup(Count)
	assert.False(t, ok)
}

func TestDefensiveFlags(t *testing.T) {
	for _, typ := range All() {
		spec := typ.Spec()
		if spec.Interactive || spec.Ignorable {
			assert.True(t, typ.Defensive(), "%s is flagged as a defense but not classified as one", typ)
		}
	}

	var interactive []Type
	for _, typ := range All() {
		if typ.Spec().Interactive {
			interactive = append(interactive, typ)
		}
	}
	assert.Equal(t, []Type{Mimicry, TailLoss}, interactive)
	assert.True(t, Running.Defensive())
	assert.False(t, Running.Spec().Interactive)
	assert.False(t, Carnivorous.Defensive())
}
