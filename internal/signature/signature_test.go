package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaloisInc/yapall/internal/alloc"
)

func TestDecodeEffects(t *testing.T) {
	sigs, err := New([]byte(`{
		"^my_alloc$": [{"return-alloc": {"type": "heap"}}],
		"^my_stack$": [{"return-alloc": {"type": "stack"}}],
		"^my_top$":   [{"return-alloc": {"type": "top"}}],
		"^strdup$":   [{"return-aliases-arg": {"arg": 0}}],
		"^getenv$":   [{"return-points-to-global": {"global": "environ"}}],
		"^my_copy$":  [{"arg-memcpy-arg": {"dst": 0, "src": 1}}],
		"^apply$":    [{"calls-arg": {"arg": 0}}]
	}`))
	require.NoError(t, err)

	effs, ok := sigs.For("my_alloc")
	require.True(t, ok)
	require.Len(t, effs, 1)
	assert.Equal(t, ReturnAlloc, effs[0].Kind)
	assert.Equal(t, alloc.Heap, effs[0].AllocType)

	effs, _ = sigs.For("my_stack")
	assert.Equal(t, alloc.Stack, effs[0].AllocType)
	effs, _ = sigs.For("my_top")
	assert.Equal(t, alloc.Top, effs[0].AllocType)

	effs, _ = sigs.For("strdup")
	assert.Equal(t, ReturnAliasesArg, effs[0].Kind)
	assert.Equal(t, 0, effs[0].Arg)

	effs, _ = sigs.For("getenv")
	assert.Equal(t, ReturnPointsToGlobal, effs[0].Kind)
	assert.Equal(t, "environ", effs[0].Global)

	effs, _ = sigs.For("my_copy")
	assert.Equal(t, ArgMemcpyArg, effs[0].Kind)
	assert.Equal(t, 0, effs[0].Dst)
	assert.Equal(t, 1, effs[0].Src)

	effs, _ = sigs.For("apply")
	assert.Equal(t, CallsArg, effs[0].Kind)
}

func TestForConcatenatesInDeclarationOrder(t *testing.T) {
	sigs, err := New([]byte(`{
		"^str": [{"return-aliases-arg": {"arg": 0}}],
		"dup$": [{"return-aliases-arg": {"arg": 1}}]
	}`))
	require.NoError(t, err)

	effs, ok := sigs.For("strdup")
	require.True(t, ok)
	require.Len(t, effs, 2)
	assert.Equal(t, 0, effs[0].Arg)
	assert.Equal(t, 1, effs[1].Arg)
}

func TestForUnmatched(t *testing.T) {
	sigs, err := New([]byte(`{"^exact$": []}`))
	require.NoError(t, err)

	effs, ok := sigs.For("exact")
	assert.True(t, ok, "a matched pattern with zero effects is still a match")
	assert.Empty(t, effs)

	_, ok = sigs.For("inexact")
	assert.False(t, ok)

	_, ok = Empty().For("anything")
	assert.False(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	_, err := New([]byte(`[]`))
	assert.Error(t, err, "top level must be an object")

	_, err = New([]byte(`{"^f$": [{"return-alloc": {"type": "nonsense"}}]}`))
	assert.Error(t, err)

	_, err = New([]byte(`{"^f$": [{"unknown-tag": {}}]}`))
	assert.Error(t, err)

	_, err = New([]byte(`{"(unclosed": []}`))
	assert.Error(t, err, "an invalid regex pattern must be rejected")
}
