package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContains(t *testing.T) {
	l := New()
	k := Key{Device: "pnor.img", Addr: 0x4000}

	assert.False(t, l.Contains(k))
	require.NoError(t, l.Add(k))
	assert.True(t, l.Contains(k))
	assert.Equal(t, 1, l.Len())

	require.NoError(t, l.Add(k))
	assert.Equal(t, 1, l.Len())
}

func TestDistinctKeys(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(Key{Device: "a.img", Addr: 0x1000}))
	require.NoError(t, l.Add(Key{Device: "a.img", Addr: 0x2000}))
	require.NoError(t, l.Add(Key{Device: "b.img", Addr: 0x1000}))

	assert.Equal(t, 3, l.Len())
	assert.False(t, l.Contains(Key{Device: "b.img", Addr: 0x2000}))
}

func TestKeysOrdered(t *testing.T) {
	l := New()
	require.NoError(t, l.Add(Key{Device: "a.img", Addr: 0x2000}))
	require.NoError(t, l.Add(Key{Device: "a.img", Addr: 0x1000}))

	assert.Equal(t, []Key{
		{Device: "a.img", Addr: 0x1000},
		{Device: "a.img", Addr: 0x2000},
	}, l.Keys())
}

func TestAddRejectsNul(t *testing.T) {
	l := New()
	assert.Error(t, l.Add(Key{Device: "a\x00b"}))
	assert.Equal(t, 0, l.Len())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "pnor@3f0000", Key{Device: "pnor", Addr: 0x3f0000}.String())
}
