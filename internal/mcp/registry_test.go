package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
)

func newSessions(n int) []*session.Session {
	out := make([]*session.Session, n)
	for i := range out {
		out[i] = session.New("doc", session.DefaultOptions())
	}
	return out
}

func TestRegistryAddGet(t *testing.T) {
	r := NewRegistry(2)
	ss := newSessions(1)
	require.NoError(t, r.Add(ss[0]))

	got, err := r.Get(ss[0].ID)
	require.NoError(t, err)
	assert.Same(t, ss[0], got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(2)
	ss := newSessions(3)
	require.NoError(t, r.Add(ss[0]))
	require.NoError(t, r.Add(ss[1]))

	// Touch the first so the second becomes least recently used.
	_, err := r.Get(ss[0].ID)
	require.NoError(t, err)

	require.NoError(t, r.Add(ss[2]))
	assert.Equal(t, []string{ss[2].ID, ss[0].ID}, r.IDs())

	_, err = r.Get(ss[1].ID)
	assert.ErrorIs(t, err, ErrUnknownSession)

	stats := r.Stats()
	assert.Equal(t, RegistryStats{Size: 2, Capacity: 2, Opened: 3, Evicted: 1}, stats)
}

func TestRegistryReAddDoesNotGrow(t *testing.T) {
	r := NewRegistry(2)
	ss := newSessions(1)
	require.NoError(t, r.Add(ss[0]))
	require.NoError(t, r.Add(ss[0]))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemoveAndClear(t *testing.T) {
	r := NewRegistry(0)
	assert.Equal(t, 16, r.Stats().Capacity)

	ss := newSessions(3)
	for _, s := range ss {
		require.NoError(t, r.Add(s))
	}
	require.NoError(t, r.Remove(ss[1].ID))
	assert.ErrorIs(t, r.Remove(ss[1].ID), ErrUnknownSession)
	assert.Equal(t, []string{ss[2].ID, ss[0].ID}, r.IDs())

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.IDs())
}
