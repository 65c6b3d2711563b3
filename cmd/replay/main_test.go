package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltworks.dev/internal/sim/world"
)

func loadWorld(t *testing.T) *world.World {
	t.Helper()
	w, _, _, err := world.Load(filepath.Join("..", "..", "configs"), "replay", nil)
	require.NoError(t, err)
	return w
}

func record(t *testing.T, ticks int) []world.TickLogEntry {
	t.Helper()
	w := loadWorld(t)
	out := make([]world.TickLogEntry, 0, ticks)
	for i := 0; i < ticks; i++ {
		out = append(out, w.StepOnce())
	}
	return out
}

func TestVerifyMatchingRun(t *testing.T) {
	entries := record(t, 50)
	checked, err := verify(loadWorld(t), entries, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, checked)

	checked, err = verify(loadWorld(t), entries, 9)
	require.NoError(t, err)
	assert.Equal(t, 10, checked)
}

func TestVerifyDetectsDivergence(t *testing.T) {
	entries := record(t, 20)
	entries[12].Digest = "deadbeef"
	checked, err := verify(loadWorld(t), entries, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick 12")
	assert.Equal(t, 13, checked)

	entries = record(t, 20)
	_, err = verify(loadWorld(t), entries[1:], 0)
	assert.EqualError(t, err, "tick gap: want=1 got=0")
}

func TestLastRun(t *testing.T) {
	entries := []world.TickLogEntry{{RunID: "a", Tick: 0}, {RunID: "b", Tick: 0}, {RunID: "b", Tick: 1}}
	got := lastRun(entries, "")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].RunID)
	assert.Len(t, lastRun(entries, "a"), 3)
}
