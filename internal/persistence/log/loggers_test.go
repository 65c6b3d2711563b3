package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/field"
	"beltworks.dev/internal/sim/world"
)

func TestTickLogRoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := uint64(0); i < 6; i++ {
		if i == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		run := "a"
		if i%2 == 1 {
			run = "b"
		}
		require.NoError(t, l.WriteTick(world.TickLogEntry{RunID: run, Tick: i, Digest: "d", Report: field.Report{Tick: i, Messages: int(i)}}))
	}
	require.NoError(t, l.Close())

	files, err := os.ReadDir(filepath.Join(dir, "ticks"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "ticks-2026-03-01-10.jsonl.zst", files[0].Name())

	all, err := ReadTicks(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, e := range all {
		assert.Equal(t, uint64(i), e.Tick)
		assert.Equal(t, i, e.Report.Messages)
	}

	onlyA, err := ReadTicks(dir, "a")
	require.NoError(t, err)
	require.Len(t, onlyA, 3)
	assert.Equal(t, uint64(4), onlyA[2].Tick)
}

func TestReopenAppendsFrame(t *testing.T) {
	dir := t.TempDir()
	for i := uint64(0); i < 2; i++ {
		l := NewTickLogger(dir)
		require.NoError(t, l.WriteTick(world.TickLogEntry{RunID: "r", Tick: i}))
		require.NoError(t, l.Close())
	}
	got, err := ReadTicks(dir, "r")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestProblemLog(t *testing.T) {
	dir := t.TempDir()
	l := NewProblemLogger(dir)
	p := catalogs.Problem{File: "layout.yaml", Entry: "buildings[0]", Msg: "occupied"}
	require.NoError(t, l.WriteProblem(ProblemEntry{RunID: "r", WorldID: "w", Problem: p}))
	require.NoError(t, l.Close())

	got, err := ReadProblems(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0].Problem)
}

func TestReadMissingDir(t *testing.T) {
	_, err := ReadTicks(t.TempDir(), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
