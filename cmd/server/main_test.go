package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beltworks.dev/internal/persistence/indexdb"
	"beltworks.dev/internal/sim/world"
)

func loadWorld(t *testing.T) *world.World {
	t.Helper()
	w, _, _, err := world.Load(filepath.Join("..", "..", "configs"), "world_1", nil)
	require.NoError(t, err)
	return w
}

func getState(t *testing.T, h http.HandlerFunc) stateResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/v1/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStateWithoutIndex(t *testing.T) {
	w := loadWorld(t)
	w.StepOnce()

	resp := getState(t, stateHandler("world_1", w, nil, zap.NewNop()))
	assert.Equal(t, "world_1", resp.WorldID)
	assert.Equal(t, w.RunID(), resp.RunID)
	assert.Equal(t, uint64(1), resp.Tick)
	assert.Equal(t, 13, resp.Metrics.Buildings)
	assert.Nil(t, resp.Index)
}

func TestStateIncludesIndexedTotals(t *testing.T) {
	w := loadWorld(t)
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, idx.WriteTick(w.StepOnce()))
	}
	// Close flushes the async writer.
	require.NoError(t, idx.Close())
	idx, err = indexdb.OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()

	resp := getState(t, stateHandler("world_1", w, idx, zap.NewNop()))
	require.NotNil(t, resp.Index)
	assert.Equal(t, int64(3), resp.Index.Ticks)
}
