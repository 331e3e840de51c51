package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidance-replay/internal/locator"
	"guidance-replay/internal/route"
	"guidance-replay/internal/sim"
)

func input(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "route", "testdata", "maneuvers.json"))
	require.NoError(t, err)
	return data
}

func TestRun(t *testing.T) {
	out, err := run(input(t), "constant", route.DefaultAccelRate, false, time.Second, -1, false)
	require.NoError(t, err)
	f, ok := out.(*geojson.Feature)
	require.True(t, ok)
	assert.Equal(t, "LineString", f.Geometry.GeoJSONType())

	out, err = run(input(t), "constant", route.DefaultAccelRate, true, time.Second, -1, false)
	require.NoError(t, err)
	assert.Len(t, out.([]sim.LocationEvent), 25)

	// Streaming from 20 s covers ticks 20..24.
	out, err = run(input(t), "constant", route.DefaultAccelRate, true, time.Second, 20000, false)
	require.NoError(t, err)
	evs := out.([]sim.LocationEvent)
	require.Len(t, evs, 5)
	assert.Equal(t, 20000.0, evs[0].Time)

	out, err = run(input(t), "acceldecel", route.DefaultAccelRate, false, time.Second, -1, true)
	require.NoError(t, err)
	assert.Len(t, out.(locator.Maneuvers).Times, 3)

	_, err = run(input(t), "ease", route.DefaultAccelRate, false, time.Second, -1, false)
	assert.ErrorIs(t, err, route.ErrUnsupportedMode)
}
