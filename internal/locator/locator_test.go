package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidance-replay/internal/route"
)

var (
	start   = orb.Point{-77.032395, 38.912603}
	corner  = orb.Point{-77.032678, 38.912603}
	arrival = orb.Point{-77.032678, 38.913357}
)

func directions(t *testing.T, name string) *route.Directions {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "route", "testdata", name))
	require.NoError(t, err)
	d, err := route.Parse(data)
	require.NoError(t, err)
	return d
}

func TestConstantLocator(t *testing.T) {
	for _, name := range []string{"legs.json", "maneuvers.json"} {
		t.Run(name, func(t *testing.T) {
			l, err := New(directions(t, name), route.SpacingConstant)
			require.NoError(t, err)

			m := l.Maneuvers()
			assert.Equal(t, []float64{0, 13300, 24400}, m.Times)
			assert.Equal(t, orb.LineString{start, corner, arrival}, m.Coordinates)

			tests := []struct {
				at   float64
				step int
			}{
				{-1, -1},
				{0, 0},
				{13299, 0},
				{13300, 1},
				{20000, 1},
				{24400, 2},
				{90000, 2},
			}
			for _, tt := range tests {
				assert.Equal(t, tt.step, l.ActiveStep(tt.at), "t=%v", tt.at)
			}

			p, ok := l.CoordsAt(24400)
			require.True(t, ok)
			assert.Equal(t, arrival, p)

			p, ok = l.CoordsAt(13300)
			require.True(t, ok)
			assert.InDelta(t, corner.Lon(), p.Lon(), 1e-9)
			assert.InDelta(t, corner.Lat(), p.Lat(), 1e-9)

			p, ok = l.CoordsAt(6650)
			require.True(t, ok)
			assert.InDelta(t, (start.Lon()+corner.Lon())/2, p.Lon(), 1e-7)
			assert.InDelta(t, start.Lat(), p.Lat(), 1e-7)

			_, ok = l.CoordsAt(24401)
			assert.False(t, ok)
			_, ok = l.CoordsAt(-5)
			assert.False(t, ok)
		})
	}
}

func TestAccelDecelLocator(t *testing.T) {
	l, err := New(directions(t, "legs.json"), route.SpacingAccelDecel)
	require.NoError(t, err)

	m := l.Maneuvers()
	require.Len(t, m.Times, 3)
	assert.Equal(t, orb.LineString{start, corner, arrival}, m.Coordinates)
	assert.Equal(t, 0.0, m.Times[0])
	assert.Greater(t, m.Times[1], m.Times[0])
	assert.Greater(t, m.Times[2], m.Times[1])

	assert.Equal(t, 1, l.ActiveStep(m.Times[1]))
	p, ok := l.CoordsAt(m.Times[2])
	require.True(t, ok)
	assert.Equal(t, arrival, p)
}

func TestNewErrors(t *testing.T) {
	_, err := New(directions(t, "legs.json"), "ease")
	assert.ErrorIs(t, err, route.ErrUnsupportedMode)

	_, err = New(&route.Directions{}, route.SpacingConstant)
	assert.ErrorIs(t, err, route.ErrNoRoute)
}

func TestRepeatedManeuverTimes(t *testing.T) {
	// A zero-duration step gives maneuvers 1 and 2 the same start time.
	l := &Locator{m: Maneuvers{
		Times:       []float64{0, 1000, 1000, 2000},
		Coordinates: orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}, {0.003, 0}},
	}}

	tests := []struct {
		at   float64
		step int
	}{
		{999, 0},
		{1000, 2},
		{1500, 2},
		{2000, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.step, l.ActiveStep(tt.at), "t=%v", tt.at)
	}

	p, ok := l.CoordsAt(1000)
	require.True(t, ok)
	assert.InDelta(t, 0.002, p.Lon(), 1e-9)

	p, ok = l.CoordsAt(1500)
	require.True(t, ok)
	assert.InDelta(t, 0.0025, p.Lon(), 1e-9)
	assert.InDelta(t, 0, p.Lat(), 1e-9)
}
