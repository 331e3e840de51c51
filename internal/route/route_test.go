package route

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidance-replay/internal/kinematics"
	"guidance-replay/internal/spatial"
)

var (
	swannStart = orb.Point{-77.032395, 38.912603}
	swannMid   = orb.Point{-77.032595, 38.912603}
	corner     = orb.Point{-77.032678, 38.912603}
	north      = orb.Point{-77.032678, 38.91315}
	arrival    = orb.Point{-77.032678, 38.913357}
)

func loadDirections(t *testing.T, name string) *Directions {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	d, err := Decode(f)
	require.NoError(t, err)
	return d
}

func assertTrajectoryInvariants(t *testing.T, tr *Trajectory) {
	t.Helper()
	require.NoError(t, tr.Validate())
	require.NotEmpty(t, tr.Times)
	assert.Equal(t, 0.0, tr.Times[0])
	for i := 1; i < len(tr.Times); i++ {
		assert.GreaterOrEqual(t, tr.Times[i], tr.Times[i-1], "time %d", i)
		assert.False(t, tr.Coordinates[i].Equal(tr.Coordinates[i-1]), "duplicate coordinate %d", i)
	}
}

func TestParseVariants(t *testing.T) {
	legs := loadDirections(t, "legs.json")
	assert.Equal(t, VariantLegs, legs.Variant())
	assert.Len(t, legs.Steps(), 3)
	assert.Equal(t, corner, legs.Steps()[1].Maneuver.Location.Point())

	man := loadDirections(t, "maneuvers.json")
	assert.Equal(t, VariantManeuvers, man.Variant())
	assert.Len(t, man.Steps(), 3)
	assert.Equal(t, corner, man.Steps()[1].Maneuver.Location.Point())
	assert.Equal(t, "maneuvers", man.Variant().String())

	_, err := Parse([]byte(`{"routes":[]}`))
	assert.ErrorIs(t, err, ErrNoRoute)

	_, err = Parse([]byte(`{"routes":`))
	assert.Error(t, err)
}

func TestNormalizeSegments(t *testing.T) {
	t.Run("legs", func(t *testing.T) {
		segs, err := NormalizeSegments(loadDirections(t, "legs.json"))
		require.NoError(t, err)
		require.Len(t, segs, 3)
		assert.Equal(t, orb.LineString{swannStart, swannMid, corner}, segs[0].Coordinates)
		assert.Equal(t, 13.3, segs[0].Duration)
		assert.Equal(t, orb.LineString{corner, north, arrival}, segs[1].Coordinates)
		assert.Equal(t, 0.0, segs[2].Duration)
	})

	t.Run("maneuvers", func(t *testing.T) {
		segs, err := NormalizeSegments(loadDirections(t, "maneuvers.json"))
		require.NoError(t, err)
		require.Len(t, segs, 3)
		assert.Equal(t, orb.LineString{swannStart, swannMid, corner}, segs[0].Coordinates)
		assert.Equal(t, 24.49, segs[0].Distance)
		assert.Equal(t, orb.LineString{corner, north, arrival}, segs[1].Coordinates)
		assert.Equal(t, 11.1, segs[1].Duration)
		// arrival
		assert.Equal(t, Segment{}, segs[2])
	})

	t.Run("short steps dropped", func(t *testing.T) {
		d := &Directions{Code: "Ok", Routes: []Route{{Legs: []Leg{{Steps: []Step{
			{Distance: 10, Duration: 1, Geometry: geojson.NewGeometry(orb.LineString{swannStart})},
			{Distance: 10, Duration: 1, Geometry: geojson.NewGeometry(orb.LineString{swannStart, swannMid})},
			{Distance: 10, Duration: 1},
		}}}}}}
		segs, err := NormalizeSegments(d)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, orb.LineString{swannStart, swannMid}, segs[0].Coordinates)
	})

	t.Run("multiple legs", func(t *testing.T) {
		step := func(a, b orb.Point) Step {
			return Step{Distance: 10, Duration: 1, Geometry: geojson.NewGeometry(orb.LineString{a, b})}
		}
		d := &Directions{Code: "Ok", Routes: []Route{{Legs: []Leg{
			{Steps: []Step{step(swannStart, swannMid)}},
			{Steps: []Step{step(swannMid, corner), step(corner, north)}},
		}}}}
		segs, err := NormalizeSegments(d)
		require.NoError(t, err)
		assert.Len(t, segs, 3)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NormalizeSegments(&Directions{})
		assert.ErrorIs(t, err, ErrNoRoute)
	})

	t.Run("maneuvers off the geometry", func(t *testing.T) {
		d := &Directions{Routes: []Route{{
			Geometry: geojson.NewGeometry(orb.LineString{swannStart, swannMid, corner}),
			Steps: []Step{
				{Distance: 24.49, Duration: 13.3, Maneuver: Maneuver{Location: Location(swannStart)}},
				{Maneuver: Maneuver{Location: Location(north)}},
			},
		}}}
		_, err := NormalizeSegments(d)
		assert.ErrorIs(t, err, ErrNoRoute)

		_, err = Build(d, SpacingConstant)
		assert.ErrorIs(t, err, ErrNoRoute)
	})
}

func TestTimestampConstant(t *testing.T) {
	ts, err := TimestampConstant(Segment{
		Distance:    24.49,
		Duration:    13.3,
		Coordinates: orb.LineString{swannStart, swannMid, corner},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 9399, 13300}, ts.Times)
	assert.Nil(t, ts.Speeds)

	t.Run("zero length", func(t *testing.T) {
		ts, err := TimestampConstant(Segment{Duration: 2, Coordinates: orb.LineString{arrival, arrival, arrival}})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1000, 2000}, ts.Times)
	})

	t.Run("single point", func(t *testing.T) {
		ts, err := TimestampConstant(Segment{Coordinates: orb.LineString{arrival}})
		require.NoError(t, err)
		assert.Equal(t, []float64{0}, ts.Times)

		_, err = TimestampConstant(Segment{Duration: 3, Coordinates: orb.LineString{arrival}})
		assert.ErrorIs(t, err, ErrDurationMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		ts, err := TimestampConstant(Segment{})
		require.NoError(t, err)
		assert.Empty(t, ts.Coordinates)
	})
}

func TestTimestampAccelDecel(t *testing.T) {
	// 10 km/h for 60 s, then 20 km/h.
	start := orb.Point{0, 0}
	end := spatial.Along(start, orb.Point{1, 0}, 1.0/6)
	segs := []Segment{
		{Distance: 1000.0 / 6, Duration: 60, Coordinates: orb.LineString{start, end}},
		{Distance: 200, Duration: 36, Coordinates: orb.LineString{end, spatial.Along(end, orb.Point{1, 0}, 0.2)}},
	}

	out, err := TimestampAccelDecel(segs, DefaultAccelRate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	ts := out[0]

	require.Len(t, ts.Coordinates, 3)
	require.Len(t, ts.Speeds, 3)
	assert.Equal(t, []float64{0, 57000, 59000}, ts.Times)
	assert.InDeltaSlice(t, []float64{10, 10, 20}, ts.Speeds, 1e-6)

	// The ramp starts 95% of the way along, strictly inside the step.
	mid := ts.Coordinates[1]
	assert.Greater(t, mid.Lon(), start.Lon())
	assert.Less(t, mid.Lon(), end.Lon())
	assert.InDelta(t, 0.95, spatial.Distance(start, mid)/spatial.Distance(start, end), 1e-6)

	t.Run("rate escalation", func(t *testing.T) {
		// 36 -> 20 km/h within 1 s does not fit 5 km/h/s.
		short := []Segment{
			{Distance: 10, Duration: 1, Coordinates: orb.LineString{start, spatial.Along(start, end, 0.01)}},
			{Distance: 200, Duration: 36, Coordinates: segs[1].Coordinates},
		}
		out, err := TimestampAccelDecel(short, DefaultAccelRate)
		require.NoError(t, err)
		require.Len(t, out, 1)
		for i := 1; i < len(out[0].Times); i++ {
			assert.GreaterOrEqual(t, out[0].Times[i], out[0].Times[i-1])
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		_, err := TimestampAccelDecel(segs, 0)
		assert.ErrorIs(t, err, kinematics.ErrInvalidRate)
	})
}

func TestConcatenate(t *testing.T) {
	segs := []TimedSegment{
		{Coordinates: orb.LineString{swannStart, corner}, Times: []float64{0, 1000}},
		{},
		{Coordinates: orb.LineString{corner, north}, Times: []float64{0, 500}},
	}
	tr, err := Concatenate(segs)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{swannStart, corner, north}, tr.Coordinates)
	assert.Equal(t, []float64{0, 1000, 1500}, tr.Times)
	assert.Equal(t, []*float64{nil, nil, nil}, tr.Speeds)
	assert.False(t, tr.HasSpeeds())
	assert.Equal(t, 1500.0, tr.Duration())

	t.Run("speeds", func(t *testing.T) {
		tr, err := Concatenate([]TimedSegment{
			{Coordinates: orb.LineString{swannStart, corner}, Times: []float64{0, 1000}, Speeds: []float64{5, 0}},
		})
		require.NoError(t, err)
		require.True(t, tr.HasSpeeds())
		assert.Equal(t, 0.0, *tr.Speeds[1])
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := Concatenate([]TimedSegment{
			{Coordinates: orb.LineString{swannStart, corner}, Times: []float64{0}},
		})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestBuild(t *testing.T) {
	for _, name := range []string{"legs.json", "maneuvers.json"} {
		t.Run(name, func(t *testing.T) {
			d := loadDirections(t, name)

			tr, err := Build(d, SpacingConstant)
			require.NoError(t, err)
			assertTrajectoryInvariants(t, tr)
			assert.Equal(t, orb.LineString{swannStart, swannMid, corner, north, arrival}, tr.Coordinates)
			assert.Equal(t, []float64{0, 9399, 13300, 21353, 24400}, tr.Times)

			tr, err = Build(d, SpacingAccelDecel)
			require.NoError(t, err)
			assertTrajectoryInvariants(t, tr)
			assert.True(t, tr.HasSpeeds())
			// Two synthesized ramp starts.
			assert.Len(t, tr.Coordinates, 7)
			assert.Equal(t, arrival, tr.Coordinates[len(tr.Coordinates)-1])
			assert.InDelta(t, 0, *tr.Speeds[len(tr.Speeds)-1], 1e-6)
		})
	}
}

func TestBuilderSpacing(t *testing.T) {
	_, err := NewBuilder("linear", 0)
	assert.ErrorIs(t, err, ErrUnsupportedMode)

	sp, err := ParseSpacing("")
	require.NoError(t, err)
	assert.Equal(t, SpacingConstant, sp)

	sp, err = ParseSpacing(" AccelDecel ")
	require.NoError(t, err)
	assert.Equal(t, SpacingAccelDecel, sp)

	_, err = ParseSpacing("ease")
	assert.ErrorIs(t, err, ErrUnsupportedMode)

	b, err := NewBuilder(SpacingAccelDecel, -1)
	require.NoError(t, err)
	assert.Equal(t, SpacingAccelDecel, b.Spacing())
}

func TestTrajectoryFeature(t *testing.T) {
	tr, err := Build(loadDirections(t, "legs.json"), SpacingAccelDecel)
	require.NoError(t, err)

	data, err := tr.Feature().MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"coordinateProperties"`)

	back, err := UnmarshalTrajectory(data)
	require.NoError(t, err)
	assert.Equal(t, tr.Times, back.Times)
	assert.Equal(t, tr.Coordinates, back.Coordinates)
	require.Len(t, back.Speeds, len(tr.Speeds))
	for i := range tr.Speeds {
		assert.InDelta(t, *tr.Speeds[i], *back.Speeds[i], 1e-9)
	}

	_, err = UnmarshalTrajectory([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}`))
	assert.Error(t, err)
}
