package route

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNoRoute          = errors.New("route: directions response has no route")
	ErrShapeMismatch    = errors.New("route: coordinates, times and speeds differ in length")
	ErrUnsupportedMode  = errors.New("route: spacing must be one of constant or acceldecel")
	ErrDurationMismatch = errors.New("route: segment times do not add up to its duration")
)

// Trajectory is the whole route as coordinates with absolute times in
// milliseconds from the start. Speeds, when set, is aligned with Coordinates;
// a nil entry is an unknown speed.
type Trajectory struct {
	Coordinates orb.LineString
	Times       []float64
	Speeds      []*float64
}

// CoordinateProperties is the per-coordinate payload of the GeoJSON form.
type CoordinateProperties struct {
	Times  []float64  `json:"times"`
	Speeds []*float64 `json:"speeds,omitempty"`
}

// Concatenate joins timed segments into one trajectory. Each segment's times
// are offset by the last time kept so far, a coordinate equal to the current
// last coordinate is skipped along with its time and speed, and empty segments
// are skipped entirely.
func Concatenate(segs []TimedSegment) (*Trajectory, error) {
	tr := &Trajectory{}
	offset := 0.0
	for i, s := range segs {
		if len(s.Coordinates) == 0 {
			continue
		}
		if len(s.Times) != len(s.Coordinates) || (s.Speeds != nil && len(s.Speeds) != len(s.Coordinates)) {
			return nil, fmt.Errorf("segment %d: %w", i, ErrShapeMismatch)
		}
		for j, c := range s.Coordinates {
			if n := len(tr.Coordinates); n > 0 && c.Equal(tr.Coordinates[n-1]) {
				continue
			}
			tr.Coordinates = append(tr.Coordinates, c)
			tr.Times = append(tr.Times, offset+s.Times[j])
			var speed *float64
			if s.Speeds != nil {
				v := s.Speeds[j]
				speed = &v
			}
			tr.Speeds = append(tr.Speeds, speed)
		}
		if n := len(tr.Times); n > 0 {
			offset = tr.Times[n-1]
		}
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}

// Validate checks the length invariants.
func (tr *Trajectory) Validate() error {
	if len(tr.Coordinates) != len(tr.Times) {
		return fmt.Errorf("%w: %d coordinates, %d times", ErrShapeMismatch, len(tr.Coordinates), len(tr.Times))
	}
	if tr.Speeds != nil && len(tr.Speeds) != len(tr.Coordinates) {
		return fmt.Errorf("%w: %d coordinates, %d speeds", ErrShapeMismatch, len(tr.Coordinates), len(tr.Speeds))
	}
	return nil
}

// Duration is the time of the last coordinate in milliseconds.
func (tr *Trajectory) Duration() float64 {
	if len(tr.Times) == 0 {
		return 0
	}
	return tr.Times[len(tr.Times)-1]
}

// HasSpeeds reports whether every coordinate has a known speed.
func (tr *Trajectory) HasSpeeds() bool {
	if len(tr.Coordinates) == 0 || len(tr.Speeds) != len(tr.Coordinates) {
		return false
	}
	for _, s := range tr.Speeds {
		if s == nil {
			return false
		}
	}
	return true
}

// Feature returns the trajectory as a GeoJSON LineString feature with the
// times and speeds under properties.coordinateProperties.
func (tr *Trajectory) Feature() *geojson.Feature {
	f := geojson.NewFeature(tr.Coordinates)
	f.Properties["coordinateProperties"] = CoordinateProperties{
		Times:  tr.Times,
		Speeds: tr.Speeds,
	}
	return f
}

// FromFeature reads a trajectory back from its GeoJSON form.
func FromFeature(f *geojson.Feature) (*Trajectory, error) {
	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("trajectory: expected LineString geometry, got %T", f.Geometry)
	}
	raw, err := json.Marshal(f.Properties["coordinateProperties"])
	if err != nil {
		return nil, fmt.Errorf("trajectory: coordinate properties: %w", err)
	}
	var props CoordinateProperties
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("trajectory: coordinate properties: %w", err)
	}
	tr := &Trajectory{Coordinates: ls, Times: props.Times, Speeds: props.Speeds}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}

// UnmarshalTrajectory decodes a trajectory GeoJSON feature.
func UnmarshalTrajectory(data []byte) (*Trajectory, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, fmt.Errorf("trajectory: %w", err)
	}
	return FromFeature(f)
}
