package route

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Segment is one normalized maneuver: its reported distance (meters),
// duration (seconds) and geometry.
type Segment struct {
	Distance    float64
	Duration    float64
	Coordinates orb.LineString
}

// NormalizeSegments turns either directions layout into one list of segments.
// Segments with fewer than 2 coordinates are dropped. The maneuvers layout
// additionally gets a zero-length arrival segment at the end.
func NormalizeSegments(d *Directions) ([]Segment, error) {
	if d == nil || len(d.Routes) == 0 {
		return nil, ErrNoRoute
	}
	switch d.Variant() {
	case VariantLegs:
		return legSegments(d.Steps()), nil
	default:
		return maneuverSegments(d.Routes[0])
	}
}

func legSegments(steps []Step) []Segment {
	var segs []Segment
	for _, s := range steps {
		segs = appendSegment(segs, Segment{
			Distance:    s.Distance,
			Duration:    s.Duration,
			Coordinates: lineOf(s.Geometry),
		})
	}
	return segs
}

// maneuverSegments splits the flat route geometry at every maneuver location
// after the first. The piece ending at maneuver i+1 takes step i's distance
// and duration; coordinates after the last boundary are dropped.
func maneuverSegments(r Route) ([]Segment, error) {
	if len(r.Steps) == 0 {
		return nil, ErrNoRoute
	}
	var segs []Segment
	prev, next := 0, 1
	cur := orb.LineString{}
	for _, c := range lineOf(r.Geometry) {
		cur = append(cur, c)
		if next < len(r.Steps) && c.Equal(r.Steps[next].Maneuver.Location.Point()) {
			segs = appendSegment(segs, Segment{
				Distance:    r.Steps[prev].Distance,
				Duration:    r.Steps[prev].Duration,
				Coordinates: cur,
			})
			cur = orb.LineString{c}
			prev, next = next, next+1
		}
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no maneuver location on the route geometry", ErrNoRoute)
	}
	// arrival
	return append(segs, Segment{}), nil
}

func appendSegment(segs []Segment, s Segment) []Segment {
	if len(s.Coordinates) < 2 {
		return segs
	}
	return append(segs, s)
}
