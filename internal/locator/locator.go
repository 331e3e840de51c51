// Package locator answers which maneuver of a route is active at a given time
// and where the mover is at maneuver granularity.
package locator

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"guidance-replay/internal/route"
	"guidance-replay/internal/spatial"
)

// Maneuvers holds the start time (ms) and location of every maneuver.
type Maneuvers struct {
	Times       []float64      `json:"times"`
	Coordinates orb.LineString `json:"coordinates"`
}

type Locator struct {
	m Maneuvers
}

// New builds a locator. With constant spacing maneuver times come straight
// from the step durations; with acceldecel they follow the speed change
// profiles between steps.
func New(d *route.Directions, spacing route.Spacing) (*Locator, error) {
	if d == nil || len(d.Routes) == 0 {
		return nil, route.ErrNoRoute
	}
	switch spacing {
	case route.SpacingConstant, "":
		return &Locator{m: fromSteps(d.Steps())}, nil
	case route.SpacingAccelDecel:
		m, err := fromProfiles(d)
		if err != nil {
			return nil, err
		}
		return &Locator{m: m}, nil
	default:
		return nil, fmt.Errorf("%w: %q", route.ErrUnsupportedMode, spacing)
	}
}

// fromSteps gives maneuver i the sum of the durations before it. The arrival
// step contributes its location only.
func fromSteps(steps []route.Step) Maneuvers {
	m := Maneuvers{
		Times:       make([]float64, 0, len(steps)),
		Coordinates: make(orb.LineString, 0, len(steps)),
	}
	elapsed := 0.0
	for _, s := range steps {
		m.Times = append(m.Times, elapsed)
		m.Coordinates = append(m.Coordinates, s.Maneuver.Location.Point())
		elapsed += s.Duration * 1000
	}
	return m
}

func fromProfiles(d *route.Directions) (Maneuvers, error) {
	segs, err := route.NormalizeSegments(d)
	if err != nil {
		return Maneuvers{}, err
	}
	timed, err := route.TimestampAccelDecel(segs, route.DefaultAccelRate)
	if err != nil {
		return Maneuvers{}, err
	}
	var m Maneuvers
	for _, s := range segs {
		if len(s.Coordinates) > 0 {
			m.Times = append(m.Times, 0)
			m.Coordinates = append(m.Coordinates, s.Coordinates[0])
			break
		}
	}
	elapsed := 0.0
	for _, ts := range timed {
		n := len(ts.Coordinates)
		if n == 0 {
			continue
		}
		elapsed += ts.Times[n-1]
		m.Times = append(m.Times, elapsed)
		m.Coordinates = append(m.Coordinates, ts.Coordinates[n-1])
	}
	return m, nil
}

func (l *Locator) Maneuvers() Maneuvers { return l.m }

// ActiveStep returns the index of the maneuver in progress at t ms: the last
// maneuver starting at or before t. It is -1 before the route starts.
func (l *Locator) ActiveStep(t float64) int {
	return sort.Search(len(l.m.Times), func(i int) bool { return l.m.Times[i] > t }) - 1
}

// CoordsAt returns the position at t ms, moving uniformly along the straight
// line between consecutive maneuver locations. It reports false outside the
// route.
func (l *Locator) CoordsAt(t float64) (orb.Point, bool) {
	times, coords := l.m.Times, l.m.Coordinates
	n := len(times)
	if n == 0 || t < times[0] || t > times[n-1] {
		return orb.Point{}, false
	}
	if t == times[n-1] {
		return coords[n-1], true
	}
	i := l.ActiveStep(t)
	a, b := coords[i], coords[i+1]
	frac := (t - times[i]) / (times[i+1] - times[i])
	return spatial.Along(a, b, spatial.Distance(a, b)*frac), true
}
