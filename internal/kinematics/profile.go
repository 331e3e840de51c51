// Package kinematics models how a mover changes speed between two route
// segments.
//
// A Profile covers one segment: the mover cruises at the segment's speed,
// then ramps linearly in time to the next segment's speed so that the ramp
// ends exactly at the segment's end. Distances are meters, speeds km/h,
// times seconds, rates km/h per second.
package kinematics

import (
	"errors"
	"fmt"
	"math"

	"guidance-replay/internal/spatial"
)

// ErrDomain is wrapped by every out-of-domain input or result.
var ErrDomain = errors.New("kinematics: value out of domain")

var (
	ErrNegativeTime     = fmt.Errorf("%w: time cannot be negative", ErrDomain)
	ErrNegativeDistance = fmt.Errorf("%w: distance cannot be negative", ErrDomain)
	ErrNegativeSpeed    = fmt.Errorf("%w: speed cannot be negative", ErrDomain)
	ErrInvalidRate      = fmt.Errorf("%w: rate must be positive", ErrDomain)
)

// maxRateSteps bounds the unit-step correction after the closed-form jump in
// fitRate.
const maxRateSteps = 8

// Profile is the speed change over one segment. Dists and Times are the
// anchors of the cruise sub-interval [0,1] and the ramp [1,2].
type Profile struct {
	Dists  [3]float64
	Times  [3]float64
	Cruise float64
	Target float64
	// Rate is the rate actually used, after escalation.
	Rate float64
}

// NewProfile builds the profile for a segment of segmentDistance meters
// travelled at cruise km/h, ending at target km/h. When the change does not
// fit at rate, the rate is raised in steps of 1 km/h/s until it does.
func NewProfile(segmentDistance, cruise, target, rate float64) (*Profile, error) {
	if !(rate > 0) {
		return nil, ErrInvalidRate
	}
	if segmentDistance < 0 {
		return nil, ErrNegativeDistance
	}
	if cruise < 0 || target < 0 {
		return nil, ErrNegativeSpeed
	}
	p := &Profile{Cruise: cruise, Target: target, Rate: rate}
	if segmentDistance == 0 {
		// Nothing to travel: the change is instantaneous.
		return p, nil
	}

	p.Rate = fitRate(segmentDistance, cruise, target, rate)
	change := spatial.ChangeSegment(cruise, target, p.Rate)
	d1 := segmentDistance - change.Meters
	t1 := spatial.TimeFromSpeed(cruise, d1)
	p.Dists = [3]float64{0, d1, segmentDistance}
	p.Times = [3]float64{0, t1, t1 + change.Seconds}
	return p, nil
}

// fitRate returns the first rate in rate, rate+1, rate+2, ... whose change
// fits in dist. The change distance falls as 1/rate, so the number of steps
// comes from the closed form; the loop only absorbs rounding at the boundary.
func fitRate(dist, a, b, rate float64) float64 {
	if spatial.ChangeSegment(a, b, rate).Meters <= dist {
		return rate
	}
	need := math.Abs(a-b) * ((a + b) / 2) * 1000 / 3600 / dist
	if steps := math.Ceil(need-rate) - 1; steps > 0 {
		rate += steps
	}
	for i := 0; i < maxRateSteps && spatial.ChangeSegment(a, b, rate).Meters > dist; i++ {
		rate++
	}
	return rate
}

// TotalDistance is the segment length in meters.
func (p *Profile) TotalDistance() float64 { return p.Dists[2] }

// TotalDuration is the time in seconds to travel the segment.
func (p *Profile) TotalDuration() float64 { return p.Times[2] }

func (p *Profile) flatRamp() bool { return p.Times[2] == p.Times[1] }

// AtDistance returns the speed and elapsed time after m meters. A negative
// speed extrapolated past the segment end is clamped to 0.
func (p *Profile) AtDistance(m float64) (speed, seconds float64, err error) {
	if m < 0 {
		return 0, 0, ErrNegativeDistance
	}
	if m <= p.Dists[1] || p.flatRamp() {
		return p.Cruise, spatial.TimeFromSpeed(p.Cruise, m), nil
	}
	seconds = spatial.XForValue(
		spatial.XY{p.Times[1], p.Dists[1]},
		spatial.XY{p.Times[2], p.Dists[2]},
		m,
	)
	speed = spatial.ValueOnLine(
		spatial.XY{p.Times[1], p.Cruise},
		spatial.XY{p.Times[2], p.Target},
		seconds,
	)
	if speed < 0 {
		speed = 0
	}
	return speed, seconds, nil
}

// AtTime returns the speed and distance travelled after s seconds. Unlike
// AtDistance, a negative speed is an error.
func (p *Profile) AtTime(s float64) (speed, meters float64, err error) {
	if s < 0 {
		return 0, 0, ErrNegativeTime
	}
	if s <= p.Times[1] || p.flatRamp() {
		return p.Cruise, spatial.DistanceFromSpeed(p.Cruise, s), nil
	}
	speed = spatial.ValueOnLine(
		spatial.XY{p.Times[1], p.Cruise},
		spatial.XY{p.Times[2], p.Target},
		s,
	)
	if speed < 0 {
		return 0, 0, ErrNegativeSpeed
	}
	meters = spatial.ValueOnLine(
		spatial.XY{p.Times[1], p.Dists[1]},
		spatial.XY{p.Times[2], p.Dists[2]},
		s,
	)
	return speed, meters, nil
}
