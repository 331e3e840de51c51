// Package spatial holds the stateless geometry and unit-conversion helpers
// shared by the trajectory builder, the sampler and the locator.
//
// Units: distances along the ground are kilometers unless the name says
// meters, speeds are km/h, durations are seconds.
package spatial

import "math"

// XY is a point on an abstract 2D line (time/speed, time/distance, ...).
type XY [2]float64

// Change is the room a speed change needs.
type Change struct {
	Meters  float64
	Seconds float64
}

// Speed converts meters over seconds to km/h. Either input being zero yields
// 0 instead of a division error.
func Speed(meters, seconds float64) float64 {
	if meters == 0 || seconds == 0 {
		return 0
	}
	km := meters / 1000
	hours := seconds / (60 * 60)
	return km / hours
}

// DistanceFromSpeed returns the meters covered at kmh over seconds.
func DistanceFromSpeed(kmh, seconds float64) float64 {
	hours := seconds / (60 * 60)
	km := kmh * hours
	return km * 1000
}

// TimeFromSpeed returns the seconds needed to cover meters at kmh. Zero
// distance or zero speed yields 0.
func TimeFromSpeed(kmh, meters float64) float64 {
	if kmh == 0 || meters == 0 {
		return 0
	}
	km := meters / 1000
	hours := km / kmh
	return hours * (60 * 60)
}

func slope(a, b XY) float64 {
	return (b[1] - a[1]) / (b[0] - a[0])
}

// ValueOnLine returns y at x on the line through a and b.
func ValueOnLine(a, b XY, x float64) float64 {
	m := slope(a, b)
	intercept := a[1] - m*a[0]
	return m*x + intercept
}

// XForValue returns x at y on the line through a and b.
func XForValue(a, b XY, y float64) float64 {
	m := slope(a, b)
	intercept := a[1] - m*a[0]
	return (y - intercept) / m
}

// ChangeSegment returns the distance and time needed to go from speedA to
// speedB (km/h) at a constant rate of change (km/h per second, rate > 0).
func ChangeSegment(speedA, speedB, rate float64) Change {
	hours := math.Abs((speedA-speedB)/rate) / 3600
	avg := (speedA + speedB) / 2
	return Change{
		Meters:  (hours * avg) * 1000,
		Seconds: hours * 3600,
	}
}
