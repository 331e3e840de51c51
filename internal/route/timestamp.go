package route

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"guidance-replay/internal/kinematics"
	"guidance-replay/internal/spatial"
)

// DefaultAccelRate is the speed change rate used between segments, in km/h
// per second.
const DefaultAccelRate = 5.0

// TimedSegment is a segment whose coordinates carry times in milliseconds
// from the segment start, and optionally speeds in km/h.
type TimedSegment struct {
	Coordinates orb.LineString
	Times       []float64
	Speeds      []float64
}

// TimestampConstant times every coordinate assuming the segment is travelled
// at constant speed. Times are rounded to the millisecond and the last one
// lands within 1 ms of the segment duration.
func TimestampConstant(seg Segment) (TimedSegment, error) {
	n := len(seg.Coordinates)
	if n == 0 {
		return TimedSegment{}, nil
	}
	total := seg.Duration * 1000
	intervals := make([]float64, n-1)
	for i := 1; i < n; i++ {
		intervals[i-1] = spatial.Distance(seg.Coordinates[i-1], seg.Coordinates[i]) * 1000
	}
	length := floats.Sum(intervals)

	times := make([]float64, n)
	elapsed := 0.0
	for i, d := range intervals {
		frac := 1 / float64(len(intervals))
		if length > 0 {
			frac = d / length
		}
		elapsed += frac * total
		times[i+1] = math.Round(elapsed)
	}
	if math.Abs(total-times[n-1]) >= 1 {
		return TimedSegment{}, fmt.Errorf("%w: last time %v, duration %v ms", ErrDurationMismatch, times[n-1], total)
	}
	return TimedSegment{Coordinates: seg.Coordinates, Times: times}, nil
}

// TimestampAccelDecel times and speeds every segment but the last one with a
// speed change profile towards the following segment's speed. Each segment
// gets one extra coordinate where the speed change starts. The last segment
// only provides the final target speed.
//
// When a segment is too short in time for the change at rate, the rate is
// raised to ceil(|Δv|/duration)+1 and stays raised for the rest of the route.
func TimestampAccelDecel(segs []Segment, rate float64) ([]TimedSegment, error) {
	if !(rate > 0) {
		return nil, kinematics.ErrInvalidRate
	}
	out := make([]TimedSegment, 0, len(segs))
	for i := 0; i+1 < len(segs); i++ {
		seg, next := segs[i], segs[i+1]
		cruise := spatial.Speed(seg.Distance, seg.Duration)
		target := spatial.Speed(next.Distance, next.Duration)
		if seg.Duration > 0 {
			if c := math.Abs(cruise-target) / seg.Duration; c >= rate {
				rate = math.Ceil(c) + 1
			}
		}
		prof, err := kinematics.NewProfile(seg.Distance, cruise, target, rate)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		ts, err := timestampProfile(seg.Coordinates, prof)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

func timestampProfile(coords orb.LineString, prof *kinematics.Profile) (TimedSegment, error) {
	if len(coords) == 0 {
		return TimedSegment{}, nil
	}
	cum := spatial.CumulativeDistances(coords)
	times := make([]float64, 0, len(coords)+1)
	speeds := make([]float64, 0, len(coords)+1)
	for _, m := range cum {
		speed, secs, err := prof.AtDistance(m)
		if err != nil {
			return TimedSegment{}, err
		}
		times = append(times, math.Round(secs*1000))
		speeds = append(speeds, speed)
	}

	// Where the ramp starts.
	at := math.Round(prof.Times[1] * 1000)
	pt := spatial.AlongLine(coords, prof.Dists[1]/1000)

	sort.Float64s(times)
	idx := sort.SearchFloat64s(times, at)
	return TimedSegment{
		Coordinates: slices.Insert(slices.Clone(coords), idx, pt),
		Times:       slices.Insert(times, idx, at),
		Speeds:      slices.Insert(speeds, idx, prof.Cruise),
	}, nil
}
