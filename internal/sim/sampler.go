package sim

import (
	"sort"

	"github.com/paulmach/orb"

	"guidance-replay/internal/route"
	"guidance-replay/internal/spatial"
)

var ErrShapeMismatch = route.ErrShapeMismatch

// Sampler answers where the mover is at a time in milliseconds. A nil event
// means the trajectory is over.
type Sampler interface {
	Sample(t float64, last *LocationEvent) *LocationEvent
	FinalTime() float64
	SpeedAware() bool
}

// NewSampler picks the profile sampler when every coordinate of tr has a
// speed, and the constant sampler otherwise.
func NewSampler(tr *route.Trajectory) (Sampler, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if tr.HasSpeeds() {
		speeds := make([]float64, len(tr.Speeds))
		for i, s := range tr.Speeds {
			speeds[i] = *s
		}
		return &profileSampler{coords: tr.Coordinates, times: tr.Times, speeds: speeds}, nil
	}
	return &constantSampler{coords: tr.Coordinates, times: tr.Times}, nil
}

type constantSampler struct {
	coords orb.LineString
	times  []float64
}

func (s *constantSampler) FinalTime() float64 { return finalTime(s.times) }
func (s *constantSampler) SpeedAware() bool   { return false }

// Sample places the mover uniformly along the straight line between the two
// coordinates bracketing t. With several brackets the last one wins.
func (s *constantSampler) Sample(t float64, last *LocationEvent) *LocationEvent {
	n := len(s.times)
	if n == 0 || t > s.times[n-1] {
		return nil
	}
	if n == 1 {
		return NewEvent(s.coords[0], last, nil)
	}
	j := sort.Search(n, func(i int) bool { return s.times[i] > t }) - 1
	if j < 0 {
		return NewEvent(s.coords[0], last, nil)
	}
	if j > n-2 {
		j = n - 2
	}
	a, b := s.coords[j], s.coords[j+1]
	span := s.times[j+1] - s.times[j]
	if span <= 0 {
		return NewEvent(b, last, nil)
	}
	frac := (t - s.times[j]) / span
	return NewEvent(spatial.Along(a, b, spatial.Distance(a, b)*frac), last, nil)
}

type profileSampler struct {
	coords orb.LineString
	times  []float64
	speeds []float64
}

func (s *profileSampler) FinalTime() float64 { return finalTime(s.times) }
func (s *profileSampler) SpeedAware() bool   { return true }

func (s *profileSampler) at(i int, last *LocationEvent) *LocationEvent {
	return NewEvent(s.coords[i], last, &s.speeds[i])
}

// Sample integrates the interpolated speed from the previous sample. Past the
// end the final sample is returned once.
func (s *profileSampler) Sample(t float64, last *LocationEvent) *LocationEvent {
	n := len(s.times)
	if n == 0 {
		return nil
	}
	i := sort.SearchFloat64s(s.times, t)
	if i < n && s.times[i] == t {
		return s.at(i, last)
	}
	if t > s.times[n-1] {
		if last != nil && last.Coords.Equal(s.coords[n-1]) {
			return nil
		}
		return s.at(n-1, last)
	}
	if i == 0 {
		return s.at(0, last)
	}

	a, b := i-1, i
	ta, tb := s.times[a], s.times[b]
	speed := spatial.ValueOnLine(spatial.XY{ta, s.speeds[a]}, spatial.XY{tb, s.speeds[b]}, t)
	avg := (s.speeds[a] + speed) / 2
	km := spatial.DistanceFromSpeed(avg, (t-ta)/1000) / 1000
	along := spatial.Along(s.coords[a], s.coords[b], km)
	if last != nil && along.Equal(last.Coords) {
		// no progress since the last tick
		return s.at(b, last)
	}
	return NewEvent(along, last, &speed)
}

func finalTime(times []float64) float64 {
	if len(times) == 0 {
		return 0
	}
	return times[len(times)-1]
}
