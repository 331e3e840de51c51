package sim

import (
	"errors"
	"math"
	"time"

	"guidance-replay/internal/route"
)

var ErrInvalidInterval = errors.New("sim: tick interval must be positive")

// Emitter turns a trajectory into a stream of location events, one per call
// to Next. It is not safe for concurrent use.
type Emitter struct {
	sampler  Sampler
	interval float64 // ms

	cursor    float64
	last      *LocationEvent
	exhausted bool
}

func NewEmitter(tr *route.Trajectory, interval time.Duration) (*Emitter, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	s, err := NewSampler(tr)
	if err != nil {
		return nil, err
	}
	return &Emitter{
		sampler:  s,
		interval: float64(interval) / float64(time.Millisecond),
	}, nil
}

// Seek moves the cursor to startMs and forgets the previous event. It returns
// the new cursor in ticks.
func (e *Emitter) Seek(startMs float64) float64 {
	e.cursor = startMs / e.interval
	e.last = nil
	e.exhausted = false
	return e.cursor
}

// Next samples the trajectory at the cursor and advances it by one tick. It
// returns nil once the trajectory is over, and keeps returning nil until Seek.
func (e *Emitter) Next() *LocationEvent {
	if e.exhausted {
		return nil
	}
	t := e.cursor * e.interval
	ev := e.sampler.Sample(t, e.last)
	if ev != nil {
		ev.Time = t
	} else {
		e.exhausted = true
	}
	e.last = ev
	e.cursor++
	return ev
}

// All returns one event per tick from 0 to the end of the trajectory. It does
// not touch the cursor.
func (e *Emitter) All() []LocationEvent {
	n := int(math.Floor(e.sampler.FinalTime() / e.interval))
	events := make([]LocationEvent, 0, n+1)
	var prev *LocationEvent
	for k := 0; k <= n; k++ {
		t := float64(k) * e.interval
		ev := e.sampler.Sample(t, prev)
		if ev == nil {
			continue
		}
		ev.Time = t
		events = append(events, *ev)
		prev = ev
	}
	return events
}

func (e *Emitter) Exhausted() bool { return e.exhausted }

// Cursor is the fractional tick counter.
func (e *Emitter) Cursor() float64 { return e.cursor }

// Duration is the final trajectory time in milliseconds.
func (e *Emitter) Duration() float64 { return e.sampler.FinalTime() }

func (e *Emitter) Interval() time.Duration {
	return time.Duration(e.interval * float64(time.Millisecond))
}

func (e *Emitter) SpeedAware() bool { return e.sampler.SpeedAware() }
