package sim

import (
	"github.com/paulmach/orb"

	"guidance-replay/internal/spatial"
)

// LocationEvent is one simulated location fix. Speed and SpeedChange are nil
// when unknown and are then left out of the JSON form.
type LocationEvent struct {
	Coords      orb.Point `json:"coords"`
	Bearing     float64   `json:"bearing"`
	Speed       *float64  `json:"speed,omitempty"`
	SpeedChange *float64  `json:"speedchange,omitempty"`
	Time        float64   `json:"time"`
}

// NewEvent builds the event at next following last. Bearing is 0 without a
// previous event; SpeedChange is set only when both speeds are known.
func NewEvent(next orb.Point, last *LocationEvent, speed *float64) *LocationEvent {
	ev := &LocationEvent{Coords: next}
	if last != nil {
		ev.Bearing = spatial.Bearing(last.Coords, next)
	}
	if speed != nil {
		v := *speed
		ev.Speed = &v
		if last != nil && last.Speed != nil {
			d := v - *last.Speed
			ev.SpeedChange = &d
		}
	}
	return ev
}
