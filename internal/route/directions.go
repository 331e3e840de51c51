package route

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Variant tags which of the two directions response layouts was decoded.
type Variant int

const (
	// VariantManeuvers carries one flat route geometry plus a list of steps
	// whose maneuver locations mark the boundaries in that geometry.
	VariantManeuvers Variant = iota
	// VariantLegs carries legs of steps, each step with its own geometry.
	VariantLegs
)

func (v Variant) String() string {
	switch v {
	case VariantManeuvers:
		return "maneuvers"
	case VariantLegs:
		return "legs"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Directions is a directions service response. Only the first route is used.
type Directions struct {
	Code   string  `json:"code,omitempty"`
	Routes []Route `json:"routes"`
}

type Route struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Steps    []Step            `json:"steps,omitempty"`
	Legs     []Leg             `json:"legs,omitempty"`
}

type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
}

// Step is one maneuver: distance in meters, duration in seconds.
type Step struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Name     string            `json:"name,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Maneuver Maneuver          `json:"maneuver"`
}

type Maneuver struct {
	Type        string   `json:"type,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	Location    Location `json:"location"`
}

// Location is a maneuver position. It decodes both a bare [lon,lat] pair and
// a GeoJSON Point object.
type Location orb.Point

func (l Location) Point() orb.Point { return orb.Point(l) }

func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var p orb.Point
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("maneuver location: %w", err)
		}
		*l = Location(p)
		return nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("maneuver location: %w", err)
	}
	p, ok := g.Geometry().(orb.Point)
	if !ok {
		return fmt.Errorf("maneuver location: expected Point, got %s", g.Type)
	}
	*l = Location(p)
	return nil
}

// Variant reports the layout; a status code is only present in the legs layout.
func (d *Directions) Variant() Variant {
	if d.Code != "" {
		return VariantLegs
	}
	return VariantManeuvers
}

// Steps returns every step of the first route in order, across legs.
func (d *Directions) Steps() []Step {
	if len(d.Routes) == 0 {
		return nil
	}
	r := d.Routes[0]
	if d.Variant() == VariantManeuvers {
		return r.Steps
	}
	var steps []Step
	for _, leg := range r.Legs {
		steps = append(steps, leg.Steps...)
	}
	return steps
}

// Parse decodes a directions response.
func Parse(data []byte) (*Directions, error) {
	var d Directions
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode directions: %w", err)
	}
	if len(d.Routes) == 0 {
		return nil, ErrNoRoute
	}
	return &d, nil
}

// Decode reads and decodes a directions response.
func Decode(r io.Reader) (*Directions, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read directions: %w", err)
	}
	return Parse(data)
}

func lineOf(g *geojson.Geometry) orb.LineString {
	if g == nil {
		return nil
	}
	ls, _ := g.Geometry().(orb.LineString)
	return ls
}
