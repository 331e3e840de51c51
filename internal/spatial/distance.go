package spatial

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gonum.org/v1/gonum/floats"
)

// EarthRadiusKm is the mean earth radius used for every great-circle length.
const EarthRadiusKm = 6371.0088

func latLng(p orb.Point) s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat(), p.Lon())
}

func fromLatLng(ll s2.LatLng) orb.Point {
	return orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()}
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b orb.Point) float64 {
	return latLng(a).Distance(latLng(b)).Radians() * EarthRadiusKm
}

// Bearing returns the initial bearing from a to b in degrees, in (-180,180].
func Bearing(a, b orb.Point) float64 {
	return geo.Bearing(a, b)
}

// Along returns the point km kilometers along the geodesic from a toward b.
// Distances outside [0, Distance(a,b)] are clamped to the endpoints.
func Along(a, b orb.Point, km float64) orb.Point {
	if km <= 0 {
		return a
	}
	total := Distance(a, b)
	if km >= total {
		return b
	}
	p := s2.Interpolate(km/total, s2.PointFromLatLng(latLng(a)), s2.PointFromLatLng(latLng(b)))
	return fromLatLng(s2.LatLngFromPoint(p))
}

// AlongLine returns the point km kilometers along the polyline ls. Past the
// end it returns the final vertex.
func AlongLine(ls orb.LineString, km float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if km <= 0 {
		return ls[0]
	}
	travelled := 0.0
	for i := 1; i < len(ls); i++ {
		d := Distance(ls[i-1], ls[i])
		if travelled+d >= km {
			return Along(ls[i-1], ls[i], km-travelled)
		}
		travelled += d
	}
	return ls[len(ls)-1]
}

// LineDistance returns the length of ls in kilometers.
func LineDistance(ls orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(ls); i++ {
		total += Distance(ls[i-1], ls[i])
	}
	return total
}

// CumulativeDistances returns, for every vertex of ls, the distance in meters
// travelled from the first vertex.
func CumulativeDistances(ls orb.LineString) []float64 {
	if len(ls) == 0 {
		return nil
	}
	legs := make([]float64, len(ls))
	for i := 1; i < len(ls); i++ {
		legs[i] = Distance(ls[i-1], ls[i]) * 1000
	}
	return floats.CumSum(make([]float64, len(ls)), legs)
}
