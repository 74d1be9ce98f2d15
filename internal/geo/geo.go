package geo

import "math"

// EarthRadiusM is Earth's mean radius in meters.
const EarthRadiusM = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Project maps a coordinate onto an integer planar grid in meters, using an
// equirectangular approximation anchored at refLat. The projection is only
// locally accurate; error grows with distance from the reference latitude,
// which is fine for same-metro routing.
func Project(p Point, refLat float64) (x, y int) {
	fx := EarthRadiusM * p.Lng * math.Pi / 180 * math.Cos(refLat*math.Pi/180)
	fy := EarthRadiusM * p.Lat * math.Pi / 180
	return int(math.Round(fx)), int(math.Round(fy))
}

// Key rounds a coordinate to 6 decimal places (~0.1 m), the resolution used
// to deduplicate depot locations.
func Key(p Point) [2]float64 {
	return [2]float64{round6(p.Lat), round6(p.Lng)}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
