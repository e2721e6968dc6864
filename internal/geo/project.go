package geo

import "math"

// Projection is a local equirectangular projection centered on a reference
// point. Forward maps (lat, lon) to metric (east, north) offsets from the
// center; Inverse maps back. Buffer radii and alignment offsets are metric,
// so all scaling and buffering happens in this projected space rather than in
// latitude-dependent degrees.
type Projection struct {
	lat0   float64
	lon0   float64
	cosLat float64
}

// NewProjection creates a local metric projection around the given center.
func NewProjection(lat, lon float64) Projection {
	return Projection{
		lat0:   lat,
		lon0:   lon,
		cosLat: math.Cos(lat * math.Pi / 180),
	}
}

// Forward converts geographic coordinates to metric east/north offsets.
func (p Projection) Forward(lat, lon float64) (east, north float64) {
	north = (lat - p.lat0) * MetersPerDegreeLat
	east = (lon - p.lon0) * MetersPerDegreeLat * p.cosLat
	return east, north
}

// Inverse converts metric east/north offsets back to geographic coordinates.
func (p Projection) Inverse(east, north float64) (lat, lon float64) {
	lat = p.lat0 + north/MetersPerDegreeLat
	lon = p.lon0 + east/(MetersPerDegreeLat*p.cosLat)
	return lat, lon
}
