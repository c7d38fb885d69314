package geo

import "math"

// EarthRadiusMeters is the mean earth radius used for all spherical math,
// matching the value the browser mapping library uses for computeArea.
const EarthRadiusMeters = 6371009.0

// SquareMetersPerHectare converts spherical areas to hectares.
const SquareMetersPerHectare = 10000.0

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a lat/lng aligned bounding box used for viewport framing.
type Bounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p LatLng) {
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// BoundsOf computes the bounding box of a vertex path. The second return is
// false when the path is empty.
func BoundsOf(path []LatLng) (Bounds, bool) {
	if len(path) == 0 {
		return Bounds{}, false
	}
	b := Bounds{SouthWest: path[0], NorthEast: path[0]}
	for _, p := range path[1:] {
		b.Extend(p)
	}
	return b, true
}

// Area returns the geodesic area of the closed polygon described by path, in
// square meters. The path is closed implicitly; orientation does not affect
// the magnitude.
func Area(path []LatLng) float64 {
	return math.Abs(SignedArea(path))
}

// AreaHectares returns the geodesic area of the polygon in hectares.
func AreaHectares(path []LatLng) float64 {
	return Area(path) / SquareMetersPerHectare
}

// SignedArea computes the spherical excess area of the polygon on a sphere of
// EarthRadiusMeters. Counter-clockwise paths yield positive areas. Fewer than
// three vertices enclose nothing.
func SignedArea(path []LatLng) float64 {
	if len(path) < 3 {
		return 0
	}
	total := 0.0
	prev := path[len(path)-1]
	prevTanLat := math.Tan((math.Pi/2 - radians(prev.Lat)) / 2)
	prevLng := radians(prev.Lng)
	for _, point := range path {
		tanLat := math.Tan((math.Pi/2 - radians(point.Lat)) / 2)
		lng := radians(point.Lng)
		total += polarTriangleArea(tanLat, lng, prevTanLat, prevLng)
		prevTanLat = tanLat
		prevLng = lng
	}
	return total * EarthRadiusMeters * EarthRadiusMeters
}

// polarTriangleArea returns the signed area of the spherical triangle formed
// by two vertices and the north pole, on the unit sphere. tan1 and tan2 are
// tan((pi/2 - latitude)/2) of the vertices.
func polarTriangleArea(tan1, lng1, tan2, lng2 float64) float64 {
	deltaLng := lng1 - lng2
	t := tan1 * tan2
	return 2 * math.Atan2(t*math.Sin(deltaLng), 1+t*math.Cos(deltaLng))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
