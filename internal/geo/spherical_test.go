package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// degrees of latitude (or longitude at the equator) spanning 100 meters
const hundredMetersDeg = 100.0 / (EarthRadiusMeters * math.Pi / 180)

func referenceHectareSquare() []LatLng {
	d := hundredMetersDeg
	return []LatLng{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: d},
		{Lat: d, Lng: d},
		{Lat: d, Lng: 0},
	}
}

func TestAreaOfReferenceHectare(t *testing.T) {
	square := referenceHectareSquare()

	ha := AreaHectares(square)
	assert.InDelta(t, 1.0, ha, 0.01, "100m x 100m square should enclose ~1 hectare")
}

func TestAreaIgnoresOrientation(t *testing.T) {
	square := referenceHectareSquare()
	reversed := make([]LatLng, len(square))
	for i, p := range square {
		reversed[len(square)-1-i] = p
	}

	assert.InEpsilon(t, Area(square), Area(reversed), 1e-12)
	assert.InEpsilon(t, SignedArea(square), -SignedArea(reversed), 1e-12)
}

func TestAreaDegeneratePaths(t *testing.T) {
	assert.Zero(t, Area(nil))
	assert.Zero(t, Area([]LatLng{{Lat: 1, Lng: 1}}))
	assert.Zero(t, Area([]LatLng{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}))
}

func TestAreaIdempotent(t *testing.T) {
	square := referenceHectareSquare()
	first := Area(square)
	second := Area(square)
	assert.Equal(t, first, second)
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	require.False(t, ok)

	path := []LatLng{
		{Lat: 27.34, Lng: 75.79},
		{Lat: 27.36, Lng: 75.77},
		{Lat: 27.35, Lng: 75.81},
	}
	b, ok := BoundsOf(path)
	require.True(t, ok)
	assert.Equal(t, LatLng{Lat: 27.34, Lng: 75.77}, b.SouthWest)
	assert.Equal(t, LatLng{Lat: 27.36, Lng: 75.81}, b.NorthEast)

	center := b.Center()
	assert.InDelta(t, 27.35, center.Lat, 1e-9)
	assert.InDelta(t, 75.79, center.Lng, 1e-9)
}
