package physics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRound500(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{249, 0},
		{250, 500}, // exact half rounds up
		{251, 500},
		{500, 500},
		{749, 500},
		{750, 1000},
		{751, 1000},
		{1250, 1500},
		{4999, 5000},
	}
	for _, tt := range tests {
		got := Round500(tt.in)
		assert.Equal(t, tt.want, got, "Round500(%v)", tt.in)
		assert.Zero(t, math.Mod(got, 500), "result must sit on the 500 ft grid")
	}
}

func TestWrapHeading(t *testing.T) {
	assert.InDelta(t, 0, WrapHeading(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, WrapHeading(3*math.Pi), 1e-12)
	assert.InDelta(t, 3*math.Pi/2, WrapHeading(-math.Pi/2), 1e-12)
}

func TestHeadingVectorRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		headingRad float64
	}{
		{"north", 0},
		{"east", math.Pi / 2},
		{"south", math.Pi},
		{"west", 3 * math.Pi / 2},
		{"northeast", math.Pi / 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := HeadingToVector(tt.headingRad, 100)
			assert.InDelta(t, 100, math.Hypot(v.East, v.North), 1e-9)
			assert.InDelta(t, tt.headingRad, VectorToHeading(v.East, v.North), 1e-9)
		})
	}
}

func TestOffsetLatLon(t *testing.T) {
	// One nautical mile due north is one arc-minute of latitude.
	lat, lon := OffsetLatLon(43.0, -79.0, 0, FeetPerNM)
	assert.InDelta(t, 43.0+1.0/60.0, lat, 1e-9)
	assert.InDelta(t, -79.0, lon, 1e-9)

	// Eastward offsets shrink with latitude.
	_, lonEq := OffsetLatLon(0, 0, FeetPerNM, 0)
	_, lon60 := OffsetLatLon(60, 0, FeetPerNM, 0)
	assert.Greater(t, lon60, lonEq)
}

func TestTrueToMagnetic(t *testing.T) {
	assert.InDelta(t, 355, TrueToMagnetic(5, 10), 1e-9)
	assert.InDelta(t, 15, TrueToMagnetic(5, -10), 1e-9)
	assert.InDelta(t, 0, TrueToMagnetic(360, 0), 1e-9)
}

func TestCalculateMagneticVariation(t *testing.T) {
	// Declination is a physically bounded quantity; the exact value depends
	// on the model epoch, so only sanity-check the range.
	d := CalculateMagneticVariation(43.6777, -79.6248, 500, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, math.IsNaN(d))
	assert.GreaterOrEqual(t, d, -90.0)
	assert.LessOrEqual(t, d, 90.0)
}
