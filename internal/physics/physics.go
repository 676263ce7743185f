package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	KnotsToFPS  = 1.68781          // Conversion factor from knots to feet/second
	FPSToKnots  = 1.0 / KnotsToFPS // Conversion factor from feet/second to knots
	FPMToFPS    = 1.0 / 60.0       // Conversion factor from feet/minute to feet/second
	DegToRad    = math.Pi / 180.0  // Conversion factor from degrees to radians
	RadToDeg    = 180.0 / math.Pi  // Conversion factor from radians to degrees
	FeetPerNM   = 6076.1155        // Feet per nautical mile
	FeetPerMile = 5280.0           // Feet per statute mile
	MetersToFt  = 3.28084          // Conversion factor from meters to feet
	G           = 32.17405         // Gravity (ft/s^2)

	// Quantization used for level cruise altitudes
	AltitudeQuantumFt = 500.0
)

// Round500 rounds an altitude to the nearest 500 ft increment. Remainders of
// exactly 250 ft round up, matching round-half-away-from-zero for positive
// altitudes: Round500(749) == 500, Round500(750) == 1000, Round500(751) == 1000.
func Round500(altFt float64) float64 {
	q := math.Floor(altFt / AltitudeQuantumFt)
	if math.Mod(altFt, AltitudeQuantumFt) >= AltitudeQuantumFt/2 {
		q++
	}
	return AltitudeQuantumFt * q
}

// ------------------------------------------------------------------------------------------------
// NAVIGATION GEOMETRY
// ------------------------------------------------------------------------------------------------

// Vector2D represents a 2D vector in the encounter frame
type Vector2D struct {
	East  float64
	North float64
}

// HeadingToVector converts a heading (radians, 0 = north, clockwise) and
// magnitude to east/north components.
func HeadingToVector(headingRad float64, magnitude float64) Vector2D {
	return Vector2D{
		East:  magnitude * math.Sin(headingRad),
		North: magnitude * math.Cos(headingRad),
	}
}

// VectorToHeading converts east/north components to a compass heading in
// radians, normalized to [0, 2π).
func VectorToHeading(east, north float64) float64 {
	h := math.Atan2(east, north)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// WrapHeading normalizes a heading in radians to [0, 2π).
func WrapHeading(h float64) float64 {
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// OffsetLatLon converts an east/north offset in feet from an origin to
// latitude/longitude using a local flat-earth approximation. Good to well
// under a tenth of a degree over encounter-scale distances.
func OffsetLatLon(originLat, originLon, eastFt, northFt float64) (lat, lon float64) {
	lat = originLat + northFt/FeetPerNM/60.0
	lon = originLon + eastFt/FeetPerNM/(60.0*math.Cos(originLat*DegToRad))
	return lat, lon
}

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	// Convert altitude to meters for WMM
	altM := altFt / MetersToFt

	// Create location from Geodetic coordinates
	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	// Calculate magnetic field
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D() // Declination
}

// TrueToMagnetic converts a true heading (degrees) to magnetic given the
// declination (degrees, +East), normalized to [0, 360).
func TrueToMagnetic(trueHeadingDeg, declinationDeg float64) float64 {
	m := math.Mod(trueHeadingDeg-declinationDeg, 360)
	if m < 0 {
		m += 360
	}
	return m
}
