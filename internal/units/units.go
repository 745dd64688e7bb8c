// Package units provides shared constants and conversions for speed units.
//
// The pipeline measures speed in pixels per frame. Converting to real-world
// units requires the frame rate and a linear pixels-per-meter calibration
// factor; there is no perspective correction, so converted speeds are
// approximate by design.
package units

// Unit constants
const (
	PxPerFrame = "pxf"
	MPS        = "mps"
	MPH        = "mph"
	KMPH       = "kmph"
	KPH        = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{PxPerFrame, MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "pxf, mps, mph, kmph, kph"
}

// PixelSpeedToMPS converts a pixels-per-frame speed to meters per second
// using the frame rate and the linear pixels-per-meter calibration factor.
func PixelSpeedToMPS(speedPxPerFrame, fps, pixelsPerMeter float64) float64 {
	if fps <= 0 || pixelsPerMeter <= 0 {
		return 0
	}
	return speedPxPerFrame * fps / pixelsPerMeter
}

// PixelSpeedToKMH converts a pixels-per-frame speed to km/h.
func PixelSpeedToKMH(speedPxPerFrame, fps, pixelsPerMeter float64) float64 {
	return PixelSpeedToMPS(speedPxPerFrame, fps, pixelsPerMeter) * 3.6
}

// ConvertSpeed converts a pixels-per-frame speed to the target units.
func ConvertSpeed(speedPxPerFrame, fps, pixelsPerMeter float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return PixelSpeedToMPS(speedPxPerFrame, fps, pixelsPerMeter)
	case MPH:
		return PixelSpeedToMPS(speedPxPerFrame, fps, pixelsPerMeter) * 2.23694
	case KMPH, KPH:
		return PixelSpeedToKMH(speedPxPerFrame, fps, pixelsPerMeter)
	case PxPerFrame:
		return speedPxPerFrame
	default:
		return speedPxPerFrame
	}
}
