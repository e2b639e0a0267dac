package geo

const (
	altitudeScale   = 1000.0  // altitude divisor giving the ground scale factor
	degreesPerPixel = 0.00001 // degrees per pixel at scale 1
	accuracyPerUnit = 10.0    // meters of accuracy per unit of scale
)

// Location is the real world location of a pixel in a captured frame
type Location struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Altitude       float64 `json:"altitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

// Coordinates drops the altitude and accuracy
func (l Location) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// CalculateRealCoordinates maps a pixel location in a frame captured at the
// given pose onto geographic coordinates.
//
// The mapping is linear and uncalibrated: there is no camera intrinsics or
// field of view model, the ground footprint of a pixel simply grows with the
// altitude. Results are coarse geolocation hints and not survey grade.
func CalculateRealCoordinates(x, y float64, pose DronePose) Location {
	scale := pose.Altitude / altitudeScale

	rx, ry := Rotate(x, y, pose.Yaw)

	latOffset := ry * scale * degreesPerPixel
	lonOffset := rx * scale * degreesPerPixel

	return Location{
		Latitude:       pose.Latitude - latOffset,
		Longitude:      pose.Longitude + lonOffset,
		Altitude:       pose.Altitude,
		AccuracyMeters: scale * accuracyPerUnit,
	}
}
