package mapdata

import "math"

// PhysPoint is a point in the robot's physical coordinate space, in
// millimeters.
type PhysPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform maps between map pixel space and the robot's physical
// millimeter space. The zero Origin means pixel (0,0) coincides with
// physical (0,0).
type Transform struct {
	PixelSizeMm float64
	Origin      Point
}

// NewTransform builds a transform from a document's declared pixel size,
// substituting fallbackMm when the document declared none. The fallback is
// deliberately explicit: a silent zero scale would collapse every outgoing
// command onto the origin.
func NewTransform(pixelSizeMm, fallbackMm float64, origin Point) Transform {
	if pixelSizeMm <= 0 {
		pixelSizeMm = fallbackMm
	}
	return Transform{PixelSizeMm: pixelSizeMm, Origin: origin}
}

// Transform returns the document's transform with the default origin, using
// fallbackMm when the document declared no pixel size.
func (m *Map) Transform(fallbackMm float64) Transform {
	return NewTransform(m.PixelSizeMm, fallbackMm, Point{})
}

// ToPhysical converts a pixel coordinate to physical millimeters.
func (t Transform) ToPhysical(p Point) PhysPoint {
	return PhysPoint{
		X: float64(p.X-t.Origin.X) * t.PixelSizeMm,
		Y: float64(p.Y-t.Origin.Y) * t.PixelSizeMm,
	}
}

// ToPixel converts physical millimeters back to the nearest pixel, rounding
// ties away from zero so that integral command coordinates survive a round
// trip. Fractional pixel sizes work too, with ordinary rounding error.
func (t Transform) ToPixel(p PhysPoint) Point {
	return Point{
		X: t.Origin.X + roundAway(p.X/t.PixelSizeMm),
		Y: t.Origin.Y + roundAway(p.Y/t.PixelSizeMm),
	}
}

// roundAway rounds to the nearest integer, ties away from zero.
func roundAway(v float64) int {
	return int(math.Round(v))
}
