// Package geom converts between screen coordinates and normalized
// page-percentage coordinates for signature zone placement.
package geom

import "errors"

// ErrDegenerateContainer is returned when a container rect has zero width
// or height, which would make the percentage mapping undefined.
var ErrDegenerateContainer = errors.New("degenerate container rect")

// Point is a position in container pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is the on-screen bounding box of the rendered page, in pixels.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Valid reports whether the rect can serve as a mapping container.
func (r Rect) Valid() bool {
	return r.Width != 0 && r.Height != 0
}

// PointToPercent maps a pointer position inside the container to
// page-percentage coordinates. The result is not clamped; callers clamp
// when committing the value to a zone.
func PointToPercent(p Point, container Rect) (x, y float64, err error) {
	if !container.Valid() {
		return 0, 0, ErrDegenerateContainer
	}
	x = 100 * (p.X - container.Left) / container.Width
	y = 100 * (p.Y - container.Top) / container.Height
	return x, y, nil
}

// DeltaToPercent converts a pixel drag delta to a percentage delta using
// the same container the zone is rendered in.
func DeltaToPercent(delta Point, container Rect) (dx, dy float64, err error) {
	if !container.Valid() {
		return 0, 0, ErrDegenerateContainer
	}
	dx = 100 * delta.X / container.Width
	dy = 100 * delta.Y / container.Height
	return dx, dy, nil
}

// ClampPosition clamps a zone position so the zone stays fully on the
// page: each axis is limited to [0, 100-size].
func ClampPosition(x, y, width, height float64) (cx, cy float64) {
	cx = clampAxis(x, width)
	cy = clampAxis(y, height)
	return cx, cy
}

func clampAxis(pos, size float64) float64 {
	max := 100 - size
	if max < 0 {
		max = 0
	}
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}
