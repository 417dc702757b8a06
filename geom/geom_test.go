package geom

import (
	"errors"
	"testing"
)

func TestPointToPercent(t *testing.T) {
	container := Rect{Left: 100, Top: 50, Width: 800, Height: 1000}

	tests := []struct {
		name  string
		point Point
		wantX float64
		wantY float64
	}{
		{"top-left corner", Point{X: 100, Y: 50}, 0, 0},
		{"bottom-right corner", Point{X: 900, Y: 1050}, 100, 100},
		{"center", Point{X: 500, Y: 550}, 50, 50},
		{"quarter", Point{X: 300, Y: 300}, 25, 25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y, err := PointToPercent(tc.point, container)
			if err != nil {
				t.Fatalf("PointToPercent() error = %v", err)
			}
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("PointToPercent() = (%v, %v), want (%v, %v)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestPointToPercent_InsideContainerStaysInRange(t *testing.T) {
	container := Rect{Left: 10, Top: 20, Width: 640, Height: 480}

	for px := 0.0; px <= 1.0; px += 0.125 {
		for py := 0.0; py <= 1.0; py += 0.125 {
			p := Point{
				X: container.Left + px*container.Width,
				Y: container.Top + py*container.Height,
			}
			x, y, err := PointToPercent(p, container)
			if err != nil {
				t.Fatalf("PointToPercent() error = %v", err)
			}
			if x < 0 || x > 100 || y < 0 || y > 100 {
				t.Errorf("PointToPercent(%v) = (%v, %v), out of [0,100]", p, x, y)
			}
		}
	}
}

func TestPointToPercent_DegenerateContainer(t *testing.T) {
	tests := []struct {
		name string
		rect Rect
	}{
		{"zero width", Rect{Width: 0, Height: 100}},
		{"zero height", Rect{Width: 100, Height: 0}},
		{"zero both", Rect{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := PointToPercent(Point{X: 1, Y: 1}, tc.rect); !errors.Is(err, ErrDegenerateContainer) {
				t.Errorf("PointToPercent() error = %v, want ErrDegenerateContainer", err)
			}
			if _, _, err := DeltaToPercent(Point{X: 1, Y: 1}, tc.rect); !errors.Is(err, ErrDegenerateContainer) {
				t.Errorf("DeltaToPercent() error = %v, want ErrDegenerateContainer", err)
			}
		})
	}
}

func TestDeltaToPercent(t *testing.T) {
	container := Rect{Width: 500, Height: 200}

	dx, dy, err := DeltaToPercent(Point{X: 50, Y: -20}, container)
	if err != nil {
		t.Fatalf("DeltaToPercent() error = %v", err)
	}
	if dx != 10 || dy != -10 {
		t.Errorf("DeltaToPercent() = (%v, %v), want (10, -10)", dx, dy)
	}
}

func TestClampPosition(t *testing.T) {
	tests := []struct {
		name          string
		x, y, w, h    float64
		wantX, wantY  float64
	}{
		{"inside", 40, 40, 20, 8, 40, 40},
		{"negative", -5, -3, 20, 8, 0, 0},
		{"past right edge", 95, 50, 20, 8, 80, 50},
		{"past bottom edge", 50, 99, 20, 8, 50, 92},
		{"both past", 200, 200, 20, 8, 80, 92},
		{"oversized zone pins to origin", 10, 10, 120, 120, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := ClampPosition(tc.x, tc.y, tc.w, tc.h)
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("ClampPosition() = (%v, %v), want (%v, %v)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestClampPosition_NeverOverflows(t *testing.T) {
	for pos := -150.0; pos <= 250; pos += 12.5 {
		x, y := ClampPosition(pos, pos, 20, 8)
		if x < 0 || x+20 > 100 {
			t.Errorf("ClampPosition x = %v with width 20 overflows", x)
		}
		if y < 0 || y+8 > 100 {
			t.Errorf("ClampPosition y = %v with height 8 overflows", y)
		}
	}
}
