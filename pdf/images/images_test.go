package images

import (
	"bytes"
	"compress/zlib"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
)

// encodePNG renders a small test image to PNG bytes.
func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func grayImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}
	return img
}

func transparentImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 10, B: 120, A: uint8(x % 256)})
		}
	}
	return img
}

func TestValidateBitmap(t *testing.T) {
	valid := encodePNG(t, grayImage(8, 8))

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid png", valid, nil},
		{"empty", nil, ErrEmptyBitmap},
		{"garbage", []byte("not an image at all"), ErrInvalidBitmap},
		{"truncated", valid[:10], ErrInvalidBitmap},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBitmap(tc.data)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateBitmap() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateBitmap() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestDecode_Gray(t *testing.T) {
	img, err := Decode(encodePNG(t, grayImage(16, 9)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Width != 16 || img.Height != 9 {
		t.Errorf("dimensions = %dx%d, want 16x9", img.Width, img.Height)
	}
	if img.ColorSpace != ColorSpaceGray {
		t.Errorf("ColorSpace = %s, want DeviceGray", img.ColorSpace)
	}
	if img.HasAlpha() {
		t.Error("gray image unexpectedly has soft mask")
	}

	samples := inflate(t, img.Data)
	if len(samples) != 16*9 {
		t.Errorf("decoded samples = %d bytes, want %d", len(samples), 16*9)
	}
}

func TestDecode_AlphaProducesSoftMask(t *testing.T) {
	img, err := Decode(encodePNG(t, transparentImage(12, 5)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.ColorSpace != ColorSpaceRGB {
		t.Errorf("ColorSpace = %s, want DeviceRGB", img.ColorSpace)
	}
	if !img.HasAlpha() {
		t.Fatal("expected soft mask for transparent image")
	}
	if len(inflate(t, img.Data)) != 12*5*3 {
		t.Error("unexpected RGB sample count")
	}
	if len(inflate(t, img.SoftMask)) != 12*5 {
		t.Error("unexpected soft mask sample count")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x01}); !errors.Is(err, ErrInvalidBitmap) {
		t.Errorf("Decode() error = %v, want ErrInvalidBitmap", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyBitmap) {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyBitmap", err)
	}
}

func inflate(t *testing.T, data []byte) []byte {
	t.Helper()
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	return out
}
