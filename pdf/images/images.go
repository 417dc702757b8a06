// Package images converts captured signature bitmaps into data ready for
// embedding as PDF image XObjects.
package images

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF format
	_ "image/jpeg" // register JPEG format
	_ "image/png"  // register PNG format

	_ "golang.org/x/image/bmp" // register BMP format
)

// Common errors
var (
	ErrInvalidBitmap     = errors.New("invalid bitmap data")
	ErrEmptyBitmap       = errors.New("empty bitmap data")
	ErrInvalidDimensions = errors.New("invalid bitmap dimensions")
)

// ColorSpace is the PDF color space an image is expressed in.
type ColorSpace string

const (
	ColorSpaceGray ColorSpace = "DeviceGray"
	ColorSpaceRGB  ColorSpace = "DeviceRGB"
)

// Image holds decoded bitmap samples ready for a PDF image XObject.
// Data is always FlateDecode-compressed, 8 bits per component.
type Image struct {
	Width      int
	Height     int
	ColorSpace ColorSpace
	Data       []byte

	// SoftMask holds FlateDecode-compressed 8-bit alpha samples when the
	// source bitmap carries transparency, nil otherwise. Signature
	// captures from a drawing surface usually have a transparent
	// background, so this is the common case.
	SoftMask []byte
}

// HasAlpha reports whether the image carries a soft mask.
func (m *Image) HasAlpha() bool {
	return m.SoftMask != nil
}

// ValidateBitmap checks that the data decodes as a supported bitmap
// without extracting samples. Used to reject bad captures at signing
// time, before compositing ever runs.
func ValidateBitmap(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyBitmap
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBitmap, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrInvalidDimensions
	}
	return nil
}

// Decode decodes a captured bitmap into PDF-ready sample data.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBitmap
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBitmap, err)
	}
	return FromImage(src)
}

// FromImage converts a decoded Go image into PDF-ready sample data.
// Single-channel sources stay DeviceGray; everything else becomes
// DeviceRGB. An alpha channel, when present and non-trivial, is split
// into a separate soft mask.
func FromImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	gray := isGrayModel(src.ColorModel())

	components := 3
	if gray {
		components = 1
	}
	samples := make([]byte, 0, width*height*components)
	alpha := make([]byte, 0, width*height)
	opaque := true

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			if gray {
				samples = append(samples, byte(r>>8))
			} else {
				samples = append(samples, byte(r>>8), byte(g>>8), byte(b>>8))
			}
			alpha = append(alpha, byte(a>>8))
			if a>>8 != 0xFF {
				opaque = false
			}
		}
	}

	compressed, err := compress(samples)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Width:  width,
		Height: height,
		Data:   compressed,
	}
	if gray {
		img.ColorSpace = ColorSpaceGray
	} else {
		img.ColorSpace = ColorSpaceRGB
	}

	if !opaque {
		mask, err := compress(alpha)
		if err != nil {
			return nil, err
		}
		img.SoftMask = mask
	}

	return img, nil
}

func isGrayModel(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
