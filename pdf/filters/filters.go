// Package filters decodes and encodes PDF stream filter chains.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/quillsign/quillsign/pdf/object"
)

var (
	// ErrUnsupportedFilter marks a filter name this package cannot decode.
	ErrUnsupportedFilter = errors.New("unsupported stream filter")
	// ErrCorruptData marks undecodable stream contents.
	ErrCorruptData = errors.New("corrupt stream data")
)

// Decode returns the fully decoded contents of a stream, applying the
// Filter chain in order. Streams without a Filter entry are returned
// as-is.
func Decode(s *object.Stream) ([]byte, error) {
	names, parms := filterChain(s.Dict)
	data := s.Raw
	for i, name := range names {
		var p *object.Dict
		if i < len(parms) {
			p = parms[i]
		}
		var err error
		data, err = decodeOne(name, data, p)
		if err != nil {
			return nil, fmt.Errorf("filter /%s: %w", name, err)
		}
	}
	return data, nil
}

// filterChain normalizes the Filter and DecodeParms entries, which may
// each be a single value or an array.
func filterChain(dict *object.Dict) ([]object.Name, []*object.Dict) {
	var names []object.Name
	switch v, _ := dict.Get("Filter"); f := v.(type) {
	case object.Name:
		names = []object.Name{f}
	case object.Array:
		for _, e := range f {
			if n, ok := e.(object.Name); ok {
				names = append(names, n)
			}
		}
	}

	var parms []*object.Dict
	switch v, _ := dict.Get("DecodeParms"); p := v.(type) {
	case *object.Dict:
		parms = []*object.Dict{p}
	case object.Array:
		for _, e := range p {
			d, _ := e.(*object.Dict)
			parms = append(parms, d)
		}
	}
	return names, parms
}

func decodeOne(name object.Name, data []byte, parms *object.Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return flateDecode(data, parms)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
	}
}

func flateDecode(data []byte, parms *object.Dict) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	out := buf.Bytes()

	if parms != nil {
		if pred, ok := parms.GetInt("Predictor"); ok && pred > 1 {
			return undoPredictor(out, parms)
		}
	}
	return out, nil
}

// FlateEncode compresses data at the default zlib level.
func FlateEncode(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var cleaned bytes.Buffer
	for _, b := range data {
		if b == '>' {
			break
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		cleaned.WriteByte(b)
	}
	s := cleaned.String()
	if len(s)%2 != 0 {
		s += "0"
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return out, nil
}

// ASCIIHexEncode encodes data as a hex stream with the EOD marker.
func ASCIIHexEncode(data []byte) []byte {
	return []byte(hex.EncodeToString(data) + ">")
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out.Bytes(), nil
		case n < 128:
			count := n + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w: truncated run", ErrCorruptData)
			}
			out.Write(data[i : i+count])
			i += count
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: truncated run", ErrCorruptData)
			}
			for j := 0; j < 257-n; j++ {
				out.WriteByte(data[i])
			}
			i++
		}
	}
	return out.Bytes(), nil
}

// undoPredictor reverses the PNG row predictors used by xref streams
// and some image producers.
func undoPredictor(data []byte, parms *object.Dict) ([]byte, error) {
	pred, _ := parms.GetInt("Predictor")
	if pred < 10 || pred > 15 {
		// TIFF predictor 2 and the identity predictor pass through.
		return data, nil
	}

	columns := int64(1)
	if c, ok := parms.GetInt("Columns"); ok {
		columns = c
	}
	colors := int64(1)
	if c, ok := parms.GetInt("Colors"); ok {
		colors = c
	}
	bpc := int64(8)
	if b, ok := parms.GetInt("BitsPerComponent"); ok {
		bpc = b
	}

	bytesPerPixel := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc+7)/8) + 1
	if rowLen <= 1 || len(data)%rowLen != 0 {
		return nil, fmt.Errorf("%w: predictor row length %d does not divide %d bytes", ErrCorruptData, rowLen, len(data))
	}

	out := make([]byte, 0, (len(data)/rowLen)*(rowLen-1))
	prev := make([]byte, rowLen-1)
	for i := 0; i < len(data); i += rowLen {
		tag := data[i]
		row := make([]byte, rowLen-1)
		copy(row, data[i+1:i+rowLen])
		switch tag {
		case 0:
		case 1:
			for j := bytesPerPixel; j < len(row); j++ {
				row[j] += row[j-bytesPerPixel]
			}
		case 2:
			for j := range row {
				row[j] += prev[j]
			}
		case 3:
			for j := range row {
				left := byte(0)
				if j >= bytesPerPixel {
					left = row[j-bytesPerPixel]
				}
				row[j] += byte((int(left) + int(prev[j])) / 2)
			}
		case 4:
			for j := range row {
				var left, upLeft byte
				if j >= bytesPerPixel {
					left = row[j-bytesPerPixel]
					upLeft = prev[j-bytesPerPixel]
				}
				row[j] += paeth(left, prev[j], upLeft)
			}
		default:
			return nil, fmt.Errorf("%w: unknown predictor tag %d", ErrCorruptData, tag)
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
