// Package object implements the PDF object model: the eight basic
// object types, indirect objects and references, and their COS
// serialization.
package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Object is any value that can appear in a PDF file body.
type Object interface {
	writeTo(b *bytes.Buffer)
}

// Encode serializes an object to its COS byte form.
func Encode(o Object) []byte {
	var b bytes.Buffer
	o.writeTo(&b)
	return b.Bytes()
}

// Name is a PDF name object, stored without the leading slash.
type Name string

func (n Name) writeTo(b *bytes.Buffer) {
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= ' ' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
}

// Integer is a PDF integer.
type Integer int64

func (i Integer) writeTo(b *bytes.Buffer) {
	b.WriteString(strconv.FormatInt(int64(i), 10))
}

// Real is a PDF real number.
type Real float64

func (r Real) writeTo(b *bytes.Buffer) {
	s := strconv.FormatFloat(float64(r), 'f', 6, 64)
	// Trim trailing zeros, keep at least one digit after the point.
	s = trimReal(s)
	b.WriteString(s)
}

func trimReal(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

// Bool is a PDF boolean.
type Bool bool

func (v Bool) writeTo(b *bytes.Buffer) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

// Null is the PDF null object.
type Null struct{}

func (Null) writeTo(b *bytes.Buffer) {
	b.WriteString("null")
}

// String is a PDF string. Hex selects the hexadecimal form on output.
type String struct {
	Data []byte
	Hex  bool
}

// NewString returns a literal string object.
func NewString(s string) String {
	return String{Data: []byte(s)}
}

func (s String) writeTo(b *bytes.Buffer) {
	if s.Hex {
		b.WriteByte('<')
		b.WriteString(hex.EncodeToString(s.Data))
		b.WriteByte('>')
		return
	}
	b.WriteByte('(')
	for _, c := range s.Data {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

// Array is a PDF array.
type Array []Object

func (a Array) writeTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, o := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		o.writeTo(b)
	}
	b.WriteByte(']')
}

// Ref is an indirect reference to a numbered object.
type Ref struct {
	Num int
	Gen int
}

func (r Ref) writeTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "%d %d R", r.Num, r.Gen)
}

// Dict is a PDF dictionary. Keys are written in sorted order so that
// serialization is deterministic.
type Dict struct {
	m map[Name]Object
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{m: make(map[Name]Object)}
}

// Set stores a value under the key, replacing any previous value.
func (d *Dict) Set(key Name, value Object) {
	if d.m == nil {
		d.m = make(map[Name]Object)
	}
	d.m[key] = value
}

// Get returns the value for the key.
func (d *Dict) Get(key Name) (Object, bool) {
	o, ok := d.m[key]
	return o, ok
}

// Delete removes the key.
func (d *Dict) Delete(key Name) {
	delete(d.m, key)
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return len(d.m)
}

// Keys returns the keys in sorted order.
func (d *Dict) Keys() []Name {
	keys := make([]Name, 0, len(d.m))
	for k := range d.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GetName returns the value for the key if it is a Name.
func (d *Dict) GetName(key Name) (Name, bool) {
	n, ok := d.m[key].(Name)
	return n, ok
}

// GetInt returns the value for the key if it is an Integer.
func (d *Dict) GetInt(key Name) (int64, bool) {
	i, ok := d.m[key].(Integer)
	return int64(i), ok
}

// GetNumber returns the value for the key as a float64 if it is an
// Integer or a Real.
func (d *Dict) GetNumber(key Name) (float64, bool) {
	switch v := d.m[key].(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// GetDict returns the value for the key if it is a Dict.
func (d *Dict) GetDict(key Name) (*Dict, bool) {
	v, ok := d.m[key].(*Dict)
	return v, ok
}

// GetArray returns the value for the key if it is an Array.
func (d *Dict) GetArray(key Name) (Array, bool) {
	v, ok := d.m[key].(Array)
	return v, ok
}

// GetRef returns the value for the key if it is a Ref.
func (d *Dict) GetRef(key Name) (Ref, bool) {
	v, ok := d.m[key].(Ref)
	return v, ok
}

// Clone returns a shallow copy of the dictionary. Values are shared.
func (d *Dict) Clone() *Dict {
	c := NewDict()
	for k, v := range d.m {
		c.m[k] = v
	}
	return c
}

func (d *Dict) writeTo(b *bytes.Buffer) {
	b.WriteString("<<")
	for i, k := range d.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		k.writeTo(b)
		b.WriteByte(' ')
		d.m[k].writeTo(b)
	}
	b.WriteString(">>")
}

// Stream is a PDF stream: a dictionary followed by raw (possibly
// encoded) data. The Length entry is maintained on serialization.
type Stream struct {
	Dict *Dict
	Raw  []byte
}

// NewStream returns a stream over the given dictionary and raw data.
func NewStream(dict *Dict, raw []byte) *Stream {
	if dict == nil {
		dict = NewDict()
	}
	return &Stream{Dict: dict, Raw: raw}
}

func (s *Stream) writeTo(b *bytes.Buffer) {
	s.Dict.Set("Length", Integer(len(s.Raw)))
	s.Dict.writeTo(b)
	b.WriteString("\nstream\n")
	b.Write(s.Raw)
	b.WriteString("\nendstream")
}

// Indirect is a numbered object definition as it appears in the file
// body.
type Indirect struct {
	Num   int
	Gen   int
	Value Object
}

func (i *Indirect) writeTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "%d %d obj\n", i.Num, i.Gen)
	i.Value.writeTo(b)
	b.WriteString("\nendobj\n")
}

// Ref returns the reference to this object.
func (i *Indirect) Ref() Ref {
	return Ref{Num: i.Num, Gen: i.Gen}
}
