// Package writer appends incremental updates to existing PDF files.
// The original bytes are never rewritten, new and changed objects are
// added after them together with a new xref section that chains back
// to the previous one.
package writer

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/quillsign/quillsign/pdf/object"
	"github.com/quillsign/quillsign/pdf/reader"
)

// ErrNothingToWrite is returned when Bytes is called without any new
// or updated objects.
var ErrNothingToWrite = errors.New("writer: no objects to write")

// Incremental accumulates objects for one incremental update section.
type Incremental struct {
	doc     *reader.Document
	nextNum int

	added   map[int]object.Object
	updated map[int]object.Object
}

// NewIncremental returns a writer over a parsed document.
func NewIncremental(doc *reader.Document) *Incremental {
	return &Incremental{
		doc:     doc,
		nextNum: doc.NextObjectNumber(),
		added:   make(map[int]object.Object),
		updated: make(map[int]object.Object),
	}
}

// Add registers a new object and returns its reference.
func (w *Incremental) Add(value object.Object) object.Ref {
	num := w.nextNum
	w.nextNum++
	w.added[num] = value
	return object.Ref{Num: num}
}

// Update replaces an existing object in the next update section. The
// generation number is kept at the original value zero convention used
// by incremental updates.
func (w *Incremental) Update(ref object.Ref, value object.Object) {
	if _, ok := w.added[ref.Num]; ok {
		w.added[ref.Num] = value
		return
	}
	w.updated[ref.Num] = value
}

// HasChanges reports whether anything would be written.
func (w *Incremental) HasChanges() bool {
	return len(w.added)+len(w.updated) > 0
}

// Bytes serializes the original file plus the update section.
func (w *Incremental) Bytes() ([]byte, error) {
	if !w.HasChanges() {
		return nil, ErrNothingToWrite
	}

	original := w.doc.Data()
	out := bytes.NewBuffer(make([]byte, 0, len(original)+4096))
	out.Write(original)
	if len(original) > 0 && original[len(original)-1] != '\n' {
		out.WriteByte('\n')
	}

	nums := make([]int, 0, len(w.added)+len(w.updated))
	for n := range w.added {
		nums = append(nums, n)
	}
	for n := range w.updated {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(nums))
	for _, num := range nums {
		value, ok := w.added[num]
		if !ok {
			value = w.updated[num]
		}
		offsets[num] = int64(out.Len())
		out.Write(object.Encode(&object.Indirect{Num: num, Value: value}))
	}

	xrefOffset := int64(out.Len())
	writeXrefTable(out, nums, offsets)
	w.writeTrailer(out, xrefOffset)
	return out.Bytes(), nil
}

// writeXrefTable emits a classic xref section with one subsection per
// contiguous run of object numbers.
func writeXrefTable(out *bytes.Buffer, nums []int, offsets map[int]int64) {
	out.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(out, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(out, "%010d %05d n \n", offsets[nums[k]], 0)
		}
		i = j + 1
	}
}

func (w *Incremental) writeTrailer(out *bytes.Buffer, xrefOffset int64) {
	trailer := object.NewDict()
	prev := w.doc.Trailer()
	for _, key := range []object.Name{"Root", "Info", "ID", "Encrypt"} {
		if v, ok := prev.Get(key); ok {
			trailer.Set(key, v)
		}
	}
	trailer.Set("Size", object.Integer(w.nextNum))
	trailer.Set("Prev", object.Integer(w.doc.LastXrefOffset()))

	out.WriteString("trailer\n")
	out.Write(object.Encode(trailer))
	fmt.Fprintf(out, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
}
