// Package reader parses existing PDF files: header, cross-reference
// chain, trailer, object streams and the page tree. The whole file is
// held in memory, which matches the document sizes this tool handles.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/quillsign/quillsign/pdf/filters"
	"github.com/quillsign/quillsign/pdf/object"
)

var (
	// ErrNotPDF is returned when the %PDF header is missing.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrMalformed is returned for structurally broken files.
	ErrMalformed = errors.New("malformed PDF")
	// ErrObjectNotFound is returned when a referenced object has no
	// cross-reference entry.
	ErrObjectNotFound = errors.New("object not found")
	// ErrPageNotFound is returned for page indexes outside the tree.
	ErrPageNotFound = errors.New("page not found")
)

// Default page size used when no MediaBox can be resolved (A4 in
// points).
const (
	DefaultPageWidth  = 595.0
	DefaultPageHeight = 842.0
)

type entryKind int

const (
	entryFree entryKind = iota
	entryInFile
	entryInObjStream
)

type xrefEntry struct {
	kind      entryKind
	offset    int64
	gen       int
	streamNum int
	streamIdx int
}

// Document is a parsed PDF file.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer *object.Dict
	// lastXref is the offset of the most recent xref section, used as
	// Prev by incremental updates.
	lastXref int64
	maxNum   int

	cache map[int]object.Object
	pages []object.Ref
}

// Parse reads a PDF from raw bytes.
func Parse(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]object.Object),
	}

	start, err := findStartXref(data)
	if err != nil {
		return nil, err
	}
	doc.lastXref = start

	if err := doc.loadXrefChain(start); err != nil {
		return nil, err
	}
	if doc.trailer == nil {
		return nil, fmt.Errorf("%w: no trailer", ErrMalformed)
	}
	if size, ok := doc.trailer.GetInt("Size"); ok && int(size) > doc.maxNum {
		doc.maxNum = int(size) - 1
	}
	if err := doc.collectPages(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Data returns the original file bytes.
func (d *Document) Data() []byte {
	return d.data
}

// Trailer returns the most recent trailer dictionary.
func (d *Document) Trailer() *object.Dict {
	return d.trailer
}

// LastXrefOffset returns the byte offset of the newest xref section.
func (d *Document) LastXrefOffset() int64 {
	return d.lastXref
}

// NextObjectNumber returns the first unused object number.
func (d *Document) NextObjectNumber() int {
	return d.maxNum + 1
}

// findStartXref locates the startxref value near the end of the file.
func findStartXref(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("%w: startxref not found", ErrMalformed)
	}
	p := object.NewParser(tail)
	if err := p.Seek(int64(idx + len("startxref"))); err != nil {
		return 0, err
	}
	obj, err := p.Parse()
	if err != nil {
		return 0, fmt.Errorf("%w: bad startxref value: %v", ErrMalformed, err)
	}
	offset, ok := obj.(object.Integer)
	if !ok || offset < 0 || int64(offset) >= int64(len(data)) {
		return 0, fmt.Errorf("%w: startxref offset out of range", ErrMalformed)
	}
	return int64(offset), nil
}

// loadXrefChain walks the Prev chain, newest section first. Entries
// already present win over older ones.
func (d *Document) loadXrefChain(offset int64) error {
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return fmt.Errorf("%w: xref chain loop at offset %d", ErrMalformed, offset)
		}
		seen[offset] = true

		trailer, pending, err := d.loadXrefSection(offset)
		if err != nil {
			return err
		}
		if d.trailer == nil {
			d.trailer = trailer
		}

		// Hybrid-reference files point at an extra xref stream whose
		// entries take precedence over the table entries of the same
		// section, so the stream is committed first.
		if stm, ok := trailer.GetInt("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if _, _, err := d.loadXrefSection(stm); err != nil {
				return err
			}
		}
		for _, pe := range pending {
			d.addEntry(pe.num, pe.entry)
		}

		prev, ok := trailer.GetInt("Prev")
		if !ok {
			return nil
		}
		offset = prev
	}
}

// numberedEntry is a parsed but not yet committed xref entry.
type numberedEntry struct {
	num   int
	entry xrefEntry
}

// loadXrefSection parses the section at offset. Classic table entries
// come back uncommitted so the caller can order them after a hybrid
// XRefStm section; stream entries are committed directly.
func (d *Document) loadXrefSection(offset int64) (*object.Dict, []numberedEntry, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, nil, fmt.Errorf("%w: xref offset %d out of range", ErrMalformed, offset)
	}
	if bytes.HasPrefix(bytes.TrimLeft(d.data[offset:], " \t\r\n"), []byte("xref")) {
		return d.loadXrefTable(offset)
	}
	trailer, err := d.loadXrefStream(offset)
	return trailer, nil, err
}

// loadXrefTable parses a classic "xref" section followed by its
// trailer dictionary.
func (d *Document) loadXrefTable(offset int64) (*object.Dict, []numberedEntry, error) {
	p := object.NewParser(d.data)
	if err := p.Seek(offset); err != nil {
		return nil, nil, err
	}
	if kw := p.Keyword(); kw != "xref" {
		return nil, nil, fmt.Errorf("%w: expected xref keyword, got %q", ErrMalformed, kw)
	}

	var pending []numberedEntry
	for {
		obj, err := p.Parse()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: xref subsection header: %v", ErrMalformed, err)
		}
		start, ok := obj.(object.Integer)
		if !ok {
			return nil, nil, fmt.Errorf("%w: bad xref subsection start", ErrMalformed)
		}
		obj, err = p.Parse()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: xref subsection count: %v", ErrMalformed, err)
		}
		count, ok := obj.(object.Integer)
		if !ok {
			return nil, nil, fmt.Errorf("%w: bad xref subsection count", ErrMalformed)
		}

		for i := int64(0); i < int64(count); i++ {
			num := int(start) + int(i)
			entryOffset, entryGen, inUse, err := parseTableEntry(p)
			if err != nil {
				return nil, nil, err
			}
			kind := entryInFile
			if !inUse {
				kind = entryFree
			}
			pending = append(pending, numberedEntry{
				num:   num,
				entry: xrefEntry{kind: kind, offset: entryOffset, gen: entryGen},
			})
		}

		// Peek for either another subsection or the trailer keyword.
		mark := p.Pos()
		if kw := p.Keyword(); kw == "trailer" {
			obj, err := p.Parse()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: trailer dictionary: %v", ErrMalformed, err)
			}
			trailer, ok := obj.(*object.Dict)
			if !ok {
				return nil, nil, fmt.Errorf("%w: trailer is not a dictionary", ErrMalformed)
			}
			return trailer, pending, nil
		}
		if err := p.Seek(mark); err != nil {
			return nil, nil, err
		}
	}
}

func parseTableEntry(p *object.Parser) (int64, int, bool, error) {
	off, err := p.Parse()
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: xref entry: %v", ErrMalformed, err)
	}
	gen, err := p.Parse()
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: xref entry: %v", ErrMalformed, err)
	}
	kw := p.Keyword()
	offset, ok1 := off.(object.Integer)
	genNum, ok2 := gen.(object.Integer)
	if !ok1 || !ok2 || (kw != "n" && kw != "f") {
		return 0, 0, false, fmt.Errorf("%w: bad xref entry", ErrMalformed)
	}
	return int64(offset), int(genNum), kw == "n", nil
}

// loadXrefStream parses a PDF 1.5 cross-reference stream at offset.
func (d *Document) loadXrefStream(offset int64) (*object.Dict, error) {
	p := object.NewParser(d.data)
	if err := p.Seek(offset); err != nil {
		return nil, err
	}
	ind, err := p.ParseIndirect()
	if err != nil {
		return nil, fmt.Errorf("%w: xref stream: %v", ErrMalformed, err)
	}
	stream, ok := ind.Value.(*object.Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object at xref offset is not a stream", ErrMalformed)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("%w: xref stream has type /%s", ErrMalformed, t)
	}

	data, err := filters.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("xref stream decode: %w", err)
	}

	widths, err := xrefFieldWidths(stream.Dict)
	if err != nil {
		return nil, err
	}
	subsections := xrefSubsections(stream.Dict)

	entrySize := widths[0] + widths[1] + widths[2]
	pos := 0
	for _, sub := range subsections {
		for i := 0; i < sub[1]; i++ {
			if pos+entrySize > len(data) {
				return stream.Dict, nil
			}
			row := data[pos : pos+entrySize]
			pos += entrySize

			kind := readField(row, 0, widths[0])
			if widths[0] == 0 {
				kind = 1
			}
			f2 := readField(row, widths[0], widths[1])
			f3 := readField(row, widths[0]+widths[1], widths[2])

			num := sub[0] + i
			switch kind {
			case 0:
				d.addEntry(num, xrefEntry{kind: entryFree, offset: int64(f2), gen: f3})
			case 1:
				d.addEntry(num, xrefEntry{kind: entryInFile, offset: int64(f2), gen: f3})
			case 2:
				d.addEntry(num, xrefEntry{kind: entryInObjStream, streamNum: f2, streamIdx: f3})
			}
		}
	}
	return stream.Dict, nil
}

func xrefFieldWidths(dict *object.Dict) ([3]int, error) {
	var widths [3]int
	w, ok := dict.GetArray("W")
	if !ok || len(w) != 3 {
		return widths, fmt.Errorf("%w: xref stream /W", ErrMalformed)
	}
	for i, v := range w {
		n, ok := v.(object.Integer)
		if !ok || n < 0 || n > 8 {
			return widths, fmt.Errorf("%w: xref stream /W element %d", ErrMalformed, i)
		}
		widths[i] = int(n)
	}
	return widths, nil
}

func xrefSubsections(dict *object.Dict) [][2]int {
	if index, ok := dict.GetArray("Index"); ok && len(index)%2 == 0 {
		subs := make([][2]int, 0, len(index)/2)
		for i := 0; i < len(index); i += 2 {
			start, ok1 := index[i].(object.Integer)
			count, ok2 := index[i+1].(object.Integer)
			if ok1 && ok2 {
				subs = append(subs, [2]int{int(start), int(count)})
			}
		}
		return subs
	}
	size, _ := dict.GetInt("Size")
	return [][2]int{{0, int(size)}}
}

func readField(row []byte, offset, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v = v<<8 | int(row[offset+i])
	}
	return v
}

func (d *Document) addEntry(num int, e xrefEntry) {
	if _, exists := d.xref[num]; exists {
		return
	}
	d.xref[num] = e
	if num > d.maxNum {
		d.maxNum = num
	}
}

// Object loads and returns the object for a reference. Results are
// cached, callers must not mutate shared structures in place.
func (d *Document) Object(ref object.Ref) (object.Object, error) {
	if obj, ok := d.cache[ref.Num]; ok {
		return obj, nil
	}
	entry, ok := d.xref[ref.Num]
	if !ok || entry.kind == entryFree {
		return nil, fmt.Errorf("%w: %d %d R", ErrObjectNotFound, ref.Num, ref.Gen)
	}

	var obj object.Object
	var err error
	switch entry.kind {
	case entryInFile:
		obj, err = d.loadFileObject(entry.offset)
	case entryInObjStream:
		obj, err = d.loadStreamObject(entry.streamNum, entry.streamIdx)
	}
	if err != nil {
		return nil, err
	}
	d.cache[ref.Num] = obj
	return obj, nil
}

func (d *Document) loadFileObject(offset int64) (object.Object, error) {
	p := object.NewParser(d.data)
	p.StreamLength = func(r object.Ref) (int64, bool) {
		obj, err := d.Object(r)
		if err != nil {
			return 0, false
		}
		n, ok := obj.(object.Integer)
		return int64(n), ok
	}
	if err := p.Seek(offset); err != nil {
		return nil, err
	}
	ind, err := p.ParseIndirect()
	if err != nil {
		return nil, fmt.Errorf("object at offset %d: %w", offset, err)
	}
	return ind.Value, nil
}

// loadStreamObject extracts the object at the given index from an
// object stream.
func (d *Document) loadStreamObject(streamNum, index int) (object.Object, error) {
	container, err := d.Object(object.Ref{Num: streamNum})
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*object.Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object stream %d is not a stream", ErrMalformed, streamNum)
	}
	n, ok1 := stream.Dict.GetInt("N")
	first, ok2 := stream.Dict.GetInt("First")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: object stream %d missing /N or /First", ErrMalformed, streamNum)
	}
	if index < 0 || int64(index) >= n {
		return nil, fmt.Errorf("%w: object stream index %d out of range", ErrMalformed, index)
	}

	data, err := filters.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d decode: %w", streamNum, err)
	}
	if first > int64(len(data)) {
		return nil, fmt.Errorf("%w: object stream %d /First past end", ErrMalformed, streamNum)
	}

	// The header is N pairs of "objnum offset".
	fields := strings.Fields(string(data[:first]))
	if len(fields) < 2*(index+1) {
		return nil, fmt.Errorf("%w: object stream %d header too short", ErrMalformed, streamNum)
	}
	var off int
	if _, err := fmt.Sscanf(fields[2*index+1], "%d", &off); err != nil {
		return nil, fmt.Errorf("%w: object stream %d header: %v", ErrMalformed, streamNum, err)
	}

	p := object.NewParser(data)
	if err := p.Seek(first + int64(off)); err != nil {
		return nil, err
	}
	return p.Parse()
}

// Resolve follows a reference to its value; non-reference objects pass
// through unchanged.
func (d *Document) Resolve(obj object.Object) (object.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(object.Ref)
		if !ok {
			return obj, nil
		}
		var err error
		obj, err = d.Object(ref)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: reference chain too deep", ErrMalformed)
}

// ResolveDict resolves an object expected to be a dictionary.
func (d *Document) ResolveDict(obj object.Object) (*object.Dict, error) {
	v, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	dict, ok := v.(*object.Dict)
	if !ok {
		if s, ok := v.(*object.Stream); ok {
			return s.Dict, nil
		}
		return nil, fmt.Errorf("%w: expected dictionary, got %T", ErrMalformed, v)
	}
	return dict, nil
}

// Catalog returns the document catalog dictionary.
func (d *Document) Catalog() (*object.Dict, error) {
	root, ok := d.trailer.Get("Root")
	if !ok {
		return nil, fmt.Errorf("%w: trailer has no /Root", ErrMalformed)
	}
	return d.ResolveDict(root)
}

// collectPages walks the page tree depth first and records the page
// references in display order.
func (d *Document) collectPages() error {
	catalog, err := d.Catalog()
	if err != nil {
		return err
	}
	pagesRef, ok := catalog.Get("Pages")
	if !ok {
		return fmt.Errorf("%w: catalog has no /Pages", ErrMalformed)
	}
	return d.walkPages(pagesRef, 0)
}

func (d *Document) walkPages(node object.Object, depth int) error {
	if depth > 64 {
		return fmt.Errorf("%w: page tree too deep", ErrMalformed)
	}
	ref, isRef := node.(object.Ref)
	dict, err := d.ResolveDict(node)
	if err != nil {
		return err
	}
	nodeType, _ := dict.GetName("Type")
	switch nodeType {
	case "Pages":
		kids, ok := dict.GetArray("Kids")
		if !ok {
			return fmt.Errorf("%w: pages node has no /Kids", ErrMalformed)
		}
		for _, kid := range kids {
			if err := d.walkPages(kid, depth+1); err != nil {
				return err
			}
		}
		return nil
	case "Page":
		if !isRef {
			return fmt.Errorf("%w: page node is not an indirect object", ErrMalformed)
		}
		d.pages = append(d.pages, ref)
		return nil
	default:
		return fmt.Errorf("%w: page tree node of type /%s", ErrMalformed, nodeType)
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the reference and dictionary of the zero-based page.
func (d *Document) Page(index int) (object.Ref, *object.Dict, error) {
	if index < 0 || index >= len(d.pages) {
		return object.Ref{}, nil, fmt.Errorf("%w: index %d of %d", ErrPageNotFound, index, len(d.pages))
	}
	ref := d.pages[index]
	dict, err := d.ResolveDict(ref)
	if err != nil {
		return object.Ref{}, nil, err
	}
	return ref, dict, nil
}

// Resources resolves the page resource dictionary, walking Parent
// links for values inherited from the page tree. Pages with no
// resources anywhere report ok false.
func (d *Document) Resources(pageDict *object.Dict) (*object.Dict, bool) {
	dict := pageDict
	for i := 0; i < 64 && dict != nil; i++ {
		if v, ok := dict.Get("Resources"); ok {
			if res, err := d.ResolveDict(v); err == nil {
				return res, true
			}
		}
		parent, ok := dict.Get("Parent")
		if !ok {
			break
		}
		next, err := d.ResolveDict(parent)
		if err != nil {
			break
		}
		dict = next
	}
	return nil, false
}

// MediaBox resolves the page size, walking Parent links for inherited
// values. Files without any resolvable MediaBox fall back to A4.
func (d *Document) MediaBox(pageDict *object.Dict) (width, height float64) {
	dict := pageDict
	for i := 0; i < 64 && dict != nil; i++ {
		if box, ok := dict.GetArray("MediaBox"); ok && len(box) == 4 {
			vals := make([]float64, 4)
			valid := true
			for j, o := range box {
				resolved, err := d.Resolve(o)
				if err != nil {
					valid = false
					break
				}
				switch n := resolved.(type) {
				case object.Integer:
					vals[j] = float64(n)
				case object.Real:
					vals[j] = float64(n)
				default:
					valid = false
				}
			}
			if valid {
				w := vals[2] - vals[0]
				h := vals[3] - vals[1]
				if w > 0 && h > 0 {
					return w, h
				}
			}
		}
		parent, ok := dict.Get("Parent")
		if !ok {
			break
		}
		next, err := d.ResolveDict(parent)
		if err != nil {
			break
		}
		dict = next
	}
	return DefaultPageWidth, DefaultPageHeight
}
