package writer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/quillsign/quillsign/pdf/object"
	"github.com/quillsign/quillsign/pdf/reader"
)

func onePagePDF() []byte {
	var buf bytes.Buffer
	offsets := make(map[int]int)
	obj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	buf.WriteString("%PDF-1.7\n")
	obj(1, "<</Type /Catalog /Pages 2 0 R>>")
	obj(2, "<</Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 595 842]>>")
	obj(3, "<</Type /Page /Parent 2 0 R>>")
	xref := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<</Size 4 /Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestEmptyUpdateRejected(t *testing.T) {
	doc, err := reader.Parse(onePagePDF())
	if err != nil {
		t.Fatal(err)
	}
	w := NewIncremental(doc)
	if _, err := w.Bytes(); !errors.Is(err, ErrNothingToWrite) {
		t.Errorf("err = %v, want ErrNothingToWrite", err)
	}
}

func TestAddObjectRoundTrip(t *testing.T) {
	original := onePagePDF()
	doc, err := reader.Parse(original)
	if err != nil {
		t.Fatal(err)
	}

	w := NewIncremental(doc)
	d := object.NewDict()
	d.Set("Kind", object.Name("Annotation"))
	ref := w.Add(d)
	if ref.Num != 4 {
		t.Fatalf("new object number = %d, want 4", ref.Num)
	}

	out, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, original) {
		t.Fatal("incremental update rewrote the original bytes")
	}

	reparsed, err := reader.Parse(out)
	if err != nil {
		t.Fatalf("updated file does not parse: %v", err)
	}
	got, err := reparsed.Object(ref)
	if err != nil {
		t.Fatal(err)
	}
	dict, ok := got.(*object.Dict)
	if !ok {
		t.Fatalf("object = %T, want *Dict", got)
	}
	if kind, _ := dict.GetName("Kind"); kind != "Annotation" {
		t.Errorf("Kind = %q, want Annotation", kind)
	}
	if reparsed.PageCount() != 1 {
		t.Errorf("PageCount() = %d, want 1", reparsed.PageCount())
	}
}

func TestUpdateObjectShadowsOriginal(t *testing.T) {
	doc, err := reader.Parse(onePagePDF())
	if err != nil {
		t.Fatal(err)
	}
	pageRef, pageDict, err := doc.Page(0)
	if err != nil {
		t.Fatal(err)
	}

	updated := pageDict.Clone()
	updated.Set("Rotate", object.Integer(90))

	w := NewIncremental(doc)
	w.Update(pageRef, updated)
	out, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	reparsed, err := reader.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	_, newPage, err := reparsed.Page(0)
	if err != nil {
		t.Fatal(err)
	}
	if rot, _ := newPage.GetInt("Rotate"); rot != 90 {
		t.Errorf("Rotate = %d, want 90", rot)
	}
	// The update chains to the original xref rather than replacing it.
	if !bytes.Contains(out, []byte("/Prev")) {
		t.Error("trailer of the update has no /Prev entry")
	}
}

func TestMultipleAddsContiguousXref(t *testing.T) {
	doc, err := reader.Parse(onePagePDF())
	if err != nil {
		t.Fatal(err)
	}
	w := NewIncremental(doc)
	refs := make([]object.Ref, 3)
	for i := range refs {
		refs[i] = w.Add(object.Integer(i))
	}
	out, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	// Objects 4, 5, 6 form one subsection.
	if !bytes.Contains(out, []byte("xref\n4 3\n")) {
		t.Error("expected a single contiguous xref subsection for objects 4-6")
	}

	reparsed, err := reader.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	for i, ref := range refs {
		obj, err := reparsed.Object(ref)
		if err != nil {
			t.Fatal(err)
		}
		if n, ok := obj.(object.Integer); !ok || int(n) != i {
			t.Errorf("object %d = %#v, want Integer(%d)", ref.Num, obj, i)
		}
	}
}
