// Package composite embeds signed signature zones into an existing PDF
// as an incremental update. Each signed zone becomes a Form XObject
// holding the signature bitmap and a small caption, drawn on its page
// through the zone's percentage geometry.
package composite

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/quillsign/quillsign/pdf/images"
	"github.com/quillsign/quillsign/pdf/object"
	"github.com/quillsign/quillsign/pdf/reader"
	"github.com/quillsign/quillsign/pdf/writer"
	"github.com/quillsign/quillsign/zone"
)

// ErrUnreadableDocument is returned when the input PDF cannot be
// parsed at all.
var ErrUnreadableDocument = errors.New("composite: unreadable document")

// Diagnostic reports a zone that was skipped. Skipped zones never fail
// the whole run, the remaining zones are still embedded.
type Diagnostic struct {
	ZoneID string
	Page   int
	Reason string
}

// Options control caption rendering.
type Options struct {
	// CaptionFormat is the time layout for the caption line.
	CaptionFormat string
	// CaptionSize is the caption font size in points.
	CaptionSize float64
	// Caption disables the caption line entirely when false.
	Caption bool

	Logger *logrus.Logger
}

// DefaultOptions returns the standard compositor configuration.
func DefaultOptions() Options {
	return Options{
		CaptionFormat: "2006-01-02 15:04",
		CaptionSize:   7,
		Caption:       true,
	}
}

// Compositor embeds signature bitmaps into PDFs. Safe for reuse, not
// for concurrent use.
type Compositor struct {
	opts Options
	log  *logrus.Logger
}

// New returns a Compositor with the given options.
func New(opts Options) *Compositor {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Compositor{opts: opts, log: log}
}

// pageUpdate collects the changes for one page so several zones on the
// same page produce a single page object update.
type pageUpdate struct {
	ref       object.Ref
	dict      *object.Dict
	drawOps   bytes.Buffer
	resources map[object.Name]object.Ref
}

// Composite draws every signed zone onto its page and returns the
// updated PDF. Zones that cannot be embedded (page out of range,
// undecodable bitmap) are reported as diagnostics and skipped.
// Unsigned zones are ignored. With nothing to embed the original
// bytes are returned unchanged.
func (c *Compositor) Composite(original []byte, zones []*zone.SignatureZone) ([]byte, []Diagnostic, error) {
	doc, err := reader.Parse(original)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	w := writer.NewIncremental(doc)
	updates := make(map[int]*pageUpdate)
	var diags []Diagnostic
	embedded := 0

	for i, z := range zones {
		if !z.Signed() {
			continue
		}
		diag := c.embedZone(doc, w, updates, z, i)
		if diag != nil {
			diags = append(diags, *diag)
			c.log.WithFields(logrus.Fields{
				"zone": z.ID,
				"page": z.Page,
			}).Warn(diag.Reason)
			continue
		}
		embedded++
	}

	if embedded == 0 {
		return original, diags, nil
	}

	for _, u := range updates {
		c.applyPageUpdate(doc, w, u)
	}

	out, err := w.Bytes()
	if err != nil {
		return nil, diags, err
	}
	return out, diags, nil
}

func (c *Compositor) embedZone(doc *reader.Document, w *writer.Incremental, updates map[int]*pageUpdate, z *zone.SignatureZone, index int) *Diagnostic {
	pageIdx := z.Page - 1
	if pageIdx < 0 || pageIdx >= doc.PageCount() {
		return &Diagnostic{
			ZoneID: z.ID,
			Page:   z.Page,
			Reason: fmt.Sprintf("page %d out of range, document has %d pages", z.Page, doc.PageCount()),
		}
	}

	img, err := images.Decode(z.Signature)
	if err != nil {
		return &Diagnostic{
			ZoneID: z.ID,
			Page:   z.Page,
			Reason: fmt.Sprintf("signature bitmap cannot be decoded: %v", err),
		}
	}

	pageRef, pageDict, err := doc.Page(pageIdx)
	if err != nil {
		return &Diagnostic{ZoneID: z.ID, Page: z.Page, Reason: err.Error()}
	}
	pageW, pageH := doc.MediaBox(pageDict)

	// Percentage geometry with a top-left origin maps to PDF points
	// with a bottom-left origin.
	boxW := z.Width / 100 * pageW
	boxH := z.Height / 100 * pageH
	boxX := z.X / 100 * pageW
	boxY := pageH - z.Y/100*pageH - boxH

	formRef := c.addAppearance(w, img, z, boxW, boxH)

	u, ok := updates[pageIdx]
	if !ok {
		u = &pageUpdate{
			ref:       pageRef,
			dict:      pageDict,
			resources: make(map[object.Name]object.Ref),
		}
		updates[pageIdx] = u
	}
	name := object.Name("QSig" + strconv.Itoa(index))
	u.resources[name] = formRef
	fmt.Fprintf(&u.drawOps, "q\n1 0 0 1 %s %s cm\n/%s Do\nQ\n", pt(boxX), pt(boxY), name)
	return nil
}

// addAppearance registers the image XObject, optional soft mask and
// the Form XObject for one zone, returning the form reference.
func (c *Compositor) addAppearance(w *writer.Incremental, img *images.Image, z *zone.SignatureZone, boxW, boxH float64) object.Ref {
	imgDict := object.NewDict()
	imgDict.Set("Type", object.Name("XObject"))
	imgDict.Set("Subtype", object.Name("Image"))
	imgDict.Set("Width", object.Integer(img.Width))
	imgDict.Set("Height", object.Integer(img.Height))
	imgDict.Set("ColorSpace", object.Name(img.ColorSpace))
	imgDict.Set("BitsPerComponent", object.Integer(8))
	imgDict.Set("Filter", object.Name("FlateDecode"))

	if img.HasAlpha() {
		maskDict := object.NewDict()
		maskDict.Set("Type", object.Name("XObject"))
		maskDict.Set("Subtype", object.Name("Image"))
		maskDict.Set("Width", object.Integer(img.Width))
		maskDict.Set("Height", object.Integer(img.Height))
		maskDict.Set("ColorSpace", object.Name("DeviceGray"))
		maskDict.Set("BitsPerComponent", object.Integer(8))
		maskDict.Set("Filter", object.Name("FlateDecode"))
		maskRef := w.Add(object.NewStream(maskDict, img.SoftMask))
		imgDict.Set("SMask", maskRef)
	}
	imageRef := w.Add(object.NewStream(imgDict, img.Data))

	caption := ""
	if c.opts.Caption && z.SignedAt != nil {
		caption = "Signed " + z.SignedAt.Format(c.opts.CaptionFormat)
	}
	captionH := 0.0
	if caption != "" {
		captionH = c.opts.CaptionSize + 2
		if captionH > boxH/2 {
			captionH = boxH / 2
		}
	}
	imgH := boxH - captionH

	var content bytes.Buffer
	fmt.Fprintf(&content, "q\n%s 0 0 %s 0 %s cm\n/Im0 Do\nQ\n", pt(boxW), pt(imgH), pt(captionH))
	if caption != "" {
		fmt.Fprintf(&content, "0.6 0.6 0.6 rg\nBT\n/F0 %s Tf\n1 0 0 1 0 %s Tm\n(%s) Tj\nET\n",
			pt(c.opts.CaptionSize), pt(1.5), escapeText(caption))
	}

	xobjects := object.NewDict()
	xobjects.Set("Im0", imageRef)
	resources := object.NewDict()
	resources.Set("XObject", xobjects)
	if caption != "" {
		font := object.NewDict()
		font.Set("Type", object.Name("Font"))
		font.Set("Subtype", object.Name("Type1"))
		font.Set("BaseFont", object.Name("Helvetica"))
		fonts := object.NewDict()
		fonts.Set("F0", font)
		resources.Set("Font", fonts)
	}

	formDict := object.NewDict()
	formDict.Set("Type", object.Name("XObject"))
	formDict.Set("Subtype", object.Name("Form"))
	formDict.Set("FormType", object.Integer(1))
	formDict.Set("BBox", object.Array{
		object.Integer(0), object.Integer(0), object.Real(boxW), object.Real(boxH),
	})
	formDict.Set("Resources", resources)
	return w.Add(object.NewStream(formDict, content.Bytes()))
}

// applyPageUpdate rewrites the page object with the extra content
// stream and the merged resource entries. The existing content is
// wrapped in a saved graphics state so leftover transforms cannot
// displace the signatures.
func (c *Compositor) applyPageUpdate(doc *reader.Document, w *writer.Incremental, u *pageUpdate) {
	newPage := u.dict.Clone()

	saveRef := w.Add(object.NewStream(object.NewDict(), []byte("q\n")))
	drawRef := w.Add(object.NewStream(object.NewDict(), append([]byte("Q\n"), u.drawOps.Bytes()...)))

	contents := object.Array{saveRef}
	switch v, _ := u.dict.Get("Contents"); existing := v.(type) {
	case object.Ref:
		if resolved, err := doc.Resolve(existing); err == nil {
			if arr, ok := resolved.(object.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, existing)
			}
		} else {
			contents = append(contents, existing)
		}
	case object.Array:
		contents = append(contents, existing...)
	case *object.Stream:
		contents = append(contents, w.Add(existing))
	}
	contents = append(contents, drawRef)
	newPage.Set("Contents", contents)

	newPage.Set("Resources", c.mergedResources(doc, u))
	w.Update(u.ref, newPage)
}

// mergedResources returns the page resources with the new XObject
// entries added. The rewritten page gets the dictionary as its own
// /Resources, so resources inherited from the page tree must be folded
// in or names in the existing content stop resolving. Shared
// dictionaries are cloned so the originals stay untouched.
func (c *Compositor) mergedResources(doc *reader.Document, u *pageUpdate) *object.Dict {
	resources := object.NewDict()
	if res, ok := doc.Resources(u.dict); ok {
		resources = res.Clone()
	}

	xobjects := object.NewDict()
	if v, ok := resources.Get("XObject"); ok {
		if dict, err := doc.ResolveDict(v); err == nil {
			xobjects = dict.Clone()
		}
	}
	for name, ref := range u.resources {
		xobjects.Set(name, ref)
	}
	resources.Set("XObject", xobjects)
	return resources
}

// pt formats a point value for a content stream.
func pt(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 1 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func escapeText(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
