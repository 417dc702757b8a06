package invoice

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quillsign/quillsign/config"
	"github.com/quillsign/quillsign/numwords"
)

// ErrMissingCompanySettings is returned when Generate is called without
// usable company settings.
var ErrMissingCompanySettings = errors.New("invoice: missing company settings")

// ErrNoLineItems is returned for documents without a single position.
var ErrNoLineItems = errors.New("invoice: document has no line items")

const (
	pageWidth  = 595.28
	pageHeight = 841.89

	maxNoteLineLen  = 110
	maxLegalNoteLen = 220
)

// Options control the visual parameters of the layout engine. Zero
// values are not usable, start from DefaultOptions.
type Options struct {
	Margin       float64
	FontFamily   string
	BaseFontSize float64
	LineHeight   float64

	HeaderFill   [3]int
	TotalFill    [3]int
	WarningColor [3]int
	MutedColor   [3]int

	CurrencyPrefix string
	DateFormat     string

	Logger *logrus.Logger
}

// DefaultOptions returns the standard invoice appearance.
func DefaultOptions() Options {
	return Options{
		Margin:         40,
		FontFamily:     "Helvetica",
		BaseFontSize:   9,
		LineHeight:     13,
		HeaderFill:     [3]int{235, 235, 235},
		TotalFill:      [3]int{220, 228, 238},
		WarningColor:   [3]int{200, 80, 0},
		MutedColor:     [3]int{100, 100, 100},
		CurrencyPrefix: "EUR ",
		DateFormat:     "2006-01-02",
	}
}

// Generator renders invoice documents. A Generator is safe for reuse
// across documents but not for concurrent use.
type Generator struct {
	opts Options
	log  *logrus.Logger
}

// NewGenerator returns a Generator with the given options.
func NewGenerator(opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{opts: opts, log: log}
}

// Generate lays out the document on a single A4 page and returns the
// PDF bytes. Warnings report recoverable layout problems, most notably
// content that ran past the page; the returned PDF is still valid in
// that case, with the overflowing content clipped.
func (g *Generator) Generate(doc *Document, settings *config.CompanySettings) ([]byte, []string, error) {
	if settings == nil {
		return nil, nil, ErrMissingCompanySettings
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMissingCompanySettings, err)
	}
	if len(doc.Items) == 0 {
		return nil, nil, ErrNoLineItems
	}

	r := &renderer{
		opts:     g.opts,
		log:      g.log,
		doc:      doc,
		settings: settings,
		totals:   doc.ComputeTotals(),
	}
	return r.render()
}

// renderer holds the per-document layout state: the vertical cursor
// advances monotonically from the top margin, the footer is anchored
// from the bottom edge independently.
type renderer struct {
	opts     Options
	log      *logrus.Logger
	doc      *Document
	settings *config.CompanySettings
	totals   Totals

	pdf      *gofpdf.Fpdf
	tr       func(string) string
	y        float64
	warnings []string
}

func (r *renderer) render() ([]byte, []string, error) {
	r.pdf = gofpdf.New("P", "pt", "A4", "")
	r.pdf.SetAutoPageBreak(false, 0)
	r.pdf.AddPage()
	r.tr = r.pdf.UnicodeTranslatorFromDescriptor("")
	r.y = r.opts.Margin

	footerTop := r.drawFooter()

	r.drawHeader()
	r.drawCustomer()
	r.drawItemTable(footerTop)
	r.drawTotals(footerTop)
	r.drawPayment(footerTop)
	r.drawNotes(footerTop)

	if r.y > footerTop {
		r.warn("content overflows the single page and was clipped")
	}
	if err := r.pdf.Error(); err != nil {
		return nil, r.warnings, fmt.Errorf("invoice: render failed: %w", err)
	}

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, r.warnings, fmt.Errorf("invoice: output failed: %w", err)
	}
	return buf.Bytes(), r.warnings, nil
}

func (r *renderer) warn(msg string) {
	r.warnings = append(r.warnings, msg)
	r.log.WithField("invoice", r.doc.Number).Warn(msg)
}

func (r *renderer) text(s string) string {
	return r.tr(Sanitize(s))
}

func (r *renderer) money(d decimal.Decimal) string {
	return r.opts.CurrencyPrefix + d.Round(2).StringFixed(2)
}

func (r *renderer) setColor(c [3]int) {
	r.pdf.SetTextColor(c[0], c[1], c[2])
}

func (r *renderer) resetColor() {
	r.pdf.SetTextColor(0, 0, 0)
}

// contentWidth is the usable width between the side margins.
func (r *renderer) contentWidth() float64 {
	return pageWidth - 2*r.opts.Margin
}

// drawHeader renders the company identity on the left and the invoice
// metadata on the right, each with its own vertical cursor. The shared
// cursor resumes below the taller of the two.
func (r *renderer) drawHeader() {
	o := r.opts
	left := o.Margin
	rightX := pageWidth - o.Margin - 180

	ly := r.y
	r.pdf.SetFont(o.FontFamily, "B", 16)
	r.pdf.Text(left, ly+14, r.text(r.settings.CompanyName))
	ly += 22

	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	for _, line := range splitLines(r.settings.Address) {
		r.pdf.Text(left, ly+9, r.text(line))
		ly += o.LineHeight
	}
	if r.settings.VATID != "" {
		r.pdf.Text(left, ly+9, r.text("VAT ID: "+r.settings.VATID))
		ly += o.LineHeight
	}

	ry := r.y
	r.pdf.SetFont(o.FontFamily, "B", 13)
	r.pdf.Text(rightX, ry+12, r.text("Invoice "+r.doc.Number))
	ry += 20
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	r.pdf.Text(rightX, ry+9, r.text("Issue date: "+r.doc.IssueDate.Format(o.DateFormat)))
	ry += o.LineHeight
	if !r.doc.DueDate.IsZero() {
		r.pdf.Text(rightX, ry+9, r.text("Due date: "+r.doc.DueDate.Format(o.DateFormat)))
		ry += o.LineHeight
	}

	if ry > ly {
		r.y = ry
	} else {
		r.y = ly
	}
	r.y += 18
}

func (r *renderer) drawCustomer() {
	o := r.opts
	c := r.doc.Customer

	r.setColor(o.MutedColor)
	r.pdf.SetFont(o.FontFamily, "B", o.BaseFontSize)
	r.pdf.Text(o.Margin, r.y+9, r.text("Bill to"))
	r.resetColor()
	r.y += o.LineHeight

	r.pdf.SetFont(o.FontFamily, "B", o.BaseFontSize+1)
	r.pdf.Text(o.Margin, r.y+9, r.text(c.Name))
	r.y += o.LineHeight

	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	for _, line := range splitLines(c.Address) {
		r.pdf.Text(o.Margin, r.y+9, r.text(line))
		r.y += o.LineHeight
	}
	if c.VATID != "" {
		r.pdf.Text(o.Margin, r.y+9, r.text("VAT ID: "+c.VATID))
		r.y += o.LineHeight
	}
	if c.Email != "" {
		r.pdf.Text(o.Margin, r.y+9, r.text(c.Email))
		r.y += o.LineHeight
	}
	r.y += 14
}

// tableColumns returns the column layout, with the product code column
// present only when the settings enable it.
func (r *renderer) tableColumns() ([]string, []float64, []string) {
	w := r.contentWidth()
	if r.settings.ShowProductCodes {
		return []string{"Code", "Item", "Qty", "Unit price", "VAT %", "Total"},
			[]float64{60, w - 60 - 50 - 70 - 45 - 75, 50, 70, 45, 75},
			[]string{"L", "L", "R", "R", "R", "R"}
	}
	return []string{"Item", "Qty", "Unit price", "VAT %", "Total"},
		[]float64{w - 50 - 70 - 45 - 75, 50, 70, 45, 75},
		[]string{"L", "R", "R", "R", "R"}
}

func (r *renderer) drawItemTable(footerTop float64) {
	o := r.opts
	headers, widths, aligns := r.tableColumns()
	rowH := o.LineHeight + 3

	r.pdf.SetFillColor(o.HeaderFill[0], o.HeaderFill[1], o.HeaderFill[2])
	r.pdf.SetFont(o.FontFamily, "B", o.BaseFontSize)
	r.pdf.SetXY(o.Margin, r.y)
	for i, h := range headers {
		r.pdf.CellFormat(widths[i], rowH, r.text(h), "", 0, aligns[i], true, 0, "")
	}
	r.y += rowH

	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	for _, item := range r.doc.Items {
		if r.y+rowH > footerTop {
			r.warn(fmt.Sprintf("item %q does not fit on the page", item.Name))
			r.y += rowH
			continue
		}
		cells := []string{
			item.Name,
			item.Quantity.String(),
			r.money(item.UnitPrice),
			item.VATRate.Round(1).String(),
			r.money(item.Total()),
		}
		if r.settings.ShowProductCodes {
			cells = append([]string{item.ProductCode}, cells...)
		}
		r.pdf.SetXY(o.Margin, r.y)
		for i, c := range cells {
			r.pdf.CellFormat(widths[i], rowH, r.text(c), "", 0, aligns[i], false, 0, "")
		}
		r.y += rowH

		if item.Description != "" {
			r.drawDescription(item.Description, widths, rowH, footerTop)
		}
	}
	r.y += 10
}

// drawDescription renders a wrapped, muted sub-row under the item line,
// indented into the item column.
func (r *renderer) drawDescription(desc string, widths []float64, rowH, footerTop float64) {
	o := r.opts
	indent := o.Margin
	width := widths[0]
	if r.settings.ShowProductCodes {
		indent += widths[0]
		width = widths[1]
	}
	r.setColor(o.MutedColor)
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize-1)
	lines := r.pdf.SplitText(r.text(desc), width-8)
	for _, line := range lines {
		if r.y+rowH > footerTop {
			r.warn("item description clipped at page end")
			break
		}
		r.pdf.Text(indent+8, r.y+8, line)
		r.y += o.LineHeight - 2
	}
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	r.resetColor()
	r.y += 2
}

func (r *renderer) drawTotals(footerTop float64) {
	o := r.opts
	rowH := o.LineHeight + 2
	labelX := pageWidth - o.Margin - 220
	labelW := 130.0
	valueW := 90.0

	row := func(label, value string, bold, fill bool) {
		style := ""
		if bold {
			style = "B"
		}
		r.pdf.SetFont(o.FontFamily, style, o.BaseFontSize)
		r.pdf.SetXY(labelX, r.y)
		r.pdf.CellFormat(labelW, rowH, r.text(label), "", 0, "L", fill, 0, "")
		r.pdf.CellFormat(valueW, rowH, r.text(value), "", 0, "R", fill, 0, "")
		r.y += rowH
	}

	t := r.totals
	row("Subtotal", r.money(t.Subtotal), false, false)
	if r.doc.HasDiscount() {
		r.setColor(o.WarningColor)
		row("Discount", "-"+r.money(t.Discount), false, false)
		r.resetColor()
	}
	row("VAT", r.money(t.TotalVAT), false, false)

	r.pdf.SetFillColor(o.TotalFill[0], o.TotalFill[1], o.TotalFill[2])
	row("Total due", r.money(t.Total), true, true)
	r.y += 6

	words := numwords.AmountToWords(t.Total)
	r.pdf.SetFont(o.FontFamily, "I", o.BaseFontSize-1)
	r.setColor(o.MutedColor)
	for _, line := range r.pdf.SplitText(r.text("In words: "+words), r.contentWidth()) {
		if r.y+o.LineHeight > footerTop {
			break
		}
		r.pdf.Text(o.Margin, r.y+9, line)
		r.y += o.LineHeight
	}
	r.resetColor()
	r.y += 14
}

func (r *renderer) drawPayment(footerTop float64) {
	o := r.opts
	lines := make([]string, 0, 3)
	if r.settings.IBAN != "" {
		lines = append(lines, "IBAN: "+r.settings.IBAN)
	}
	if r.settings.BIC != "" {
		lines = append(lines, "BIC: "+r.settings.BIC)
	}
	if r.settings.PaymentTerms != "" {
		lines = append(lines, r.settings.PaymentTerms)
	}
	if len(lines) == 0 {
		return
	}

	r.pdf.SetFont(o.FontFamily, "B", o.BaseFontSize)
	if r.y+o.LineHeight <= footerTop {
		r.pdf.Text(o.Margin, r.y+9, r.text("Payment"))
		r.y += o.LineHeight
	}
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	for _, line := range lines {
		if r.y+o.LineHeight > footerTop {
			r.warn("payment details clipped at page end")
			break
		}
		r.pdf.Text(o.Margin, r.y+9, r.text(line))
		r.y += o.LineHeight
	}
	r.y += 14
}

// drawNotes renders the free-text note line by line. Lines are split on
// literal newlines only; each line is truncated rather than wrapped to
// keep the author's line structure intact.
func (r *renderer) drawNotes(footerTop float64) {
	if r.doc.Note == "" {
		return
	}
	o := r.opts
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize)
	for _, line := range splitLines(r.doc.Note) {
		if r.y+o.LineHeight > footerTop {
			r.warn("note clipped at page end")
			break
		}
		r.pdf.Text(o.Margin, r.y+9, r.text(truncate(line, maxNoteLineLen)))
		r.y += o.LineHeight
	}
}

// drawFooter renders the bottom-anchored issuer block and returns the y
// coordinate where it begins, which caps every flowing section above.
func (r *renderer) drawFooter() float64 {
	o := r.opts
	s := r.settings

	lines := make([]string, 0, 3)
	issuer := s.IssuerName
	if s.IssuerRole != "" {
		issuer += ", " + s.IssuerRole
	}
	if issuer != "" {
		lines = append(lines, issuer)
	}
	contact := joinNonEmpty(" | ", s.IssuerEmail, s.IssuerPhone)
	if contact != "" {
		lines = append(lines, contact)
	}
	if s.LegalNotes != "" {
		lines = append(lines, truncate(s.LegalNotes, maxLegalNoteLen))
	}

	top := pageHeight - o.Margin - float64(len(lines))*o.LineHeight
	if len(lines) == 0 {
		return pageHeight - o.Margin
	}

	r.pdf.SetDrawColor(o.MutedColor[0], o.MutedColor[1], o.MutedColor[2])
	r.pdf.Line(o.Margin, top-6, pageWidth-o.Margin, top-6)

	r.setColor(o.MutedColor)
	r.pdf.SetFont(o.FontFamily, "", o.BaseFontSize-1)
	y := top
	for _, line := range lines {
		r.pdf.Text(o.Margin, y+8, r.text(line))
		y += o.LineHeight
	}
	r.resetColor()
	return top - 14
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, trimCR(s[start:]))
	}
	return out
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
