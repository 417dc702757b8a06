package invoice

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillsign/quillsign/config"
)

func testSettings() *config.CompanySettings {
	return &config.CompanySettings{
		CompanyName:  "Acme Tools GmbH",
		Address:      "Mainzer Landstr. 1\n60329 Frankfurt",
		VATID:        "DE123456789",
		IBAN:         "DE89370400440532013000",
		BIC:          "COBADEFFXXX",
		PaymentTerms: "Payable within 14 days.",
		LegalNotes:   "Registered at Amtsgericht Frankfurt, HRB 12345.",
		IssuerName:   "Erika Mustermann",
		IssuerRole:   "Managing Director",
		IssuerEmail:  "billing@acme.example",
	}
}

func testDocument() *Document {
	return &Document{
		Number:    "INV-2024-0042",
		IssueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Customer: Customer{
			Name:    "Beispiel AG",
			Address: "Unter den Linden 5\n10117 Berlin",
			VATID:   "DE987654321",
		},
		Items: []LineItem{
			{
				Name:      "Consulting",
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.RequireFromString("50.00"),
				VATRate:   decimal.NewFromInt(20),
			},
		},
	}
}

func TestComputeTotals(t *testing.T) {
	doc := testDocument()
	totals := doc.ComputeTotals()

	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("100")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TotalVAT.Equal(decimal.RequireFromString("20")), "vat %s", totals.TotalVAT)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("120")), "total %s", totals.Total)
}

func TestComputeTotalsDiscountPercentage(t *testing.T) {
	doc := testDocument()
	pct := decimal.NewFromInt(10)
	doc.DiscountPercentage = &pct

	totals := doc.ComputeTotals()
	assert.True(t, totals.Discount.Equal(decimal.RequireFromString("10")), "discount %s", totals.Discount)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("110")), "total %s", totals.Total)
}

func TestComputeTotalsDiscountAmountWins(t *testing.T) {
	doc := testDocument()
	pct := decimal.NewFromInt(10)
	amt := decimal.RequireFromString("25.00")
	doc.DiscountPercentage = &pct
	doc.DiscountAmount = &amt

	totals := doc.ComputeTotals()
	assert.True(t, totals.Discount.Equal(amt))
}

func TestComputeTotalsNoPerItemRoundingDrift(t *testing.T) {
	// Three items whose rounded per-item totals would drift from the
	// full-precision sum.
	doc := &Document{Number: "INV-1"}
	for i := 0; i < 3; i++ {
		doc.Items = append(doc.Items, LineItem{
			Name:      "Part",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.RequireFromString("0.335"),
			VATRate:   decimal.Zero,
		})
	}
	totals := doc.ComputeTotals()
	assert.Equal(t, "1.01", totals.Total.Round(2).StringFixed(2))
}

func TestGenerateProducesPDF(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	out, warnings, err := g.Generate(testDocument(), testSettings())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output is not a PDF")
	assert.Contains(t, string(out), "%%EOF")
}

func TestGenerateMissingSettings(t *testing.T) {
	g := NewGenerator(DefaultOptions())

	_, _, err := g.Generate(testDocument(), nil)
	assert.ErrorIs(t, err, ErrMissingCompanySettings)

	_, _, err = g.Generate(testDocument(), &config.CompanySettings{})
	assert.ErrorIs(t, err, ErrMissingCompanySettings)
}

func TestGenerateNoItems(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	doc := testDocument()
	doc.Items = nil

	_, _, err := g.Generate(doc, testSettings())
	assert.ErrorIs(t, err, ErrNoLineItems)
}

func TestGenerateOverflowWarns(t *testing.T) {
	opts := DefaultOptions()
	opts.Logger = logrus.New()
	opts.Logger.SetOutput(&bytes.Buffer{})
	g := NewGenerator(opts)

	doc := testDocument()
	doc.Items = nil
	for i := 0; i < 80; i++ {
		doc.Items = append(doc.Items, LineItem{
			Name:      fmt.Sprintf("Position %d", i+1),
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.RequireFromString("9.99"),
			VATRate:   decimal.NewFromInt(20),
		})
	}

	out, warnings, err := g.Generate(doc, testSettings())
	require.NoError(t, err)
	assert.NotEmpty(t, warnings, "expected overflow warnings")
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestGenerateWithProductCodes(t *testing.T) {
	settings := testSettings()
	settings.ShowProductCodes = true

	doc := testDocument()
	doc.Items[0].ProductCode = "SKU-7"
	doc.Items[0].Description = "On-site consulting, travel included."

	g := NewGenerator(DefaultOptions())
	out, warnings, err := g.Generate(doc, settings)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotEmpty(t, out)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"Müller", "Muller"},
		{"Dvořák", "Dvorak"},
		{"price 10€", "price 10"},
		{"汉字 kept none", " kept none"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Sanitize(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		for _, r := range got {
			assert.LessOrEqual(t, r, rune(0xFF), "rune %q in %q", r, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly ten", truncate("exactly ten", 11))
	assert.Equal(t, "toolong...", truncate("toolongvalue", 10))
	assert.Len(t, []rune(truncate("abcdefghij", 5)), 5)
}
