package numwords

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAmountToWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "Zero euros"},
		{"1", "One euro"},
		{"2", "Two euros"},
		{"1.01", "One euro and one cent"},
		{"0.50", "Zero euros and fifty cents"},
		{"11", "Eleven euros"},
		{"15.15", "Fifteen euros and fifteen cents"},
		{"20", "Twenty euros"},
		{"21", "Twenty one euros"},
		{"99.99", "Ninety nine euros and ninety nine cents"},
		{"100", "One hundred euros"},
		{"105", "One hundred five euros"},
		{"120", "One hundred twenty euros"},
		{"999", "Nine hundred ninety nine euros"},
		{"1000", "One thousand euros"},
		{"1234.56", "One thousand two hundred thirty four euros and fifty six cents"},
		{"10000", "Ten thousand euros"},
		{"100000", "One hundred thousand euros"},
		{"1000000", "One million euros"},
		{"2000001", "Two million one euros"},
		{"1234567.89", "One million two hundred thirty four thousand five hundred sixty seven euros and eighty nine cents"},
	}

	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			if got := AmountToWords(dec(tc.amount)); got != tc.want {
				t.Errorf("AmountToWords(%s) = %q, want %q", tc.amount, got, tc.want)
			}
		})
	}
}

func TestAmountToWords_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"1.005", "One euro and one cent"},
		{"1.004", "One euro"},
		{"0.999", "One euro"},
	}

	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			if got := AmountToWords(dec(tc.amount)); got != tc.want {
				t.Errorf("AmountToWords(%s) = %q, want %q", tc.amount, got, tc.want)
			}
		})
	}
}

func TestAmountToWords_NegativeAmounts(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"-1", "Minus one euro"},
		{"-5.25", "Minus five euros and twenty five cents"},
		{"-0.01", "Minus zero euros and one cent"},
	}

	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			if got := AmountToWords(dec(tc.amount)); got != tc.want {
				t.Errorf("AmountToWords(%s) = %q, want %q", tc.amount, got, tc.want)
			}
		})
	}
}

func TestAmountToWords_Deterministic(t *testing.T) {
	amounts := []string{"0", "1", "19.19", "321.07", "1234.56", "999999.99"}
	for _, a := range amounts {
		first := AmountToWords(dec(a))
		for i := 0; i < 10; i++ {
			if got := AmountToWords(dec(a)); got != first {
				t.Fatalf("AmountToWords(%s) not deterministic: %q != %q", a, got, first)
			}
		}
	}
}

func TestAmountToCurrencyWords_CustomNouns(t *testing.T) {
	got := AmountToCurrencyWords(dec("2.01"), "dollar", "cent")
	want := "Two dollars and one cent"
	if got != want {
		t.Errorf("AmountToCurrencyWords() = %q, want %q", got, want)
	}
}

func TestAmountToWords_SingularCentPluralEuro(t *testing.T) {
	got := AmountToWords(dec("3.01"))
	want := "Three euros and one cent"
	if got != want {
		t.Errorf("AmountToWords(3.01) = %q, want %q", got, want)
	}
}
