package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{amount: 0, want: "$0.00"},
		{amount: 5.5, want: "$5.50"},
		{amount: 1234.567, want: "$1,234.57"},
		{amount: -1234.5, want: "-$1,234.50"},
		{amount: -0.001, want: "$0.00"},
		{amount: 1234567.891, want: "$1,234,567.89"},
	}

	for _, tt := range tests {
		if got := Currency(tt.amount); got != tt.want {
			t.Errorf("Currency(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestNumericCurrency(t *testing.T) {
	if got := NumericCurrency(-9876.5); got != "-9,876.50" {
		t.Errorf("NumericCurrency(-9876.5) = %q", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{fraction: 0.625, want: "62.50%"},
		{fraction: 1, want: "100.00%"},
		{fraction: 0, want: "0.00%"},
		{fraction: 0.33333, want: "33.33%"},
	}

	for _, tt := range tests {
		if got := Percent(tt.fraction); got != tt.want {
			t.Errorf("Percent(%v) = %q, want %q", tt.fraction, got, tt.want)
		}
	}
}
