package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundQuantity_ThreeDecimalsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9.6", "9.6"},
		{"9.6004", "9.6"},
		{"9.6005", "9.601"},
		{"9.5995", "9.6"},
		{"0.0004", "0"},
		{"0.0005", "0.001"},
		{"-0.0005", "-0.001"},
		{"-1.2345", "-1.235"},
		{"123.456789", "123.457"},
		{"0", "0"},
	}
	for _, c := range cases {
		got := RoundQuantity(decimal.RequireFromString(c.in))
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("RoundQuantity(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestRoundQuantity_GenerationExample(t *testing.T) {
	// 120 people at 0.08 kg per head.
	got := RoundQuantity(decimal.NewFromInt(120).Mul(decimal.RequireFromString("0.08")))
	if !got.Equal(decimal.RequireFromString("9.600")) {
		t.Fatalf("expected 9.600, got %s", got)
	}
}

func TestParseDecimal_RejectsGarbage(t *testing.T) {
	if _, err := ParseDecimal("abc"); err == nil {
		t.Fatal("expected an error for a non-numeric value")
	}
	d, err := ParseDecimal("10.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("expected 10.5, got %s", d)
	}
}
