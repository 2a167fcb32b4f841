package decmath

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestIntegerDivisionRounding(t *testing.T) {
	tests := []struct {
		num, den           string
		trunc, floor, ceil string
	}{
		{"7", "2", "3", "3", "4"},
		{"8", "2", "4", "4", "4"},
		{"-7", "2", "-3", "-4", "-3"},
		{"7", "-2", "-3", "-4", "-3"},
		{"-7", "-2", "3", "3", "4"},
		{"0", "5", "0", "0", "0"},
		{"19940000000000", "10009970000", "1992", "1992", "1993"},
	}

	for _, tt := range tests {
		trunc, err := QuoTrunc(d(tt.num), d(tt.den))
		if err != nil {
			t.Fatalf("trunc %s/%s: %v", tt.num, tt.den, err)
		}
		floor, err := QuoFloor(d(tt.num), d(tt.den))
		if err != nil {
			t.Fatalf("floor %s/%s: %v", tt.num, tt.den, err)
		}
		ceil, err := QuoCeil(d(tt.num), d(tt.den))
		if err != nil {
			t.Fatalf("ceil %s/%s: %v", tt.num, tt.den, err)
		}
		if !trunc.Equal(d(tt.trunc)) || !floor.Equal(d(tt.floor)) || !ceil.Equal(d(tt.ceil)) {
			t.Fatalf("%s/%s: got trunc=%s floor=%s ceil=%s", tt.num, tt.den, trunc, floor, ceil)
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	if _, err := QuoFloor(d("1"), decimal.Zero); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := QuoCeil(d("1"), decimal.Zero); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := Quo(d("1"), decimal.Zero); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.String() != "123456789012345678901234567890" {
		t.Fatalf("lost precision: %s", got)
	}

	zero, err := Parse("  ")
	if err != nil || !zero.IsZero() {
		t.Fatalf("empty input should be zero, got %s, %v", zero, err)
	}

	if _, err := Parse("12abc"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(d("1500000"), 6); got != "1.500000" {
		t.Fatalf("FormatUnits = %s", got)
	}
	if got := FormatUnits(d("42"), 0); got != "42" {
		t.Fatalf("FormatUnits zero decimals = %s", got)
	}
	if got := FormatFixed(d("3.14159"), 2); got != "3.14" {
		t.Fatalf("FormatFixed = %s", got)
	}
}
