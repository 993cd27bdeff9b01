package utils

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{-1.236, -1.24},
		{0, 0},
		{14.549999999999999, 14.55},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 1); got != 1 {
		t.Errorf("Clamp above = %v, want 1", got)
	}
	if got := Clamp(-5, 0, 1); got != 0 {
		t.Errorf("Clamp below = %v, want 0", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Errorf("Clamp inside = %v, want 0.5", got)
	}
}

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.5, "₹1,234.50"},
		{1234567.89, "₹12,34,567.89"},
		{100, "₹100.00"},
		{-45000, "-₹45,000.00"},
	}
	for _, tt := range tests {
		if got := FormatIndianCurrency(tt.in); got != tt.want {
			t.Errorf("FormatIndianCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
