package controller

import (
	"testing"
)

func TestFloatToCents(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  int64
	}{
		{"whole amount", 100.0, 10000},
		{"with cents", 19.90, 1990},
		{"single cent", 0.01, 1},
		{"zero", 0, 0},
		{"float noise rounds correctly", 19.99, 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floatToCents(tt.input); got != tt.want {
				t.Errorf("floatToCents(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCentsToFloat(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  float64
	}{
		{"whole amount", 10000, 100.0},
		{"with cents", 1990, 19.90},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := centsToFloat(tt.cents); got != tt.want {
				t.Errorf("centsToFloat(%v) = %v, want %v", tt.cents, got, tt.want)
			}
		})
	}
}

func TestMoneyConversionRoundTrip(t *testing.T) {
	for _, amount := range []float64{0.01, 1.00, 19.90, 12345.67} {
		if got := centsToFloat(floatToCents(amount)); got != amount {
			t.Errorf("round trip of %v produced %v", amount, got)
		}
	}
}
