package util

import "testing"

func TestParseLocaleNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "german decimal", input: "12,50", want: 12.5},
		{name: "german thousands", input: "1.234,56", want: 1234.56},
		{name: "english thousands", input: "1,234.56", want: 1234.56},
		{name: "plain dot", input: "19.99", want: 19.99},
		{name: "currency suffix", input: "12,50 €", want: 12.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLocaleNumber(tc.input)
			if got == nil {
				t.Fatalf("nil for %q", tc.input)
			}
			if *got != tc.want {
				t.Fatalf("got %v want %v", *got, tc.want)
			}
		})
	}

	if got := ParseLocaleNumber("n/a"); got != nil {
		t.Fatalf("expected nil, got %v", *got)
	}
}

func TestParseWeightGrams(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{input: "1.5 kg", want: 1500},
		{input: "0.102 kg", want: 102},
		{input: "300 g", want: 300},
		{input: "250", want: 250},
	}
	for _, tc := range cases {
		got := ParseWeightGrams(tc.input)
		if got == nil || *got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeWeight(t *testing.T) {
	if got := NormalizeWeight("0.102 kg"); got != "102 g" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeWeight("340 g"); got != "340 g" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeDimensions(t *testing.T) {
	if got := NormalizeDimensions("5.7 × 2 × 6.9 cm"); got != "57 × 20 × 69 mm" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeDimensions("120 × 60 mm"); got != "120 × 60 mm" {
		t.Fatalf("got %q", got)
	}
}
