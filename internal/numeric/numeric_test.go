package numeric

import (
	"errors"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"", "0"},
		{"🤔", "0"},
		{"42", "42"},
		{"1,000,000", "1000000"},
		{"-$5.00", "-5"},
		{"12.30%", "12.3"},
		{"0.000000001", "0.000000001"},
		{"1.2.3", "0"},
		{"  987 ", "987"},
		{"5 - 3", "53"},
	}
	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{"$1,234.56", "", "abc", "42", "-5.5", "1.2.3", "12 million"}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCanonicalizeStrict(t *testing.T) {
	if _, err := CanonicalizeStrict("no digits here"); err == nil {
		t.Error("CanonicalizeStrict should fail on digit-free input")
	}
	var perr *ParseError
	_, err := CanonicalizeStrict("")
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want *ParseError", err)
	}

	got, err := CanonicalizeStrict("$0.00")
	if err != nil {
		t.Fatalf("CanonicalizeStrict($0.00): %v", err)
	}
	if got != "0" {
		t.Errorf("CanonicalizeStrict($0.00) = %q, want 0", got)
	}
}

func TestCanonicalizeSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// The million suffix multiplies by 10^9, matching upstream as-is.
		{"12 million", "12000000000"},
		{"1.5 million", "1500000000"},
		{"12", "12"},
		{"$3,000.25", "3000.25"},
		{"", "0"},
		{"million", "0"},
	}
	for _, tt := range tests {
		if got := CanonicalizeSuffix(tt.in); got != tt.want {
			t.Errorf("CanonicalizeSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
