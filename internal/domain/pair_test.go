package domain

import "testing"

func TestCanonicalPairCollapsesSpellings(t *testing.T) {
	want := "ADA/USD"
	for _, raw := range []string{"ADA-USD", "ada/usd", "ADA / USD", " ada - usd ", "ADA//USD", "ADA-/USD"} {
		if got := CanonicalPair(raw); got != want {
			t.Fatalf("CanonicalPair(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCanonicalPairIdempotent(t *testing.T) {
	for _, raw := range []string{"ADA-USD", "min/ada", "SUNDAE - ADA", "WRT", ""} {
		once := CanonicalPair(raw)
		if twice := CanonicalPair(once); twice != once {
			t.Fatalf("CanonicalPair not idempotent for %q: %q -> %q", raw, once, twice)
		}
	}
}

func TestBaseSymbol(t *testing.T) {
	if got := BaseSymbol("ADA/USD"); got != "ADA" {
		t.Fatalf("BaseSymbol(ADA/USD) = %q", got)
	}
	if got := BaseSymbol("ADA"); got != "ADA" {
		t.Fatalf("BaseSymbol(ADA) = %q", got)
	}
}
