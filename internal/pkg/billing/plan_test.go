package billing

import (
	"testing"
	"time"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "free", want: "free"},
		{in: "monthly", want: "monthly"},
		{in: "yearly", want: "yearly"},
		{in: "YEARLY", want: "yearly"},
		{in: "invalid", want: "free"},
	}

	for _, tt := range tests {
		if got := normalizePlan(tt.in); got != tt.want {
			t.Fatalf("normalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanRank(t *testing.T) {
	if planRank("free") >= planRank("monthly") {
		t.Fatalf("expected monthly to outrank free")
	}
	if planRank("monthly") >= planRank("yearly") {
		t.Fatalf("expected yearly to outrank monthly")
	}
}

func TestExpiryFrom(t *testing.T) {
	start := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	if got := expiryFrom("free", start); got != nil {
		t.Fatalf("expected free plan to never expire, got %v", got)
	}
	if got := expiryFrom("yearly", start); !got.Equal(start.AddDate(1, 0, 0)) {
		t.Fatalf("unexpected yearly expiry %v", got)
	}
	if got := expiryFrom("monthly", start); !got.Equal(start.AddDate(0, 1, 0)) {
		t.Fatalf("unexpected monthly expiry %v", got)
	}
}

func TestYearlySavings(t *testing.T) {
	if got := OfferFor("yearly").Savings; got != 10000 {
		t.Fatalf("yearly savings = %d, want 10000", got)
	}
	if OfferFor("bogus").Plan != "free" {
		t.Fatalf("unknown plan should map to the free offer")
	}
}
