package matchmaking

import (
	"testing"

	"wedlock-server/internal/profile"
)

func TestRedactFreeTier(t *testing.T) {
	m := Match{Phone: "+91 9876543210", Name: "Priya", Score: 80}

	redacted := Redact(m, profile.TierFree)

	if redacted.Phone != PhonePlaceholder {
		t.Fatalf("expected placeholder, got %q", redacted.Phone)
	}
	if redacted.Name != "Priya" || redacted.Score != 80 {
		t.Fatalf("redaction touched unrelated fields: %+v", redacted)
	}
	// The input copy stays untouched.
	if m.Phone != "+91 9876543210" {
		t.Fatalf("input match mutated: %q", m.Phone)
	}
}

func TestRedactGoldTier(t *testing.T) {
	m := Match{Phone: "+91 9876543210"}

	if got := Redact(m, profile.TierGold); got.Phone != m.Phone {
		t.Fatalf("expected phone to pass through for gold, got %q", got.Phone)
	}
}

func TestRedactUnknownTierBehavesAsFree(t *testing.T) {
	m := Match{Phone: "+91 9876543210"}

	if got := Redact(m, profile.Tier("PLATINUM")); got.Phone != PhonePlaceholder {
		t.Fatalf("expected placeholder for unknown tier, got %q", got.Phone)
	}
}
