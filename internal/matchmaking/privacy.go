package matchmaking

import "wedlock-server/internal/profile"

// PhonePlaceholder replaces candidate phone numbers for FREE-tier
// requesters.
const PhonePlaceholder = "+91 9XXXX XXXXX (Upgrade to view)"

// Redact applies tier-based redaction to the outbound copy of a match. GOLD
// requesters see stored phone numbers; everyone else sees the upgrade
// placeholder. The stored record is never touched.
func Redact(m Match, requesterTier profile.Tier) Match {
	if requesterTier != profile.TierGold {
		m.Phone = PhonePlaceholder
	}
	return m
}
