package matchmaking

import "wedlock-server/internal/profile"

// Match is one ranked candidate in a single ranking response. It is derived
// per request and never persisted.
type Match struct {
	Phone    string       `json:"phone"`
	Name     string       `json:"name"`
	Gender   string       `json:"gender"`
	Age      int          `json:"age"`
	Job      string       `json:"job"`
	Religion string       `json:"religion"`
	Income   string       `json:"income"`
	Tier     profile.Tier `json:"tier"`
	Score    int          `json:"score"`
	AIReason string       `json:"ai_reason"`
}

func newMatch(candidate *profile.Profile, score int, reason string) Match {
	return Match{
		Phone:    candidate.Phone,
		Name:     candidate.Name,
		Gender:   candidate.Gender,
		Age:      candidate.Age,
		Job:      candidate.Job,
		Religion: candidate.Religion,
		Income:   candidate.Income,
		Tier:     candidate.EffectiveTier(),
		Score:    score,
		AIReason: reason,
	}
}
