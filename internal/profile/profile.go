package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Tier is the subscription level controlling how much contact information
// other users may see.
type Tier string

const (
	TierFree Tier = "FREE"
	TierGold Tier = "GOLD"
)

// The two gender values used by the complement query in candidate retrieval.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// ErrNotFound is returned by stores when no profile exists for the given key.
var ErrNotFound = errors.New("profile not found")

// Profile is a user record keyed by phone number. The phone is treated as an
// opaque primary key and is not validated for format.
type Profile struct {
	Phone    string `bson:"_id" json:"phone" mapstructure:"phone"`
	Name     string `bson:"name" json:"name" mapstructure:"name"`
	Gender   string `bson:"gender" json:"gender" mapstructure:"gender"`
	Age      int    `bson:"age" json:"age" mapstructure:"age"`
	Job      string `bson:"job" json:"job" mapstructure:"job"`
	Religion string `bson:"religion" json:"religion" mapstructure:"religion"`
	Income   string `bson:"income" json:"income" mapstructure:"income"`
	Tier     Tier   `bson:"tier,omitempty" json:"tier" mapstructure:"tier"`
}

// Store is the persistence contract consumed by the matchmaking core. The
// core only reads profiles; Upsert and SetTier serve the registration and
// payment surfaces.
type Store interface {
	Get(ctx context.Context, phone string) (*Profile, error)
	FindByGender(ctx context.Context, gender string) ([]*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	SetTier(ctx context.Context, phone string, tier Tier) error
	All(ctx context.Context) ([]*Profile, error)
}

// Validate checks the fields required at registration time.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Phone) == "" {
		return errors.New("phone is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// EffectiveTier returns the profile tier, defaulting to FREE when unset or
// unrecognized.
func (p *Profile) EffectiveTier() Tier {
	if p.Tier == TierGold {
		return TierGold
	}
	return TierFree
}

// ComplementGender returns the opposite value in the two-value gender
// partition used to select candidates. Any value other than Male maps to
// Male, matching the historical behavior of the service.
func ComplementGender(gender string) string {
	if gender == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// FromDocument decodes a loosely-typed registration document into a Profile.
// Decoding is weakly typed so numeric ages and incomes submitted as strings
// (or vice versa) are accepted.
func FromDocument(doc map[string]any) (*Profile, error) {
	var p Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build document decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode profile document: %w", err)
	}
	return &p, nil
}
