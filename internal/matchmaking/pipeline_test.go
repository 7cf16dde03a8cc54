package matchmaking

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"wedlock-server/internal/profile"
)

type fakeStore struct {
	profiles map[string]*profile.Profile
	byGender map[string][]*profile.Profile
}

func newFakeStore(profiles ...*profile.Profile) *fakeStore {
	s := &fakeStore{
		profiles: make(map[string]*profile.Profile),
		byGender: make(map[string][]*profile.Profile),
	}
	for _, p := range profiles {
		s.profiles[p.Phone] = p
		s.byGender[p.Gender] = append(s.byGender[p.Gender], p)
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, phone string) (*profile.Profile, error) {
	p, ok := s.profiles[phone]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) FindByGender(_ context.Context, gender string) ([]*profile.Profile, error) {
	return s.byGender[gender], nil
}

func (s *fakeStore) Upsert(_ context.Context, p *profile.Profile) error {
	s.profiles[p.Phone] = p
	return nil
}

func (s *fakeStore) SetTier(_ context.Context, phone string, tier profile.Tier) error {
	p, ok := s.profiles[phone]
	if !ok {
		return profile.ErrNotFound
	}
	p.Tier = tier
	return nil
}

func (s *fakeStore) All(_ context.Context) ([]*profile.Profile, error) {
	all := make([]*profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		all = append(all, p)
	}
	return all, nil
}

type scoreFunc func(ctx context.Context, self, candidate *profile.Profile) (int, string)

func (f scoreFunc) Score(ctx context.Context, self, candidate *profile.Profile) (int, string) {
	return f(ctx, self, candidate)
}

func fixedScores(scores map[string]int) scoreFunc {
	return func(_ context.Context, _, candidate *profile.Profile) (int, string) {
		return scores[candidate.Phone], "scripted"
	}
}

func requesterMale(tier profile.Tier) *profile.Profile {
	return &profile.Profile{Phone: "r1", Name: "Ravi", Gender: profile.GenderMale, Tier: tier}
}

func femaleCandidate(phone string) *profile.Profile {
	return &profile.Profile{Phone: phone, Gender: profile.GenderFemale}
}

func TestRankEmptyKeyIsUnauthenticated(t *testing.T) {
	ranker := NewRanker(newFakeStore(), fixedScores(nil), 2, zap.NewNop())

	if _, err := ranker.Rank(context.Background(), "  "); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRankUnknownRequesterIsNotFound(t *testing.T) {
	ranker := NewRanker(newFakeStore(), fixedScores(nil), 2, zap.NewNop())

	if _, err := ranker.Rank(context.Background(), "missing"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRankExcludesRequesterFromResults(t *testing.T) {
	store := newFakeStore(requesterMale(profile.TierGold), femaleCandidate("c1"))

	// A data anomaly: the requester's own record shows up in the
	// complement-gender query results.
	anomalous := &profile.Profile{Phone: "r1", Gender: profile.GenderFemale}
	store.byGender[profile.GenderFemale] = append(
		[]*profile.Profile{anomalous}, store.byGender[profile.GenderFemale]...)

	ranker := NewRanker(store, fixedScores(map[string]int{"c1": 50, "r1": 99}), 2, zap.NewNop())

	matches, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, m := range matches {
		if m.Phone == "r1" {
			t.Fatalf("requester appeared in its own results")
		}
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestRankSortsByScoreDescendingWithStableTies(t *testing.T) {
	store := newFakeStore(
		requesterMale(profile.TierGold),
		femaleCandidate("c1"),
		femaleCandidate("c2"),
		femaleCandidate("c3"),
		femaleCandidate("c4"),
	)
	scores := map[string]int{"c1": 60, "c2": 90, "c3": 60, "c4": 95}

	ranker := NewRanker(store, fixedScores(scores), 2, zap.NewNop())

	matches, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, len(matches))
	for i, m := range matches {
		got[i] = m.Phone
	}

	// c1 and c3 tie on 60 and must keep query order.
	want := []string{"c4", "c2", "c1", "c3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %v, want %v", got, want)
	}
}

func TestRankOutputIndependentOfCompletionOrder(t *testing.T) {
	candidates := []*profile.Profile{
		femaleCandidate("c1"),
		femaleCandidate("c2"),
		femaleCandidate("c3"),
		femaleCandidate("c4"),
	}
	store := newFakeStore(append([]*profile.Profile{requesterMale(profile.TierGold)}, candidates...)...)
	scores := map[string]int{"c1": 40, "c2": 80, "c3": 80, "c4": 20}

	// Later candidates finish first, reversing completion order.
	reversed := scoreFunc(func(_ context.Context, _, candidate *profile.Profile) (int, string) {
		delay := map[string]time.Duration{"c1": 40, "c2": 30, "c3": 20, "c4": 10}[candidate.Phone]
		time.Sleep(delay * time.Millisecond)
		return scores[candidate.Phone], "scripted"
	})

	parallel := NewRanker(store, reversed, len(candidates), zap.NewNop())
	sequential := NewRanker(store, fixedScores(scores), 1, zap.NewNop())

	parallelMatches, err := parallel.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sequentialMatches, err := sequential.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range parallelMatches {
		if parallelMatches[i].Phone != sequentialMatches[i].Phone ||
			parallelMatches[i].Score != sequentialMatches[i].Score {
			t.Fatalf("completion order changed the output: %v vs %v", parallelMatches, sequentialMatches)
		}
	}
}

func TestRankCancelledContextDiscardsResults(t *testing.T) {
	store := newFakeStore(requesterMale(profile.TierFree), femaleCandidate("c1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ranker := NewRanker(store, fixedScores(map[string]int{"c1": 80}), 1, zap.NewNop())

	matches, err := ranker.Rank(ctx, "r1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if matches != nil {
		t.Fatalf("expected no partial results, got %v", matches)
	}
}

func TestRankFreeTierRedactsPhones(t *testing.T) {
	// Requester with no tier at all defaults to FREE.
	requester := &profile.Profile{Phone: "r1", Gender: profile.GenderMale}
	store := newFakeStore(requester, femaleCandidate("c1"), femaleCandidate("c2"))

	ranker := NewRanker(store, fixedScores(map[string]int{"c1": 70, "c2": 50}), 2, zap.NewNop())

	matches, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, m := range matches {
		if m.Phone != PhonePlaceholder {
			t.Fatalf("expected redacted phone, got %q", m.Phone)
		}
	}
}

func TestRankGoldTierKeepsPhones(t *testing.T) {
	store := newFakeStore(requesterMale(profile.TierGold), femaleCandidate("c1"))

	ranker := NewRanker(store, fixedScores(map[string]int{"c1": 70}), 2, zap.NewNop())

	matches, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if matches[0].Phone != "c1" {
		t.Fatalf("expected stored phone for gold requester, got %q", matches[0].Phone)
	}
}

// End-to-end: two tied live scores ahead of one failed inference call, all
// redacted for a FREE requester.
func TestRankEndToEndWithDegradedProvider(t *testing.T) {
	store := newFakeStore(
		&profile.Profile{Phone: "r1", Gender: profile.GenderMale, Tier: profile.TierFree, Job: "Engineer"},
		&profile.Profile{Phone: "a", Name: "A", Gender: profile.GenderFemale, Job: "Doctor"},
		&profile.Profile{Phone: "b", Name: "B", Gender: profile.GenderFemale, Job: "Teacher"},
		&profile.Profile{Phone: "c", Name: "C", Gender: profile.GenderFemale, Job: "Artist"},
	)

	completer := &scriptedCompleter{
		responses: map[string]string{
			"Doctor":  "90|Strong career alignment",
			"Teacher": "90|Shared values",
		},
		failFor: "Artist",
	}
	scorer := NewScorer(completer, 0, 0, zap.NewNop())
	ranker := NewRanker(store, scorer, 3, zap.NewNop())

	matches, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	gotNames := []string{matches[0].Name, matches[1].Name, matches[2].Name}
	if !reflect.DeepEqual(gotNames, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected order: %v", gotNames)
	}

	if matches[2].Score != FallbackScore || matches[2].AIReason != FallbackReason {
		t.Fatalf("expected fallback result for degraded candidate, got (%d, %q)",
			matches[2].Score, matches[2].AIReason)
	}

	for _, m := range matches {
		if m.Phone != PhonePlaceholder {
			t.Fatalf("expected redacted phone for free requester, got %q", m.Phone)
		}
	}
}

func TestRankIsIdempotentWithDeterministicScorer(t *testing.T) {
	store := newFakeStore(
		requesterMale(profile.TierFree),
		femaleCandidate("c1"),
		femaleCandidate("c2"),
		femaleCandidate("c3"),
	)
	scores := map[string]int{"c1": 33, "c2": 77, "c3": 77}

	ranker := NewRanker(store, fixedScores(scores), 2, zap.NewNop())

	first, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ranker.Rank(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive runs differ: %v vs %v", first, second)
	}
}

// scriptedCompleter answers based on which candidate attributes appear in
// the prompt, and fails outright for one of them.
type scriptedCompleter struct {
	responses map[string]string
	failFor   string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if s.failFor != "" && strings.Contains(prompt, s.failFor) {
		return "", errors.New("provider timeout")
	}
	for marker, response := range s.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", errors.New("no scripted response")
}
