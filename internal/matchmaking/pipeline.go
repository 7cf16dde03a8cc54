package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"wedlock-server/internal/profile"
)

// ErrUnauthenticated is returned when a ranking request carries no
// requester key.
var ErrUnauthenticated = errors.New("requester key is required")

const defaultConcurrency = 4

// PairScorer produces a compatibility result for one requester/candidate
// pair. Implementations must not fail; degraded providers are expected to
// surface as fallback scores.
type PairScorer interface {
	Score(ctx context.Context, self, candidate *profile.Profile) (int, string)
}

// Ranker runs the ranking pipeline: load the requester, retrieve the
// complement-gender candidate set, score every pair concurrently, sort, and
// redact according to the requester's tier.
type Ranker struct {
	store       profile.Store
	scorer      PairScorer
	concurrency int
	logger      *zap.Logger
}

// NewRanker creates a Ranker with the given fan-out bound on concurrent
// scoring calls.
func NewRanker(store profile.Store, scorer PairScorer, concurrency int, logger *zap.Logger) *Ranker {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ranker{
		store:       store,
		scorer:      scorer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Rank returns the redacted, score-descending match list for the requester.
// Ties keep the order candidates were returned by the store query.
func (r *Ranker) Rank(ctx context.Context, requesterKey string) ([]Match, error) {
	if strings.TrimSpace(requesterKey) == "" {
		return nil, ErrUnauthenticated
	}

	requester, err := r.store.Get(ctx, requesterKey)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}

	target := profile.ComplementGender(requester.Gender)
	candidates, err := r.store.FindByGender(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	// The complement query should never return the requester, but a record
	// with an anomalous gender value could.
	eligible := make([]*profile.Profile, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Phone == requester.Phone {
			continue
		}
		eligible = append(eligible, candidate)
	}

	r.logger.Info("candidate selection",
		zap.String("requester", requester.Phone),
		zap.String("target_gender", target),
		zap.Int("initial", len(candidates)),
		zap.Int("dropped", len(candidates)-len(eligible)),
		zap.Int("left", len(eligible)),
	)

	results, err := r.scoreAll(ctx, requester, eligible)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	tier := requester.EffectiveTier()
	for i := range results {
		results[i] = Redact(results[i], tier)
	}

	return results, nil
}

// scoreAll fans scoring calls out over a fixed-size worker pool. Results are
// collected positionally so completion order never affects output order. A
// cancelled context discards all partial results.
func (r *Ranker) scoreAll(ctx context.Context, requester *profile.Profile, candidates []*profile.Profile) ([]Match, error) {
	started := time.Now()
	results := make([]Match, len(candidates))
	sem := make(chan struct{}, r.concurrency)

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate *profile.Profile) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			score, reason := r.scorer.Score(ctx, requester, candidate)
			results[i] = newMatch(candidate, score, reason)
		}(i, candidate)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("scoring completed",
		zap.String("requester", requester.Phone),
		zap.Int("candidates", len(candidates)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return results, nil
}
