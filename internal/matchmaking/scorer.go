package matchmaking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"wedlock-server/internal/ai"
	"wedlock-server/internal/profile"
	"wedlock-server/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	// FallbackScore and FallbackReason are returned whenever live scoring
	// is unavailable or its output cannot be parsed. The pipeline must
	// always produce a complete list, so scoring failures are absorbed
	// here rather than propagated.
	FallbackScore  = 70
	FallbackReason = "Profiles look compatible based on basic details."

	// missingAttribute substitutes for profile fields absent at scoring
	// time, so a sparse record still gets a usable prompt.
	missingAttribute = "not specified"

	defaultScoreTimeout = 10 * time.Second
	defaultMaxLogLength = 200
)

// Scorer produces a compatibility score and a short reason for a pair of
// profiles by consulting a text-inference provider. Score never fails: any
// provider or parse problem degrades to the fixed fallback pair.
type Scorer struct {
	completer ai.Completer
	timeout   time.Duration
	logger    *zap.Logger
	maxLogLen int
}

// NewScorer creates a Scorer with a per-call timeout for inference requests.
func NewScorer(completer ai.Completer, timeout time.Duration, maxLogLength int, logger *zap.Logger) *Scorer {
	if timeout <= 0 {
		timeout = defaultScoreTimeout
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Score compares self against the candidate and returns a score in [0,100]
// plus a one-line reason.
func (s *Scorer) Score(ctx context.Context, self, candidate *profile.Profile) (int, string) {
	prompt := s.buildPrompt(self, candidate)

	s.logger.Debug("compatibility request",
		zap.String("candidate", candidate.Phone),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("inference failed, using fallback score",
			zap.String("candidate", candidate.Phone),
			zap.Error(err),
		)
		return FallbackScore, FallbackReason
	}

	s.logger.Debug("compatibility response",
		zap.String("candidate", candidate.Phone),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	score, reason, err := parseScoreLine(raw)
	if err != nil {
		s.logger.Warn("malformed inference response, using fallback score",
			zap.String("candidate", candidate.Phone),
			zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
			zap.Error(err),
		)
		return FallbackScore, FallbackReason
	}

	return score, reason
}

// buildPrompt renders the fixed template with exactly four attributes from
// each profile. Nothing else about either user is disclosed to the provider.
func (s *Scorer) buildPrompt(self, candidate *profile.Profile) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{SELF}}", s.describeForPrompt(self))
	return strings.ReplaceAll(prompt, "{{CANDIDATE}}", s.describeForPrompt(candidate))
}

func (s *Scorer) describeForPrompt(p *profile.Profile) string {
	age := missingAttribute
	if p.Age > 0 {
		age = strconv.Itoa(p.Age) + "y"
	} else {
		s.logMissingAttribute(p, "age")
	}
	return fmt.Sprintf("%s, %s, %s, Income: %s",
		s.orMissing(p, "job", p.Job), age,
		s.orMissing(p, "religion", p.Religion),
		s.orMissing(p, "income", p.Income))
}

func (s *Scorer) orMissing(p *profile.Profile, attribute, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		s.logMissingAttribute(p, attribute)
		return missingAttribute
	}
	return value
}

func (s *Scorer) logMissingAttribute(p *profile.Profile, attribute string) {
	s.logger.Debug("profile attribute missing, substituting placeholder",
		zap.String("phone", p.Phone),
		zap.String("attribute", attribute),
	)
}

// parseScoreLine splits a SCORE|REASON line on the first separator. The left
// segment must parse as an integer within [0,100]; out-of-range values are
// rejected rather than clamped.
func parseScoreLine(raw string) (int, string, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "|", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("response is missing the score separator")
	}

	score, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", fmt.Errorf("parse score segment: %w", err)
	}
	if score < 0 || score > 100 {
		return 0, "", fmt.Errorf("score %d is outside [0,100]", score)
	}

	return score, strings.TrimSpace(parts[1]), nil
}
