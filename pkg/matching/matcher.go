// Package matching implements document matching algorithms
package matching

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/auditkit/papertrail/pkg/embedding"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

// Combination weights are fixed: a strategy that cannot compute contributes 0
// rather than being dropped from the denominator.
const (
	weightSemantic   = 0.4
	weightContextual = 0.3
	weightFuzzy      = 0.3
)

// Matcher scores pairs of documents across several independent strategies and
// combines them into one confidence
type Matcher struct {
	embedder embedding.Provider
	scorer   *Scorer
	logger   ectologger.Logger
}

// NewMatcher creates a document matcher. The embedding provider powers the
// semantic strategy; a nil provider disables it (it scores 0).
func NewMatcher(embedder embedding.Provider, logger ectologger.Logger) *Matcher {
	return &Matcher{
		embedder: embedder,
		scorer:   NewScorer(),
		logger:   logger,
	}
}

// FindMatches scores the source document against every candidate and returns
// those whose combined confidence clears the criteria threshold.
func (m *Matcher) FindMatches(ctx context.Context, source *models.Document, candidates []*models.Document, criteria models.MatchCriteria) []models.DocumentMatch {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.FindMatches")
	defer span.End()

	criteria = criteria.WithDefaults()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"source_document": source.ID,
		"candidate_count": len(candidates),
	})
	log.Debug("Finding matches for document")

	matches := make([]models.DocumentMatch, 0)
	for _, target := range candidates {
		if target == nil || !typeMatches(source, target, criteria) {
			continue
		}

		confidence, matchType, details := m.score(ctx, source, target, criteria)
		if confidence >= criteria.MinConfidence {
			matches = append(matches, models.DocumentMatch{
				SourceDocument:  source.ID,
				TargetDocument:  target.ID,
				MatchConfidence: confidence,
				MatchType:       matchType,
				MatchCriteria:   details,
				CreatedAt:       time.Now().UTC(),
			})
		}
	}

	log.WithFields(map[string]any{"match_count": len(matches)}).Debug("Found matches")
	return matches
}

// score runs the full strategy pipeline for one pair. An exact identifier
// match is decisive and skips the remaining strategies; otherwise the three
// scored strategies combine under fixed weights, and the reported match type
// labels whichever strategy produced the strongest individual evidence.
func (m *Matcher) score(ctx context.Context, source, target *models.Document, criteria models.MatchCriteria) (float64, models.MatchType, map[string]any) {
	details := make(map[string]any)

	if m.exactMatch(source, target, details) {
		return 1.0, models.MatchTypeExact, details
	}

	semantic := m.semanticScore(ctx, source, target, criteria, details)
	contextual := m.contextualScore(source, target, details)
	fuzzy := m.fuzzyScore(source, target, details)

	confidence := weightSemantic*semantic + weightContextual*contextual + weightFuzzy*fuzzy

	matchType := models.MatchTypeSemantic
	best := semantic
	if contextual > best {
		matchType = models.MatchTypeContextual
		best = contextual
	}
	if fuzzy > best {
		matchType = models.MatchTypeFuzzy
	}

	details["final_confidence"] = confidence
	details["confidence_breakdown"] = map[string]float64{
		"semantic":   semantic,
		"contextual": contextual,
		"fuzzy":      fuzzy,
	}

	return confidence, matchType, details
}

func typeMatches(source, target *models.Document, criteria models.MatchCriteria) bool {
	if criteria.SourceType != "" && source.DocType != criteria.SourceType {
		return false
	}
	if criteria.TargetType != "" && target.DocType != criteria.TargetType {
		return false
	}
	return true
}
