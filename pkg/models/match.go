package models

import "time"

// MatchType labels the dominant matching strategy behind a confidence score
type MatchType string

const (
	MatchTypeExact      MatchType = "exact"
	MatchTypeSemantic   MatchType = "semantic"
	MatchTypeContextual MatchType = "contextual"
	MatchTypeFuzzy      MatchType = "fuzzy"
)

// DocumentMatch links two documents with a confidence score.
// MatchCriteria records every per-signal sub-score for audit.
type DocumentMatch struct {
	SourceDocument  string         `json:"source_document"`
	TargetDocument  string         `json:"target_document"`
	MatchConfidence float64        `json:"match_confidence"`
	MatchType       MatchType      `json:"match_type"`
	MatchCriteria   map[string]any `json:"match_criteria"`
	CreatedAt       time.Time      `json:"created_at,omitempty"`
}

// MatchCriteria filters and thresholds a match run
type MatchCriteria struct {
	SourceType            DocumentType `json:"source_type,omitempty"`
	TargetType            DocumentType `json:"target_type,omitempty"`
	MinConfidence         float64      `json:"min_confidence,omitempty"`
	MinSemanticSimilarity float64      `json:"min_semantic_similarity,omitempty"`
}

const (
	// DefaultMinConfidence is applied when criteria omit min_confidence
	DefaultMinConfidence = 0.7
	// DefaultMinSemanticSimilarity is applied when criteria omit min_semantic_similarity
	DefaultMinSemanticSimilarity = 0.7
)

// WithDefaults fills unset thresholds.
func (c MatchCriteria) WithDefaults() MatchCriteria {
	if c.MinConfidence == 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.MinSemanticSimilarity == 0 {
		c.MinSemanticSimilarity = DefaultMinSemanticSimilarity
	}
	return c
}
