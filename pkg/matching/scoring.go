package matching

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Scorer provides the string and value comparison algorithms the match
// strategies are built from
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio calculates a normalized similarity between two strings
// Returns a value between 0.0 (no similarity) and 1.0 (exact match)
func (s *Scorer) Ratio(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// TokenSortRatio compares two strings insensitive to word order: tokens are
// lowercased, sorted, rejoined, and compared with Ratio. Raw text from two
// renderings of the same document mostly differs in layout, not wording.
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(str string) string {
	tokens := strings.Fields(strings.ToLower(str))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// dateWindowDays bounds how far apart two related documents can plausibly be
// dated; amountWindowShare sizes the amount window relative to the source.
const (
	dateWindowDays    = 7.0
	amountWindowShare = 0.1
)

// DateProximity calculates a proximity score for two dates: 1.0 for the same
// day, decaying linearly to 0.0 over a 7-day window. Pairs further apart than
// the window are not comparable and report ok=false so callers can leave the
// signal out instead of counting it as zero.
func (s *Scorer) DateProximity(a, b time.Time) (float64, bool) {
	daysDiff := math.Abs(a.Sub(b).Hours() / 24)
	if daysDiff > dateWindowDays {
		return 0.0, false
	}
	return 1.0 - daysDiff/dateWindowDays, true
}

// AmountProximity calculates a proximity score for two totals: linear decay
// over a window of 10% of the source amount. Differences beyond the window,
// and a zero source amount, report ok=false.
func (s *Scorer) AmountProximity(source, target float64) (float64, bool) {
	window := math.Abs(source) * amountWindowShare
	if window == 0 {
		return 0.0, false
	}
	diff := math.Abs(source - target)
	if diff > window {
		return 0.0, false
	}
	return 1.0 - diff/window, true
}

// Cosine calculates the cosine similarity of two embedding vectors
// Returns 0.0 when the vectors are degenerate or of mismatched length
func (s *Scorer) Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
