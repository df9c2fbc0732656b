package matching

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditkit/papertrail/pkg/embedding"
	"github.com/auditkit/papertrail/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// wordBagEmbedder is a deterministic stand-in for a real model: the vector
// counts letter occurrences, so similar strings get similar vectors.
func wordBagEmbedder() embedding.Provider {
	return embedding.Func(func(_ context.Context, text string) ([]float64, error) {
		vec := make([]float64, 26)
		for _, r := range text {
			if r >= 'a' && r <= 'z' {
				vec[r-'a']++
			}
			if r >= 'A' && r <= 'Z' {
				vec[r-'A']++
			}
		}
		return vec, nil
	})
}

func datePtr(t time.Time) *time.Time { return &t }
func amountPtr(f float64) *float64   { return &f }

func invoiceDoc() *models.Document {
	return &models.Document{
		ID:             "inv-1",
		DocType:        models.DocumentTypeInvoice,
		Vendor:         "TechSupply Inc.",
		VendorID:       "V-778",
		DocumentNumber: "INV-2023-0042",
		Date:           datePtr(time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)),
		TotalAmount:    amountPtr(1000.0),
		Currency:       "USD",
		RawText:        "invoice techsupply widgets and gadgets total 1000",
	}
}

func poDoc() *models.Document {
	return &models.Document{
		ID:             "po-1",
		DocType:        models.DocumentTypePurchaseOrder,
		Vendor:         "TechSupply Incorporated",
		VendorID:       "V-779",
		DocumentNumber: "PO-2023-0042",
		Date:           datePtr(time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)),
		TotalAmount:    amountPtr(980.0),
		Currency:       "USD",
		RawText:        "purchase order techsupply gadgets and widgets total 980",
	}
}

func TestFindMatchesExactShortCircuit(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	source := invoiceDoc()
	target := poDoc()
	target.DocumentNumber = source.DocumentNumber

	matches := m.FindMatches(context.Background(), source, []*models.Document{target}, models.MatchCriteria{})

	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].MatchConfidence)
	assert.Equal(t, models.MatchTypeExact, matches[0].MatchType)
	assert.Equal(t, "document_number", matches[0].MatchCriteria["exact_match"])
	// the remaining strategies never ran
	assert.NotContains(t, matches[0].MatchCriteria, "semantic_confidence")
}

func TestFindMatchesVendorIDExact(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	source := invoiceDoc()
	target := poDoc()
	target.VendorID = source.VendorID

	matches := m.FindMatches(context.Background(), source, []*models.Document{target}, models.MatchCriteria{})

	require.Len(t, matches, 1)
	assert.Equal(t, "vendor_id", matches[0].MatchCriteria["exact_match"])
}

func TestFindMatchesEmptyIdentifiersNeverExact(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	source := invoiceDoc()
	source.DocumentNumber = ""
	source.VendorID = ""
	target := poDoc()
	target.DocumentNumber = ""
	target.VendorID = ""

	_, matchType, _ := m.score(context.Background(), source, target, models.MatchCriteria{})
	assert.NotEqual(t, models.MatchTypeExact, matchType)
}

func TestScoreCombinationUsesFixedWeights(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	confidence, _, details := m.score(context.Background(), invoiceDoc(), poDoc(), models.MatchCriteria{})

	breakdown, ok := details["confidence_breakdown"].(map[string]float64)
	require.True(t, ok)
	expected := 0.4*breakdown["semantic"] + 0.3*breakdown["contextual"] + 0.3*breakdown["fuzzy"]
	assert.InDelta(t, expected, confidence, 1e-12)
	assert.Equal(t, confidence, details["final_confidence"])
}

func TestScoreIsDeterministic(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	first, firstType, _ := m.score(context.Background(), invoiceDoc(), poDoc(), models.MatchCriteria{})
	second, secondType, _ := m.score(context.Background(), invoiceDoc(), poDoc(), models.MatchCriteria{})

	assert.Equal(t, first, second)
	assert.Equal(t, firstType, secondType)
}

func TestContextualDateSignalExcludedOutsideWindow(t *testing.T) {
	m := NewMatcher(nil, testLogger())

	source := invoiceDoc()
	target := poDoc()
	target.Date = datePtr(source.Date.AddDate(0, 0, 10))

	details := make(map[string]any)
	m.contextualScore(source, target, details)

	factors := details["contextual_factors"].(map[string]float64)
	assert.NotContains(t, factors, "date_proximity")
	assert.Contains(t, factors, "amount_proximity")
	assert.Contains(t, factors, "vendor_similarity")
}

func TestContextualScoreZeroWhenNoSignals(t *testing.T) {
	m := NewMatcher(nil, testLogger())

	source := &models.Document{ID: "a", DocType: models.DocumentTypeInvoice}
	target := &models.Document{ID: "b", DocType: models.DocumentTypePurchaseOrder}

	details := make(map[string]any)
	score := m.contextualScore(source, target, details)

	assert.Equal(t, 0.0, score)
	assert.Empty(t, details["contextual_factors"])
}

func TestContextualAmountWindowRelativeToSource(t *testing.T) {
	m := NewMatcher(nil, testLogger())
	source := invoiceDoc()
	target := poDoc()

	// 1000 vs 1100 is exactly on the 10% boundary
	target.TotalAmount = amountPtr(1100.0)
	details := make(map[string]any)
	m.contextualScore(source, target, details)
	factors := details["contextual_factors"].(map[string]float64)
	assert.InDelta(t, 0.0, factors["amount_proximity"], 1e-9)

	// just beyond the window the signal disappears
	target.TotalAmount = amountPtr(1101.0)
	details = make(map[string]any)
	m.contextualScore(source, target, details)
	factors = details["contextual_factors"].(map[string]float64)
	assert.NotContains(t, factors, "amount_proximity")
}

func TestFuzzyScoreAveragesAvailableRatios(t *testing.T) {
	m := NewMatcher(nil, testLogger())

	source := invoiceDoc()
	target := poDoc()
	target.RawText = ""
	source.RawText = ""

	details := make(map[string]any)
	score := m.fuzzyScore(source, target, details)

	factors := details["fuzzy_factors"].(map[string]float64)
	require.Len(t, factors, 2)
	assert.InDelta(t, (factors["document_number"]+factors["vendor_id"])/2, score, 1e-12)
}

func TestFuzzyTokenSortIgnoresWordOrder(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 1.0, s.TokenSortRatio("widgets and gadgets", "gadgets and widgets"))
}

func TestSemanticContributesZeroWithoutEmbedder(t *testing.T) {
	m := NewMatcher(nil, testLogger())

	details := make(map[string]any)
	score := m.semanticScore(context.Background(), invoiceDoc(), poDoc(), models.MatchCriteria{}, details)

	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0.0, details["semantic_confidence"])
}

func TestSemanticBelowThresholdContributesZero(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())
	source := invoiceDoc()
	target := poDoc()

	details := make(map[string]any)
	raw := m.semanticScore(context.Background(), source, target, models.MatchCriteria{}, details)
	require.Greater(t, raw, 0.0)

	// a threshold above the raw similarity suppresses the signal entirely
	details = make(map[string]any)
	gated := m.semanticScore(context.Background(), source, target, models.MatchCriteria{
		MinSemanticSimilarity: raw + 0.01,
	}, details)

	assert.Equal(t, 0.0, gated)
	assert.Equal(t, 0.0, details["semantic_confidence"])
	assert.InDelta(t, raw, details["semantic_similarity"].(float64), 1e-12)

	// at or above the threshold it passes through unchanged
	details = make(map[string]any)
	passed := m.semanticScore(context.Background(), source, target, models.MatchCriteria{
		MinSemanticSimilarity: raw,
	}, details)
	assert.Equal(t, raw, passed)
	assert.Equal(t, raw, details["semantic_confidence"])
}

func TestFindMatchesFiltersByType(t *testing.T) {
	m := NewMatcher(wordBagEmbedder(), testLogger())

	source := invoiceDoc()
	po := poDoc()
	po.DocumentNumber = source.DocumentNumber
	grn := &models.Document{
		ID:             "grn-1",
		DocType:        models.DocumentTypeGoodsReceipt,
		DocumentNumber: source.DocumentNumber,
	}

	matches := m.FindMatches(context.Background(), source, []*models.Document{po, grn}, models.MatchCriteria{
		TargetType: models.DocumentTypePurchaseOrder,
	})

	require.Len(t, matches, 1)
	assert.Equal(t, "po-1", matches[0].TargetDocument)
}

func TestFindMatchesRespectsMinConfidence(t *testing.T) {
	m := NewMatcher(nil, testLogger())

	source := invoiceDoc()
	target := poDoc()

	// without semantics and without exact identifiers the combined score
	// stays well below 0.99
	matches := m.FindMatches(context.Background(), source, []*models.Document{target}, models.MatchCriteria{
		MinConfidence: 0.99,
	})
	assert.Empty(t, matches)
}

func TestScorerRatio(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 1.0, s.Ratio("abc", "abc"))
	assert.Equal(t, 1.0, s.Ratio("", ""))
	assert.Equal(t, 0.0, s.Ratio("abc", "xyz"))
	assert.InDelta(t, 0.75, s.Ratio("abcd", "abcx"), 1e-9)
}

func TestScorerDateProximity(t *testing.T) {
	s := NewScorer()
	base := time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)

	score, ok := s.DateProximity(base, base)
	require.True(t, ok)
	assert.Equal(t, 1.0, score)

	score, ok = s.DateProximity(base, base.AddDate(0, 0, 7))
	require.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-9)

	_, ok = s.DateProximity(base, base.AddDate(0, 0, 8))
	assert.False(t, ok)
}

func TestScorerCosine(t *testing.T) {
	s := NewScorer()

	assert.InDelta(t, 1.0, s.Cosine([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, s.Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, s.Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, s.Cosine([]float64{0, 0}, []float64{1, 1}))
}
