package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/auditkit/papertrail/pkg/models"
)

// exactMatch reports a verbatim identifier match. Either a shared document
// number or a shared vendor id is decisive on its own; empty identifiers never
// match.
func (m *Matcher) exactMatch(source, target *models.Document, details map[string]any) bool {
	if source.DocumentNumber != "" && target.DocumentNumber != "" &&
		source.DocumentNumber == target.DocumentNumber {
		details["exact_match"] = "document_number"
		return true
	}

	if source.VendorID != "" && target.VendorID != "" &&
		source.VendorID == target.VendorID {
		details["exact_match"] = "vendor_id"
		return true
	}

	return false
}

// semanticScore embeds both comparison strings and takes their cosine
// similarity. Similarity below the criteria threshold contributes nothing, and
// an unavailable embedding backend contributes 0 rather than aborting the match.
func (m *Matcher) semanticScore(ctx context.Context, source, target *models.Document, criteria models.MatchCriteria, details map[string]any) float64 {
	sourceText := comparisonText(source)
	targetText := comparisonText(target)

	if sourceText == "" || targetText == "" || m.embedder == nil {
		details["semantic_confidence"] = 0.0
		return 0.0
	}

	sourceVec, err := m.embedder.Embed(ctx, sourceText)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Embedding failed for source document")
		details["semantic_confidence"] = 0.0
		return 0.0
	}
	targetVec, err := m.embedder.Embed(ctx, targetText)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Embedding failed for target document")
		details["semantic_confidence"] = 0.0
		return 0.0
	}

	similarity := m.scorer.Cosine(sourceVec, targetVec)
	details["semantic_similarity"] = similarity
	if similarity < criteria.MinSemanticSimilarity {
		details["semantic_confidence"] = 0.0
		return 0.0
	}
	details["semantic_confidence"] = similarity
	return similarity
}

// contextualScore averages up to three proximity signals: date, amount, and
// vendor name. A signal only participates when both documents carry its field
// and the values are close enough to be comparable; with no signals the score
// is 0.
func (m *Matcher) contextualScore(source, target *models.Document, details map[string]any) float64 {
	factors := make(map[string]float64)

	if source.Date != nil && target.Date != nil {
		if score, ok := m.scorer.DateProximity(*source.Date, *target.Date); ok {
			factors["date_proximity"] = score
		}
	}

	if source.TotalAmount != nil && target.TotalAmount != nil {
		if score, ok := m.scorer.AmountProximity(*source.TotalAmount, *target.TotalAmount); ok {
			factors["amount_proximity"] = score
		}
	}

	if source.Vendor != "" && target.Vendor != "" {
		factors["vendor_similarity"] = m.scorer.Ratio(
			strings.ToLower(source.Vendor),
			strings.ToLower(target.Vendor),
		)
	}

	confidence := averageFactors(factors)
	details["contextual_factors"] = factors
	details["contextual_confidence"] = confidence
	return confidence
}

// fuzzyScore averages up to three string-similarity ratios: document number,
// vendor id, and word-order-insensitive raw text. Each participates only when
// both sides are non-empty; with none the score is 0.
func (m *Matcher) fuzzyScore(source, target *models.Document, details map[string]any) float64 {
	factors := make(map[string]float64)

	if source.DocumentNumber != "" && target.DocumentNumber != "" {
		factors["document_number"] = m.scorer.Ratio(source.DocumentNumber, target.DocumentNumber)
	}

	if source.VendorID != "" && target.VendorID != "" {
		factors["vendor_id"] = m.scorer.Ratio(source.VendorID, target.VendorID)
	}

	if source.RawText != "" && target.RawText != "" {
		factors["text_similarity"] = m.scorer.TokenSortRatio(source.RawText, target.RawText)
	}

	confidence := averageFactors(factors)
	details["fuzzy_factors"] = factors
	details["fuzzy_confidence"] = confidence
	return confidence
}

func averageFactors(factors map[string]float64) float64 {
	if len(factors) == 0 {
		return 0.0
	}
	var sum float64
	for _, score := range factors {
		sum += score
	}
	return sum / float64(len(factors))
}

// comparisonText renders a document into the string handed to the embedding
// model. Fields appear in a fixed order so the same document always embeds
// identically.
func comparisonText(doc *models.Document) string {
	var parts []string

	if doc.DocumentNumber != "" {
		parts = append(parts, fmt.Sprintf("Document Number: %s", doc.DocumentNumber))
	}
	if doc.Vendor != "" {
		parts = append(parts, fmt.Sprintf("Vendor: %s", doc.Vendor))
	}
	if doc.VendorID != "" {
		parts = append(parts, fmt.Sprintf("Vendor ID: %s", doc.VendorID))
	}
	if doc.Date != nil {
		parts = append(parts, fmt.Sprintf("Date: %s", doc.Date.Format(time.RFC3339)))
	}
	if doc.TotalAmount != nil {
		parts = append(parts, fmt.Sprintf("Amount: %v %s", *doc.TotalAmount, doc.Currency))
	}
	if doc.RawText != "" {
		parts = append(parts, doc.RawText)
	}

	return strings.Join(parts, " ")
}
