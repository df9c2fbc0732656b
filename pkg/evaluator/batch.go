package evaluator

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

// Batch evaluates many rules against one document set
type Batch struct {
	evaluator *Evaluator
	workers   int
	logger    ectologger.Logger
}

// NewBatch creates a batch evaluator. Workers bounds evaluation concurrency;
// values below 1 mean sequential.
func NewBatch(evaluator *Evaluator, workers int, logger ectologger.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{evaluator: evaluator, workers: workers, logger: logger}
}

// Applicable filters rules down to those whose required document types are all
// present. Filtering happens before evaluation so a missing document reads as
// a skipped rule, never a failed one.
func Applicable(rules []*models.Rule, docs models.DocumentSet) []*models.Rule {
	present := docs.Types()
	out := make([]*models.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		required := true
		for _, docType := range rule.AppliesTo {
			if !present[docType] {
				required = false
				break
			}
		}
		if required {
			out = append(out, rule)
		}
	}
	return out
}

// EvaluateAll evaluates every given rule independently and returns one result
// per rule, in input order. Rules share no mutable state, so evaluation fans
// out across the worker pool.
func (b *Batch) EvaluateAll(ctx context.Context, rules []*models.Rule, docs models.DocumentSet) []models.EvaluationResult {
	ctx, span := tracing.StartSpan(ctx, "evaluator.Batch.EvaluateAll")
	defer span.End()

	log := b.logger.WithContext(ctx).WithFields(map[string]any{
		"rule_count":     len(rules),
		"document_types": len(docs),
	})
	log.Debug("Evaluating rule batch")

	results := make([]models.EvaluationResult, len(rules))
	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup

	for i, rule := range rules {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rule *models.Rule) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = b.evaluator.Evaluate(rule, docs)
		}(i, rule)
	}
	wg.Wait()

	summary := models.Summarize(results)
	log.WithFields(map[string]any{
		"passed": summary.PassedRules,
		"failed": summary.FailedRules,
		"errors": summary.ErrorRules,
	}).Info("Rule batch evaluated")

	return results
}
