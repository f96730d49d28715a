package search

import (
	"context"
	"fmt"
	"time"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// Stage is a fallback strategy.
type Stage string

const (
	// StageExact runs the catalog filter on the extracted criteria.
	StageExact Stage = "EXACT"
	// StageSimilar runs a similarity search on the extracted name or the raw utterance.
	StageSimilar Stage = "SIMILAR"
	// StageExpand retries the similarity search, then re-filters with a raised budget.
	StageExpand Stage = "EXPAND"
)

// BudgetRaise is the factor applied to the extracted budget in StageExpand.
const BudgetRaise = 1.2

var stageOrder = []Stage{StageExact, StageSimilar, StageExpand}

// Outcome is the result of a fallback run.
type Outcome struct {
	// Stage is the last stage that ran
	Stage Stage `json:"stage"`
	// Criteria is what the extractor recovered from the utterance
	Criteria catalog.Criteria `json:"criteria"`
	// Found reports whether Result holds at least one car
	Found bool `json:"found"`
	// Result is a catalog.SearchResult or catalog.SimilarityResult, nil when nothing was found
	Result interface{} `json:"result,omitempty"`
	// RaisedBudget is set when StageExpand re-filtered with a raised budget
	RaisedBudget *float64 `json:"raisedBudget,omitempty"`
	// Skipped lists stages that failed and were skipped
	Skipped []Stage `json:"skipped,omitempty"`
	// Duration of the run
	Duration time.Duration `json:"-"`
}

// Orchestrator escalates EXACT -> SIMILAR -> EXPAND until one stage yields a
// non-empty result. It never returns an error: a failing stage is skipped.
type Orchestrator struct {
	exec      Executor
	extractor Extractor
	logger    *observability.Logger
}

// NewOrchestrator creates a fallback orchestrator.
func NewOrchestrator(exec Executor, extractor Extractor, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Orchestrator{
		exec:      exec,
		extractor: extractor,
		logger:    logger,
	}
}

// Run executes the fallback chain for utterance. Each stage runs at most once.
func (o *Orchestrator) Run(ctx context.Context, utterance string) *Outcome {
	start := time.Now()
	log := o.logger.WithContext(ctx).WithOperation("fallback")

	out := &Outcome{}
	if err := guard(func() { out.Criteria = o.extractor.ParseQuery(utterance) }); err != nil {
		log.Warn().Err(err).Msg("Query extraction failed, continuing with empty criteria")
		out.Criteria = catalog.Criteria{}
	}

	reference := out.Criteria.Name
	if reference == "" {
		reference = utterance
	}
	similarReq := catalog.SimilarRequest{ReferenceCar: reference, Budget: out.Criteria.MaxPrice}

	for _, stage := range stageOrder {
		if ctx.Err() != nil {
			break
		}
		out.Stage = stage

		var (
			result interface{}
			found  bool
		)
		err := guard(func() {
			switch stage {
			case StageExact:
				r := o.exec.Search(ctx, out.Criteria)
				result, found = r, len(r.Cars) > 0
			case StageSimilar:
				r := o.exec.Similar(ctx, similarReq)
				result, found = r, len(r.Cars) > 0
			case StageExpand:
				result, found = o.expand(ctx, out, reference, similarReq)
			}
		})
		if err != nil {
			log.Warn().Err(err).Str("stage", string(stage)).Msg("Fallback stage failed, skipping")
			out.Skipped = append(out.Skipped, stage)
			continue
		}

		if found {
			out.Found = true
			out.Result = result
			break
		}
	}

	out.Duration = time.Since(start)
	log.Debug().
		Str("stage", string(out.Stage)).
		Bool("found", out.Found).
		Dur("duration", out.Duration).
		Msg("Fallback completed")

	return out
}

func (o *Orchestrator) expand(ctx context.Context, out *Outcome, reference string, similarReq catalog.SimilarRequest) (interface{}, bool) {
	similar := o.exec.Similar(ctx, similarReq)
	if similar.Found {
		return similar, len(similar.Cars) > 0
	}
	if out.Criteria.MaxPrice == nil {
		return nil, false
	}

	raised := *out.Criteria.MaxPrice * BudgetRaise
	out.RaisedBudget = &raised

	r := o.exec.Search(ctx, catalog.Criteria{Name: reference, MaxPrice: &raised})
	return r, len(r.Cars) > 0
}

func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	fn()
	return nil
}
