package analysis

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ruralhealth-lab/disparity-cli/internal/model"
	"github.com/ruralhealth-lab/disparity-cli/internal/solver"
	"github.com/ruralhealth-lab/disparity-cli/internal/strata"
)

// Failure is one per-stratum diagnostic: a model that could not be estimated.
// Failures never abort the run; the stratum/model pair is simply absent from
// the long table.
type Failure struct {
	StratumCode int    `json:"stratum_code"`
	StratumName string `json:"stratum_name"`
	Model       string `json:"model_label"`
	Reason      string `json:"reason"`
}

// Runner fits the nested model sequence to every geographic stratum.
type Runner struct {
	Models      []ModelSpec
	Primary     solver.Solver // maximum-likelihood path
	Fallback    solver.Solver // GEE path, used when the primary fit fails to converge
	MinRuralN   int           // states with fewer rural records are skipped
	Concurrency int
}

// NewRunner wires the default solvers.
func NewRunner(models []ModelSpec, minRuralN, concurrency int) *Runner {
	return &Runner{
		Models:      models,
		Primary:     solver.MLSolver{},
		Fallback:    solver.NewGEESolver(),
		MinRuralN:   minRuralN,
		Concurrency: concurrency,
	}
}

// Run fits all models across all strata. Strata are fitted concurrently;
// each worker returns its batch and batches are merged and ordered
// afterwards, so the result table is deterministic.
func (r *Runner) Run(ctx context.Context, recs []model.AnalysisRecord) ([]model.ResultRow, []Failure, error) {
	specs := strata.All()

	g, gCtx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	var rows []model.ResultRow
	var failures []Failure

	for _, spec := range specs {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			batch, fails := r.runStratum(spec, recs)
			mu.Lock()
			rows = append(rows, batch...)
			failures = append(failures, fails...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	orderRows(rows, r.Models)
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].StratumCode != failures[j].StratumCode {
			return failures[i].StratumCode < failures[j].StratumCode
		}
		return failures[i].Model < failures[j].Model
	})

	zap.L().Info("analysis: run complete",
		zap.Int("strata", len(specs)),
		zap.Int("result_rows", len(rows)),
		zap.Int("failures", len(failures)),
	)
	return rows, failures, nil
}

// runStratum fits the model sequence for one stratum. Every failure is a
// diagnostic, never an abort: other strata are independent.
func (r *Runner) runStratum(spec strata.Spec, recs []model.AnalysisRecord) ([]model.ResultRow, []Failure) {
	log := zap.L().With(zap.Int("stratum", spec.Code), zap.String("name", spec.Name))

	subset := make([]model.AnalysisRecord, 0, len(recs))
	ruralN := 0
	for _, rec := range recs {
		if !spec.Match(rec) {
			continue
		}
		subset = append(subset, rec)
		if rec.Rural == 1 {
			ruralN++
		}
	}

	if !spec.Nationwide() && ruralN < r.MinRuralN {
		log.Warn("analysis: stratum skipped, rural sample too small",
			zap.Int("rural_n", ruralN), zap.Int("min", r.MinRuralN))
		return nil, r.failAll(spec, "rural sample below minimum")
	}

	var rows []model.ResultRow
	var failures []Failure
	for _, ms := range r.Models {
		res, err := r.fitModel(subset, ms)
		if err != nil {
			log.Warn("analysis: model failed",
				zap.String("model", ms.Name), zap.Error(err))
			failures = append(failures, Failure{
				StratumCode: spec.Code, StratumName: spec.Name,
				Model: ms.Name, Reason: err.Error(),
			})
			continue
		}

		extracted, missingTerms := ExtractRows(spec, ms, res)
		for _, term := range missingTerms {
			log.Warn("analysis: term missing from fit",
				zap.String("model", ms.Name), zap.String("term", term))
			failures = append(failures, Failure{
				StratumCode: spec.Code, StratumName: spec.Name,
				Model: ms.Name, Reason: "term " + term + " missing from fit",
			})
		}
		rows = append(rows, extracted...)
	}
	return rows, failures
}

// fitModel builds the design and tries the primary solver, falling back to
// the GEE path only when the primary fit fails to converge.
func (r *Runner) fitModel(subset []model.AnalysisRecord, ms ModelSpec) (*solver.Result, error) {
	design, err := BuildDesign(subset, ms)
	if err != nil {
		return nil, err
	}

	res, err := r.Primary.Fit(design)
	if err == nil {
		return res, nil
	}
	if res == nil || res.Converged || r.Fallback == nil {
		// Degenerate design or solver misuse: the fallback cannot help.
		return nil, err
	}

	zap.L().Info("analysis: primary fit did not converge, trying gee fallback")
	return r.Fallback.Fit(design)
}

func (r *Runner) failAll(spec strata.Spec, reason string) []Failure {
	failures := make([]Failure, 0, len(r.Models))
	for _, ms := range r.Models {
		failures = append(failures, Failure{
			StratumCode: spec.Code, StratumName: spec.Name,
			Model: ms.Name, Reason: reason,
		})
	}
	return failures
}

// orderRows sorts the merged batches into stratum-then-model order so output
// is independent of worker scheduling.
func orderRows(rows []model.ResultRow, models []ModelSpec) {
	modelIdx := make(map[string]int, len(models))
	for i, m := range models {
		modelIdx[m.Name] = i
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StratumCode != rows[j].StratumCode {
			return rows[i].StratumCode < rows[j].StratumCode
		}
		if modelIdx[rows[i].Model] != modelIdx[rows[j].Model] {
			return modelIdx[rows[i].Model] < modelIdx[rows[j].Model]
		}
		return rows[i].Term < rows[j].Term
	})
}
