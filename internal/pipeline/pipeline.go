// Package pipeline drives sections through the generate, validate, repair
// loop until they are accepted or the iteration budget runs out. Sections are
// independent: they run concurrently against the same immutable fact
// snapshot, and one section's failure never blocks its siblings.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shota9616/planforge/internal/backend"
	"github.com/shota9616/planforge/internal/config"
	"github.com/shota9616/planforge/internal/models"
	"github.com/shota9616/planforge/internal/quality"
	"github.com/shota9616/planforge/internal/repair"
	"github.com/shota9616/planforge/internal/synthesis"
	"github.com/shota9616/planforge/internal/template"
)

type Pipeline struct {
	cfg      *config.Quality
	detector *quality.Detector
	engine   *repair.Engine
	logger   *slog.Logger
}

// New assembles a pipeline. gen may be nil: repairs then fall back to the
// deterministic strategies only. logger may be nil for a silent pipeline.
func New(cfg *config.Quality, gen backend.Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		cfg:      cfg,
		detector: quality.New(cfg),
		engine:   repair.New(cfg, gen),
		logger:   logger,
	}
}

// Run generates the requested sections from the fact snapshot under a fresh
// run id. An empty sectionIDs selects every registered section in document
// order. The returned run always carries one result per requested section;
// Run itself only fails on context cancellation.
func (p *Pipeline) Run(ctx context.Context, facts *models.FactModel, sectionIDs []string) (*models.GenerationRun, error) {
	return p.RunWithID(ctx, uuid.NewString(), facts, sectionIDs)
}

// RunWithID runs under a caller-assigned id, so callers can create their
// tracking record before generation starts and update it afterwards.
func (p *Pipeline) RunWithID(ctx context.Context, runID string, facts *models.FactModel, sectionIDs []string) (*models.GenerationRun, error) {
	if len(sectionIDs) == 0 {
		sectionIDs = template.SectionIDs()
	}

	run := &models.GenerationRun{
		ID:        runID,
		Facts:     facts,
		Sections:  make([]*models.SectionResult, len(sectionIDs)),
		StartedAt: time.Now(),
	}
	logger := p.logger.With("runId", run.ID)
	logger.Info("generation run started", "sections", len(sectionIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range sectionIDs {
		g.Go(func() error {
			tpl, ok := template.Lookup(id)
			if !ok {
				run.Sections[i] = &models.SectionResult{
					SectionID: id,
					State:     models.StateFailed,
					Err:       models.ErrUnknownSection,
				}
				return nil
			}
			run.Sections[i] = p.converge(gctx, logger.With("sectionId", id), facts, tpl)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return run, err
	}

	// Final pass: cross-section defects over every section that produced
	// text. These are reported, not repaired.
	var drafts []*models.SectionDraft
	for _, res := range run.Sections {
		if res.Draft != nil {
			drafts = append(drafts, res.Draft)
		}
	}
	doc := p.detector.ValidateDocument(drafts)
	run.ResidualIssues = doc.Issues
	run.FinishedAt = time.Now()

	logger.Info("generation run finished",
		"accepted", countState(run, models.StateAccepted),
		"exhausted", countState(run, models.StateExhausted),
		"failed", countState(run, models.StateFailed),
		"residualIssues", len(run.ResidualIssues))
	return run, nil
}

// converge runs the iteration loop for one section. With a budget of N, the
// draft is validated N+1 times and repaired at most N times; on exhaustion
// the best-scoring draft wins, with the earliest iteration breaking ties.
func (p *Pipeline) converge(ctx context.Context, logger *slog.Logger, facts *models.FactModel, tpl template.SectionTemplate) *models.SectionResult {
	draft, err := synthesis.Synthesize(facts, tpl)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return &models.SectionResult{SectionID: tpl.ID, State: models.StateFailed, Err: err}
	}

	var best *models.SectionDraft
	bestScore := -1.0
	var bestIssues []models.Issue

	for n := 0; ; n++ {
		res := p.detector.Validate(draft, tpl)
		draft.State = models.StateValidated
		logger.Info("draft validated", "iteration", n, "score", res.Score, "issues", len(res.Issues))

		if res.Score >= p.cfg.QualityThreshold && !res.HasCategory(models.StructuralDrift) {
			draft.State = models.StateAccepted
			return &models.SectionResult{
				SectionID: tpl.ID, State: models.StateAccepted,
				Draft: draft, Score: res.Score, Issues: res.Issues,
			}
		}
		if res.Score > bestScore {
			best, bestScore, bestIssues = draft, res.Score, res.Issues
		}
		if n == p.cfg.MaxIterations {
			best.State = models.StateExhausted
			logger.Warn("iteration budget exhausted", "bestScore", bestScore, "bestIteration", best.Iterations)
			return &models.SectionResult{
				SectionID: tpl.ID, State: models.StateExhausted,
				Draft: best, Score: bestScore, Issues: bestIssues,
			}
		}

		draft.State = models.StateRepairing
		repaired, err := p.engine.Repair(ctx, draft, res.Issues, tpl)
		if err != nil {
			logger.Error("repair failed", "iteration", n, "error", err)
			return &models.SectionResult{SectionID: tpl.ID, State: models.StateFailed, Err: err}
		}
		repaired.Iterations = n + 1
		draft = repaired
	}
}

func countState(run *models.GenerationRun, state models.DraftState) int {
	n := 0
	for _, res := range run.Sections {
		if res.State == state {
			n++
		}
	}
	return n
}
