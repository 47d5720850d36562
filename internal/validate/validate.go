// Package validate runs the reconciliation pipeline for one session:
// mapping check, aggregation, comparison, diagnosis and fix suggestions.
package validate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/compare"
	"github.com/sells-group/recon-cli/internal/fix"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/rootcause"
)

// Request is one validation submission.
type Request struct {
	Gold        model.Table
	Growth      model.Table
	Mapping     model.FieldMapping
	Threshold   float64
	Rules       rootcause.Config
	MaxParallel int
}

// segmentSlot holds one granularity's outcome at its contract position.
type segmentSlot struct {
	result  model.SegmentResult
	skipped bool
}

// Run executes the pipeline and returns a complete session, or an error and
// no session. Cancelling ctx abandons the run.
func Run(ctx context.Context, req Request) (*model.Session, error) {
	if req.Threshold < 0 {
		return nil, eris.Errorf("validate: threshold must be >= 0, got %v", req.Threshold)
	}
	if err := req.Mapping.Validate(req.Gold, req.Growth); err != nil {
		return nil, err
	}
	parallel := req.MaxParallel
	if parallel <= 0 {
		parallel = 4
	}
	start := time.Now()
	log := zap.L().With(zap.String("gold", req.Gold.Name), zap.String("growth", req.Growth.Name))

	var gold, growth *aggregate.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gold, err = aggregate.Prepare(gctx, req.Gold, req.Mapping, model.SideGold)
		return err
	})
	g.Go(func() error {
		var err error
		growth, err = aggregate.Prepare(gctx, req.Growth, req.Mapping, model.SideGrowth)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "validate: prepare")
	}

	measured := req.Mapping.MeasuredMetrics()
	slots := make([]segmentSlot, len(aggregate.Granularities))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, gran := range aggregate.Granularities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !gran.Available(req.Mapping) {
				slots[i].skipped = true
				return nil
			}
			goldRows, err := gold.Rollup(gctx, gran)
			if err != nil {
				return segmentErr(err, &slots[i])
			}
			growthRows, err := growth.Rollup(gctx, gran)
			if err != nil {
				return segmentErr(err, &slots[i])
			}
			slots[i].result = compare.Compare(gran.Name, gran.Dimensions, goldRows, growthRows, measured, req.Threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "validate: compare segments")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "validate: cancelled")
	}

	sess := &model.Session{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		GoldFile:        req.Gold.Name,
		GrowthFile:      req.Growth.Name,
		Threshold:       req.Threshold,
		Mapping:         req.Mapping,
		SkippedSegments: []string{},
		GoldQuality:     gold.Quality,
		GrowthQuality:   growth.Quality,
	}
	details := make([]model.SegmentSummary, 0, len(slots))
	for i, s := range slots {
		if s.skipped {
			sess.SkippedSegments = append(sess.SkippedSegments, aggregate.Granularities[i].Name)
			continue
		}
		sess.Segments = append(sess.Segments, s.result)
		details = append(details, s.result.Summary)
	}
	sess.Summary = compare.SessionSummary(details)

	sess.Findings = rootcause.Diagnose(rootcause.Input{
		Segments:      sess.Segments,
		Threshold:     req.Threshold,
		GoldQuality:   gold.Quality,
		GrowthQuality: growth.Quality,
	}, req.Rules)
	fixes, err := fix.Suggest(sess.Findings)
	if err != nil {
		return nil, eris.Wrap(err, "validate: suggest fixes")
	}
	sess.Fixes = fixes

	log.Info("validate: session complete",
		zap.String("session_id", sess.ID),
		zap.Int("segments", len(sess.Segments)),
		zap.Strings("skipped", sess.SkippedSegments),
		zap.Float64("match_rate", sess.Summary.OverallMatchRate),
		zap.Int("findings", len(sess.Findings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sess, nil
}

// segmentErr marks a granularity skipped when a side cannot supply it;
// any other error aborts the run.
func segmentErr(err error, slot *segmentSlot) error {
	if errors.Is(err, aggregate.ErrGranularityUnavailable) {
		slot.skipped = true
		return nil
	}
	return err
}
