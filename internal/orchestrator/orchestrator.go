// Package orchestrator combines store-sourced and page-sourced
// publications per regulator and hands each to the downstream sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/metrics"
	"github.com/kodexai/regwatch/internal/normalize"
	"github.com/kodexai/regwatch/internal/regulator"
)

// Source is one named publication provider: a listing page, a feed, or
// the chunked store.
type Source struct {
	Name string
	Load func(ctx context.Context) ([]regulator.Publication, error)
}

// Task describes one orchestrated batch.
type Task struct {
	Profile     regulator.Profile
	ContentType regulator.ContentType
	Sources     []Source
}

// Orchestrator runs tasks sequentially: one source at a time, one
// publication at a time. A bad publication never aborts the batch; a
// failed source is counted and the remaining sources still run.
type Orchestrator struct {
	normalizer *normalize.Normalizer
	sink       regulator.Sink
	ids        regulator.IDGenerator
	logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(normalizer *normalize.Normalizer, sink regulator.Sink, ids regulator.IDGenerator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		normalizer: normalizer,
		sink:       sink,
		ids:        ids,
		logger:     logger.Named("orchestrator"),
	}
}

// Run executes one task and reports the batch outcome. It returns an
// error only when no source produced anything usable.
func (o *Orchestrator) Run(ctx context.Context, task Task) (regulator.BatchSummary, error) {
	runID, err := o.ids.NewID()
	if err != nil {
		return regulator.BatchSummary{}, fmt.Errorf("orchestrator: run id: %w", err)
	}
	summary := regulator.BatchSummary{
		RunID:     runID,
		Regulator: task.Profile.Name,
	}
	logger := o.logger.With(
		zap.String("run_id", runID),
		zap.String("regulator", task.Profile.Name),
		zap.String("content_type", string(task.ContentType)),
	)

	for _, source := range task.Sources {
		pubs, err := source.Load(ctx)
		if err != nil {
			summary.SourceErrors++
			logger.Error("source load failed", zap.String("source", source.Name), zap.Error(err))
			continue
		}
		logger.Info("source loaded", zap.String("source", source.Name), zap.Int("publications", len(pubs)))

		for _, pub := range pubs {
			if pub.ContentType == "" {
				pub.ContentType = task.ContentType
			}
			o.process(ctx, task, logger, pub, &summary)
		}
	}

	logger.Info("batch complete",
		zap.Int("published", summary.Published),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("source_errors", summary.SourceErrors),
	)
	if len(task.Sources) > 0 && summary.SourceErrors == len(task.Sources) {
		return summary, fmt.Errorf("orchestrator: all %d sources failed", len(task.Sources))
	}
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, task Task, logger *zap.Logger, pub regulator.Publication, summary *regulator.BatchSummary) {
	normalized, err := o.normalizer.Normalize(task.Profile, pub)
	if err != nil {
		var vErr *normalize.ValidationError
		if errors.As(err, &vErr) {
			summary.Skipped++
			metrics.Publication(task.Profile.Name, string(task.ContentType), "skipped")
			logger.Warn("skipping invalid publication",
				zap.String("field", vErr.Field),
				zap.String("reason", vErr.Reason),
				zap.String("title", pub.Title),
			)
			return
		}
		summary.Failed++
		metrics.Publication(task.Profile.Name, string(task.ContentType), "failed")
		logger.Error("normalize failed", zap.String("title", pub.Title), zap.Error(err))
		return
	}

	if err := o.sink.Publish(ctx, normalized); err != nil {
		summary.Failed++
		metrics.Publication(task.Profile.Name, string(task.ContentType), "failed")
		logger.Error("sink publish failed", zap.String("url", normalized.URL), zap.Error(err))
		return
	}
	summary.Published++
	metrics.Publication(task.Profile.Name, string(task.ContentType), "published")
}
