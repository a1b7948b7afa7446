// Package zaplog implements the default sink: it logs each publication.
// It stands in for the downstream processing step until one exists.
package zaplog

import (
	"context"

	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/regulator"
)

// Sink logs publications at info level.
type Sink struct {
	logger *zap.Logger
}

// New returns a logging Sink.
func New(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger.Named("sink")}
}

// Publish logs the publication.
func (s *Sink) Publish(_ context.Context, pub regulator.Publication) error {
	s.logger.Info("publication",
		zap.String("regulator", pub.Regulator),
		zap.String("content_type", string(pub.ContentType)),
		zap.String("title", pub.Title),
		zap.Time("published_at", pub.PublishedAt),
		zap.String("url", pub.URL),
		zap.String("category", pub.Category),
		zap.Strings("related_urls", pub.RelatedURLs),
	)
	return nil
}
