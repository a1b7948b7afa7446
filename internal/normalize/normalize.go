// Package normalize maps source-specific publication items into the common
// shape and validates them against domain bounds.
package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/kodexai/regwatch/internal/regulator"
)

// Publication dates before this are treated as source noise.
var publishedEpoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Small tolerance for regulator sites that post-date announcements.
const futureTolerance = 24 * time.Hour

// ValidationError identifies the offending field and value of a
// publication that failed domain bounds.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("normalize: invalid %s (%s): %q", e.Field, e.Reason, e.Value)
}

// Normalizer prepares publications for the sink.
type Normalizer struct {
	validate *validator.Validate
	clock    regulator.Clock
	logger   *zap.Logger
}

// New constructs a Normalizer.
func New(clock regulator.Clock, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
		logger:   logger.Named("normalize"),
	}
}

// Normalize returns the publication with NFKC-normalized title, absolute
// URLs and deduplicated related URLs, or a *ValidationError when it fails
// domain bounds.
func (n *Normalizer) Normalize(profile regulator.Profile, pub regulator.Publication) (regulator.Publication, error) {
	if pub.Regulator == "" {
		pub.Regulator = profile.Name
	}
	pub.Title = strings.TrimSpace(norm.NFKC.String(pub.Title))

	resolved, err := resolveAgainst(profile.BaseURL, pub.URL)
	if err != nil {
		return regulator.Publication{}, &ValidationError{Field: "url", Value: pub.URL, Reason: err.Error()}
	}
	pub.URL = resolved
	pub.RelatedURLs = n.relatedURLs(profile, pub.RelatedURLs)

	if pub.PublishedAt.After(n.clock.Now().Add(futureTolerance)) {
		return regulator.Publication{}, &ValidationError{
			Field:  "published_at",
			Value:  pub.PublishedAt.Format(time.RFC3339),
			Reason: "in the future",
		}
	}
	if pub.PublishedAt.Before(publishedEpoch) {
		return regulator.Publication{}, &ValidationError{
			Field:  "published_at",
			Value:  pub.PublishedAt.Format(time.RFC3339),
			Reason: "before epoch",
		}
	}

	if err := n.validate.Struct(pub); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return regulator.Publication{}, &ValidationError{
				Field:  strings.ToLower(fe.Field()),
				Value:  fmt.Sprintf("%v", fe.Value()),
				Reason: fe.Tag(),
			}
		}
		return regulator.Publication{}, fmt.Errorf("normalize: validate: %w", err)
	}

	return pub, nil
}

// relatedURLs resolves, strips query strings, applies the language marker
// and deduplicates.
func (n *Normalizer) relatedURLs(profile regulator.Profile, urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, raw := range urls {
		resolved, err := resolveAgainst(profile.BaseURL, raw)
		if err != nil {
			n.logger.Warn("dropping unparsable related url", zap.String("url", raw), zap.Error(err))
			continue
		}
		u, err := url.Parse(resolved)
		if err != nil {
			continue
		}
		u.RawQuery = ""
		u.Fragment = ""
		if profile.LanguageMarker != "" && !strings.Contains(u.Path, profile.LanguageMarker) {
			continue
		}
		cleaned := u.String()
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// resolveAgainst makes raw absolute relative to base. An already absolute
// raw passes through untouched.
func resolveAgainst(base, raw string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}
