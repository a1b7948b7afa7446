// Package regulator defines core types shared across subsystems.
package regulator

import (
	"time"
)

// ContentType classifies a publication stream.
type ContentType string

// Content types handed to the downstream sink.
const (
	ContentTypeRegulation ContentType = "REGULATION"
	ContentTypeNews       ContentType = "NEWS"
)

// Profile describes one regulator source site.
type Profile struct {
	Name     string `mapstructure:"name"`
	FullName string `mapstructure:"full_name"`
	BaseURL  string `mapstructure:"base_url"`
	// LanguageMarker, when set, restricts related URLs to the ones carrying
	// the marker in their path (e.g. "/en/").
	LanguageMarker string `mapstructure:"language_marker"`
}

// Publication is the normalized record handed to the downstream sink.
type Publication struct {
	Regulator   string      `json:"regulator" validate:"required"`
	ContentType ContentType `json:"content_type" validate:"required,oneof=REGULATION NEWS"`
	Title       string      `json:"title" validate:"required,max=500"`
	PublishedAt time.Time   `json:"published_at" validate:"required"`
	URL         string      `json:"url" validate:"required,http_url"`
	Category    string      `json:"category"`
	RelatedURLs []string    `json:"related_urls"`
}

// BatchSummary reports the outcome of one orchestrated run.
type BatchSummary struct {
	RunID        string `json:"run_id"`
	Regulator    string `json:"regulator"`
	Published    int    `json:"published"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	SourceErrors int    `json:"source_errors"`
}
