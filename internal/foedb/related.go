package foedb

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RelatedRecord is one decoded embedded related/child publication row.
type RelatedRecord struct {
	PublicationID string         `json:"publicationId"`
	Timestamp     string         `json:"timestamp"`
	Date          RelatedDate    `json:"date"`
	PDFURLs       []string       `json:"pdfUrls"`
	Metadata      map[string]any `json:"metadata"`
}

// RelatedDate carries the row's positional year/month/day fields verbatim.
type RelatedDate struct {
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// Positional layout of the embedded row.
const (
	relatedFieldCount  = 11
	fieldPublicationID = 0
	fieldTimestamp     = 1
	fieldYear          = 2
	fieldMonth         = 3
	fieldDay           = 4
	fieldPDFURLs       = 9
	fieldMetadata      = 10
)

// DecodeRelated parses one embedded related-publication string into a
// RelatedRecord.
//
// The input is a single comma-separated row whose fields were JSON-embedded
// after joining, so literal quotes inside a field arrive doubled or
// backslash-escaped. Backslash escapes are rewritten to the CSV doubled-quote
// form before tokenizing; otherwise a `\"` followed by a comma inside a
// quoted field terminates it early and the commas inside the JSON sub-fields
// split the row. Fields 9 (a JSON array of PDF URLs) and 10 (a JSON metadata
// object) degrade to empty values when they fail to parse; a row that
// tokenizes to fewer than 11 fields fails the whole decode.
func DecodeRelated(raw string) (RelatedRecord, error) {
	reader := csv.NewReader(strings.NewReader(strings.ReplaceAll(raw, `\"`, `""`)))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	fields, err := reader.Read()
	if err == io.EOF {
		return RelatedRecord{}, &DecodeError{Reason: "empty row", Row: raw}
	}
	if err != nil {
		return RelatedRecord{}, &DecodeError{Reason: fmt.Sprintf("tokenize: %v", err), Row: raw}
	}
	if len(fields) < relatedFieldCount {
		return RelatedRecord{}, &DecodeError{
			Reason: fmt.Sprintf("%d fields, want at least %d", len(fields), relatedFieldCount),
			Row:    raw,
		}
	}

	record := RelatedRecord{
		PublicationID: fields[fieldPublicationID],
		Timestamp:     fields[fieldTimestamp],
		Date: RelatedDate{
			Year:  fields[fieldYear],
			Month: fields[fieldMonth],
			Day:   fields[fieldDay],
		},
		PDFURLs:  []string{},
		Metadata: map[string]any{},
	}

	// Only the two JSON sub-fields are lenient; everything else above is
	// positional and already validated by the field count.
	var pdfURLs []string
	if err := json.Unmarshal([]byte(fields[fieldPDFURLs]), &pdfURLs); err == nil {
		record.PDFURLs = pdfURLs
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(fields[fieldMetadata]), &metadata); err == nil {
		record.Metadata = metadata
	}

	return record, nil
}
