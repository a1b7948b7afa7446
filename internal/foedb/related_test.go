package foedb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRelated_RoundTrip(t *testing.T) {
	t.Parallel()

	row := `pub-1,1700000000,2023,11,15,a,b,c,d,"[\"http://a/x.pdf\"]","{\"Title\":\"T\"}"`

	rec, err := DecodeRelated(row)
	require.NoError(t, err)
	require.Equal(t, "pub-1", rec.PublicationID)
	require.Equal(t, "1700000000", rec.Timestamp)
	require.Equal(t, RelatedDate{Year: "2023", Month: "11", Day: "15"}, rec.Date)
	require.Equal(t, []string{"http://a/x.pdf"}, rec.PDFURLs)
	require.Equal(t, map[string]any{"Title": "T"}, rec.Metadata)
}

func TestDecodeRelated_DoubledQuoteEscaping(t *testing.T) {
	t.Parallel()

	// The same row as produced by doubling quotes instead of
	// backslash-escaping them.
	row := `pub-2,1700000001,2023,11,16,a,b,c,d,"[""http://a/y.pdf""]","{""Title"":""U""}"`

	rec, err := DecodeRelated(row)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a/y.pdf"}, rec.PDFURLs)
	require.Equal(t, map[string]any{"Title": "U"}, rec.Metadata)
}

func TestDecodeRelated_CommasInsideJSONFields(t *testing.T) {
	t.Parallel()

	row := `pub-3,1700000002,2023,11,17,a,b,c,d,"[\"http://a/1.pdf\",\"http://a/2.pdf\"]","{\"Title\":\"V\",\"Lang\":\"en\"}"`

	rec, err := DecodeRelated(row)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a/1.pdf", "http://a/2.pdf"}, rec.PDFURLs)
	require.Equal(t, map[string]any{"Title": "V", "Lang": "en"}, rec.Metadata)

	// The commas inside the escaped sub-fields must not shift the
	// positional fields.
	require.Equal(t, "pub-3", rec.PublicationID)
	require.Equal(t, RelatedDate{Year: "2023", Month: "11", Day: "17"}, rec.Date)
}

func TestDecodeRelated_MalformedPDFURLsIsLenient(t *testing.T) {
	t.Parallel()

	row := `pub-4,1700000003,2023,11,18,a,b,c,d,not-json,"{\"Title\":\"W\"}"`

	rec, err := DecodeRelated(row)
	require.NoError(t, err)
	require.Empty(t, rec.PDFURLs)
	require.Equal(t, map[string]any{"Title": "W"}, rec.Metadata)
}

func TestDecodeRelated_MalformedMetadataIsLenient(t *testing.T) {
	t.Parallel()

	row := `pub-5,1700000004,2023,11,19,a,b,c,d,"[\"http://a/z.pdf\"]",{broken`

	rec, err := DecodeRelated(row)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a/z.pdf"}, rec.PDFURLs)
	require.Empty(t, rec.Metadata)
}

func TestDecodeRelated_TooFewFieldsFails(t *testing.T) {
	t.Parallel()

	_, err := DecodeRelated("pub-6,1700000005,2023,11,20")
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Contains(t, decodeErr.Reason, "5 fields")
}

func TestDecodeRelated_EmptyRowFails(t *testing.T) {
	t.Parallel()

	_, err := DecodeRelated("")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeRelated_ExactFieldCount(t *testing.T) {
	t.Parallel()

	// Eleven plain fields with nothing JSON-like in 9 and 10 still
	// produce a record; only the two sub-fields degrade.
	rec, err := DecodeRelated("id,ts,2024,1,2,a,b,c,d,e,f")
	require.NoError(t, err)
	require.Equal(t, "id", rec.PublicationID)
	require.Empty(t, rec.PDFURLs)
	require.Empty(t, rec.Metadata)
}
