package ecb

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kodexai/regwatch/internal/foedb"
	"github.com/kodexai/regwatch/internal/regulator"
)

const listingHTML = `
<html><body>
<dl>
  <dt>15 May 2024</dt>
  <dd>
    <a href="/press/pr/date/2024/html/one.en.html">Monetary policy decisions</a>
    <dl>
      <dt>Annex</dt>
      <dd><a href="/press/pr/date/2024/en/one_annex.en.pdf">Annex</a></dd>
    </dl>
  </dd>
  <dt>14 May 2024</dt>
  <dd><a href="/press/pr/date/2024/html/two.en.html">Financial statement</a></dd>
  <dt>Older entries</dt>
  <dd><a href="/press/pr/archive.en.html">Archive</a></dd>
  <dt>13 May 2024</dt>
  <dd></dd>
</dl>
</body></html>`

type stubFetcher struct {
	responses map[string][]byte
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := s.responses[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return body, nil
}

func (s *stubFetcher) set(t *testing.T, url string, v any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	s.responses[url] = body
}

func testProfile() regulator.Profile {
	return regulator.Profile{
		Name:           "ECB",
		BaseURL:        "https://www.ecb.europa.eu",
		LanguageMarker: "/en/",
	}
}

func TestScraper_LoadListing(t *testing.T) {
	t.Parallel()

	const url = "https://www.ecb.europa.eu/press/pr/date/html/index.en.html"
	f := &stubFetcher{responses: map[string][]byte{url: []byte(listingHTML)}}
	s := New(f, nil, testProfile(), nil)

	pubs, err := s.LoadListing(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	// The nested dl entry, the dateless entry and the linkless entry are
	// all skipped.
	require.Len(t, pubs, 2)

	require.Equal(t, regulator.Publication{
		Regulator:   "ECB",
		ContentType: regulator.ContentTypeNews,
		Title:       "Monetary policy decisions",
		PublishedAt: time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC),
		URL:         "/press/pr/date/2024/html/one.en.html",
		RelatedURLs: []string{"/press/pr/date/2024/en/one_annex.en.pdf"},
	}, pubs[0])

	require.Equal(t, "Financial statement", pubs[1].Title)
	require.Empty(t, pubs[1].RelatedURLs)
}

func TestScraper_LoadListingFetchError(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{responses: map[string][]byte{}}
	s := New(f, nil, testProfile(), nil)
	_, err := s.LoadListing(context.Background(), "https://www.ecb.europa.eu/missing", regulator.ContentTypeNews)
	require.Error(t, err)
}

func seedStoreFixture(t *testing.T, f *stubFetcher) {
	t.Helper()
	const root = "https://store.example/foedb/publications.en"
	const vroot = root + "/v1/h1"

	f.set(t, root+"/versions.json", []foedb.StoreVersion{{Version: "v1", Hash: "h1"}})
	f.set(t, vroot+"/metadata.json", foedb.Metadata{
		ChunkSize:      4,
		ChunkGroupSize: 1,
		Header: []string{
			"type", "publicationProperties", "pub_timestamp",
			"documentTypes", "Taxonomy", "childrenPublication",
		},
		TotalRecords: 3,
	})

	childRow := `child-1,1715731200,2024,5,15,a,b,c,d,"[\"https://www.ecb.europa.eu/press/en/one.pdf\"]","{}"`
	rows := [][]any{
		{
			1,
			map[string]any{"Title": "Monetary policy decisions"},
			1715731200,
			[]string{"/press/pr/date/2024/html/one.en.html"},
			"Monetary policy",
			[]string{childRow},
		},
		{
			18,
			map[string]any{"Title": "Letter to Members of the European Parliament"},
			1715644800,
			[]string{"/pub/pdf/other/letter.en.pdf"},
			"Letters",
			[]string{},
		},
		{
			1,
			map[string]any{},
			1715558400,
			[]string{"/press/pr/broken.en.html"},
			"",
			[]string{},
		},
	}
	var flat []any
	for _, row := range rows {
		flat = append(flat, row...)
	}
	f.set(t, vroot+"/data/0/chunk_0.json", flat)
}

func newStoreScraper(f *stubFetcher) *Scraper {
	store := foedb.New(foedb.Config{
		Host:  "https://store.example/foedb",
		Store: "publications.en",
	}, f, nil)
	return New(f, store, testProfile(), nil)
}

func TestScraper_LoadFromStore(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{responses: map[string][]byte{}}
	seedStoreFixture(t, f)
	s := newStoreScraper(f)

	// Bootstrap is lazy: the first load triggers it.
	pubs, err := s.LoadFromStore(context.Background(), regulator.ContentTypeNews, 10, 3)
	require.NoError(t, err)
	// The titleless press release is skipped.
	require.Len(t, pubs, 1)
	require.Equal(t, regulator.Publication{
		Regulator:   "ECB",
		ContentType: regulator.ContentTypeNews,
		Title:       "Monetary policy decisions",
		PublishedAt: time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC),
		URL:         "/press/pr/date/2024/html/one.en.html",
		Category:    "Monetary policy",
		RelatedURLs: []string{"https://www.ecb.europa.eu/press/en/one.pdf"},
	}, pubs[0])
}

func TestScraper_LoadFromStoreRegulation(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{responses: map[string][]byte{}}
	seedStoreFixture(t, f)
	s := newStoreScraper(f)

	pubs, err := s.LoadFromStore(context.Background(), regulator.ContentTypeRegulation, 10, 3)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	require.Equal(t, "Letter to Members of the European Parliament", pubs[0].Title)
	require.Equal(t, "/pub/pdf/other/letter.en.pdf", pubs[0].URL)
}

func TestScraper_LoadFromStoreLimit(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{responses: map[string][]byte{}}
	seedStoreFixture(t, f)
	s := newStoreScraper(f)

	pubs, err := s.LoadFromStore(context.Background(), regulator.ContentTypeNews, 1, 3)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
}

func TestScraper_LoadFromStoreWithoutClient(t *testing.T) {
	t.Parallel()

	s := New(&stubFetcher{}, nil, testProfile(), nil)
	_, err := s.LoadFromStore(context.Background(), regulator.ContentTypeNews, 10, 100)
	require.Error(t, err)
}
