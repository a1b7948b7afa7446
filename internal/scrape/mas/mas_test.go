package mas

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kodexai/regwatch/internal/regulator"
)

const listingHTML = `
<html><body>
<ul>
  <li class="mas-search-page__result">
    <div class="mas-tag"><div class="mas-tag__text">Circulars</div></div>
    <a class="mas-link--no-underline" href="https://www.mas.gov.sg/regulation/circulars/circular-1">
      <span class="mas-link__text">Circular on Technology Risk</span>
    </a>
    <div>Date: 15 May 2024</div>
  </li>
  <li class="mas-search-page__result">
    <div class="mas-tag"><div class="mas-tag__text">Notices</div></div>
    <a class="mas-link--no-underline" href="https://www.mas.gov.sg/regulation/notices/notice-626">
      <span class="mas-link__text">Notice 626 on AML/CFT</span>
    </a>
    <div>Date: 2 May 2024</div>
  </li>
  <li class="mas-search-page__result">
    <div class="mas-tag"><div class="mas-tag__text">Notices</div></div>
    <a class="mas-link--no-underline" href="https://www.mas.gov.sg/broken">
      <span class="mas-link__text"></span>
    </a>
    <div>Date: 1 May 2024</div>
  </li>
  <li class="mas-search-page__result">
    <div class="mas-tag"><div class="mas-tag__text">Notices</div></div>
    <a class="mas-link--no-underline" href="https://www.mas.gov.sg/undated">
      <span class="mas-link__text">Undated notice</span>
    </a>
    <div>Date: sometime soon</div>
  </li>
</ul>
</body></html>`

const publicationHTML = `
<html><body>
<main>
  <a href="/-/media/mas/notices/notice-626.pdf">Notice PDF</a>
  <a href="/regulation/guidance">Guidance page</a>
  <div class="related-to-this-regulation-listing--result">
    <h1 class="mas-search-card__title"><a href="/regulation/guidelines/aml-guidelines">AML Guidelines</a></h1>
  </div>
</main>
</body></html>`

type stubFetcher struct {
	responses map[string][]byte
	calls     map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string][]byte{}, calls: map[string]int{}}
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	s.calls[url]++
	body, ok := s.responses[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return body, nil
}

func testProfile() regulator.Profile {
	return regulator.Profile{Name: "MAS", BaseURL: "https://www.mas.gov.sg"}
}

func TestScraper_LoadPublicationsNews(t *testing.T) {
	t.Parallel()

	const url = "https://www.mas.gov.sg/news"
	f := newStubFetcher()
	f.responses[url] = []byte(listingHTML)
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadPublications(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	// The titleless and the undated entries are skipped.
	require.Len(t, pubs, 2)

	require.Equal(t, regulator.Publication{
		Regulator:   "MAS",
		ContentType: regulator.ContentTypeNews,
		Title:       "Circular on Technology Risk",
		PublishedAt: time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC),
		URL:         "https://www.mas.gov.sg/regulation/circulars/circular-1",
		Category:    "Circulars",
	}, pubs[0])
	require.Equal(t, "Notice 626 on AML/CFT", pubs[1].Title)

	// News listings are not followed through to publication pages.
	require.Equal(t, 1, len(f.calls))
}

func TestScraper_LoadPublicationsRegulationFollowsPages(t *testing.T) {
	t.Parallel()

	const url = "https://www.mas.gov.sg/regulation"
	f := newStubFetcher()
	f.responses[url] = []byte(listingHTML)
	f.responses["https://www.mas.gov.sg/regulation/circulars/circular-1"] = []byte(publicationHTML)
	// The second publication page fails to load; its listing entry survives
	// without related links.
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadPublications(context.Background(), url, regulator.ContentTypeRegulation)
	require.NoError(t, err)
	require.Len(t, pubs, 2)

	require.Equal(t, []string{
		"/-/media/mas/notices/notice-626.pdf",
		"/regulation/guidelines/aml-guidelines",
	}, pubs[0].RelatedURLs)
	require.Empty(t, pubs[1].RelatedURLs)
}

func TestScraper_LoadPublicationsFetchError(t *testing.T) {
	t.Parallel()

	s := New(newStubFetcher(), testProfile(), nil)
	_, err := s.LoadPublications(context.Background(), "https://www.mas.gov.sg/missing", regulator.ContentTypeNews)
	require.Error(t, err)
}

func TestScraper_ParseListingEmptyPage(t *testing.T) {
	t.Parallel()

	const url = "https://www.mas.gov.sg/news"
	f := newStubFetcher()
	f.responses[url] = []byte("<html><body><p>No results found.</p></body></html>")
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadPublications(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	require.Empty(t, pubs)
}
