package bundesbank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kodexai/regwatch/internal/regulator"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Bundesbank Press</title>
    <item>
      <title>Monthly Report May 2024</title>
      <link>https://www.bundesbank.de/en/press/monthly-report-may-2024</link>
      <pubDate>Wed, 15 May 2024 10:00:00 +0200</pubDate>
      <enclosure url="https://www.bundesbank.de/resource/blob/123/report.pdf" type="application/pdf" length="1024"/>
    </item>
    <item>
      <title>Undated announcement</title>
      <link>https://www.bundesbank.de/en/press/undated</link>
    </item>
    <item>
      <title></title>
      <link>https://www.bundesbank.de/en/press/untitled</link>
      <pubDate>Tue, 14 May 2024 09:00:00 +0200</pubDate>
    </item>
  </channel>
</rss>`

const listingHTML = `
<html><body>
<div class="collection">
  <div class="collection__item">
    <a class="teasable__link" href="/en/press/speech-2024"></a>
    <div class="teasable__title--marked"><div>Speech on price stability</div></div>
    <div class="teasable__text"><p>15.05.2024: Speech held at the banking congress</p></div>
  </div>
  <div class="collection__item">
    <a class="teasable__link" href="/resource/blob/456/statement.pdf"></a>
    <div class="teasable__title--marked"><div>Statement on capital buffers</div></div>
    <div class="teasable__text"><p>14.05.2024: Statement of the board</p></div>
  </div>
  <div class="collection__item">
    <a class="teasable__link" href="/en/press/broken"></a>
    <div class="teasable__title--marked"><div>Broken teaser</div></div>
    <div class="teasable__text"><p>no leading date here</p></div>
  </div>
</div>
</body></html>`

const publicationHTML = `
<html><body>
<main>
  <nav><ul>
    <li><a href="/resource/blob/789/speech.pdf">Speech PDF</a></li>
    <li><a href="/resource/blob/790/slides.pdf">Slides</a></li>
  </ul></nav>
</main>
</body></html>`

type stubFetcher struct {
	responses map[string][]byte
	feedCalls int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string][]byte{}}
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := s.responses[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return body, nil
}

func (s *stubFetcher) GetFeed(ctx context.Context, url string) ([]byte, error) {
	s.feedCalls++
	return s.Get(ctx, url)
}

func testProfile() regulator.Profile {
	return regulator.Profile{Name: "BBK", BaseURL: "https://www.bundesbank.de"}
}

func TestScraper_LoadFeed(t *testing.T) {
	t.Parallel()

	const url = "https://www.bundesbank.de/service/rss/en/press"
	f := newStubFetcher()
	f.responses[url] = []byte(feedXML)
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadFeed(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	// The undated and the untitled entries are skipped.
	require.Len(t, pubs, 1)

	require.Equal(t, regulator.Publication{
		Regulator:   "BBK",
		ContentType: regulator.ContentTypeNews,
		Title:       "Monthly Report May 2024",
		PublishedAt: time.Date(2024, time.May, 15, 8, 0, 0, 0, time.UTC),
		URL:         "https://www.bundesbank.de/en/press/monthly-report-may-2024",
		RelatedURLs: []string{"https://www.bundesbank.de/resource/blob/123/report.pdf"},
	}, pubs[0])

	// The feed goes through the feed-profile fetch.
	require.Equal(t, 1, f.feedCalls)
}

func TestScraper_LoadFeedMalformed(t *testing.T) {
	t.Parallel()

	const url = "https://www.bundesbank.de/service/rss/en/press"
	f := newStubFetcher()
	f.responses[url] = []byte("<html>not a feed</html>")
	s := New(f, testProfile(), nil)

	_, err := s.LoadFeed(context.Background(), url, regulator.ContentTypeNews)
	require.Error(t, err)
}

func TestScraper_LoadListing(t *testing.T) {
	t.Parallel()

	const url = "https://www.bundesbank.de/en/press/speeches"
	f := newStubFetcher()
	f.responses[url] = []byte(listingHTML)
	f.responses["https://www.bundesbank.de/en/press/speech-2024"] = []byte(publicationHTML)
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadListing(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	// The dateless teaser is skipped.
	require.Len(t, pubs, 2)

	require.Equal(t, "Speech on price stability", pubs[0].Title)
	require.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), pubs[0].PublishedAt)
	require.Equal(t, []string{
		"/resource/blob/789/speech.pdf",
		"/resource/blob/790/slides.pdf",
	}, pubs[0].RelatedURLs)

	// Direct PDF publications are not followed through.
	require.Equal(t, "Statement on capital buffers", pubs[1].Title)
	require.Empty(t, pubs[1].RelatedURLs)
}

func TestScraper_LoadListingFollowFailureKeepsPublication(t *testing.T) {
	t.Parallel()

	const url = "https://www.bundesbank.de/en/press/speeches"
	f := newStubFetcher()
	f.responses[url] = []byte(listingHTML)
	// No response for the publication page: the follow fails, the
	// publication survives without related links.
	s := New(f, testProfile(), nil)

	pubs, err := s.LoadListing(context.Background(), url, regulator.ContentTypeNews)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	require.Empty(t, pubs[0].RelatedURLs)
}

func TestIsPDF(t *testing.T) {
	t.Parallel()

	require.True(t, isPDF("https://www.bundesbank.de/resource/blob/1/x.PDF"))
	require.True(t, isPDF("/resource/blob/1/x.pdf"))
	require.False(t, isPDF("https://www.bundesbank.de/en/press/article"))
	require.False(t, isPDF("https://www.bundesbank.de/download?file=x.pdf"))
}
