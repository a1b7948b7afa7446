// Package bundesbank scrapes Deutsche Bundesbank publications from the
// press RSS feed and the teaser listing pages.
package bundesbank

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/regulator"
)

const listingDateFormat = "02.01.2006"

// Scraper loads Bundesbank publications.
type Scraper struct {
	fetcher regulator.PageFetcher
	profile regulator.Profile
	parser  *gofeed.Parser
	logger  *zap.Logger
}

// New constructs a Scraper.
func New(fetcher regulator.PageFetcher, profile regulator.Profile, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		profile: profile,
		parser:  gofeed.NewParser(),
		logger:  logger.Named("bundesbank"),
	}
}

// FeedFetcher exposes the feed-profile fetch used for RSS URLs. The plain
// PageFetcher Get is used when the implementation has no dedicated feed
// method.
type FeedFetcher interface {
	GetFeed(ctx context.Context, url string) ([]byte, error)
}

// LoadFeed fetches and parses one RSS feed of publications.
func (s *Scraper) LoadFeed(ctx context.Context, feedURL string, ct regulator.ContentType) ([]regulator.Publication, error) {
	var (
		body []byte
		err  error
	)
	if ff, ok := s.fetcher.(FeedFetcher); ok {
		body, err = ff.GetFeed(ctx, feedURL)
	} else {
		body, err = s.fetcher.Get(ctx, feedURL)
	}
	if err != nil {
		return nil, fmt.Errorf("bundesbank: load feed %s: %w", feedURL, err)
	}

	feed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("bundesbank: parse feed %s: %w", feedURL, err)
	}

	pubs := make([]regulator.Publication, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" || item.PublishedParsed == nil {
			s.logger.Warn("skipping feed entry with missing data", zap.String("title", item.Title))
			continue
		}
		var related []string
		for _, enc := range item.Enclosures {
			if enc.URL != "" {
				related = append(related, enc.URL)
			}
		}
		pubs = append(pubs, regulator.Publication{
			Regulator:   s.profile.Name,
			ContentType: ct,
			Title:       item.Title,
			PublishedAt: item.PublishedParsed.UTC(),
			URL:         item.Link,
			RelatedURLs: related,
		})
	}
	s.logger.Info("parsed feed", zap.String("url", feedURL), zap.Int("publications", len(pubs)))
	return pubs, nil
}

// LoadListing fetches one teaser listing page, parses its publications and
// follows each non-PDF publication page for related file links.
func (s *Scraper) LoadListing(ctx context.Context, pageURL string, ct regulator.ContentType) ([]regulator.Publication, error) {
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("bundesbank: load listing %s: %w", pageURL, err)
	}
	pubs, err := s.parseListing(body, ct)
	if err != nil {
		return nil, err
	}

	for i := range pubs {
		if isPDF(pubs[i].URL) {
			continue
		}
		// Teaser hrefs are site-relative.
		followURL := absoluteURL(s.profile.BaseURL, pubs[i].URL)
		related, err := s.relatedFiles(ctx, followURL)
		if err != nil {
			s.logger.Warn("related files fetch failed", zap.String("url", followURL), zap.Error(err))
			continue
		}
		pubs[i].RelatedURLs = append(pubs[i].RelatedURLs, related...)
	}
	return pubs, nil
}

func (s *Scraper) parseListing(html []byte, ct regulator.ContentType) ([]regulator.Publication, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("bundesbank: parse listing: %w", err)
	}

	items := doc.Find("div.collection__item")
	pubs := make([]regulator.Publication, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a.teasable__link").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(item.Find("div.teasable__title--marked div").First().Text())

		// The teaser description leads with the date: "02.01.2006: ...".
		description := strings.TrimSpace(item.Find("div.teasable__text p").First().Text())
		dateText, _, _ := strings.Cut(description, ":")
		publishedAt, err := time.Parse(listingDateFormat, strings.TrimSpace(dateText))
		if err != nil {
			s.logger.Warn("failed to parse date from teaser", zap.String("description", description))
			return
		}

		if title == "" || href == "" {
			s.logger.Warn("failed to parse title or link from teaser")
			return
		}

		pubs = append(pubs, regulator.Publication{
			Regulator:   s.profile.Name,
			ContentType: ct,
			Title:       title,
			PublishedAt: publishedAt,
			URL:         strings.TrimSpace(href),
		})
	})
	return pubs, nil
}

// relatedFiles extracts the file links from a publication page's file
// navigation list.
func (s *Scraper) relatedFiles(ctx context.Context, pageURL string) ([]string, error) {
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bundesbank: parse publication page: %w", err)
	}

	var files []string
	doc.Find("main nav ul li a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			files = append(files, strings.TrimSpace(href))
		}
	})
	return files, nil
}

func absoluteURL(base, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || base == "" {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(u).String()
}

func isPDF(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}
