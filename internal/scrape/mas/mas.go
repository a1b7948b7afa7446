// Package mas scrapes Monetary Authority of Singapore publications from
// the MAS search-result listings.
package mas

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/regulator"
)

const listingDateFormat = "2 January 2006"

// Scraper loads MAS publications.
type Scraper struct {
	fetcher regulator.PageFetcher
	profile regulator.Profile
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
		logger:  logger.Named("mas"),
	}
}

// LoadPublications fetches one listing page and parses its publications.
// For regulations, each publication page is followed to collect related
// PDF and article links; a failed follow-up leaves the publication with
// its listing-level links only.
func (s *Scraper) LoadPublications(ctx context.Context, url string, ct regulator.ContentType) ([]regulator.Publication, error) {
	body, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("mas: load listing %s: %w", url, err)
	}
	pubs, err := s.parseListing(body, ct)
	if err != nil {
		return nil, err
	}

	if ct == regulator.ContentTypeRegulation {
		for i := range pubs {
			related, err := s.relatedLinks(ctx, pubs[i].URL)
			if err != nil {
				s.logger.Warn("related links fetch failed",
					zap.String("url", pubs[i].URL), zap.Error(err))
				continue
			}
			pubs[i].RelatedURLs = append(pubs[i].RelatedURLs, related...)
		}
	}
	return pubs, nil
}

func (s *Scraper) parseListing(html []byte, ct regulator.ContentType) ([]regulator.Publication, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("mas: parse listing: %w", err)
	}

	items := doc.Find("li.mas-search-page__result")
	s.logger.Info("found listing entries", zap.Int("count", items.Length()))

	pubs := make([]regulator.Publication, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		dateText := strings.TrimSpace(item.Find("div").FilterFunction(func(_ int, d *goquery.Selection) bool {
			return strings.Contains(d.Text(), "Date:") && d.Children().Length() == 0
		}).First().Text())
		link := item.Find("a.mas-link--no-underline").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Find("span.mas-link__text").Text())
		category := strings.TrimSpace(item.Find("div.mas-tag__text").First().Text())

		if dateText == "" || href == "" || title == "" || category == "" {
			s.logger.Warn("skipping a publication due to missing data")
			return
		}

		_, rawDate, found := strings.Cut(dateText, ": ")
		if !found {
			s.logger.Warn("skipping publication with malformed date", zap.String("date", dateText))
			return
		}
		publishedAt, err := time.Parse(listingDateFormat, strings.TrimSpace(rawDate))
		if err != nil {
			s.logger.Warn("skipping publication with unparsable date", zap.String("date", rawDate))
			return
		}

		pubs = append(pubs, regulator.Publication{
			Regulator:   s.profile.Name,
			ContentType: ct,
			Title:       title,
			PublishedAt: publishedAt,
			URL:         strings.TrimSpace(href),
			Category:    category,
		})
	})
	return pubs, nil
}

// relatedLinks extracts PDF links and related-regulation article links
// from a MAS publication page.
func (s *Scraper) relatedLinks(ctx context.Context, url string) ([]string, error) {
	body, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mas: parse publication page: %w", err)
	}

	var links []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if ok && strings.Contains(strings.ToLower(href), ".pdf") {
			links = append(links, strings.TrimSpace(href))
		}
	})
	doc.Find("div.related-to-this-regulation-listing--result h1.mas-search-card__title a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			links = append(links, strings.TrimSpace(href))
		}
	})
	return links, nil
}
