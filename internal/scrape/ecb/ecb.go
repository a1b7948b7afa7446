// Package ecb scrapes European Central Bank publications from HTML
// listings and from the chunked FoeDB store.
package ecb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/foedb"
	"github.com/kodexai/regwatch/internal/regulator"
)

// Numeric publication type ids used by the store's "type" column.
const (
	newsTypePressRelease = 1
	newsTypeLetterToMEPs = 18
)

const listingDateFormat = "2 January 2006"

// Scraper loads ECB publications.
type Scraper struct {
	fetcher regulator.PageFetcher
	store   *foedb.Client
	profile regulator.Profile
	logger  *zap.Logger
}

// New constructs a Scraper. The store client may be nil when only HTML
// listings are scraped.
func New(fetcher regulator.PageFetcher, store *foedb.Client, profile regulator.Profile, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		store:   store,
		profile: profile,
		logger:  logger.Named("ecb"),
	}
}

// LoadListing fetches one listing page and parses its publications.
// Returned URLs may still be relative; the normalizer resolves them.
func (s *Scraper) LoadListing(ctx context.Context, url string, ct regulator.ContentType) ([]regulator.Publication, error) {
	body, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ecb: load listing %s: %w", url, err)
	}
	pubs, err := s.parseListing(body, ct)
	if err != nil {
		return nil, err
	}
	s.logger.Info("parsed listing", zap.String("url", url), zap.Int("publications", len(pubs)))
	return pubs, nil
}

// parseListing walks the dt/dd pairs the ECB listing pages are built
// from: the dt holds the date, the adjacent dd the linked title and an
// optional nested dl of per-item document links. Pairing by adjacency
// keeps the nested dl's own dt/dd entries from shifting the listing;
// those fail the date parse and are skipped.
func (s *Scraper) parseListing(html []byte, ct regulator.ContentType) ([]regulator.Publication, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ecb: parse listing: %w", err)
	}

	var pubs []regulator.Publication
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}

		dateText := strings.TrimSpace(dt.Text())
		publishedAt, err := time.Parse(listingDateFormat, dateText)
		if err != nil {
			s.logger.Debug("skipping listing entry with unparsable date", zap.String("date", dateText))
			return
		}

		link := dd.Find("a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			s.logger.Warn("skipping listing entry with missing title or link")
			return
		}

		var related []string
		dd.Find("dl a").Each(func(_ int, a *goquery.Selection) {
			if h, ok := a.Attr("href"); ok {
				related = append(related, strings.TrimSpace(h))
			}
		})

		pubs = append(pubs, regulator.Publication{
			Regulator:   s.profile.Name,
			ContentType: ct,
			Title:       title,
			PublishedAt: publishedAt,
			URL:         href,
			RelatedURLs: related,
		})
	})
	return pubs, nil
}

// LoadFromStore loads up to limit publications of the given content type
// from the chunked store, scanning at most scanLimit records. The store
// interleaves publication kinds, so matching rows are filtered by the
// numeric type id.
func (s *Scraper) LoadFromStore(ctx context.Context, ct regulator.ContentType, limit, scanLimit int) ([]regulator.Publication, error) {
	if s.store == nil {
		return nil, errors.New("ecb: no store client configured")
	}

	records, err := s.store.FetchN(ctx, scanLimit)
	if errors.Is(err, foedb.ErrNotBootstrapped) {
		if err := s.store.Bootstrap(ctx); err != nil {
			return nil, fmt.Errorf("ecb: bootstrap store: %w", err)
		}
		records, err = s.store.FetchN(ctx, scanLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("ecb: fetch store records: %w", err)
	}

	typeID := newsTypePressRelease
	if ct == regulator.ContentTypeRegulation {
		typeID = newsTypeLetterToMEPs
	}

	pubs := make([]regulator.Publication, 0, limit)
	for _, rec := range records {
		id, ok := recordTypeID(rec)
		if !ok || id != typeID {
			continue
		}
		pub, err := s.fromRecord(ct, rec)
		if err != nil {
			s.logger.Warn("skipping store record",
				zap.Any("sort_id", rec[foedb.SyntheticIDField]),
				zap.Error(err),
			)
			continue
		}
		pubs = append(pubs, pub)
		if len(pubs) >= limit {
			break
		}
	}
	s.logger.Info("loaded store publications",
		zap.String("content_type", string(ct)),
		zap.Int("scanned", len(records)),
		zap.Int("matched", len(pubs)),
	)
	return pubs, nil
}

// fromRecord maps one resolved store record into a publication. Child
// publication PDF links become related URLs.
func (s *Scraper) fromRecord(ct regulator.ContentType, rec foedb.Record) (regulator.Publication, error) {
	props, _ := rec["publicationProperties"].(map[string]any)
	title, _ := props["Title"].(string)
	if title == "" {
		return regulator.Publication{}, errors.New("record has no title")
	}

	ts, ok := rec["pub_timestamp"].(float64)
	if !ok {
		return regulator.Publication{}, errors.New("record has no pub_timestamp")
	}

	docTypes, _ := rec["documentTypes"].([]any)
	if len(docTypes) == 0 {
		return regulator.Publication{}, errors.New("record has no documentTypes")
	}
	docURL, _ := docTypes[0].(string)
	if docURL == "" {
		return regulator.Publication{}, errors.New("record documentTypes[0] is not a url")
	}

	category, _ := rec["Taxonomy"].(string)

	var related []string
	if children, ok := rec["childrenPublication"].([]foedb.RelatedRecord); ok {
		for _, child := range children {
			related = append(related, child.PDFURLs...)
		}
	}

	return regulator.Publication{
		Regulator:   s.profile.Name,
		ContentType: ct,
		Title:       title,
		PublishedAt: time.Unix(int64(ts), 0).UTC(),
		URL:         docURL,
		Category:    category,
		RelatedURLs: related,
	}, nil
}

func recordTypeID(rec foedb.Record) (int, bool) {
	switch v := rec["type"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
