// Package foedb implements a read-only client for the chunked, versioned
// remote JSON store ("FoeDB") some regulators publish their listings in.
//
// The store is addressed by computed offsets: records are numbered by a
// zero-based sort id, laid out contiguously inside fixed-size chunks, and
// chunks are grouped into directories. The client discovers the current
// store version, loads metadata and secondary indexes, and resolves logical
// records by sort id, transparently paging in and caching the underlying
// chunks.
package foedb

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kodexai/regwatch/internal/metrics"
	"github.com/kodexai/regwatch/internal/regulator"
)

// SyntheticIDField is the record key carrying the resolving sort id.
const SyntheticIDField = "$foedb:id"

// Order selects the direction FetchN walks sort ids in. The store's
// "newest first" ordering, if any, is a property of how the publisher
// assigns sort ids, so the choice is left to configuration.
type Order string

// FetchN orderings.
const (
	OrderAscending  Order = "ascending"
	OrderDescending Order = "descending"
)

// Config identifies one remote store.
type Config struct {
	// Host is the store root, e.g. "https://www.ecb.europa.eu/foedb/dbs/foedb".
	Host string `mapstructure:"host"`
	// Store is the database name under the root, e.g. "publications.en".
	Store string `mapstructure:"store"`
	// PinnedVersion, when set, overrides the newest-version selection.
	PinnedVersion string `mapstructure:"pinned_version"`
	// Order controls FetchN direction. Defaults to OrderAscending.
	Order Order `mapstructure:"order"`
}

// StoreVersion identifies an immutable snapshot of the remote store.
type StoreVersion struct {
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// LoadedMap is a dictionary-encoded column: raw chunk values for the field
// are positions into Index.
type LoadedMap struct {
	Index []any `json:"index"`
}

// Metadata defines the record layout and paging units for one version.
type Metadata struct {
	ChunkSize      int                  `json:"chunk_size"`
	ChunkGroupSize int                  `json:"chunk_group_size"`
	Header         []string             `json:"header"`
	TotalRecords   int                  `json:"total_records"`
	Indexes        []string             `json:"indexes"`
	LoadedMaps     map[string]LoadedMap `json:"loaded_maps"`
}

// IndexEntry describes one categorical value of a secondary index.
type IndexEntry struct {
	ValueID             int
	TotalRecords        int
	FirstSortIDPerChunk []int
	LastSortIDPerChunk  []int
	NumberOfChunks      int
}

// Index maps an index value (e.g. a category label) to its descriptor.
type Index map[string]IndexEntry

// Record is a resolved store row keyed by header field name, plus the
// synthetic SyntheticIDField entry.
type Record map[string]any

// Fields whose raw list-of-string values carry embedded related rows.
var relatedFields = map[string]struct{}{
	"relatedPublications": {},
	"childrenPublication": {},
}

// Client resolves logical records from a versioned chunked remote store.
// Chunks and indexes are cached for the life of the client; a cached chunk
// is valid only for the bootstrapped (version, hash) pair and the caches
// are reset whenever Bootstrap runs again.
type Client struct {
	cfg     Config
	fetcher regulator.PageFetcher
	logger  *zap.Logger

	mu      sync.RWMutex
	version *StoreVersion
	meta    *Metadata
	indexes map[string]Index
	chunks  map[int][]any

	flight singleflight.Group
}

// New constructs a Client. Bootstrap must run before any resolution call.
func New(cfg Config, fetcher regulator.PageFetcher, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Order == "" {
		cfg.Order = OrderAscending
	}
	return &Client{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.Named("foedb"),
	}
}

// Bootstrap discovers the current store version and loads its metadata.
// Calling it again is an explicit refresh: the chunk and index caches are
// discarded, since cached content is only valid per (version, hash).
func (c *Client) Bootstrap(ctx context.Context) error {
	body, err := c.fetcher.Get(ctx, c.versionsURL())
	if err != nil {
		return fmt.Errorf("%w: fetch versions: %v", ErrStoreUnavailable, err)
	}
	var versions []StoreVersion
	if err := json.Unmarshal(body, &versions); err != nil {
		return fmt.Errorf("%w: decode versions: %v", ErrStoreUnavailable, err)
	}
	if len(versions) == 0 {
		return fmt.Errorf("%w: empty version listing", ErrStoreUnavailable)
	}

	selected := versions[0]
	if c.cfg.PinnedVersion != "" {
		pos := slices.IndexFunc(versions, func(v StoreVersion) bool {
			return v.Version == c.cfg.PinnedVersion
		})
		if pos < 0 {
			return fmt.Errorf("%w: pinned version %q not in listing", ErrStoreUnavailable, c.cfg.PinnedVersion)
		}
		selected = versions[pos]
	}

	body, err = c.fetcher.Get(ctx, c.metadataURL(selected))
	if err != nil {
		return fmt.Errorf("%w: fetch metadata: %v", ErrStoreUnavailable, err)
	}
	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return fmt.Errorf("%w: decode metadata: %v", ErrStoreUnavailable, err)
	}
	if meta.ChunkSize < 1 || meta.ChunkGroupSize < 1 {
		return fmt.Errorf("%w: invalid chunk sizing %d/%d", ErrStoreUnavailable, meta.ChunkSize, meta.ChunkGroupSize)
	}
	if len(meta.Header) == 0 {
		return fmt.Errorf("%w: empty header", ErrStoreUnavailable)
	}

	c.mu.Lock()
	c.version = &selected
	c.meta = &meta
	c.indexes = make(map[string]Index)
	c.chunks = make(map[int][]any)
	c.mu.Unlock()

	c.logger.Info("store bootstrapped",
		zap.String("store", c.cfg.Store),
		zap.String("version", selected.Version),
		zap.Int("total_records", meta.TotalRecords),
	)
	return nil
}

// Version returns the bootstrapped store version.
func (c *Client) Version() (StoreVersion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version == nil {
		return StoreVersion{}, ErrNotBootstrapped
	}
	return *c.version, nil
}

// Metadata returns the bootstrapped store metadata.
func (c *Client) Metadata() (Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.meta == nil {
		return Metadata{}, ErrNotBootstrapped
	}
	return *c.meta, nil
}

// LoadIndex fetches and caches the descriptor for a named secondary index.
func (c *Client) LoadIndex(ctx context.Context, name string) (Index, error) {
	c.mu.RLock()
	meta := c.meta
	version := c.version
	cached, ok := c.indexes[name]
	c.mu.RUnlock()
	if meta == nil {
		return nil, ErrNotBootstrapped
	}
	if ok {
		return cached, nil
	}
	if !slices.Contains(meta.Indexes, name) {
		return nil, fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}

	body, err := c.fetcher.Get(ctx, c.indexURL(*version, name))
	if err != nil {
		return nil, fmt.Errorf("foedb: fetch index %q: %w", name, err)
	}
	var entries []struct {
		Value               string `json:"value"`
		TotalRecords        int    `json:"total_records"`
		FirstSortIDPerChunk []int  `json:"first_sort_id_per_chunk"`
		LastSortIDPerChunk  []int  `json:"last_sort_id_per_chunk"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("foedb: decode index %q: %w", name, err)
	}

	idx := make(Index, len(entries))
	for i, e := range entries {
		idx[e.Value] = IndexEntry{
			ValueID:             i,
			TotalRecords:        e.TotalRecords,
			FirstSortIDPerChunk: e.FirstSortIDPerChunk,
			LastSortIDPerChunk:  e.LastSortIDPerChunk,
			NumberOfChunks:      len(e.FirstSortIDPerChunk),
		}
	}

	c.mu.Lock()
	c.indexes[name] = idx
	c.mu.Unlock()
	return idx, nil
}

// Resolve returns the record for one sort id. Repeated resolution of ids
// in the same chunk issues exactly one underlying fetch for that chunk
// across the session.
func (c *Client) Resolve(ctx context.Context, sortID int) (Record, error) {
	c.mu.RLock()
	meta := c.meta
	c.mu.RUnlock()
	if meta == nil {
		return nil, ErrNotBootstrapped
	}
	if sortID < 0 || sortID >= meta.TotalRecords {
		return nil, fmt.Errorf("%w: sort id %d not in [0, %d)", ErrRecordOutOfRange, sortID, meta.TotalRecords)
	}

	chunk, err := c.chunk(ctx, meta, sortID/meta.ChunkSize)
	if err != nil {
		return nil, err
	}

	width := len(meta.Header)
	start := (sortID % meta.ChunkSize) * width
	end := start + width
	if end > len(chunk) {
		return nil, fmt.Errorf("foedb: chunk slice [%d:%d) exceeds chunk of %d values", start, end, len(chunk))
	}
	return c.buildRecord(meta, sortID, chunk[start:end]), nil
}

// ResolveRange resolves sort ids [start, end) in ascending order, clamped
// to the store size.
func (c *Client) ResolveRange(ctx context.Context, start, end int) ([]Record, error) {
	c.mu.RLock()
	meta := c.meta
	c.mu.RUnlock()
	if meta == nil {
		return nil, ErrNotBootstrapped
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: sort id %d not in [0, %d)", ErrRecordOutOfRange, start, meta.TotalRecords)
	}
	end = min(end, meta.TotalRecords)

	records := make([]Record, 0, max(end-start, 0))
	for id := start; id < end; id++ {
		rec, err := c.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchN resolves up to n records, walking sort ids in the configured
// order: ascending from 0, or descending from the highest id.
func (c *Client) FetchN(ctx context.Context, n int) ([]Record, error) {
	c.mu.RLock()
	meta := c.meta
	c.mu.RUnlock()
	if meta == nil {
		return nil, ErrNotBootstrapped
	}
	n = min(n, meta.TotalRecords)
	if n <= 0 {
		return nil, nil
	}
	if c.cfg.Order == OrderDescending {
		records := make([]Record, 0, n)
		for id := meta.TotalRecords - 1; id >= meta.TotalRecords-n; id-- {
			rec, err := c.Resolve(ctx, id)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, nil
	}
	return c.ResolveRange(ctx, 0, n)
}

// ResolveByIndex resolves up to limit records carrying one categorical
// value, using the index-scoped chunk files instead of a full scan.
func (c *Client) ResolveByIndex(ctx context.Context, name, value string, limit int) ([]Record, error) {
	idx, err := c.LoadIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, ok := idx[value]
	if !ok {
		return nil, fmt.Errorf("%w: index %q value %q", ErrIndexValueNotFound, name, value)
	}

	c.mu.RLock()
	version := *c.version
	c.mu.RUnlock()

	records := make([]Record, 0, min(limit, entry.TotalRecords))
	for n := 0; n < entry.NumberOfChunks && len(records) < limit; n++ {
		body, err := c.fetcher.Get(ctx, c.indexChunkURL(version, name, entry.ValueID, n))
		if err != nil {
			return nil, fmt.Errorf("%w: index %q chunk %d: %v", ErrChunkFetchFailed, name, n, err)
		}
		var sortIDs []int
		if err := json.Unmarshal(body, &sortIDs); err != nil {
			return nil, fmt.Errorf("%w: index %q chunk %d: %v", ErrChunkFetchFailed, name, n, err)
		}
		for _, id := range sortIDs {
			rec, err := c.Resolve(ctx, id)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			if len(records) >= limit {
				break
			}
		}
	}
	return records, nil
}

// chunk returns the decoded chunk, fetching and caching it on first use.
// Concurrent requests for the same uncached chunk share one fetch; a
// failed fetch is never cached.
func (c *Client) chunk(ctx context.Context, meta *Metadata, chunkID int) ([]any, error) {
	c.mu.RLock()
	cached, ok := c.chunks[chunkID]
	version := *c.version
	c.mu.RUnlock()
	if ok {
		metrics.StoreChunkCacheHit(c.cfg.Store)
		return cached, nil
	}

	v, err, _ := c.flight.Do(strconv.Itoa(chunkID), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.chunks[chunkID]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		groupID := chunkID / meta.ChunkGroupSize
		body, err := c.fetcher.Get(ctx, c.chunkURL(version, groupID, chunkID))
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrChunkFetchFailed, chunkID, err)
		}
		var decoded []any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrChunkFetchFailed, chunkID, err)
		}

		c.mu.Lock()
		c.chunks[chunkID] = decoded
		c.mu.Unlock()
		metrics.StoreChunkFetch(c.cfg.Store)
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// buildRecord maps one raw field slice into a named record. Fields present
// in loaded_maps are decoded through the dictionary; the related fields are
// expanded element-wise, dropping rows that fail to decode.
func (c *Client) buildRecord(meta *Metadata, sortID int, raw []any) Record {
	rec := make(Record, len(meta.Header)+1)
	for i, name := range meta.Header {
		if lm, ok := meta.LoadedMaps[name]; ok {
			pos, ok := asInt(raw[i])
			if !ok || pos < 0 || pos >= len(lm.Index) {
				c.logger.Warn("loaded map position out of range",
					zap.String("field", name), zap.Any("value", raw[i]))
				rec[name] = raw[i]
				continue
			}
			rec[name] = lm.Index[pos]
			continue
		}

		value := raw[i]
		if _, ok := relatedFields[name]; ok {
			if list, ok := value.([]any); ok {
				rec[name] = c.expandRelated(name, sortID, list)
				continue
			}
		}
		rec[name] = value
	}
	rec[SyntheticIDField] = sortID
	return rec
}

func (c *Client) expandRelated(field string, sortID int, list []any) []RelatedRecord {
	expanded := make([]RelatedRecord, 0, len(list))
	for _, element := range list {
		row, ok := element.(string)
		if !ok || row == "" {
			continue
		}
		related, err := DecodeRelated(row)
		if err != nil {
			c.logger.Warn("dropping undecodable related publication",
				zap.String("field", field),
				zap.Int("sort_id", sortID),
				zap.String("row", row),
				zap.Error(err),
			)
			continue
		}
		expanded = append(expanded, related)
	}
	return expanded
}

func (c *Client) storeRoot() string {
	return fmt.Sprintf("%s/%s", c.cfg.Host, c.cfg.Store)
}

func (c *Client) versionedRoot(v StoreVersion) string {
	return fmt.Sprintf("%s/%s/%s", c.storeRoot(), v.Version, v.Hash)
}

func (c *Client) versionsURL() string {
	return c.storeRoot() + "/versions.json"
}

func (c *Client) metadataURL(v StoreVersion) string {
	return c.versionedRoot(v) + "/metadata.json"
}

func (c *Client) indexURL(v StoreVersion, name string) string {
	return fmt.Sprintf("%s/indexes/%s/index.json", c.versionedRoot(v), name)
}

func (c *Client) indexChunkURL(v StoreVersion, name string, valueID, n int) string {
	return fmt.Sprintf("%s/indexes/%s/%d/chunk_%d.json", c.versionedRoot(v), name, valueID, n)
}

// The group id selects the directory, the chunk id selects the file.
func (c *Client) chunkURL(v StoreVersion, groupID, chunkID int) string {
	return fmt.Sprintf("%s/data/%d/chunk_%d.json", c.versionedRoot(v), groupID, chunkID)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
