package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/codyseavey/optcg-tracker/internal/catalog"
	"github.com/codyseavey/optcg-tracker/internal/metrics"
	"github.com/codyseavey/optcg-tracker/internal/models"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
	searchCacheSize    = 256
)

// Catalog is an immutable, indexed view of one loaded catalog artifact.
type Catalog struct {
	entries   []models.CatalogEntry
	codes     []string
	byCode    map[string]int
	bySet     map[string][]int
	setNames  map[string]string
	setTotals map[string]int
}

// NewCatalog indexes entries. The entries are sorted by code if they are not already.
func NewCatalog(entries []models.CatalogEntry) *Catalog {
	sorted := sort.SliceIsSorted(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	if !sorted {
		entries = append([]models.CatalogEntry(nil), entries...)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Code < entries[j].Code
		})
	}

	c := &Catalog{
		entries:   entries,
		codes:     make([]string, len(entries)),
		byCode:    make(map[string]int, len(entries)),
		bySet:     make(map[string][]int),
		setNames:  make(map[string]string),
		setTotals: make(map[string]int),
	}
	for i := range entries {
		e := &entries[i]
		code := models.NormalizeCode(e.Code)
		c.codes[i] = code
		if _, dup := c.byCode[code]; !dup {
			c.byCode[code] = i
		}
		set := e.SetKey()
		c.bySet[set] = append(c.bySet[set], i)
		c.setTotals[set]++
		if name := strings.TrimSpace(e.SetName); name != "" && c.setNames[set] == "" {
			c.setNames[set] = name
		}
	}
	return c
}

// Entries returns the catalog in code order. Callers must not modify it.
func (c *Catalog) Entries() []models.CatalogEntry {
	return c.entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// LookupByCode is a case-insensitive exact match; nil when absent.
func (c *Catalog) LookupByCode(code string) *models.CatalogEntry {
	i, ok := c.byCode[models.NormalizeCode(code)]
	if !ok {
		return nil
	}
	return &c.entries[i]
}

func (c *Catalog) Exists(code string) bool {
	_, ok := c.byCode[models.NormalizeCode(code)]
	return ok
}

// SetTotal is the number of catalog entries declared for a set.
func (c *Catalog) SetTotal(set string) (int, bool) {
	n, ok := c.setTotals[models.SetKeyOf(set)]
	return n, ok
}

// SetName is the first non-empty set title seen for a set.
func (c *Catalog) SetName(set string) string {
	return c.setNames[models.SetKeyOf(set)]
}

// EntriesForSet returns the entries of one set in code order.
func (c *Catalog) EntriesForSet(set string) []models.CatalogEntry {
	idx := c.bySet[models.SetKeyOf(set)]
	out := make([]models.CatalogEntry, len(idx))
	for i, j := range idx {
		out[i] = c.entries[j]
	}
	return out
}

// matchIndexes returns the positions of every entry matching a lower-cased query.
func (c *Catalog) matchIndexes(q string) []int {
	var out []int
	for i := range c.entries {
		if entryMatches(&c.entries[i], q) {
			out = append(out, i)
		}
	}
	return out
}

func entryMatches(e *models.CatalogEntry, q string) bool {
	if containsFold(e.Code, q) || containsFold(e.Name, q) || containsFold(e.Set, q) ||
		containsFold(e.SetName, q) || containsFold(e.Type, q) {
		return true
	}
	for _, t := range e.Traits {
		if containsFold(t, q) {
			return true
		}
	}
	return false
}

// containsFold reports whether s contains the already lower-cased q.
func containsFold(s, q string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), q)
}

// CatalogService loads the catalog artifact once per process and serves
// lookups and searches against it. Reset drops the cached catalog.
type CatalogService struct {
	source string
	client *http.Client
	log    *zap.SugaredLogger

	group singleflight.Group

	mu      sync.RWMutex
	catalog *Catalog
	// lower-cased query -> matching entry positions of the current catalog
	searchCache *lru.Cache[string, []int]
}

// NewCatalogService creates a service reading the artifact from source, a
// file path or an http(s) URL.
func NewCatalogService(source string, log *zap.SugaredLogger) *CatalogService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cache, _ := lru.New[string, []int](searchCacheSize)
	return &CatalogService{
		source:      source,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		searchCache: cache,
	}
}

// Load returns the cached catalog, reading the artifact on first use.
// Concurrent first callers share one read.
func (s *CatalogService) Load(ctx context.Context) (*Catalog, error) {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := s.group.Do("catalog", func() (any, error) {
		s.mu.RLock()
		existing := s.catalog
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		entries, err := s.read(ctx)
		if err != nil {
			metrics.CatalogLoadsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		loaded := NewCatalog(entries)

		s.mu.Lock()
		s.catalog = loaded
		s.searchCache.Purge()
		s.mu.Unlock()

		metrics.CatalogLoadsTotal.WithLabelValues("success").Inc()
		metrics.CatalogSize.Set(float64(loaded.Len()))
		s.log.Infof("Loaded catalog with %d cards in %d sets from %s", loaded.Len(), len(loaded.setTotals), s.source)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Reset drops the cached catalog; the next Load reads the artifact again.
func (s *CatalogService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = nil
	s.searchCache.Purge()
}

func (s *CatalogService) read(ctx context.Context) ([]models.CatalogEntry, error) {
	if s.source == "" {
		return nil, fmt.Errorf("%w: no catalog path configured (set CATALOG_PATH)", ErrCatalogUnreadable)
	}

	var data []byte
	var err error
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		data, err = s.fetch(ctx)
	} else {
		data, err = os.ReadFile(s.source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v (build it with build-catalog)", ErrCatalogUnreadable, s.source, err)
	}

	entries, err := catalog.ReadArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array of catalog entries: %v", ErrCatalogUnreadable, s.source, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s holds no cards (expected a JSON array of entries with code and name)", ErrCatalogEmpty, s.source)
	}
	return entries, nil
}

func (s *CatalogService) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// LookupByCode returns the entry for code, or nil when absent.
func (s *CatalogService) LookupByCode(ctx context.Context, code string) (*models.CatalogEntry, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.LookupByCode(code), nil
}

func (s *CatalogService) Exists(ctx context.Context, code string) (bool, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return c.Exists(code), nil
}

// Search returns one page of entries whose code, name, set, set name, type
// or any trait contains query, case-insensitively, in catalog order. A blank
// query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string, limit, offset int) (*models.CatalogSearchResult, error) {
	result := &models.CatalogSearchResult{Cards: []models.CatalogEntry{}}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return result, nil
	}
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	matches, ok := s.searchCache.Get(q)
	if ok {
		metrics.CatalogSearchCacheHits.Inc()
	} else {
		metrics.CatalogSearchCacheMisses.Inc()
		matches = c.matchIndexes(q)
		s.mu.RLock()
		// only cache against the catalog the matches were computed on
		if s.catalog == c {
			s.searchCache.Add(q, matches)
		}
		s.mu.RUnlock()
	}

	result.TotalCount = len(matches)
	if offset >= len(matches) {
		return result, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	for _, i := range matches[offset:end] {
		result.Cards = append(result.Cards, c.entries[i])
	}
	result.HasMore = end < len(matches)
	return result, nil
}

// Suggest returns up to n catalog codes that fuzzily resemble code, best first.
func (c *Catalog) Suggest(code string, n int) []string {
	pattern := models.NormalizeCode(code)
	if pattern == "" || n <= 0 {
		return nil
	}
	matches := fuzzy.Find(pattern, c.codes)
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}
