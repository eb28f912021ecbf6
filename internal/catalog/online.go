package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

const (
	DefaultOnlineBaseURL = "https://optcgapi.com"
	onlineTimeout        = 60 * time.Second
)

// Endpoint is one card listing of the online card API.
type Endpoint struct {
	Name string
	Path string
}

// DefaultEndpoints are the full sets, starter decks and promos listings.
var DefaultEndpoints = []Endpoint{
	{Name: "Set Cards", Path: "/api/allSetCards/"},
	{Name: "Starter Deck Cards", Path: "/api/allSTCards/"},
	{Name: "Promo Cards", Path: "/api/allPromoCards/"},
}

// ErrNoEndpoints is returned when every endpoint of an online build failed.
var ErrNoEndpoints = errors.New("all card API endpoints failed")

// OnlineResult carries the built entries plus per-endpoint diagnostics.
type OnlineResult struct {
	RawRecords    int
	FailedSources []string
	Entries       []models.CatalogEntry
}

// OnlineBuilder builds a catalog from the online card API. Records sharing a
// code keep the first one seen.
type OnlineBuilder struct {
	client    *http.Client
	baseURL   string
	endpoints []Endpoint
	limiter   *rate.Limiter
	log       *zap.SugaredLogger
}

// NewOnlineBuilder creates a builder against baseURL, issuing at most
// requestsPerSec requests per second.
func NewOnlineBuilder(baseURL string, requestsPerSec float64, log *zap.SugaredLogger) *OnlineBuilder {
	if baseURL == "" {
		baseURL = DefaultOnlineBaseURL
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OnlineBuilder{
		client:    &http.Client{Timeout: onlineTimeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: DefaultEndpoints,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		log:       log,
	}
}

// Build fetches every endpoint in turn. A failing endpoint is logged and
// skipped; the build only fails when none succeeded.
func (b *OnlineBuilder) Build(ctx context.Context) (*OnlineResult, error) {
	result := &OnlineResult{}
	var raw []map[string]any
	var lastErr error

	for _, ep := range b.endpoints {
		url := b.baseURL + ep.Path
		records, err := b.fetch(ctx, url)
		if err != nil {
			lastErr = err
			result.FailedSources = append(result.FailedSources, ep.Name)
			b.log.Warnw("card API endpoint failed, continuing without it", "endpoint", ep.Name, "url", url, "error", err)
			continue
		}
		b.log.Infow("fetched card API endpoint", "endpoint", ep.Name, "records", len(records))
		raw = append(raw, records...)
	}
	if len(result.FailedSources) == len(b.endpoints) {
		return nil, fmt.Errorf("%w: %v", ErrNoEndpoints, lastErr)
	}

	result.RawRecords = len(raw)
	acc := NewAccumulator(DedupFirstWins)
	for _, r := range raw {
		if entry, ok := normalizeOnline(r); ok {
			acc.Add(entry)
		}
	}
	result.Entries = acc.Entries()
	return result, nil
}

func (b *OnlineBuilder) fetch(ctx context.Context, url string) ([]map[string]any, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return decodeOnlinePayload(body)
}

// decodeOnlinePayload accepts a plain array, an object with a "data" array,
// or an object whose values are the cards.
func decodeOnlinePayload(body []byte) ([]map[string]any, error) {
	var top any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var items []any
	switch x := top.(type) {
	case []any:
		items = x
	case map[string]any:
		if arr, ok := x["data"].([]any); ok {
			items = arr
		} else {
			_, values, err := orderedValues(body)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				if rec, ok := decodeObject(v); ok {
					items = append(items, map[string]any(rec))
				}
			}
		}
	}

	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if rec, ok := it.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func normalizeOnline(raw map[string]any) (models.CatalogEntry, bool) {
	codeVal := firstPresent(raw, "card_set_id", "card_image_id", "card_id", "id")
	nameVal := firstPresent(raw, "card_name", "name")
	if !truthy(codeVal) || !truthy(nameVal) {
		return models.CatalogEntry{}, false
	}
	code := strings.ToUpper(safeStr(codeVal))
	name := safeStr(nameVal)
	if code == "" || name == "" {
		return models.CatalogEntry{}, false
	}

	set := safeStr(raw["set_id"])
	if set == "" {
		set, _, _ = strings.Cut(code, "-")
	}

	entry := models.CatalogEntry{
		Code:           code,
		Name:           name,
		Set:            set,
		SetName:        safeStr(raw["set_name"]),
		Rarity:         safeStr(raw["rarity"]),
		Color:          safeStr(raw["card_color"]),
		Type:           safeStr(raw["card_type"]),
		ImageURL:       safeStr(raw["card_image"]),
		Cost:           rawStr(raw["card_cost"]),
		Power:          rawStr(raw["card_power"]),
		MarketPrice:    toFloat(raw["market_price"]),
		InventoryPrice: toFloat(raw["inventory_price"]),
		ScrapedAt:      safeStr(raw["date_scraped"]),
	}
	return entry, true
}
