package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"pos-service/internal/models"
	"pos-service/internal/util"
)

// ErrUnknownItem is returned when the snapshot has no entry for the item.
var ErrUnknownItem = fmt.Errorf("item not in inventory snapshot")

// Client fetches the ledger's stock snapshot and caches it briefly. The cart
// guard validates against this cache; there is no row lock, the ledger
// re-checks stock at submission time.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	ttl     time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	cached    map[string]models.StockLevel
	fetchedAt time.Time
}

// NewClient creates a snapshot client with the given cache TTL
func NewClient(baseURL, token string, timeout, ttl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		ttl:     ttl,
		logger:  util.GetLogger(),
	}
}

// Snapshot returns the current stock levels, refreshing the cache when
// stale. A stale cache with an unreachable ledger is still served, so the
// cart keeps working offline against the last known stock.
func (c *Client) Snapshot(ctx context.Context) (map[string]models.StockLevel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	levels, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			c.logger.Warn("Inventory refresh failed, serving last snapshot",
				zap.Time("fetched_at", c.fetchedAt),
				zap.Error(err))
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = levels
	c.fetchedAt = time.Now()
	return c.cached, nil
}

// StockFor returns the snapshot entry for one item
func (c *Client) StockFor(ctx context.Context, itemID string) (models.StockLevel, error) {
	snapshot, err := c.Snapshot(ctx)
	if err != nil {
		return models.StockLevel{}, err
	}
	level, ok := snapshot[itemID]
	if !ok {
		return models.StockLevel{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	return level, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]models.StockLevel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/inventory", nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory snapshot request failed: status %d", resp.StatusCode)
	}

	var levels []models.StockLevel
	if err := json.NewDecoder(resp.Body).Decode(&levels); err != nil {
		return nil, fmt.Errorf("failed to decode inventory snapshot: %w", err)
	}

	byID := make(map[string]models.StockLevel, len(levels))
	for _, l := range levels {
		byID[l.ItemID] = l
	}
	return byID, nil
}
