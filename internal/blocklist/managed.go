package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultRefreshInterval is how often a ManagedChecker re-polls its backing
// store absent an explicit interval.
const DefaultRefreshInterval = 30 * time.Second

// exportedList is the payload a managed configuration store's membership
// endpoint returns: the full current member set plus a monotonic version,
// mirroring the export/import shape a soft-cluster primary exposes.
type exportedList struct {
	Version int64    `json:"version"`
	Members []string `json:"members"`
}

// ManagedChecker backs Checker by periodically polling a managed
// configuration store for the full membership set and holding it in
// memory — the "managed configuration store" option of SPEC_FULL.md §4.6,
// modeled on the soft-cluster config sync pattern.
type ManagedChecker struct {
	endpoint        string
	sharedSecret    string
	refreshInterval time.Duration
	httpClient      *http.Client
	logger          *slog.Logger

	mu      sync.RWMutex
	members map[string]struct{}
	version int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManagedChecker builds a ManagedChecker that polls endpoint (a full
// URL returning an exportedList JSON document) every refreshInterval.
func NewManagedChecker(endpoint, sharedSecret string, refreshInterval time.Duration, logger *slog.Logger) *ManagedChecker {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagedChecker{
		endpoint:        endpoint,
		sharedSecret:    sharedSecret,
		refreshInterval: refreshInterval,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
		members:         make(map[string]struct{}),
	}
}

// Init performs an initial synchronous fetch, then starts the background
// refresh loop.
func (c *ManagedChecker) Init(ctx context.Context) error {
	if err := c.fetch(ctx); err != nil {
		return fmt.Errorf("blocklist: initial managed-store sync: %w", err)
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.refreshLoop()
	return nil
}

func (c *ManagedChecker) refreshLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
			if err := c.fetch(ctx); err != nil {
				c.logger.Warn("managed blocklist refresh failed", "endpoint", c.endpoint, "error", err)
			}
			cancel()
		}
	}
}

func (c *ManagedChecker) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.sharedSecret != "" {
		req.Header.Set("X-Config-Store-Secret", c.sharedSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, c.endpoint, body)
	}

	var list exportedList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("decoding managed list: %w", err)
	}

	c.mu.Lock()
	if list.Version > c.version || c.version == 0 {
		members := make(map[string]struct{}, len(list.Members))
		for _, m := range list.Members {
			members[m] = struct{}{}
		}
		c.members = members
		c.version = list.Version
	}
	c.mu.Unlock()
	return nil
}

// Contains reports membership in the most recently synced set.
func (c *ManagedChecker) Contains(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[key]
	return ok, nil
}

// Ping issues a lightweight fetch to confirm the store is reachable.
func (c *ManagedChecker) Ping(ctx context.Context) error {
	return c.fetch(ctx)
}

// Close stops the background refresh loop. Safe to call before Init.
func (c *ManagedChecker) Close() error {
	if c.stopCh == nil {
		return nil
	}
	close(c.stopCh)
	<-c.doneCh
	return nil
}
