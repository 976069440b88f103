package portalhttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/walportal/gateway/internal/blocklist"
	"github.com/walportal/gateway/internal/cache"
	"github.com/walportal/gateway/internal/fetcher"
	"github.com/walportal/gateway/internal/nameresolver"
	"github.com/walportal/gateway/internal/server"
)

// Config holds the handler's per-request, per-deployment knobs, filled in
// from internal/config at startup.
type Config struct {
	PortalDomain           string
	PortalDomainNameLength int
	AggregatorURL          string // used only to build the blobid.walrus.invalid redirect target
}

// Handler is the net/http.Handler composing C1-C8 into the full gateway
// request pipeline, the Portal analogue of the teacher's QueryHandler.
type Handler struct {
	Logger    *slog.Logger
	Fetcher   *fetcher.URLFetcher
	Blocklist blocklist.Checker
	Cache     *cache.Cache
	Limiter   *server.RateLimiter
	Stats     *server.RequestStats
	Config    Config
}

// NewHandler builds a Handler. logger may be nil (defaults to slog.Default()).
func NewHandler(f *fetcher.URLFetcher, checker blocklist.Checker, c *cache.Cache, limiter *server.RateLimiter, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = blocklist.NoopChecker{}
	}
	return &Handler{Logger: logger, Fetcher: f, Blocklist: checker, Cache: c, Limiter: limiter, Stats: server.NewRequestStats(), Config: cfg}
}

// ServeHTTP implements the data flow of SPEC_FULL.md §2:
// request -> C8 -> C6 -> C2 -> C6 -> C3 -> (C4 + re-C3) -> blob fetch ->
// verify -> respond, with C7 wrapping the whole pipeline by request URL.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.Limiter != nil {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !h.Limiter.Allow(host) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			h.recordStats(http.StatusTooManyRequests, start)
			return
		}
	}

	if location, ok := SyntheticRedirect(r.Host, r.URL.Path, h.Config.PortalDomain, h.Config.AggregatorURL); ok {
		http.Redirect(w, r, location, http.StatusFound)
		h.recordStats(http.StatusFound, start)
		return
	}

	subdomain, _, ok := SplitHost(r.Host, h.Config.PortalDomainNameLength)
	if !ok {
		h.writeResponse(w, &fetcher.Response{
			Status:  http.StatusNotFound,
			Body:    []byte("unrecognized host"),
			Headers: map[string]string{"content-type": "text/html"},
		})
		h.recordStats(http.StatusNotFound, start)
		return
	}

	path := NormalizePath(r.URL.Path)
	cacheKey := r.Host + path

	if h.Cache != nil {
		if entry, ok := h.tryCache(r.Context(), cacheKey, subdomain, path); ok {
			h.writeResponse(w, &fetcher.Response{Status: entry.Status, Body: entry.Body, Headers: entry.Headers})
			h.recordStats(entry.Status, start)
			return
		}
	}

	resp, err := h.Fetcher.ResolveAndFetch(r.Context(), fetcher.DomainDetails{Subdomain: subdomain, Path: path}, nil, h.Blocklist)
	if err != nil {
		h.Logger.Error("resolve_and_fetch failed", "host", r.Host, "path", path, "error", err)
		h.writeResponse(w, &fetcher.Response{
			Status:  http.StatusInternalServerError,
			Body:    []byte("internal error"),
			Headers: map[string]string{"content-type": "text/html"},
		})
		h.recordStats(http.StatusInternalServerError, start)
		return
	}

	if h.Cache != nil && resp.Status == http.StatusOK {
		h.Cache.Set(cacheKey, cache.Entry{Status: resp.Status, Body: resp.Body, Headers: resp.Headers})
	}

	h.writeResponse(w, resp)
	h.recordStats(resp.Status, start)
}

// recordStats is a no-op when Stats is nil, so Handler remains usable
// without wiring an admin API.
func (h *Handler) recordStats(status int, start time.Time) {
	if h.Stats == nil {
		return
	}
	h.Stats.RecordRequest(status)
	h.Stats.RecordLatency(int64(time.Since(start)))
}

// tryCache implements SPEC_FULL.md §4.7 step 3: a cache hit requires both
// wall-clock freshness (checked inside Cache.Validate) and that the
// subdomain still resolves to the cached object id, at the cached
// version — confirmed with one cheap GET via C1, not a full resource
// fetch. Any resolver or RPC failure here is treated as a miss; the
// normal fetch path below will surface the real error if one exists.
func (h *Handler) tryCache(ctx context.Context, cacheKey, subdomain, path string) (cache.Entry, bool) {
	if !h.Cache.Has(cacheKey) {
		return cache.Entry{}, false
	}

	siteID, err := h.Fetcher.Resolver().Resolve(ctx, subdomain)
	if err != nil {
		if !errors.Is(err, nameresolver.ErrNoObjectID) {
			h.Logger.Debug("cache pre-validation: resolve failed, falling through to full fetch", "subdomain", subdomain, "error", err)
		}
		return cache.Entry{}, false
	}

	dfID, version, err := h.Fetcher.ResourceFetcher().CurrentVersion(ctx, siteID, path)
	if err != nil {
		return cache.Entry{}, false
	}

	return h.Cache.Validate(cacheKey, dfID.Hex(), version)
}

func (h *Handler) writeResponse(w http.ResponseWriter, resp *fetcher.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if _, ok := resp.Headers["content-type"]; !ok {
		w.Header().Set("content-type", "text/html; charset=utf-8")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
