// Command portal is the gateway entrypoint: it loads configuration, wires
// C1-C8 into an internal/portalhttp.Handler, and serves it over net/http
// with signal-based graceful shutdown, the HTTP analogue of the teacher's
// hydradns command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/walportal/gateway/internal/api"
	"github.com/walportal/gateway/internal/blocklist"
	"github.com/walportal/gateway/internal/cache"
	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/config"
	"github.com/walportal/gateway/internal/database"
	"github.com/walportal/gateway/internal/fetcher"
	"github.com/walportal/gateway/internal/logging"
	"github.com/walportal/gateway/internal/nameresolver"
	"github.com/walportal/gateway/internal/objectid"
	"github.com/walportal/gateway/internal/portalhttp"
	"github.com/walportal/gateway/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configFlag string
	flag.StringVar(&configFlag, "config", "", "Path to config YAML (overrides PORTAL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(configFlag))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening site table store: %w", err)
	}
	defer db.Close()

	rpcSelector, err := buildSelector(cfg)
	if err != nil {
		return fmt.Errorf("building chain RPC selector: %w", err)
	}

	if err := db.SeedRPCEndpoints(context.Background(), rpcURLs(cfg)); err != nil {
		logger.Warn("failed to seed rpc endpoint stats", "error", err)
	}

	hardcoded, err := mergeSiteTable(cfg, db)
	if err != nil {
		return fmt.Errorf("building hardcoded site table: %w", err)
	}

	resolver := nameresolver.New(hardcoded, cfg.Domain.B36DomainResolution, rpcSelector)
	resourceFetcher := fetcher.NewResourceFetcher(rpcSelector)

	urlFetcher, err := fetcher.New(resolver, resourceFetcher, cfg.Aggregator.URLs, logger)
	if err != nil {
		return fmt.Errorf("building url fetcher: %w", err)
	}

	blockChecker, err := buildChecker(cfg.Blocklist, logger)
	if err != nil {
		return fmt.Errorf("building blocklist checker: %w", err)
	}
	defer blockChecker.Close()
	if err := blockChecker.Init(context.Background()); err != nil {
		logger.Warn("blocklist checker init failed, continuing with stale/empty list", "error", err)
	}

	cacheTTL, err := time.ParseDuration(cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("parsing cache.ttl: %w", err)
	}
	respCache := cache.New(cacheTTL, cfg.Cache.MaxEntries)

	limiter := server.NewRateLimiter(server.RateLimitSettings{
		CleanupSeconds:   cfg.RateLimit.CleanupSeconds,
		MaxIPEntries:     cfg.RateLimit.MaxIPEntries,
		MaxPrefixEntries: cfg.RateLimit.MaxPrefixEntries,
		GlobalRPS:        cfg.RateLimit.GlobalRPS,
		GlobalBurst:      cfg.RateLimit.GlobalBurst,
		PrefixRPS:        cfg.RateLimit.PrefixRPS,
		PrefixBurst:      cfg.RateLimit.PrefixBurst,
		IPRPS:            cfg.RateLimit.IPRPS,
		IPBurst:          cfg.RateLimit.IPBurst,
	})

	aggregatorURL := ""
	if len(cfg.Aggregator.URLs) > 0 {
		aggregatorURL = cfg.Aggregator.URLs[0]
	}
	handler := portalhttp.NewHandler(urlFetcher, blockChecker, respCache, limiter, portalhttp.Config{
		PortalDomain:           cfg.Domain.PortalDomain,
		PortalDomainNameLength: cfg.Domain.PortalDomainNameLength,
		AggregatorURL:          aggregatorURL,
	}, logger)

	var adminAPI *api.Server
	if cfg.API.Enabled {
		adminAPI = api.New(cfg, logger, db, respCache, rpcSelector)
		adminAPI.SetRequestStats(handler.Stats)
	}

	return serve(cfg, handler, adminAPI, logger)
}

// buildSelector turns the configured rpc_urls/premium_rpc_urls into a
// chainrpc.Selector, premium endpoints first so the selector's sticky-first
// behavior prefers them.
func buildSelector(cfg *config.Config) (*chainrpc.Selector, error) {
	endpoints := make([]chainrpc.Endpoint, 0, len(cfg.Chain.PremiumRPCURLs)+len(cfg.Chain.RPCURLs))
	for _, e := range cfg.Chain.PremiumRPCURLs {
		endpoints = append(endpoints, chainrpc.Endpoint{URL: e.URL, Retries: e.Retries, Metric: e.Metric})
	}
	for _, e := range cfg.Chain.RPCURLs {
		endpoints = append(endpoints, chainrpc.Endpoint{URL: e.URL, Retries: e.Retries, Metric: e.Metric})
	}
	timeout := time.Duration(cfg.Chain.RequestTimeoutMS) * time.Millisecond
	return chainrpc.New(endpoints, timeout)
}

// mergeSiteTable builds the Name Resolver's hardcoded table: the bare
// portal domain ("") mapped to landing_page_oid_b36 when configured, plus
// every subdomain -> object id mapping an operator has added through the
// admin API's site table (C9/C10).
func mergeSiteTable(cfg *config.Config, db *database.DB) (map[string]objectid.ID, error) {
	table := map[string]objectid.ID{}

	if cfg.Chain.LandingPageOIDBase36 != "" {
		id, err := objectid.FromBase36(cfg.Chain.LandingPageOIDBase36)
		if err != nil {
			return nil, fmt.Errorf("parsing landing_page_oid_b36: %w", err)
		}
		table[""] = id
	}

	sites, err := db.GetAllSites(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading site table: %w", err)
	}
	for _, s := range sites {
		id, err := objectid.FromHex(s.ObjectID)
		if err != nil {
			continue
		}
		table[s.Subdomain] = id
	}

	if len(table) == 0 {
		return nil, nil
	}
	return table, nil
}

// rpcURLs flattens the configured premium and regular chain RPC endpoints
// into a plain URL list, for seeding the Site Table Store's per-endpoint
// health counters at startup.
func rpcURLs(cfg *config.Config) []string {
	urls := make([]string, 0, len(cfg.Chain.PremiumRPCURLs)+len(cfg.Chain.RPCURLs))
	for _, e := range cfg.Chain.PremiumRPCURLs {
		urls = append(urls, e.URL)
	}
	for _, e := range cfg.Chain.RPCURLs {
		urls = append(urls, e.URL)
	}
	return urls
}

// buildChecker selects a blocklist.Checker implementation per
// blocklist.backend, or a NoopChecker when the list is disabled. run uses
// it for the blocklist only; no allowlist checker is built, so the
// allowlist settings have no effect on request handling.
func buildChecker(cfg config.ListConfig, logger *slog.Logger) (blocklist.Checker, error) {
	if !cfg.Enabled {
		return blocklist.NoopChecker{}, nil
	}
	switch cfg.Backend {
	case "redis":
		return blocklist.NewRedisChecker(cfg.RedisURL, cfg.RedisSetName)
	case "managed":
		refresh, err := time.ParseDuration(cfg.RefreshInterval)
		if err != nil || refresh <= 0 {
			refresh = blocklist.DefaultRefreshInterval
		}
		return blocklist.NewManagedChecker(cfg.ManagedEndpoint, cfg.ManagedSecret, refresh, logger), nil
	default:
		return nil, fmt.Errorf("unknown list backend %q", cfg.Backend)
	}
}

// serve runs the gateway listener, and the admin API listener alongside it
// when enabled, until a SIGINT/SIGTERM arrives, then drains in-flight
// requests on both with a bounded grace period, mirroring the teacher's
// signal-driven Runner.Run shutdown shape extended to a second listener.
func serve(cfg *config.Config, handler http.Handler, adminAPI *api.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gateway listening", "addr", addr, "network", cfg.Chain.Network)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("gateway server: %w", err)
			return
		}
		errCh <- nil
	}()

	if adminAPI != nil {
		go func() {
			logger.Info("admin api listening", "addr", adminAPI.Addr())
			if err := adminAPI.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("admin api server: %w", err)
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("gateway graceful shutdown: %w", err)
	}
	if adminAPI != nil {
		if err := adminAPI.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = fmt.Errorf("admin api graceful shutdown: %w", err)
		}
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	if err := <-errCh; err != nil {
		return err
	}
	if adminAPI != nil {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}
