// Package config provides configuration loading and validation for the
// Portal gateway.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/portal/main.go)
//  2. Environment variables (PORTAL_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from PORTAL_CATEGORY_SETTING format,
// e.g., PORTAL_CHAIN_NETWORK maps to chain.network in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses PORTAL_ prefix: PORTAL_CHAIN_NETWORK -> chain.network
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8443)

	v.SetDefault("chain.network", "mainnet")
	v.SetDefault("chain.site_package", "")
	v.SetDefault("chain.landing_page_oid_b36", "")
	v.SetDefault("chain.rpc_urls", []RPCEndpointConfig{})
	v.SetDefault("chain.premium_rpc_urls", []RPCEndpointConfig{})
	v.SetDefault("chain.rpc_request_timeout_ms", 7000)

	v.SetDefault("aggregator.urls", []string{})
	v.SetDefault("aggregator.attempts", 3)
	v.SetDefault("aggregator.retry_delay_ms", 1000)

	v.SetDefault("blocklist.enabled", false)
	v.SetDefault("blocklist.backend", "redis")
	v.SetDefault("blocklist.redis_url", "")
	v.SetDefault("blocklist.redis_set_name", "")
	v.SetDefault("blocklist.managed_endpoint", "")
	v.SetDefault("blocklist.managed_secret", "")
	v.SetDefault("blocklist.refresh_interval", "30s")

	v.SetDefault("allowlist.enabled", false)
	v.SetDefault("allowlist.backend", "redis")
	v.SetDefault("allowlist.redis_url", "")
	v.SetDefault("allowlist.redis_set_name", "")
	v.SetDefault("allowlist.managed_endpoint", "")
	v.SetDefault("allowlist.managed_secret", "")
	v.SetDefault("allowlist.refresh_interval", "30s")

	v.SetDefault("domain.portal_domain", "")
	v.SetDefault("domain.b36_domain_resolution", true)
	v.SetDefault("domain.bring_your_own_domain", false)
	v.SetDefault("domain.portal_domain_name_length", 0)

	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 100000)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	v.SetDefault("rate_limit.cleanup_seconds", 60.0)
	v.SetDefault("rate_limit.max_ip_entries", 65536)
	v.SetDefault("rate_limit.max_prefix_entries", 16384)
	v.SetDefault("rate_limit.global_rps", 100000.0)
	v.SetDefault("rate_limit.global_burst", 100000)
	v.SetDefault("rate_limit.prefix_rps", 10000.0)
	v.SetDefault("rate_limit.prefix_burst", 20000)
	v.SetDefault("rate_limit.ip_rps", 5000.0)
	v.SetDefault("rate_limit.ip_burst", 10000)

	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")

	v.SetDefault("database.path", "portal.db")
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")

	loadChainConfig(v, cfg)
	loadAggregatorConfig(v, cfg)
	loadListConfig(v, "blocklist", &cfg.Blocklist)
	loadListConfig(v, "allowlist", &cfg.Allowlist)
	loadDomainConfig(v, cfg)
	loadCacheConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadAPIConfig(v, cfg)
	loadRateLimitConfig(v, cfg)

	cfg.Database.Path = v.GetString("database.path")

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadChainConfig(v *viper.Viper, cfg *Config) {
	cfg.Chain.Network = strings.ToLower(v.GetString("chain.network"))
	cfg.Chain.SitePackage = v.GetString("chain.site_package")
	cfg.Chain.LandingPageOIDBase36 = v.GetString("chain.landing_page_oid_b36")
	cfg.Chain.RequestTimeoutMS = v.GetInt("chain.rpc_request_timeout_ms")

	if err := v.UnmarshalKey("chain.rpc_urls", &cfg.Chain.RPCURLs); err != nil {
		cfg.Chain.RPCURLs = nil
	}
	_ = v.UnmarshalKey("chain.premium_rpc_urls", &cfg.Chain.PremiumRPCURLs)

	// A bare comma-separated PORTAL_CHAIN_RPC_URLS env value (no retries/
	// metric) is accepted as a convenience: one RPCEndpointConfig per URL.
	if len(cfg.Chain.RPCURLs) == 0 {
		if s := v.GetString("chain.rpc_urls"); s != "" {
			for _, u := range splitAndTrim(s) {
				cfg.Chain.RPCURLs = append(cfg.Chain.RPCURLs, RPCEndpointConfig{URL: u})
			}
		}
	}
}

func loadAggregatorConfig(v *viper.Viper, cfg *Config) {
	cfg.Aggregator.URLs = getStringSliceOrSplit(v, "aggregator.urls")
	cfg.Aggregator.Attempts = v.GetInt("aggregator.attempts")
	cfg.Aggregator.RetryDelayMS = v.GetInt("aggregator.retry_delay_ms")
}

func loadListConfig(v *viper.Viper, prefix string, cfg *ListConfig) {
	cfg.Enabled = v.GetBool(prefix + ".enabled")
	cfg.Backend = v.GetString(prefix + ".backend")
	cfg.RedisURL = v.GetString(prefix + ".redis_url")
	cfg.RedisSetName = v.GetString(prefix + ".redis_set_name")
	cfg.ManagedEndpoint = v.GetString(prefix + ".managed_endpoint")
	cfg.ManagedSecret = v.GetString(prefix + ".managed_secret")
	cfg.RefreshInterval = v.GetString(prefix + ".refresh_interval")
}

func loadDomainConfig(v *viper.Viper, cfg *Config) {
	cfg.Domain.PortalDomain = v.GetString("domain.portal_domain")
	cfg.Domain.B36DomainResolution = v.GetBool("domain.b36_domain_resolution")
	cfg.Domain.BringYourOwnDomain = v.GetBool("domain.bring_your_own_domain")
	cfg.Domain.PortalDomainNameLength = v.GetInt("domain.portal_domain_name_length")
}

func loadCacheConfig(v *viper.Viper, cfg *Config) {
	cfg.Cache.TTL = v.GetString("cache.ttl")
	cfg.Cache.MaxEntries = v.GetInt("cache.max_entries")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.Logging.ExtraFields = v.GetStringMapString("logging.extra_fields")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
	cfg.API.APIKey = v.GetString("api.api_key")
}

func loadRateLimitConfig(v *viper.Viper, cfg *Config) {
	cfg.RateLimit.CleanupSeconds = v.GetFloat64("rate_limit.cleanup_seconds")
	cfg.RateLimit.MaxIPEntries = v.GetInt("rate_limit.max_ip_entries")
	cfg.RateLimit.MaxPrefixEntries = v.GetInt("rate_limit.max_prefix_entries")
	cfg.RateLimit.GlobalRPS = v.GetFloat64("rate_limit.global_rps")
	cfg.RateLimit.GlobalBurst = v.GetInt("rate_limit.global_burst")
	cfg.RateLimit.PrefixRPS = v.GetFloat64("rate_limit.prefix_rps")
	cfg.RateLimit.PrefixBurst = v.GetInt("rate_limit.prefix_burst")
	cfg.RateLimit.IPRPS = v.GetFloat64("rate_limit.ip_rps")
	cfg.RateLimit.IPBurst = v.GetInt("rate_limit.ip_burst")
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getStringSliceOrSplit handles both slice and comma-separated string values.
func getStringSliceOrSplit(v *viper.Viper, key string) []string {
	if slice := v.GetStringSlice(key); len(slice) > 0 {
		result := make([]string, 0, len(slice))
		for _, s := range slice {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		return result
	}
	if s := v.GetString(key); s != "" {
		return splitAndTrim(s)
	}
	return nil
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}

	if cfg.Chain.Network != "mainnet" && cfg.Chain.Network != "testnet" {
		return fmt.Errorf("chain.network must be mainnet or testnet, got %q", cfg.Chain.Network)
	}

	if len(cfg.Chain.RPCURLs) == 0 {
		return errors.New("chain.rpc_urls must name at least one endpoint")
	}
	if cfg.Chain.RequestTimeoutMS <= 0 {
		cfg.Chain.RequestTimeoutMS = 7000
	}

	if len(cfg.Aggregator.URLs) == 0 {
		return errors.New("aggregator.urls must name at least one endpoint")
	}
	if cfg.Aggregator.Attempts <= 0 {
		cfg.Aggregator.Attempts = 3
	}
	if cfg.Aggregator.RetryDelayMS <= 0 {
		cfg.Aggregator.RetryDelayMS = 1000
	}

	if cfg.Blocklist.Enabled && cfg.Blocklist.Backend != "redis" && cfg.Blocklist.Backend != "managed" {
		return fmt.Errorf("blocklist.backend must be redis or managed, got %q", cfg.Blocklist.Backend)
	}
	if cfg.Allowlist.Enabled && cfg.Allowlist.Backend != "redis" && cfg.Allowlist.Backend != "managed" {
		return fmt.Errorf("allowlist.backend must be redis or managed, got %q", cfg.Allowlist.Backend)
	}

	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "24h"
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 100000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	if !cfg.Domain.BringYourOwnDomain && cfg.Domain.PortalDomain == "" {
		return errors.New("domain.portal_domain is required unless bring_your_own_domain is set")
	}

	return nil
}
