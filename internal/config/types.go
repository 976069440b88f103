// Package config provides configuration loading for the Portal gateway
// using Viper. Configuration is loaded from a YAML file with automatic
// environment variable binding.
//
// Environment variables use the PORTAL_ prefix and underscore-separated
// keys:
//   - PORTAL_SERVER_HOST -> server.host
//   - PORTAL_CHAIN_NETWORK -> chain.network
//   - PORTAL_CACHE_TTL -> cache.ttl
package config

import (
	"os"
	"strings"
)

// ServerConfig contains the gateway's own HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// RPCEndpointConfig names one chain RPC endpoint and its selector weight,
// matching the `{url, retries, metric}` shape SPEC_FULL.md's
// configuration enumeration names for `rpc_urls`/`premium_rpc_urls`.
type RPCEndpointConfig struct {
	URL     string `yaml:"url"     mapstructure:"url"     json:"url"`
	Retries int    `yaml:"retries" mapstructure:"retries" json:"retries"`
	Metric  string `yaml:"metric"  mapstructure:"metric"  json:"metric"`
}

// ChainConfig contains the chain-facing settings: network selection, the
// site registry package, and the RPC endpoints themselves.
type ChainConfig struct {
	Network             string              `yaml:"network"                mapstructure:"network"`
	SitePackage         string              `yaml:"site_package"           mapstructure:"site_package"`
	LandingPageOIDBase36 string             `yaml:"landing_page_oid_b36"   mapstructure:"landing_page_oid_b36"`
	RPCURLs             []RPCEndpointConfig `yaml:"rpc_urls"                mapstructure:"rpc_urls"`
	PremiumRPCURLs       []RPCEndpointConfig `yaml:"premium_rpc_urls"       mapstructure:"premium_rpc_urls"`
	RequestTimeoutMS     int                `yaml:"rpc_request_timeout_ms" mapstructure:"rpc_request_timeout_ms"`
}

// AggregatorConfig contains the blob aggregator endpoints and retry
// settings. Attempts and RetryDelayMS are validated and reported by the
// admin API, but the blob fetcher does not read them: it always uses
// fetcher.DefaultAggregatorAttempts and fetcher.DefaultAggregatorRetryDelay.
type AggregatorConfig struct {
	URLs       []string `yaml:"urls"        mapstructure:"urls"`
	Attempts   int      `yaml:"attempts"    mapstructure:"attempts"`
	RetryDelayMS int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

// ListConfig describes one of the blocklist/allowlist list-checker
// backends (SPEC_FULL.md §4.6): `redis` (Redis SISMEMBER) or `managed`
// (periodic HTTP poll of a config-store endpoint).
type ListConfig struct {
	Enabled          bool   `yaml:"enabled"           mapstructure:"enabled"`
	Backend          string `yaml:"backend"           mapstructure:"backend"` // "redis" | "managed"
	RedisURL         string `yaml:"redis_url"         mapstructure:"redis_url"`
	RedisSetName     string `yaml:"redis_set_name"    mapstructure:"redis_set_name"`
	ManagedEndpoint  string `yaml:"managed_endpoint"  mapstructure:"managed_endpoint"`
	ManagedSecret    string `yaml:"managed_secret"    mapstructure:"managed_secret"`
	RefreshInterval  string `yaml:"refresh_interval"  mapstructure:"refresh_interval"`
}

// DomainConfig contains the Link/Redirect helper (C8) settings.
type DomainConfig struct {
	PortalDomain           string `yaml:"portal_domain"              mapstructure:"portal_domain"`
	B36DomainResolution    bool   `yaml:"b36_domain_resolution"      mapstructure:"b36_domain_resolution"`
	BringYourOwnDomain     bool   `yaml:"bring_your_own_domain"      mapstructure:"bring_your_own_domain"`
	PortalDomainNameLength int    `yaml:"portal_domain_name_length"  mapstructure:"portal_domain_name_length"`
}

// CacheConfig contains the Cache layer's (C7) freshness TTL and quota.
type CacheConfig struct {
	TTL        string `yaml:"ttl"         mapstructure:"ttl"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"             json:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"        json:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format" json:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"       json:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"      json:"extra_fields,omitempty"`
}

// RateLimitConfig controls rate limiting settings on the gateway's HTTP
// edge (renamed from the teacher's per-query fields to per-request ones;
// the token-bucket math is unchanged).
type RateLimitConfig struct {
	CleanupSeconds   float64 `yaml:"cleanup_seconds"    mapstructure:"cleanup_seconds"    json:"cleanup_seconds"`
	MaxIPEntries     int     `yaml:"max_ip_entries"     mapstructure:"max_ip_entries"     json:"max_ip_entries"`
	MaxPrefixEntries int     `yaml:"max_prefix_entries" mapstructure:"max_prefix_entries" json:"max_prefix_entries"`
	GlobalRPS        float64 `yaml:"global_rps"         mapstructure:"global_rps"         json:"global_rps"`
	GlobalBurst      int     `yaml:"global_burst"       mapstructure:"global_burst"       json:"global_burst"`
	PrefixRPS        float64 `yaml:"prefix_rps"         mapstructure:"prefix_rps"         json:"prefix_rps"`
	PrefixBurst      int     `yaml:"prefix_burst"       mapstructure:"prefix_burst"       json:"prefix_burst"`
	IPRPS            float64 `yaml:"ip_rps"             mapstructure:"ip_rps"             json:"ip_rps"`
	IPBurst          int     `yaml:"ip_burst"           mapstructure:"ip_burst"           json:"ip_burst"`
}

// APIConfig contains the admin API's (C9) own listener settings.
//
// Note: APIKey is intentionally treated as a secret and should not be
// returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// DatabaseConfig points at the Site Table Store's (C10) SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"     mapstructure:"server"`
	Chain      ChainConfig      `yaml:"chain"      mapstructure:"chain"`
	Aggregator AggregatorConfig `yaml:"aggregator" mapstructure:"aggregator"`
	Blocklist  ListConfig       `yaml:"blocklist"  mapstructure:"blocklist"`
	Allowlist  ListConfig       `yaml:"allowlist"  mapstructure:"allowlist"`
	Domain     DomainConfig     `yaml:"domain"     mapstructure:"domain"`
	Cache      CacheConfig      `yaml:"cache"      mapstructure:"cache"`
	Logging    LoggingConfig    `yaml:"logging"    mapstructure:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	API        APIConfig        `yaml:"api"        mapstructure:"api"`
	Database   DatabaseConfig   `yaml:"database"   mapstructure:"database"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("PORTAL_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable
// overrides. This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (PORTAL_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
