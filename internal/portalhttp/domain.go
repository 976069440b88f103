// Package portalhttp implements the Link/Redirect helpers (C8) and the
// net/http handler that composes C1-C7 into the gateway's request
// pipeline (SPEC_FULL.md §4.8, §2 data flow).
package portalhttp

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// suiobjInvalidSuffix and walrusInvalidHost are the two synthetic host
// shapes recognised before normal resolution (SPEC_FULL.md §4.8).
const (
	suiobjInvalidSuffix = ".suiobj.invalid"
	walrusInvalidHost   = "blobid.walrus.invalid"
)

// SplitHost separates host into (subdomain, domain) using the portal's own
// configured domain, falling back to the public suffix list when
// portalDomainNameLength is zero (bring_your_own_domain off, operating
// under a publicly listed TLD).
//
// portalDomainNameLength, when positive, names how many trailing
// dot-separated labels make up the portal's own domain, letting operators
// serve subdomains under a TLD the public suffix list doesn't know about.
func SplitHost(host string, portalDomainNameLength int) (subdomain, domain string, ok bool) {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimSuffix(host, ".")

	labels := strings.Split(host, ".")

	if portalDomainNameLength > 0 {
		if len(labels) <= portalDomainNameLength {
			return "", "", false
		}
		cut := len(labels) - portalDomainNameLength
		return strings.Join(labels[:cut], "."), strings.Join(labels[cut:], "."), true
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", "", false
	}
	sub := strings.TrimSuffix(host, etld1)
	sub = strings.TrimSuffix(sub, ".")
	if sub == "" {
		return "", etld1, true
	}
	return sub, etld1, true
}

// NormalizePath maps an empty or trailing-slash path to its index document
// and returns every other path unchanged, since on-chain Resources are
// always stored path-without-trailing-slash.
func NormalizePath(path string) string {
	if path == "" {
		return "/index.html"
	}
	if strings.HasSuffix(path, "/") {
		return path + "index.html"
	}
	return path
}

// SyntheticRedirect recognises the two *.invalid host shapes and returns
// the 302 target URL they redirect to, or ok=false for an ordinary host.
//
// portalDomain is the operator's configured serving domain (used to build
// the suiobj.invalid redirect target); aggregatorURL is the base URL used
// to build the walrus.invalid redirect target.
func SyntheticRedirect(host, path, portalDomain, aggregatorURL string) (location string, ok bool) {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	if strings.HasSuffix(host, suiobjInvalidSuffix) {
		subdomain := strings.TrimSuffix(host, suiobjInvalidSuffix)
		return "https://" + subdomain + "." + portalDomain + path, true
	}

	if host == walrusInvalidHost {
		blobID := strings.TrimPrefix(path, "/")
		return strings.TrimSuffix(aggregatorURL, "/") + "/v1/blobs/" + blobID, true
	}

	return "", false
}
