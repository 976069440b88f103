package portalhttp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walportal/gateway/internal/portalhttp"
)

func TestSplitHostUsesPublicSuffixByDefault(t *testing.T) {
	sub, domain, ok := portalhttp.SplitHost("mysite.wal.app", 0)
	require.True(t, ok)
	assert.Equal(t, "mysite", sub)
	assert.Equal(t, "wal.app", domain)
}

func TestSplitHostBareDomainHasEmptySubdomain(t *testing.T) {
	sub, domain, ok := portalhttp.SplitHost("wal.app", 0)
	require.True(t, ok)
	assert.Equal(t, "", sub)
	assert.Equal(t, "wal.app", domain)
}

func TestSplitHostStripsPortAndTrailingDot(t *testing.T) {
	sub, domain, ok := portalhttp.SplitHost("mysite.wal.app.:8443", 0)
	require.True(t, ok)
	assert.Equal(t, "mysite", sub)
	assert.Equal(t, "wal.app", domain)
}

func TestSplitHostWithPortalDomainNameLengthOverride(t *testing.T) {
	sub, domain, ok := portalhttp.SplitHost("mysite.internal.example.corp", 3)
	require.True(t, ok)
	assert.Equal(t, "mysite", sub)
	assert.Equal(t, "internal.example.corp", domain)
}

func TestSplitHostOverrideRejectsTooShortHost(t *testing.T) {
	_, _, ok := portalhttp.SplitHost("example.corp", 3)
	assert.False(t, ok)
}

func TestNormalizePathMapsTrailingSlashToIndex(t *testing.T) {
	assert.Equal(t, "/index.html", portalhttp.NormalizePath("/"))
	assert.Equal(t, "/index.html", portalhttp.NormalizePath(""))
	assert.Equal(t, "/blog/index.html", portalhttp.NormalizePath("/blog/"))
}

func TestNormalizePathLeavesNonTrailingSlashPathsUntouched(t *testing.T) {
	assert.Equal(t, "/about.html", portalhttp.NormalizePath("/about.html"))
}

func TestSyntheticRedirectSuiobjInvalid(t *testing.T) {
	loc, ok := portalhttp.SyntheticRedirect("mysite.suiobj.invalid", "/about.html", "wal.app", "https://aggregator.example")
	require.True(t, ok)
	assert.Equal(t, "https://mysite.wal.app/about.html", loc)
}

func TestSyntheticRedirectWalrusInvalid(t *testing.T) {
	loc, ok := portalhttp.SyntheticRedirect("blobid.walrus.invalid", "/abcDEF123", "wal.app", "https://aggregator.example/")
	require.True(t, ok)
	assert.Equal(t, "https://aggregator.example/v1/blobs/abcDEF123", loc)
}

func TestSyntheticRedirectOrdinaryHostIsUnaffected(t *testing.T) {
	_, ok := portalhttp.SyntheticRedirect("mysite.wal.app", "/index.html", "wal.app", "https://aggregator.example")
	assert.False(t, ok)
}
