// Package blocklist implements the List Checker abstraction (C6): a
// pluggable yes/no membership test against an external store, used to
// enforce both the blocklist and the allowlist (SPEC_FULL.md §4.6).
package blocklist

import "context"

// Checker answers whether key (an object id or a subdomain, depending on
// what the caller is screening) is a member of the backing list.
type Checker interface {
	// Init prepares the checker (e.g. an initial sync) before first use.
	Init(ctx context.Context) error

	// Contains reports list membership for key.
	Contains(ctx context.Context, key string) (bool, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any background resources (sync goroutines,
	// connections). Safe to call on a Checker that was never Init'd.
	Close() error
}

// NoopChecker always reports "not a member". Used when enable_blocklist /
// enable_allowlist is false, so the orchestrator need not special-case a
// disabled list.
type NoopChecker struct{}

func (NoopChecker) Init(context.Context) error                    { return nil }
func (NoopChecker) Contains(context.Context, string) (bool, error) { return false, nil }
func (NoopChecker) Ping(context.Context) error                    { return nil }
func (NoopChecker) Close() error                                  { return nil }
