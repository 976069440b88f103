// Package chainrpc implements the RPC Selector (C1): a multiplexer over N
// upstream chain-RPC endpoints that prefers the last endpoint known to have
// answered, and races every endpoint when that one fails, promoting whichever
// answers first. See SPEC_FULL.md §4.1.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Endpoint is one configured upstream, as `rpc_urls`/`premium_rpc_urls`
// enumerate it: a URL, a per-call retry budget, and a free-form metric label
// used only for observability.
type Endpoint struct {
	URL     string
	Retries int
	Metric  string
}

// ErrAllEndpointsFailed is returned when sticky-first and every endpoint in
// the race-fallback phase fail.
var ErrAllEndpointsFailed = errors.New("chainrpc: all RPC endpoints failed")

// RPCError mirrors a JSON-RPC error object. A non-nil RPCError on a Response
// is a legitimate chain-level answer (e.g. "object not found"), not a
// transport failure, and is never itself cause for failover.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("chainrpc: rpc error %d: %s", e.Code, e.Message)
}

// Response is a decoded JSON-RPC envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Selector multiplexes Endpoints behind the sticky-first/race-fallback
// policy. The endpoint list is immutable after construction; only the
// `selected` index mutates, and only the winner of a race may write it
// (SPEC_FULL.md's "winner-only write").
type Selector struct {
	endpoints []Endpoint
	client    *http.Client
	timeout   time.Duration

	selected atomic.Int64
	nextID   atomic.Uint64

	// calls collapses concurrent identical method+params calls into a
	// single transport round trip, each caller sharing the one response.
	calls singleflight.Group
}

// New builds a Selector over endpoints with the given per-call timeout
// (`rpc_request_timeout_ms`, default 7s — see config.Config).
func New(endpoints []Endpoint, timeout time.Duration) (*Selector, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("chainrpc: at least one endpoint is required")
	}
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Selector{
		endpoints: append([]Endpoint(nil), endpoints...),
		client:    &http.Client{},
		timeout:   timeout,
	}, nil
}

// Selected returns the URL of the currently preferred endpoint.
func (s *Selector) Selected() string {
	return s.endpoints[s.selected.Load()].URL
}

// Call issues method(params) against the currently selected endpoint first;
// on transport failure it races every configured endpoint and promotes
// whichever answers with a structurally valid JSON-RPC response first.
// Concurrent calls with identical method+params are collapsed into one
// round trip via the shared singleflight group; every caller gets the same
// *Response (or error), so a caller must treat the result as read-only.
func (s *Selector) Call(ctx context.Context, method string, params any) (*Response, error) {
	key, err := callKey(method, params)
	if err != nil {
		return s.call(ctx, method, params)
	}

	v, err, _ := s.calls.Do(key, func() (any, error) {
		return s.call(ctx, method, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// callKey derives a singleflight dedupe key from method and the exact
// params that will be marshaled onto the wire, so two calls only collapse
// when they are truly requesting the same data.
func callKey(method string, params any) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return method + ":" + string(b), nil
}

// call is the uncollapsed sticky-first/race-fallback implementation Call
// dedupes through singleflight.
func (s *Selector) call(ctx context.Context, method string, params any) (*Response, error) {
	idx := int(s.selected.Load())
	primary := s.endpoints[idx]

	resp, err := s.callWithRetries(ctx, primary, method, params)
	if err == nil {
		return resp, nil
	}

	return s.raceFallback(ctx, method, params)
}

// raceFallback issues the call in parallel to every endpoint. The first
// valid response wins and becomes `selected`; slower responses — including
// slower successes — are left to finish in the background without touching
// selector state.
func (s *Selector) raceFallback(ctx context.Context, method string, params any) (*Response, error) {
	type outcome struct {
		idx  int
		resp *Response
		err  error
	}

	results := make(chan outcome, len(s.endpoints))
	for i, ep := range s.endpoints {
		go func(i int, ep Endpoint) {
			resp, err := s.callWithRetries(ctx, ep, method, params)
			results <- outcome{idx: i, resp: resp, err: err}
		}(i, ep)
	}

	var lastErr error
	for range s.endpoints {
		out := <-results
		if out.err == nil {
			s.selected.Store(int64(out.idx))
			return out.resp, nil
		}
		lastErr = out.err
	}
	return nil, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

// callWithRetries attempts ep up to ep.Retries+1 times, each attempt bounded
// by the selector's configured timeout.
func (s *Selector) callWithRetries(ctx context.Context, ep Endpoint, method string, params any) (*Response, error) {
	attempts := ep.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := s.callOnce(ctx, ep, method, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// callOnce performs a single HTTP round trip to ep. A non-2xx status, a
// transport error, or a malformed JSON body are all transport-level
// failures; a decoded envelope carrying an Error field is a valid, if
// negative, answer.
func (s *Selector) callOnce(ctx context.Context, ep Endpoint, method string, params any) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("chainrpc: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chainrpc: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: %s: %w", ep.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: reading body from %s: %w", ep.URL, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("chainrpc: %s returned status %d", ep.URL, httpResp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("chainrpc: decoding response from %s: %w", ep.URL, err)
	}
	return &out, nil
}

// ObjectData is the `data` payload of a getObject/multiGetObjects/
// getDynamicFieldObject answer: the BCS bytes of the object plus whatever
// display fields the caller requested.
type ObjectData struct {
	ObjectID string `json:"objectId"`
	Version  string `json:"version"`
	Bcs      *struct {
		BcsBytes string `json:"bcsBytes"`
	} `json:"bcs,omitempty"`
	Display *struct {
		Data map[string]string `json:"data"`
	} `json:"display,omitempty"`
}

// ObjectResult is one entry of a getObject/multiGetObjects answer.
type ObjectResult struct {
	Data  *ObjectData `json:"data,omitempty"`
	Error *RPCError   `json:"error,omitempty"`
}

type objectOptions struct {
	ShowBcs     bool `json:"showBcs"`
	ShowDisplay bool `json:"showDisplay"`
}

// GetObject fetches a single object by id.
func (s *Selector) GetObject(ctx context.Context, objectID string, showBcs, showDisplay bool) (*ObjectResult, error) {
	resp, err := s.Call(ctx, "getObject", []any{objectID, objectOptions{ShowBcs: showBcs, ShowDisplay: showDisplay}})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &ObjectResult{Error: resp.Error}, nil
	}
	var out ObjectResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("chainrpc: decoding getObject result: %w", err)
	}
	return &out, nil
}

// MultiGetObjects fetches several objects in one call, preserving the
// requested ordering in its return slice.
func (s *Selector) MultiGetObjects(ctx context.Context, objectIDs []string, showBcs, showDisplay bool) ([]ObjectResult, error) {
	resp, err := s.Call(ctx, "multiGetObjects", []any{objectIDs, objectOptions{ShowBcs: showBcs, ShowDisplay: showDisplay}})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	var out []ObjectResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("chainrpc: decoding multiGetObjects result: %w", err)
	}
	return out, nil
}

// DynamicFieldName is the (type, value) pair a dynamic field is keyed by.
type DynamicFieldName struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// GetDynamicFieldObject fetches the dynamic field named name on parent.
func (s *Selector) GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*ObjectResult, error) {
	resp, err := s.Call(ctx, "getDynamicFieldObject", []any{parentID, name})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &ObjectResult{Error: resp.Error}, nil
	}
	var out ObjectResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("chainrpc: decoding getDynamicFieldObject result: %w", err)
	}
	return &out, nil
}

// NameRecord is a resolved name-service entry. WalrusSiteID takes precedence
// over TargetAddress when both are present (SPEC_FULL.md §4.2).
type NameRecord struct {
	WalrusSiteID  string `json:"walrus_site_id"`
	TargetAddress string `json:"target_address"`
}

// GetNameRecord resolves a fully-qualified name (e.g. "example.sui") to its
// NameRecord.
func (s *Selector) GetNameRecord(ctx context.Context, name string) (*NameRecord, error) {
	resp, err := s.Call(ctx, "getNameRecord", []any{name})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}
	var out NameRecord
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("chainrpc: decoding getNameRecord result: %w", err)
	}
	return &out, nil
}
