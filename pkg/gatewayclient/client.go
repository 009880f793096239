// Package gatewayclient provides the Go SDK for the sfmc-gateway REST
// API: session setup, both search forms, asset fetches and the served
// reference documents.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mktcloud/sfmc-asset-agent/pkg/mcpmanifest"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// Client talks to one running sfmc-gateway instance.
type Client struct {
	base       string
	httpClient *http.Client
	cache      *assetCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, replacing the default and
// its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// WithCacheTTL enables in-memory caching of asset detail fetches. Asset
// content changes rarely relative to how often agent conversations
// re-fetch it, so short TTLs remove most repeat traffic.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newAssetCache(ttl)
		return nil
	}
}

// New creates a Client for the gateway at base, e.g. "http://localhost:8080".
//
//	c, err := gatewayclient.New("http://localhost:8080",
//	    gatewayclient.WithCacheTTL(60*time.Second),
//	)
func New(base string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Connect starts a gateway session from the given credentials. The
// gateway verifies them with a live token exchange before accepting, so
// a nil error means the tenant is reachable.
func (c *Client) Connect(ctx context.Context, subdomain, clientID, clientSecret string) (*sfmc.ConnectionStatus, error) {
	payload, _ := json.Marshal(map[string]string{
		"subdomain":     subdomain,
		"client_id":     clientID,
		"client_secret": clientSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/connection", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var status sfmc.ConnectionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &status, nil
}

// Status reports the gateway's session state. The gateway answers 200
// whether or not a session exists; the State field carries the verdict.
func (c *Client) Status(ctx context.Context) (*sfmc.ConnectionStatus, error) {
	body, err := c.get(ctx, "/api/v1/connection/status")
	if err != nil {
		return nil, err
	}

	var status sfmc.ConnectionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &status, nil
}

// SearchAssets runs a simple search. Zero values in params mean "no
// filter"; paging bounds are enforced gateway-side.
func (c *Client) SearchAssets(ctx context.Context, params sfmc.SearchParams) (*sfmc.SearchResult, error) {
	q := url.Values{}
	if params.Name != "" {
		q.Set("name", params.Name)
	}
	if params.AssetType != "" {
		q.Set("type", params.AssetType)
	}
	if params.CategoryID != 0 {
		q.Set("category_id", strconv.Itoa(params.CategoryID))
	}
	if params.Page != 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize != 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}

	path := "/api/v1/assets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var res sfmc.SearchResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}

// AdvancedSearch posts a raw query document. Sections the document
// omits fall back to the gateway's defaults.
func (c *Client) AdvancedSearch(ctx context.Context, query json.RawMessage) (*sfmc.SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/assets/query", bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var res sfmc.SearchResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}

// Asset fetches one asset's full record, content included, as the
// provider returned it. Results are cached when WithCacheTTL is set.
func (c *Client) Asset(ctx context.Context, id string) (json.RawMessage, error) {
	if c.cache != nil {
		if raw, ok := c.cache.get(id); ok {
			return raw, nil
		}
	}

	body, err := c.get(ctx, "/api/v1/assets/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.set(id, body)
	}
	return json.RawMessage(body), nil
}

// AssetTypes fetches the asset type and operator reference document.
func (c *Client) AssetTypes(ctx context.Context) (*sfmc.AssetTypesReference, error) {
	body, err := c.get(ctx, "/api/v1/reference/asset-types")
	if err != nil {
		return nil, err
	}

	var ref sfmc.AssetTypesReference
	if err := json.Unmarshal(body, &ref); err != nil {
		return nil, fmt.Errorf("decode reference response: %w", err)
	}
	return &ref, nil
}

// Manifest fetches the gateway's MCP manifest: the tool and resource
// catalog the stdio server would advertise for the same build.
func (c *Client) Manifest(ctx context.Context) (*mcpmanifest.Manifest, error) {
	body, err := c.get(ctx, "/api/v1/mcp-manifest.json")
	if err != nil {
		return nil, err
	}

	var m mcpmanifest.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// do executes one gateway request. Non-2xx responses are decoded into
// kind-tagged errors so sfmc.KindOf classifies SDK failures the same
// way it classifies direct-client failures.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &sfmc.Error{
			Kind:    sfmc.KindTransport,
			Message: fmt.Sprintf("gateway request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &sfmc.Error{
			Kind:    sfmc.KindTransport,
			Message: fmt.Sprintf("read gateway response: %v", err),
		}
	}

	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// decodeAPIError rebuilds a kind-tagged error from the gateway's error
// body. Bodies without a kind field (request binding failures) get a
// kind inferred from the status code, inverting the gateway's own
// kind-to-status table.
func decodeAPIError(status int, body []byte) error {
	var apiErr struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
		return &sfmc.Error{
			Kind:    sfmc.KindTransport,
			Message: fmt.Sprintf("gateway error %d: %s", status, strings.TrimSpace(string(body))),
		}
	}

	kind := sfmc.Kind(apiErr.Kind)
	if kind == "" {
		switch status {
		case http.StatusBadRequest:
			kind = sfmc.KindParse
		case http.StatusUnauthorized:
			kind = sfmc.KindAuth
		case http.StatusConflict:
			kind = sfmc.KindNotInitialized
		default:
			kind = sfmc.KindTransport
		}
	}
	return &sfmc.Error{Kind: kind, Message: apiErr.Error}
}

// --- simple in-memory asset cache ---

type cacheEntry struct {
	raw       json.RawMessage
	expiresAt time.Time
}

type assetCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newAssetCache(ttl time.Duration) *assetCache {
	return &assetCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (ac *assetCache) get(key string) (json.RawMessage, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	e, ok := ac.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.raw, true
}

func (ac *assetCache) set(key string, raw json.RawMessage) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.entries[key] = &cacheEntry{raw: raw, expiresAt: time.Now().Add(ac.ttl)}
}
