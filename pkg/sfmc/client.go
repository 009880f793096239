package sfmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// Tenant endpoints are derived from the installed package's subdomain.
	authBasePattern = "https://%s.auth.marketingcloudapis.com"
	restBasePattern = "https://%s.rest.marketingcloudapis.com"

	// assetsPath is the Content Builder asset collection.
	assetsPath = "/asset/v1/content/assets"

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20
)

// Credentials identify one Marketing Cloud installed package on one tenant.
type Credentials struct {
	Subdomain    string
	ClientID     string
	ClientSecret string
}

// Client is an authenticated session against a single Marketing Cloud
// tenant. It owns the cached access token; there is no package-level
// state, so replacing a connection means constructing a new Client.
type Client struct {
	creds      Credentials
	authBase   string
	restBase   string
	httpClient *http.Client
	logger     *zap.Logger

	// token state — guarded by mu
	mu    sync.Mutex
	token *oauth2.Token
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, replacing the default with
// its 10-second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// WithLogger attaches a structured logger. The default is a no-op logger;
// the client never logs credentials or token values either way.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithEndpoints overrides the auth and REST base URLs derived from the
// subdomain. Intended for tests and for tenants behind a proxy.
func WithEndpoints(authBase, restBase string) Option {
	return func(c *Client) error {
		c.authBase = strings.TrimRight(authBase, "/")
		c.restBase = strings.TrimRight(restBase, "/")
		return nil
	}
}

// New creates a session for the given credentials.
//
//	c, err := sfmc.New(sfmc.Credentials{
//	    Subdomain:    "mc123456789",
//	    ClientID:     os.Getenv("SFMC_CLIENT_ID"),
//	    ClientSecret: os.Getenv("SFMC_CLIENT_SECRET"),
//	})
//
// No network traffic happens here; the first operation (or an explicit
// Token call) performs the initial exchange.
func New(creds Credentials, opts ...Option) (*Client, error) {
	if creds.Subdomain == "" {
		return nil, fmt.Errorf("subdomain must not be empty")
	}
	if creds.ClientID == "" {
		return nil, fmt.Errorf("client id must not be empty")
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("client secret must not be empty")
	}

	c := &Client{
		creds:      creds,
		authBase:   fmt.Sprintf(authBasePattern, creds.Subdomain),
		restBase:   fmt.Sprintf(restBasePattern, creds.Subdomain),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subdomain returns the tenant subdomain this session was created for.
func (c *Client) Subdomain() string { return c.creds.Subdomain }

// BaseURL returns the REST base URL requests are issued against.
func (c *Client) BaseURL() string { return c.restBase }

// SearchAssets performs a simple asset search. Paging is clamped and the
// $filter expression assembled as described on SearchParams; results come
// back normalized.
func (c *Client) SearchAssets(ctx context.Context, params SearchParams) (*SearchResult, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	searchURL := c.restBase + assetsPath + "?" + params.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errf(KindTransport, err, "build search request: %v", err)
	}

	body, err := c.do(req, token)
	if err != nil {
		return nil, err
	}

	env := newEnvelope()
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errf(KindParse, err, "decode search response: %v", err)
	}
	c.logger.Info("asset search complete",
		zap.Int("count", env.Count),
		zap.Int("page", env.Page),
	)

	res := env.normalize()
	return &res, nil
}

// AdvancedSearch posts a structured query to the assets/query endpoint.
// rawQuery is parsed and overlaid on the default query before any network
// traffic, so malformed input fails without an HTTP attempt. The result
// echoes the query actually sent in QueryUsed.
func (c *Client) AdvancedSearch(ctx context.Context, rawQuery []byte) (*SearchResult, error) {
	query, err := BuildQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, errf(KindParse, err, "encode query body: %v", err)
	}

	queryURL := c.restBase + assetsPath + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errf(KindTransport, err, "build query request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, token)
	if err != nil {
		return nil, err
	}

	env := newEnvelope()
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errf(KindParse, err, "decode query response: %v", err)
	}
	c.logger.Info("advanced search complete",
		zap.Int("count", env.Count),
		zap.Int("page", env.Page),
	)

	res := env.normalize()
	res.QueryUsed = &query
	return &res, nil
}

// AssetByID fetches one asset's full provider record and returns it
// verbatim, only checked to be well-formed JSON. The id goes into the URL
// path as-is; characters that need escaping are the caller's problem.
func (c *Client) AssetByID(ctx context.Context, id string) (json.RawMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errf(KindParse, nil, "asset id must not be empty")
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restBase+assetsPath+"/"+id, nil)
	if err != nil {
		return nil, errf(KindTransport, err, "build asset request: %v", err)
	}

	body, err := c.do(req, token)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errf(KindParse, nil, "asset %s: provider returned invalid JSON", id)
	}

	c.logger.Info("asset detail fetched", zap.String("asset_id", id))
	return json.RawMessage(body), nil
}

// Connection states reported by Status.
const (
	StateConnected      = "connected"
	StateError          = "error"
	StateNotInitialized = "not_initialized"
)

// ConnectionStatus is the health report for a session.
type ConnectionStatus struct {
	State       string `json:"state"`
	Subdomain   string `json:"subdomain,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
	TokenValid  bool   `json:"tokenValid"`
	TokenExpiry string `json:"tokenExpiry,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NotInitializedStatus is the report front ends publish while they hold
// no session.
func NotInitializedStatus() ConnectionStatus {
	return ConnectionStatus{State: StateNotInitialized}
}

// Status checks the session by obtaining a token (cached or fresh) and
// reports the outcome. It never returns an error; exchange failures are
// folded into the report.
func (c *Client) Status(ctx context.Context) ConnectionStatus {
	st := ConnectionStatus{
		State:     StateConnected,
		Subdomain: c.creds.Subdomain,
		BaseURL:   c.restBase,
	}

	if _, err := c.Token(ctx); err != nil {
		st.State = StateError
		st.Error = err.Error()
		return st
	}

	st.TokenValid = true
	c.mu.Lock()
	if c.token != nil {
		st.TokenExpiry = c.token.Expiry.Format(time.RFC3339)
	}
	c.mu.Unlock()
	return st
}

// do executes one provider request with the bearer token attached and
// returns the response body. Responses outside 2xx become transport
// errors carrying the status code and body. There are no retries.
func (c *Client) do(req *http.Request, token string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errf(KindTransport, err, "request %s failed: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errf(KindTransport, err, "read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errf(KindTransport, nil, "provider returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
