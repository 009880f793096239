package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

const notInitializedText = "SFMC connection not initialized. Call initialize_sfmc_connection with your subdomain, client ID and client secret first."

// ToolDefinition is the MCP tool descriptor sent in tools/list responses.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func ok(text string) (string, bool) { return text, false }
func fail(text string) (string, bool) { return text, true }
func failf(format string, a ...any) (string, bool) {
	return fmt.Sprintf(format, a...), true
}

// Registry holds the tool definitions, the resource catalog and the active
// Marketing Cloud session. The session starts nil and is swapped in when
// initialize_sfmc_connection succeeds; a failed initialization leaves any
// previous session untouched.
type Registry struct {
	mu      sync.RWMutex
	session *sfmc.Client

	// opts are applied to every session the registry creates.
	opts []sfmc.Option
	defs []ToolDefinition
}

// NewRegistry creates a Registry with no active session. opts are passed to
// every client built by initialize_sfmc_connection.
func NewRegistry(opts ...sfmc.Option) *Registry {
	r := &Registry{opts: opts}
	r.defs = []ToolDefinition{
		{
			Name: "initialize_sfmc_connection",
			Description: "Connect to Salesforce Marketing Cloud with OAuth2 client credentials. " +
				"Verifies the credentials by requesting a token, so a success response means " +
				"the other tools are ready to use.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subdomain": map[string]any{
						"type":        "string",
						"description": "SFMC tenant subdomain, the host prefix of your auth and REST base URIs",
					},
					"client_id": map[string]any{
						"type":        "string",
						"description": "OAuth2 client ID from an installed package with saved-content read scope",
					},
					"client_secret": map[string]any{
						"type":        "string",
						"description": "OAuth2 client secret",
					},
				},
				"required": []string{"subdomain", "client_id", "client_secret"},
			},
		},
		{
			Name: "search_sfmc_assets",
			Description: "Search Marketing Cloud content assets by name, type and folder. " +
				"All filters are optional and combine with AND. Results are sorted by " +
				"modified date, newest first.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"asset_name": map[string]any{
						"type":        "string",
						"description": "Substring to match against asset names. Leave empty for all.",
					},
					"asset_type": map[string]any{
						"type":        "string",
						"description": "Exact asset type name, e.g. email, template, block, image",
					},
					"category_id": map[string]any{
						"type":        "integer",
						"description": "Restrict results to one folder (category) ID",
					},
					"page_size": map[string]any{
						"type":        "integer",
						"description": "Results per page, clamped to 1-50",
						"default":     50,
					},
					"page_number": map[string]any{
						"type":        "integer",
						"description": "Page to fetch, starting at 1",
						"default":     1,
					},
				},
			},
		},
		{
			Name: "advanced_asset_search",
			Description: "Search assets with a raw Marketing Cloud query document: page, query and sort " +
				"sections as JSON. Sections you omit fall back to defaults (page 1, 50 per page, " +
				"sorted by modifiedDate DESC).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query_json": map[string]any{
						"type":        "string",
						"description": `Query document as a JSON string, e.g. {"query":{"property":"name","simpleOperator":"contains","value":"welcome"}}`,
					},
				},
				"required": []string{"query_json"},
			},
		},
		{
			Name: "get_asset_by_id",
			Description: "Fetch the full Marketing Cloud record for one asset, content included, " +
				"by its numeric ID.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"asset_id": map[string]any{
						"type":        "string",
						"description": "Numeric asset ID as a string",
					},
				},
				"required": []string{"asset_id"},
			},
		},
	}
	return r
}

// Definitions returns the list of tool definitions for tools/list responses.
func (r *Registry) Definitions() []ToolDefinition {
	return r.defs
}

// Session returns the active client, or nil before the first successful
// initialization.
func (r *Registry) Session() *sfmc.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// SetSession replaces the active client. Used at startup when credentials
// arrive through the environment.
func (r *Registry) SetSession(c *sfmc.Client) {
	r.mu.Lock()
	r.session = c
	r.mu.Unlock()
}

// Call dispatches a tool call by name and returns (output text, isError).
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (string, bool) {
	switch name {
	case "initialize_sfmc_connection":
		return r.initializeConnection(ctx, args)
	case "search_sfmc_assets":
		return r.searchAssets(ctx, args)
	case "advanced_asset_search":
		return r.advancedSearch(ctx, args)
	case "get_asset_by_id":
		return r.assetByID(ctx, args)
	default:
		return failf("unknown tool: %q", name)
	}
}

// ── tool handlers ────────────────────────────────────────────────────────────

func (r *Registry) initializeConnection(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Subdomain    string `json:"subdomain"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return failf("invalid arguments: %v", err)
	}

	client, err := sfmc.New(sfmc.Credentials{
		Subdomain:    strings.TrimSpace(in.Subdomain),
		ClientID:     strings.TrimSpace(in.ClientID),
		ClientSecret: in.ClientSecret,
	}, r.opts...)
	if err != nil {
		return failf("invalid credentials: %v", err)
	}

	// Verify the credentials now rather than on the first search.
	if _, err := client.Token(ctx); err != nil {
		return failf("authentication failed: %v", err)
	}

	r.SetSession(client)
	return ok(fmt.Sprintf("Connected to Salesforce Marketing Cloud.\nSubdomain: %s\nREST base:  %s", client.Subdomain(), client.BaseURL()))
}

func (r *Registry) searchAssets(ctx context.Context, args json.RawMessage) (string, bool) {
	in := struct {
		AssetName  string `json:"asset_name"`
		AssetType  string `json:"asset_type"`
		CategoryID int    `json:"category_id"`
		PageSize   int    `json:"page_size"`
		PageNumber int    `json:"page_number"`
	}{PageSize: 50, PageNumber: 1}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return failf("invalid arguments: %v", err)
		}
	}

	sess := r.Session()
	if sess == nil {
		return fail(notInitializedText)
	}

	res, err := sess.SearchAssets(ctx, sfmc.SearchParams{
		Name:       in.AssetName,
		AssetType:  in.AssetType,
		CategoryID: in.CategoryID,
		Page:       in.PageNumber,
		PageSize:   in.PageSize,
	})
	if err != nil {
		return failf("asset search failed: %v", err)
	}
	return ok(renderJSON(res))
}

func (r *Registry) advancedSearch(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		QueryJSON string `json:"query_json"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return failf("invalid arguments: %v", err)
	}
	if strings.TrimSpace(in.QueryJSON) == "" {
		return fail("query_json is required")
	}

	sess := r.Session()
	if sess == nil {
		return fail(notInitializedText)
	}

	res, err := sess.AdvancedSearch(ctx, []byte(in.QueryJSON))
	if err != nil {
		return failf("advanced search failed: %v", err)
	}
	return ok(renderJSON(res))
}

func (r *Registry) assetByID(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		AssetID string `json:"asset_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return failf("invalid arguments: %v", err)
	}
	if strings.TrimSpace(in.AssetID) == "" {
		return fail("asset_id is required")
	}

	sess := r.Session()
	if sess == nil {
		return fail(notInitializedText)
	}

	raw, err := sess.AssetByID(ctx, strings.TrimSpace(in.AssetID))
	if err != nil {
		return failf("asset lookup failed: %v", err)
	}

	// Re-indent for readability without touching content or key order.
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return ok(string(raw))
	}
	return ok(buf.String())
}

func renderJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("encoding error: %v", err)
	}
	return string(out)
}
