package mcpbridge_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mktcloud/sfmc-asset-agent/internal/mcpbridge"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

const assetPageJSON = `{
  "count": 1,
  "page": 1,
  "pageSize": 50,
  "items": [
    {
      "id": 9001,
      "name": "Welcome Email",
      "assetType": {"name": "htmlemail"},
      "modifiedDate": "2024-03-01T10:00:00Z",
      "status": {"name": "Published"}
    }
  ]
}`

const assetDetailJSON = `{"id":9001,"name":"Welcome Email","views":{"html":{"content":"<p>hi</p>"}}}`

type tenantCounts struct {
	tokens, searches, queries, details int
}

// stubTenant records the traffic a fake Marketing Cloud tenant receives.
type stubTenant struct {
	mu         sync.Mutex
	c          tenantCounts
	lastParams url.Values
	lastQuery  []byte
}

func (s *stubTenant) counts() tenantCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

func (s *stubTenant) params() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParams
}

func (s *stubTenant) queryBody() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// newStubTenant serves both the auth and REST surfaces of a tenant.
// A client_id of "bad-client" is rejected at the token endpoint; asset
// 9001 is the only one that exists.
func newStubTenant(t *testing.T) (*httptest.Server, *stubTenant) {
	t.Helper()
	st := &stubTenant{}
	mux := http.NewServeMux()

	mux.HandleFunc("/v2/token", func(w http.ResponseWriter, req *http.Request) {
		st.mu.Lock()
		st.c.tokens++
		st.mu.Unlock()

		var grant struct {
			ClientID string `json:"client_id"`
		}
		_ = json.NewDecoder(req.Body).Decode(&grant)
		w.Header().Set("Content-Type", "application/json")
		if grant.ClientID == "bad-client" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"bridge-token","token_type":"Bearer","expires_in":3600}`))
	})

	mux.HandleFunc("/asset/v1/content/assets", func(w http.ResponseWriter, req *http.Request) {
		st.mu.Lock()
		st.c.searches++
		st.lastParams = req.URL.Query()
		st.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assetPageJSON))
	})

	mux.HandleFunc("/asset/v1/content/assets/query", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		st.mu.Lock()
		st.c.queries++
		st.lastQuery = body
		st.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assetPageJSON))
	})

	mux.HandleFunc("/asset/v1/content/assets/", func(w http.ResponseWriter, req *http.Request) {
		st.mu.Lock()
		st.c.details++
		st.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.TrimPrefix(req.URL.Path, "/asset/v1/content/assets/") != "9001" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"asset not found"}`))
			return
		}
		_, _ = w.Write([]byte(assetDetailJSON))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

func newStubRegistry(srv *httptest.Server) *mcpbridge.Registry {
	return mcpbridge.NewRegistry(sfmc.WithEndpoints(srv.URL, srv.URL))
}

// call invokes one tool directly against the registry.
func call(t *testing.T, reg *mcpbridge.Registry, tool, args string) (string, bool) {
	t.Helper()
	return reg.Call(context.Background(), tool, json.RawMessage(args))
}

// connect initializes the registry's session against the stub tenant.
func connect(t *testing.T, reg *mcpbridge.Registry) {
	t.Helper()
	text, isErr := call(t, reg, "initialize_sfmc_connection",
		`{"subdomain":"acme","client_id":"good-client","client_secret":"s3cret"}`)
	if isErr {
		t.Fatalf("initialize: %s", text)
	}
}

// ── initialize_sfmc_connection ───────────────────────────────────────────────

func TestInitializeVerifiesCredentialsEagerly(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)

	connect(t, reg)

	if got := st.counts().tokens; got != 1 {
		t.Errorf("token exchanges = %d, want 1", got)
	}
	if reg.Session() == nil {
		t.Fatal("session is nil after successful initialize")
	}
	if got := reg.Session().Subdomain(); got != "acme" {
		t.Errorf("subdomain = %q, want acme", got)
	}
}

func TestInitializeRejectsBadCredentials(t *testing.T) {
	srv, _ := newStubTenant(t)
	reg := newStubRegistry(srv)

	text, isErr := call(t, reg, "initialize_sfmc_connection",
		`{"subdomain":"acme","client_id":"bad-client","client_secret":"nope"}`)
	if !isErr {
		t.Fatal("expected isError for rejected credentials")
	}
	if !strings.Contains(text, "authentication failed") {
		t.Errorf("text = %q, want authentication failure", text)
	}
	if reg.Session() != nil {
		t.Error("failed initialize must not install a session")
	}
}

func TestInitializeKeepsPreviousSessionOnFailure(t *testing.T) {
	srv, _ := newStubTenant(t)
	reg := newStubRegistry(srv)

	connect(t, reg)
	before := reg.Session()

	_, isErr := call(t, reg, "initialize_sfmc_connection",
		`{"subdomain":"acme","client_id":"bad-client","client_secret":"nope"}`)
	if !isErr {
		t.Fatal("expected the second initialize to fail")
	}
	if reg.Session() != before {
		t.Error("failed initialize replaced the working session")
	}
}

func TestInitializeValidatesInputBeforeNetwork(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)

	text, isErr := call(t, reg, "initialize_sfmc_connection",
		`{"subdomain":"","client_id":"id","client_secret":"sec"}`)
	if !isErr || !strings.Contains(text, "invalid credentials") {
		t.Errorf("got (%q, %v), want invalid-credentials error", text, isErr)
	}
	if got := st.counts().tokens; got != 0 {
		t.Errorf("token exchanges = %d, want 0", got)
	}
}

// ── session guard ────────────────────────────────────────────────────────────

func TestToolsRequireSession(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)

	cases := []struct {
		tool, args string
	}{
		{"search_sfmc_assets", `{"asset_name":"welcome"}`},
		{"advanced_asset_search", `{"query_json":"{}"}`},
		{"get_asset_by_id", `{"asset_id":"9001"}`},
	}
	for _, tc := range cases {
		text, isErr := call(t, reg, tc.tool, tc.args)
		if !isErr {
			t.Errorf("%s: expected isError without a session", tc.tool)
		}
		if !strings.Contains(text, "not initialized") {
			t.Errorf("%s: text = %q, want not-initialized guidance", tc.tool, text)
		}
	}
	if got := st.counts(); got != (tenantCounts{}) {
		t.Errorf("network traffic without a session: %+v", got)
	}
}

// ── search_sfmc_assets ───────────────────────────────────────────────────────

func TestSearchAppliesSchemaDefaults(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	text, isErr := call(t, reg, "search_sfmc_assets", `{}`)
	if isErr {
		t.Fatalf("search: %s", text)
	}

	p := st.params()
	if got := p.Get("$pagesize"); got != "50" {
		t.Errorf("$pagesize = %q, want 50", got)
	}
	if got := p.Get("$page"); got != "1" {
		t.Errorf("$page = %q, want 1", got)
	}
	if p.Has("$filter") {
		t.Errorf("unexpected $filter = %q", p.Get("$filter"))
	}
}

func TestSearchForwardsFilters(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	_, isErr := call(t, reg, "search_sfmc_assets",
		`{"asset_name":"welcome","asset_type":"email","category_id":12,"page_size":5,"page_number":2}`)
	if isErr {
		t.Fatal("search failed")
	}

	p := st.params()
	if got := p.Get("$pagesize"); got != "5" {
		t.Errorf("$pagesize = %q, want 5", got)
	}
	if got := p.Get("$page"); got != "2" {
		t.Errorf("$page = %q, want 2", got)
	}
	want := "name like 'welcome' and assetType.name eq 'email' and category.id eq 12"
	if got := p.Get("$filter"); got != want {
		t.Errorf("$filter = %q, want %q", got, want)
	}
}

func TestSearchRendersNormalizedResult(t *testing.T) {
	srv, _ := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	text, isErr := call(t, reg, "search_sfmc_assets", `{"asset_name":"welcome"}`)
	if isErr {
		t.Fatalf("search: %s", text)
	}
	for _, want := range []string{`"totalFound": 1`, `"Welcome Email"`, `"htmlemail"`} {
		if !strings.Contains(text, want) {
			t.Errorf("result text missing %s", want)
		}
	}
	if strings.Contains(text, "queryUsed") {
		t.Error("simple search must not echo a queryUsed")
	}
}

// ── advanced_asset_search ────────────────────────────────────────────────────

func TestAdvancedSearchMergesDefaults(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	text, isErr := call(t, reg, "advanced_asset_search",
		`{"query_json":"{\"query\":{\"property\":\"name\",\"simpleOperator\":\"contains\",\"value\":\"welcome\"}}"}`)
	if isErr {
		t.Fatalf("advanced search: %s", text)
	}

	body := string(st.queryBody())
	for _, want := range []string{`"pageSize":50`, `"value":"welcome"`, `"modifiedDate"`} {
		if !strings.Contains(body, want) {
			t.Errorf("query body %s missing %s", body, want)
		}
	}
	if !strings.Contains(text, "queryUsed") {
		t.Error("advanced result must echo queryUsed")
	}
}

func TestAdvancedSearchRejectsMalformedQuery(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)
	base := st.counts()

	text, isErr := call(t, reg, "advanced_asset_search", `{"query_json":"{not json"}`)
	if !isErr || !strings.Contains(text, "advanced search failed") {
		t.Errorf("got (%q, %v), want parse failure", text, isErr)
	}
	if got := st.counts().queries; got != base.queries {
		t.Errorf("query endpoint hit %d times for malformed input", got-base.queries)
	}
}

func TestAdvancedSearchRequiresQueryJSON(t *testing.T) {
	reg := mcpbridge.NewRegistry()

	text, isErr := call(t, reg, "advanced_asset_search", `{"query_json":"  "}`)
	if !isErr || !strings.Contains(text, "query_json is required") {
		t.Errorf("got (%q, %v), want required-argument error", text, isErr)
	}
}

// ── get_asset_by_id ──────────────────────────────────────────────────────────

func TestGetAssetReindentsProviderRecord(t *testing.T) {
	srv, _ := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	text, isErr := call(t, reg, "get_asset_by_id", `{"asset_id":"9001"}`)
	if isErr {
		t.Fatalf("get asset: %s", text)
	}
	if !strings.Contains(text, "\"id\": 9001") {
		t.Errorf("record not re-indented: %s", text)
	}
	if !strings.Contains(text, "<p>hi</p>") {
		t.Error("record content missing from output")
	}
}

func TestGetAssetNotFound(t *testing.T) {
	srv, _ := newStubTenant(t)
	reg := newStubRegistry(srv)
	connect(t, reg)

	text, isErr := call(t, reg, "get_asset_by_id", `{"asset_id":"4040"}`)
	if !isErr {
		t.Fatal("expected isError for a missing asset")
	}
	if !strings.Contains(text, "404") {
		t.Errorf("text = %q, want the provider status surfaced", text)
	}
}

func TestGetAssetRequiresID(t *testing.T) {
	reg := mcpbridge.NewRegistry()

	text, isErr := call(t, reg, "get_asset_by_id", `{"asset_id":" "}`)
	if !isErr || !strings.Contains(text, "asset_id is required") {
		t.Errorf("got (%q, %v), want required-argument error", text, isErr)
	}
}

// ── manifest ─────────────────────────────────────────────────────────────────

func TestManifestMirrorsCatalogs(t *testing.T) {
	reg := mcpbridge.NewRegistry()
	m := reg.Manifest()

	if m.Name != "sfmc-asset-agent" {
		t.Errorf("name = %q", m.Name)
	}
	if m.SchemaVersion != "2024-11-05" {
		t.Errorf("schemaVersion = %q", m.SchemaVersion)
	}
	if len(m.Tools) != len(reg.Definitions()) {
		t.Errorf("manifest tools = %d, want %d", len(m.Tools), len(reg.Definitions()))
	}
	if len(m.Resources) != len(reg.Resources()) {
		t.Errorf("manifest resources = %d, want %d", len(m.Resources), len(reg.Resources()))
	}
	if len(m.RequiredEnv) != 3 {
		t.Errorf("requiredEnv = %v, want the three SFMC_* variables", m.RequiredEnv)
	}

	out, err := m.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !json.Valid(out) {
		t.Fatal("rendered manifest is not valid JSON")
	}
	if !strings.Contains(string(out), `"sfmc:requiredEnv"`) {
		t.Error("rendered manifest missing sfmc:requiredEnv")
	}
}
