package mcpbridge_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/mktcloud/sfmc-asset-agent/internal/mcpbridge"
)

// reply is the loosely typed view of one JSON-RPC response.
type reply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// runSession feeds scripted JSON-RPC lines to a server and collects
// wantReplies responses. Responses to slow methods arrive through the
// pipe whenever their goroutines finish, so the count must match the
// script exactly.
func runSession(t *testing.T, reg *mcpbridge.Registry, wantReplies int, lines ...string) []reply {
	t.Helper()

	pr, pw := io.Pipe()
	srv := mcpbridge.NewServer(pw, reg, log.New(io.Discard, "", 0))

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"))
	}()

	dec := json.NewDecoder(pr)
	replies := make([]reply, 0, wantReplies)
	for len(replies) < wantReplies {
		var rep reply
		if err := dec.Decode(&rep); err != nil {
			t.Fatalf("decode reply %d: %v", len(replies), err)
		}
		replies = append(replies, rep)
	}

	if err := <-serveDone; err != nil {
		t.Fatalf("serve: %v", err)
	}
	pr.Close()
	return replies
}

// toolOutcome unwraps a tools/call result into its text and error flag.
func toolOutcome(t *testing.T, rep reply) (string, bool) {
	t.Helper()
	if rep.Error != nil {
		t.Fatalf("unexpected protocol error: %d %s", rep.Error.Code, rep.Error.Message)
	}
	var res struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(rep.Result, &res); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	if res.Content[0].Type != "text" {
		t.Fatalf("content type = %q, want text", res.Content[0].Type)
	}
	return res.Content[0].Text, res.IsError
}

// resourceContents unwraps a resources/read result.
func resourceContents(t *testing.T, rep reply) (uri, mime, text string) {
	t.Helper()
	if rep.Error != nil {
		t.Fatalf("unexpected protocol error: %d %s", rep.Error.Code, rep.Error.Message)
	}
	var res struct {
		Contents []struct {
			URI      string `json:"uri"`
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(rep.Result, &res); err != nil {
		t.Fatalf("decode resource result: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("contents blocks = %d, want 1", len(res.Contents))
	}
	return res.Contents[0].URI, res.Contents[0].MimeType, res.Contents[0].Text
}

// ── handshake and catalogs ───────────────────────────────────────────────────

func TestInitializeHandshake(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
	)

	var res struct {
		ProtocolVersion string                     `json:"protocolVersion"`
		Capabilities    map[string]json.RawMessage `json:"capabilities"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(replies[0].Result, &res); err != nil {
		t.Fatalf("decode initialize result: %v", err)
	}
	if res.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q, want 2024-11-05", res.ProtocolVersion)
	}
	if res.ServerInfo.Name != "sfmc-asset-agent" {
		t.Errorf("server name = %q, want sfmc-asset-agent", res.ServerInfo.Name)
	}
	if res.ServerInfo.Version == "" {
		t.Error("server version is empty")
	}
	for _, cap := range []string{"tools", "resources"} {
		if _, found := res.Capabilities[cap]; !found {
			t.Errorf("capabilities missing %q", cap)
		}
	}
}

func TestPing(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`,
	)
	if replies[0].Error != nil {
		t.Fatalf("ping returned error: %v", replies[0].Error)
	}
	if string(replies[0].ID) != "7" {
		t.Errorf("reply id = %s, want 7", replies[0].ID)
	}
}

func TestToolsListCatalog(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	)

	var res struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(replies[0].Result, &res); err != nil {
		t.Fatalf("decode tools/list result: %v", err)
	}

	want := []string{
		"initialize_sfmc_connection",
		"search_sfmc_assets",
		"advanced_asset_search",
		"get_asset_by_id",
	}
	if len(res.Tools) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(res.Tools), len(want))
	}
	for i, name := range want {
		if res.Tools[i].Name != name {
			t.Errorf("tool[%d] = %q, want %q", i, res.Tools[i].Name, name)
		}
		if res.Tools[i].Description == "" {
			t.Errorf("tool %q has no description", name)
		}
		if res.Tools[i].InputSchema["type"] != "object" {
			t.Errorf("tool %q schema type = %v, want object", name, res.Tools[i].InputSchema["type"])
		}
	}
}

func TestResourcesListCatalog(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
	)

	var res struct {
		Resources []struct {
			URI      string `json:"uri"`
			MimeType string `json:"mimeType"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(replies[0].Result, &res); err != nil {
		t.Fatalf("decode resources/list result: %v", err)
	}

	want := []string{"sfmc://connection/status", "sfmc://assets/types"}
	if len(res.Resources) != len(want) {
		t.Fatalf("resource count = %d, want %d", len(res.Resources), len(want))
	}
	for i, uri := range want {
		if res.Resources[i].URI != uri {
			t.Errorf("resource[%d] = %q, want %q", i, res.Resources[i].URI, uri)
		}
		if res.Resources[i].MimeType != "application/json" {
			t.Errorf("resource %q mime = %q, want application/json", uri, res.Resources[i].MimeType)
		}
	}
}

// ── protocol errors and framing ──────────────────────────────────────────────

func TestUnknownMethod(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`,
	)
	if replies[0].Error == nil {
		t.Fatal("expected a method-not-found error")
	}
	if replies[0].Error.Code != -32601 {
		t.Errorf("code = %d, want -32601", replies[0].Error.Code)
	}
	if !strings.Contains(replies[0].Error.Message, "prompts/list") {
		t.Errorf("message %q does not name the method", replies[0].Error.Message)
	}
}

func TestMalformedLineKeepsSessionAlive(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 2,
		`{this is not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	if replies[0].Error == nil || replies[0].Error.Code != -32700 {
		t.Fatalf("first reply = %+v, want parse error -32700", replies[0].Error)
	}
	if string(replies[1].ID) != "2" || replies[1].Error != nil {
		t.Errorf("ping after bad line failed: id=%s err=%v", replies[1].ID, replies[1].Error)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":9,"method":"ping"}`,
	)
	// Exactly one reply, and it belongs to the ping.
	if string(replies[0].ID) != "9" {
		t.Errorf("reply id = %s, want 9", replies[0].ID)
	}
}

// ── tool and resource dispatch over the wire ─────────────────────────────────

func TestToolCallWithoutSession(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_sfmc_assets","arguments":{"asset_name":"welcome"}}}`,
	)
	text, isErr := toolOutcome(t, replies[0])
	if !isErr {
		t.Fatal("expected isError for uninitialized session")
	}
	if !strings.Contains(text, "not initialized") {
		t.Errorf("text %q does not explain the missing session", text)
	}
}

func TestToolCallUnknownName(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"delete_everything","arguments":{}}}`,
	)
	text, isErr := toolOutcome(t, replies[0])
	if !isErr || !strings.Contains(text, "unknown tool") {
		t.Errorf("got (%q, %v), want unknown-tool error", text, isErr)
	}
}

func TestToolCallInvalidParams(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":"not-an-object"}`,
	)
	if replies[0].Error == nil || replies[0].Error.Code != -32602 {
		t.Fatalf("reply = %+v, want invalid params -32602", replies[0].Error)
	}
}

func TestInitializeToolOverTheWire(t *testing.T) {
	srv, st := newStubTenant(t)
	reg := newStubRegistry(srv)

	line := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"initialize_sfmc_connection","arguments":{"subdomain":"acme","client_id":"good-client","client_secret":"s3cret"}}}`
	replies := runSession(t, reg, 1, line)

	text, isErr := toolOutcome(t, replies[0])
	if isErr {
		t.Fatalf("initialize failed: %s", text)
	}
	if !strings.Contains(text, "Connected to Salesforce Marketing Cloud") {
		t.Errorf("text %q lacks the connect confirmation", text)
	}
	if got := st.counts().tokens; got != 1 {
		t.Errorf("token exchanges = %d, want 1 (eager verification)", got)
	}
	if reg.Session() == nil {
		t.Error("session not installed after successful initialize")
	}
}

func TestResourcesReadTypesReference(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"sfmc://assets/types"}}`,
	)
	uri, mime, text := resourceContents(t, replies[0])
	if uri != "sfmc://assets/types" {
		t.Errorf("uri = %q", uri)
	}
	if mime != "application/json" {
		t.Errorf("mime = %q, want application/json", mime)
	}
	for _, want := range []string{"commonAssetTypes", "searchOperators", "exampleSearches", "htmlemail"} {
		if !strings.Contains(text, want) {
			t.Errorf("reference text missing %q", want)
		}
	}
}

func TestResourcesReadStatusWithoutSession(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"sfmc://connection/status"}}`,
	)
	_, _, text := resourceContents(t, replies[0])
	if !strings.Contains(text, `"not_initialized"`) {
		t.Errorf("status text = %q, want not_initialized state", text)
	}
}

func TestResourcesReadUnknownURI(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"sfmc://assets/colors"}}`,
	)
	if replies[0].Error == nil || replies[0].Error.Code != -32602 {
		t.Fatalf("reply = %+v, want -32602", replies[0].Error)
	}
	if !strings.Contains(replies[0].Error.Message, "unknown resource") {
		t.Errorf("message = %q", replies[0].Error.Message)
	}
}

func TestResourcesReadForeignScheme(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"https://example.com/x"}}`,
	)
	if replies[0].Error == nil {
		t.Fatal("expected an error for a foreign scheme")
	}
	if !strings.Contains(replies[0].Error.Message, "unsupported scheme") {
		t.Errorf("message = %q", replies[0].Error.Message)
	}
}

func TestResourcesReadMissingURI(t *testing.T) {
	replies := runSession(t, mcpbridge.NewRegistry(), 1,
		`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{}}`,
	)
	if replies[0].Error == nil || replies[0].Error.Code != -32602 {
		t.Fatalf("reply = %+v, want -32602", replies[0].Error)
	}
}
