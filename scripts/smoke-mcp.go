//go:build ignore

// smoke-mcp.go drives the sfmc-mcp server through a scripted stdio
// session: handshake, catalog listing, an uninitialized tool call and a
// resource read. It needs no Marketing Cloud tenant and no credentials.
//
// Run with: go run scripts/smoke-mcp.go
// or against a prebuilt binary: go run scripts/smoke-mcp.go -bin ./sfmc-mcp
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type session struct {
	enc    *json.Encoder
	dec    *json.Decoder
	nextID int
}

// call sends one request and blocks for its reply. The server answers
// every non-notification request, so a scripted lockstep exchange needs
// no timeouts.
func (s *session) call(method string, params any) (rpcReply, error) {
	s.nextID++
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      s.nextID,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	if err := s.enc.Encode(req); err != nil {
		return rpcReply{}, fmt.Errorf("send %s: %w", method, err)
	}
	var rep rpcReply
	if err := s.dec.Decode(&rep); err != nil {
		return rpcReply{}, fmt.Errorf("read %s reply: %w", method, err)
	}
	if rep.JSONRPC != "2.0" {
		return rpcReply{}, fmt.Errorf("%s reply is not JSON-RPC 2.0: %+v", method, rep)
	}
	return rep, nil
}

func (s *session) result(method string, params any, out any) error {
	rep, err := s.call(method, params)
	if err != nil {
		return err
	}
	if rep.Error != nil {
		return fmt.Errorf("%s failed: %d %s", method, rep.Error.Code, rep.Error.Message)
	}
	return json.Unmarshal(rep.Result, out)
}

func main() {
	bin := flag.String("bin", "", "prebuilt sfmc-mcp binary (default: go run ./cmd/sfmc-mcp)")
	flag.Parse()

	var cmd *exec.Cmd
	if *bin != "" {
		cmd = exec.Command(*bin)
	} else {
		cmd = exec.Command("go", "run", "./cmd/sfmc-mcp")
	}
	cmd.Stderr = os.Stderr
	// Blank out ambient credentials so the run never touches a live tenant.
	cmd.Env = append(os.Environ(), "SFMC_SUBDOMAIN=", "SFMC_CLIENT_ID=", "SFMC_CLIENT_SECRET=")

	stdin, err := cmd.StdinPipe()
	must(err)
	stdout, err := cmd.StdoutPipe()
	must(err)
	must(cmd.Start())

	s := &session{enc: json.NewEncoder(stdin), dec: json.NewDecoder(stdout)}

	passed, failed := 0, 0
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			failed++
			fmt.Printf("  ✗ %s: %v\n", name, err)
			return
		}
		passed++
		fmt.Printf("  ✓ %s\n", name)
	}

	fmt.Println("── sfmc-mcp smoke ───────────────────────────────────────")

	step("initialize handshake", func() error {
		var res struct {
			ProtocolVersion string `json:"protocolVersion"`
			ServerInfo      struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		}
		if err := s.result("initialize", map[string]any{"protocolVersion": "2024-11-05"}, &res); err != nil {
			return err
		}
		if res.ProtocolVersion == "" || res.ServerInfo.Name == "" {
			return fmt.Errorf("incomplete handshake: %+v", res)
		}
		return nil
	})

	step("tools/list has the four tools", func() error {
		var res struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		}
		if err := s.result("tools/list", nil, &res); err != nil {
			return err
		}
		want := []string{
			"initialize_sfmc_connection",
			"search_sfmc_assets",
			"advanced_asset_search",
			"get_asset_by_id",
		}
		if len(res.Tools) != len(want) {
			return fmt.Errorf("got %d tools, want %d", len(res.Tools), len(want))
		}
		for i, w := range want {
			if res.Tools[i].Name != w {
				return fmt.Errorf("tool %d is %q, want %q", i, res.Tools[i].Name, w)
			}
		}
		return nil
	})

	step("resources/list has the two resources", func() error {
		var res struct {
			Resources []struct {
				URI string `json:"uri"`
			} `json:"resources"`
		}
		if err := s.result("resources/list", nil, &res); err != nil {
			return err
		}
		if len(res.Resources) != 2 {
			return fmt.Errorf("got %d resources, want 2", len(res.Resources))
		}
		return nil
	})

	step("search without a session is a tool error", func() error {
		var res struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		params := map[string]any{
			"name":      "search_sfmc_assets",
			"arguments": map[string]any{"asset_name": "welcome"},
		}
		if err := s.result("tools/call", params, &res); err != nil {
			return err
		}
		if !res.IsError {
			return fmt.Errorf("expected isError result, got %+v", res)
		}
		if len(res.Content) == 0 || !strings.Contains(res.Content[0].Text, "not initialized") {
			return fmt.Errorf("unexpected error text: %+v", res.Content)
		}
		return nil
	})

	step("types resource readable without a session", func() error {
		var res struct {
			Contents []struct {
				URI  string `json:"uri"`
				Text string `json:"text"`
			} `json:"contents"`
		}
		if err := s.result("resources/read", map[string]any{"uri": "sfmc://assets/types"}, &res); err != nil {
			return err
		}
		if len(res.Contents) != 1 || !strings.Contains(res.Contents[0].Text, "commonAssetTypes") {
			return fmt.Errorf("unexpected contents: %+v", res.Contents)
		}
		return nil
	})

	step("unknown method rejected with -32601", func() error {
		rep, err := s.call("prompts/get", nil)
		if err != nil {
			return err
		}
		if rep.Error == nil {
			return fmt.Errorf("expected an error, got result %s", rep.Result)
		}
		if rep.Error.Code != -32601 {
			return fmt.Errorf("got code %d, want -32601", rep.Error.Code)
		}
		return nil
	})

	stdin.Close()
	if err := cmd.Wait(); err != nil {
		failed++
		fmt.Printf("  ✗ clean shutdown on stdin close: %v\n", err)
	} else {
		passed++
		fmt.Println("  ✓ clean shutdown on stdin close")
	}

	fmt.Println("─────────────────────────────────────────────────────────")
	fmt.Printf("  %d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "smoke-mcp:", err)
		os.Exit(1)
	}
}
