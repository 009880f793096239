// Package mcpbridge implements a Model Context Protocol (MCP) server that
// exposes Salesforce Marketing Cloud asset search as MCP tools and
// resources.
//
// The server speaks JSON-RPC 2.0 over stdio, which is the standard
// transport for Claude Desktop and other local MCP hosts.
package mcpbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
)

const protocolVersion = "2024-11-05"

// Identity advertised in initialize responses and the manifest.
const (
	serverName        = "sfmc-asset-agent"
	serverVersion     = "0.1.0"
	serverDescription = "Salesforce Marketing Cloud asset search tools and resources for MCP hosts."
)

// rpcRequest is an inbound JSON-RPC 2.0 message.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // nil = notification
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is an outbound JSON-RPC 2.0 message.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Server is a stdio MCP server. It reads newline-delimited JSON-RPC 2.0
// messages from the reader passed to Serve and writes responses to the
// writer passed to NewServer.
type Server struct {
	reg    *Registry
	out    *json.Encoder
	outMu  sync.Mutex
	logger *log.Logger
}

// NewServer creates an MCP server that writes responses to w.
// logger should write to stderr — writing to stdout would corrupt the protocol.
func NewServer(w io.Writer, reg *Registry, logger *log.Logger) *Server {
	enc := json.NewEncoder(w)
	return &Server{reg: reg, out: enc, logger: logger}
}

// Serve reads JSON-RPC messages from r until EOF or ctx is cancelled.
// It blocks until the stream closes.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB max per message

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(json.RawMessage(`null`), codeParseError, "parse error")
			continue
		}

		// Notifications have no id — no response is sent.
		if len(req.ID) == 0 {
			continue
		}

		// Tool calls and resource reads hit the network and may be slow,
		// so run them in goroutines while keeping protocol-level methods
		// synchronous.
		switch req.Method {
		case "tools/call", "resources/read":
			go s.dispatch(ctx, req)
		default:
			s.dispatch(ctx, req)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "ping":
		s.write(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}})
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	case "resources/list":
		s.handleResourcesList(req)
	case "resources/read":
		s.handleResourcesRead(ctx, req)
	default:
		s.writeError(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req rpcRequest) {
	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
			},
			"serverInfo": map[string]any{"name": serverName, "version": serverVersion},
		},
	})
}

func (s *Server) handleToolsList(req rpcRequest) {
	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]any{"tools": s.reg.Definitions()},
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req rpcRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, codeInvalidParams, "invalid params")
		return
	}

	s.logger.Printf("tool call: %s", params.Name)
	text, isErr := s.reg.Call(ctx, params.Name, params.Arguments)

	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
			"isError": isErr,
		},
	})
}

func (s *Server) handleResourcesList(req rpcRequest) {
	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]any{"resources": s.reg.Resources()},
	})
}

func (s *Server) handleResourcesRead(ctx context.Context, req rpcRequest) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		s.writeError(req.ID, codeInvalidParams, "invalid params: uri is required")
		return
	}

	s.logger.Printf("resource read: %s", params.URI)
	text, err := s.reg.ReadResource(ctx, params.URI)
	if err != nil {
		s.writeError(req.ID, codeInvalidParams, err.Error())
		return
	}

	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"contents": []map[string]any{
				{"uri": params.URI, "mimeType": "application/json", "text": text},
			},
		},
	})
}

func (s *Server) write(resp rpcResponse) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.out.Encode(resp); err != nil {
		s.logger.Printf("write error: %v", err)
	}
}

func (s *Server) writeError(id json.RawMessage, code int, msg string) {
	s.write(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: msg},
	})
}
