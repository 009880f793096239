// Package mcpmanifest defines types for MCP (Model Context Protocol)
// server manifests.
//
// The stdio server prints its manifest via the `sfmc-mcp manifest`
// subcommand and the HTTP gateway serves the same document at
//
//	GET /api/v1/mcp-manifest.json
//
// Extension fields (prefixed "sfmc:") are ignored by plain MCP clients.
package mcpmanifest

import "encoding/json"

// Tool describes one tool the server exposes over tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"` // JSON Schema object
}

// Resource describes one resource the server exposes over resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Manifest is the MCP server manifest.
// See https://spec.modelcontextprotocol.io/specification/ for the base schema.
type Manifest struct {
	SchemaVersion string     `json:"schemaVersion"` // "2024-11-05"
	Name          string     `json:"name"`
	Version       string     `json:"version"`
	Description   string     `json:"description"`
	Tools         []Tool     `json:"tools,omitempty"`
	Resources     []Resource `json:"resources,omitempty"`

	// Environment variables the server reads for headless startup.
	RequiredEnv []string `json:"sfmc:requiredEnv,omitempty"`
}

// Render marshals the manifest with stable two-space indentation.
func (m Manifest) Render() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
