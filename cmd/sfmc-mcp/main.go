// sfmc-mcp exposes Salesforce Marketing Cloud asset search as MCP tools,
// allowing Claude Desktop and any MCP-compatible AI host to find and
// inspect Content Builder assets.
//
// Add to Claude Desktop (~/.claude/claude_desktop_config.json):
//
//	{
//	  "mcpServers": {
//	    "sfmc": {
//	      "command": "/path/to/sfmc-mcp",
//	      "env": {
//	        "SFMC_SUBDOMAIN": "mc123456789",
//	        "SFMC_CLIENT_ID": "...",
//	        "SFMC_CLIENT_SECRET": "..."
//	      }
//	    }
//	  }
//	}
//
// The env block is optional: without it the host initializes the
// connection at runtime with the initialize_sfmc_connection tool.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mktcloud/sfmc-asset-agent/internal/mcpbridge"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var requestTimeoutSec int

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sfmc-mcp",
	Short: "MCP server for Salesforce Marketing Cloud asset search",
	Long: `sfmc-mcp is a stdio MCP server that exposes four Marketing Cloud tools
to any MCP-compatible AI host (Claude Desktop, Claude API, etc.):

  initialize_sfmc_connection — authenticate against a tenant
  search_sfmc_assets         — search assets by name, type and folder
  advanced_asset_search      — search with a raw query document
  get_asset_by_id            — fetch one asset's full record

plus two readable resources, sfmc://connection/status and
sfmc://assets/types.

The server runs in stdio mode (the MCP standard for local servers).
All logging goes to stderr so it does not interfere with the protocol.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().IntVar(&requestTimeoutSec, "request-timeout", 10, "Marketing Cloud request timeout in seconds")
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	logger := log.New(os.Stderr, "[sfmc-mcp] ", log.LstdFlags)

	opts := []sfmc.Option{}
	if requestTimeoutSec > 0 {
		opts = append(opts, sfmc.WithTimeout(time.Duration(requestTimeoutSec)*time.Second))
	}

	reg := mcpbridge.NewRegistry(opts...)

	// Credentials in the environment pre-initialize the session; the first
	// tool call verifies them.
	subdomain := os.Getenv("SFMC_SUBDOMAIN")
	clientID := os.Getenv("SFMC_CLIENT_ID")
	clientSecret := os.Getenv("SFMC_CLIENT_SECRET")
	switch {
	case subdomain != "" && clientID != "" && clientSecret != "":
		client, err := sfmc.New(sfmc.Credentials{
			Subdomain:    subdomain,
			ClientID:     clientID,
			ClientSecret: clientSecret,
		}, opts...)
		if err != nil {
			return fmt.Errorf("credentials from environment: %w", err)
		}
		reg.SetSession(client)
		logger.Printf("session created from environment (subdomain: %s)", subdomain)
	case subdomain != "" || clientID != "" || clientSecret != "":
		logger.Printf("partial SFMC_* environment ignored; set all of SFMC_SUBDOMAIN, SFMC_CLIENT_ID, SFMC_CLIENT_SECRET")
	default:
		logger.Printf("no credentials in environment; waiting for initialize_sfmc_connection")
	}

	server := mcpbridge.NewServer(os.Stdout, reg, logger)

	logger.Printf("SFMC MCP server ready")
	logger.Printf("tools: initialize_sfmc_connection, search_sfmc_assets, advanced_asset_search, get_asset_by_id")

	return server.Serve(cmd.Context(), os.Stdin)
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the MCP capability manifest as JSON",
	Long: `manifest prints the machine-readable tool and resource catalog this
server advertises. The HTTP gateway serves the same document at
/api/v1/mcp-manifest.json.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := mcpbridge.NewRegistry().Manifest().Render()
		if err != nil {
			return fmt.Errorf("render manifest: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sfmc-mcp version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sfmc-mcp %s\n", version)
	},
}
