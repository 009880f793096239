// sfmca is the command-line client for Salesforce Marketing Cloud asset
// search. Run it with no arguments for an interactive session, or use
// the one-shot subcommands in scripts:
//
//	sfmca search welcome --type email
//	sfmca query '{"query":{"property":"name","simpleOperator":"contains","value":"promo"}}'
//	sfmca get 12345
//
// Credentials come from flags, SFMCA_* environment variables, or
// ~/.sfmca/config.yaml (keys: subdomain, client_id, client_secret).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mktcloud/sfmc-asset-agent/pkg/gatewayclient"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile        string
	subdomain      string
	clientID       string
	clientSecret   string
	gatewayURL     string
	requestTimeout time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sfmca",
	Short: "Salesforce Marketing Cloud asset search CLI",
	Long: `sfmca searches Content Builder assets on a Marketing Cloud tenant.

Without a subcommand it starts an interactive session. The search, query,
get, status and types subcommands run one-shot for scripting.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.sfmca")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("SFMCA")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if subdomain == "" {
			subdomain = viper.GetString("subdomain")
		}
		if clientID == "" {
			clientID = viper.GetString("client_id")
		}
		if clientSecret == "" {
			clientSecret = viper.GetString("client_secret")
		}
		if gatewayURL == "" {
			gatewayURL = viper.GetString("gateway")
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.sfmca/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&subdomain, "subdomain", "", "SFMC tenant subdomain")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "OAuth2 client ID")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (prefer the config file or SFMCA_CLIENT_SECRET)")
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", "Base URL of a running sfmc-gateway; one-shot commands go through it instead of connecting directly")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "Marketing Cloud request timeout")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(versionCmd)
}

// newSession builds a client from the resolved configuration.
func newSession() (*sfmc.Client, error) {
	if subdomain == "" || clientID == "" || clientSecret == "" {
		return nil, &sfmc.Error{
			Kind:    sfmc.KindNotInitialized,
			Message: "missing credentials: set --subdomain, --client-id and --client-secret, SFMCA_* environment variables, or ~/.sfmca/config.yaml",
		}
	}
	return sfmc.New(sfmc.Credentials{
		Subdomain:    subdomain,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, sfmc.WithTimeout(requestTimeout))
}

// newGatewayClient builds the SDK client for --gateway mode. The gateway
// holds the credentials, so none are needed here.
func newGatewayClient() (*gatewayclient.Client, error) {
	return gatewayclient.New(gatewayURL, gatewayclient.WithTimeout(requestTimeout))
}

// ── search ───────────────────────────────────────────────────────────────────

var (
	searchType     string
	searchCategory int
	searchPage     int
	searchPageSize int
	searchFormat   string
)

var searchCmd = &cobra.Command{
	Use:   "search [name]",
	Short: "Search Content Builder assets by name, type and folder",
	Long: `Search lists assets matching the optional name substring and filters,
sorted by modified date, newest first:

  sfmca search welcome --type email
  sfmca search --category 1234 --page-size 10 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		params := sfmc.SearchParams{
			Name:       name,
			AssetType:  searchType,
			CategoryID: searchCategory,
			Page:       searchPage,
			PageSize:   searchPageSize,
		}

		var res *sfmc.SearchResult
		if gatewayURL != "" {
			gc, err := newGatewayClient()
			if err != nil {
				return err
			}
			if res, err = gc.SearchAssets(context.Background(), params); err != nil {
				return err
			}
		} else {
			c, err := newSession()
			if err != nil {
				return err
			}
			if res, err = c.SearchAssets(context.Background(), params); err != nil {
				return err
			}
		}

		if searchFormat == "json" {
			return printJSON(res)
		}
		return renderSearchResult(os.Stdout, res)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "Exact asset type name (e.g. email, template, block)")
	searchCmd.Flags().IntVar(&searchCategory, "category", 0, "Folder (category) ID to search in")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Page to fetch")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 50, "Results per page (1-50)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

// ── query ────────────────────────────────────────────────────────────────────

var queryFormat string

var queryCmd = &cobra.Command{
	Use:   "query <json>",
	Short: "Search assets with a raw query document",
	Long: `Query posts a Marketing Cloud query document (page, query and sort
sections). Omitted sections fall back to defaults. Pass - to read the
document from stdin:

  sfmca query '{"query":{"property":"name","simpleOperator":"contains","value":"promo"}}'
  cat query.json | sfmca query -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		if raw == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			raw = string(data)
		}

		var res *sfmc.SearchResult
		if gatewayURL != "" {
			gc, err := newGatewayClient()
			if err != nil {
				return err
			}
			if res, err = gc.AdvancedSearch(context.Background(), []byte(raw)); err != nil {
				return err
			}
		} else {
			c, err := newSession()
			if err != nil {
				return err
			}
			if res, err = c.AdvancedSearch(context.Background(), []byte(raw)); err != nil {
				return err
			}
		}

		if queryFormat == "json" {
			return printJSON(res)
		}
		return renderSearchResult(os.Stdout, res)
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "text", "Output format: text or json")
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <asset-id>",
	Short: "Fetch one asset's full record, content included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw json.RawMessage
		if gatewayURL != "" {
			gc, err := newGatewayClient()
			if err != nil {
				return err
			}
			if raw, err = gc.Asset(context.Background(), args[0]); err != nil {
				return err
			}
		} else {
			c, err := newSession()
			if err != nil {
				return err
			}
			if raw, err = c.AssetByID(context.Background(), args[0]); err != nil {
				return err
			}
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			fmt.Println(string(raw))
			return nil
		}
		fmt.Println(buf.String())
		return nil
	},
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connection by performing a token exchange",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gatewayURL != "" {
			gc, err := newGatewayClient()
			if err != nil {
				return err
			}
			st, err := gc.Status(context.Background())
			if err != nil {
				return err
			}
			renderStatus(os.Stdout, *st)
			return nil
		}

		c, err := newSession()
		if err != nil {
			return err
		}
		renderStatus(os.Stdout, c.Status(context.Background()))
		return nil
	},
}

// ── types ────────────────────────────────────────────────────────────────────

var typesFormat string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show the asset type and filter operator reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := sfmc.TypesReference()
		if gatewayURL != "" {
			gc, err := newGatewayClient()
			if err != nil {
				return err
			}
			remote, err := gc.AssetTypes(context.Background())
			if err != nil {
				return err
			}
			ref = *remote
		}

		if typesFormat == "json" {
			return printJSON(ref)
		}
		renderTypes(os.Stdout, ref)
		return nil
	},
}

func init() {
	typesCmd.Flags().StringVar(&typesFormat, "format", "text", "Output format: text or json")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sfmca version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sfmca %s (Salesforce Marketing Cloud asset agent)\n", version)
	},
}
