package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mktcloud/sfmc-asset-agent/internal/ui"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// replPageSize keeps interactive result lists short enough to scan.
const replPageSize = 20

// runInteractive is the root command: a small shell around the search
// client. Bare input is treated as a name search so the common case is
// just typing what you are looking for.
func runInteractive(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(os.Stdin)

	fmt.Printf("sfmca %s interactive session. Type help for commands, quit to leave.\n", version)

	var session *sfmc.Client
	if subdomain != "" && clientID != "" && clientSecret != "" {
		c, err := newSession()
		if err != nil {
			fmt.Println(ui.Paint(ui.Red, "✗ "+err.Error()))
		} else {
			session = c
			fmt.Println(ui.Paint(ui.Green, "✓") + " Using configured credentials for " + subdomain)
		}
	} else {
		fmt.Println("No credentials configured. Run init to connect.")
	}

	for {
		line, err := ui.ReadLine(in, ui.Paint(ui.Cyan, "sfmc> "))
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return nil
		}
		if line == "" {
			continue
		}

		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(verb) {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printReplHelp()
		case "init":
			session = replInit(in, rest, session)
		case "status":
			if session == nil {
				renderStatus(os.Stdout, sfmc.NotInitializedStatus())
				continue
			}
			renderStatus(os.Stdout, session.Status(context.Background()))
		case "types":
			renderTypes(os.Stdout, sfmc.TypesReference())
		case "search":
			replSearch(session, rest)
		case "advanced":
			replAdvanced(session, rest)
		case "get":
			replGet(session, rest)
		default:
			replSearch(session, line)
		}
	}
}

func printReplHelp() {
	fmt.Print(`Commands:
  <text>            search assets whose name contains <text>
  search [text]     same, explicitly (empty text lists newest assets)
  advanced <json>   search with a raw query document
  get <asset-id>    fetch one asset, content included
  status            check the connection with a live token exchange
  types             show the asset type and operator reference
  init [sub id sec] connect; prompts for anything omitted, secret hidden
  help              this text
  quit              leave
`)
}

// replInit connects with credentials given inline (init <subdomain>
// <client_id> [client_secret]) or prompted, the secret always hidden,
// and verifies them with a token exchange before swapping the session.
// A failed attempt keeps the previous session usable.
func replInit(in *bufio.Reader, argLine string, prev *sfmc.Client) *sfmc.Client {
	args := strings.Fields(argLine)
	if len(args) > 3 {
		fmt.Println("Usage: init [subdomain] [client-id] [client-secret]")
		return prev
	}

	var sub, id, secret string
	var err error
	if len(args) > 0 {
		sub = args[0]
	} else if sub, err = ui.ReadLine(in, "Subdomain: "); err != nil {
		return prev
	}
	if len(args) > 1 {
		id = args[1]
	} else if id, err = ui.ReadLine(in, "Client ID: "); err != nil {
		return prev
	}
	if len(args) > 2 {
		secret = args[2]
	} else if secret, err = ui.ReadSecret(in, "Client secret: "); err != nil {
		return prev
	}

	c, err := sfmc.New(sfmc.Credentials{
		Subdomain:    sub,
		ClientID:     id,
		ClientSecret: secret,
	}, sfmc.WithTimeout(requestTimeout))
	if err != nil {
		fmt.Println(ui.Paint(ui.Red, "✗ "+err.Error()))
		return prev
	}
	if _, err := c.Token(context.Background()); err != nil {
		fmt.Println(ui.Paint(ui.Red, "✗ authentication failed: "+err.Error()))
		return prev
	}

	fmt.Println(ui.Paint(ui.Green, "✓") + " Connected to " + c.BaseURL())
	return c
}

func replSearch(session *sfmc.Client, name string) {
	if session == nil {
		fmt.Println(ui.Paint(ui.Red, "Not connected. Run init first."))
		return
	}
	res, err := session.SearchAssets(context.Background(), sfmc.SearchParams{
		Name:     name,
		PageSize: replPageSize,
	})
	if err != nil {
		fmt.Println(ui.Paint(ui.Red, "✗ "+err.Error()))
		return
	}
	_ = renderSearchResult(os.Stdout, res)
}

func replAdvanced(session *sfmc.Client, rawQuery string) {
	if rawQuery == "" {
		fmt.Println(`Usage: advanced {"query":{"property":"name","simpleOperator":"contains","value":"promo"}}`)
		return
	}
	if session == nil {
		fmt.Println(ui.Paint(ui.Red, "Not connected. Run init first."))
		return
	}
	res, err := session.AdvancedSearch(context.Background(), []byte(rawQuery))
	if err != nil {
		fmt.Println(ui.Paint(ui.Red, "✗ "+err.Error()))
		return
	}
	_ = renderSearchResult(os.Stdout, res)
}

func replGet(session *sfmc.Client, id string) {
	if id == "" {
		fmt.Println("Usage: get <asset-id>")
		return
	}
	if session == nil {
		fmt.Println(ui.Paint(ui.Red, "Not connected. Run init first."))
		return
	}
	raw, err := session.AssetByID(context.Background(), id)
	if err != nil {
		fmt.Println(ui.Paint(ui.Red, "✗ "+err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
