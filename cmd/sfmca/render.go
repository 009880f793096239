package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/mktcloud/sfmc-asset-agent/internal/ui"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// printJSON writes v to stdout as indented JSON for --format json.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSearchResult(w io.Writer, res *sfmc.SearchResult) error {
	s := res.Summary
	fmt.Fprintf(w, "Found %d asset(s), page %d of %d (page size %d)\n",
		s.TotalFound, s.Page, s.TotalPages, s.PageSize)

	if len(res.Assets) == 0 {
		fmt.Fprintln(w, "No assets matched.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tMODIFIED\tBY\tSTATUS")
	for _, a := range res.Assets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, truncate(a.Name, 40), a.AssetType, a.ModifiedDate, a.ModifiedBy, a.Status)
	}
	return tw.Flush()
}

func renderStatus(w io.Writer, st sfmc.ConnectionStatus) {
	switch st.State {
	case sfmc.StateConnected:
		fmt.Fprintln(w, ui.Paint(ui.Green, "✓")+" connected")
		fmt.Fprintf(w, "  Subdomain:    %s\n", st.Subdomain)
		fmt.Fprintf(w, "  REST base:    %s\n", st.BaseURL)
		fmt.Fprintf(w, "  Token valid:  %t\n", st.TokenValid)
		if st.TokenExpiry != "" {
			fmt.Fprintf(w, "  Token expiry: %s\n", st.TokenExpiry)
		}
	case sfmc.StateError:
		fmt.Fprintln(w, ui.Paint(ui.Red, "✗")+" error")
		if st.Subdomain != "" {
			fmt.Fprintf(w, "  Subdomain: %s\n", st.Subdomain)
		}
		fmt.Fprintf(w, "  Error:     %s\n", st.Error)
	default:
		fmt.Fprintln(w, ui.Paint(ui.Dim, "-")+" not initialized")
	}
}

func renderTypes(w io.Writer, ref sfmc.AssetTypesReference) {
	section := func(title string, entries map[string]string) {
		fmt.Fprintln(w, ui.Paint(ui.Bold, title))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, k := range sortedKeys(entries) {
			fmt.Fprintf(tw, "  %s\t%s\n", k, entries[k])
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	section("Asset types", ref.CommonAssetTypes)
	section("Filter operators", ref.SearchOperators)
	section("Example searches", ref.ExampleSearches)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
