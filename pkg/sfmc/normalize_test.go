package sfmc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

// normalizeClient builds a client whose search endpoint returns whatever
// JSON the test assigns to *page before calling.
func normalizeClient(t *testing.T, page *string) *sfmc.Client {
	t.Helper()

	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(auth.Close)

	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(*page))
	}))
	t.Cleanup(rest.Close)

	c, err := sfmc.New(sfmc.Credentials{Subdomain: "mc-test", ClientID: "id", ClientSecret: "s"},
		sfmc.WithEndpoints(auth.URL, rest.URL))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNormalize_totalPages(t *testing.T) {
	cases := []struct {
		name     string
		count    int
		pageSize int
		want     int
	}{
		{"exactPages", 100, 50, 2},
		{"partialLastPage", 101, 50, 3},
		{"singlePage", 10, 50, 1},
		{"empty", 0, 50, 0},
		{"zeroPageSizeGuard", 7, 0, 1},
		{"zeroPageSizeEmpty", 0, 0, 0},
	}

	var page string
	c := normalizeClient(t, &page)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page = fmt.Sprintf(`{"count": %d, "page": 1, "pageSize": %d, "items": []}`, tc.count, tc.pageSize)

			res, err := c.SearchAssets(context.Background(), sfmc.SearchParams{})
			if err != nil {
				t.Fatalf("SearchAssets: %v", err)
			}
			if res.Summary.TotalPages != tc.want {
				t.Errorf("totalPages(%d, %d) = %d, want %d",
					tc.count, tc.pageSize, res.Summary.TotalPages, tc.want)
			}
		})
	}
}

func TestNormalize_envelopeDefaults(t *testing.T) {
	// An empty provider object falls back to count 0, page 1, pageSize 50.
	page := `{}`
	c := normalizeClient(t, &page)

	res, err := c.SearchAssets(context.Background(), sfmc.SearchParams{})
	if err != nil {
		t.Fatalf("SearchAssets: %v", err)
	}

	want := sfmc.ResultSummary{TotalFound: 0, Page: 1, PageSize: 50, TotalPages: 0}
	if res.Summary != want {
		t.Errorf("summary = %+v, want %+v", res.Summary, want)
	}
	if len(res.Assets) != 0 {
		t.Errorf("expected no assets, got %d", len(res.Assets))
	}
}

func TestNormalize_bestEffortItems(t *testing.T) {
	// Items that are empty or carry wrongly-typed fields still produce a
	// summary entry instead of failing the page.
	page := `{
	  "count": 3, "page": 1, "pageSize": 50,
	  "items": [
	    {},
	    {"id": "not-a-number", "name": "Oddball"},
	    {"id": 5, "name": "Fine", "status": {"name": "Draft"}}
	  ]
	}`
	c := normalizeClient(t, &page)

	res, err := c.SearchAssets(context.Background(), sfmc.SearchParams{})
	if err != nil {
		t.Fatalf("SearchAssets: %v", err)
	}
	if len(res.Assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(res.Assets))
	}

	if res.Assets[0].ID != 0 || res.Assets[0].Name != "" {
		t.Errorf("empty item should be all zero values: %+v", res.Assets[0])
	}
	if res.Assets[2].ID != 5 || res.Assets[2].Status != "Draft" {
		t.Errorf("unexpected third item: %+v", res.Assets[2])
	}
}

func TestNormalize_resultJSONShape(t *testing.T) {
	page := `{"count": 1, "page": 2, "pageSize": 10, "items": [{"id": 1, "name": "A"}]}`
	c := normalizeClient(t, &page)

	res, err := c.SearchAssets(context.Background(), sfmc.SearchParams{})
	if err != nil {
		t.Fatalf("SearchAssets: %v", err)
	}

	out, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"totalFound":1`, `"page":2`, `"pageSize":10`, `"totalPages":1`, `"assetType":""`} {
		if !strings.Contains(string(out), key) {
			t.Errorf("marshaled result missing %s: %s", key, out)
		}
	}
	if strings.Contains(string(out), `"queryUsed"`) {
		t.Errorf("simple search result must omit queryUsed: %s", out)
	}
}
