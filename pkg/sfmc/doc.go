// Package sfmc is a Go client for Salesforce Marketing Cloud content
// asset search.
//
// It covers the pieces an asset-search agent needs: OAuth2
// client-credentials authentication with a cached access token, the
// simple and structured search forms of the Content Builder asset API,
// single-asset retrieval, and normalization of provider records into a
// stable summary shape.
//
// # Creating a session
//
// A Client is a session against one tenant, identified by the installed
// package's subdomain and credentials:
//
//	c, err := sfmc.New(sfmc.Credentials{
//	    Subdomain:    "mc123456789",
//	    ClientID:     os.Getenv("SFMC_CLIENT_ID"),
//	    ClientSecret: os.Getenv("SFMC_CLIENT_SECRET"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Construction does no I/O. The first operation exchanges credentials for
// an access token and caches it until 60 seconds before expiry; replacing
// a connection means constructing a new Client.
//
// # Searching
//
//	res, err := c.SearchAssets(ctx, sfmc.SearchParams{
//	    Name:     "newsletter",
//	    PageSize: 20,
//	})
//
// builds $filter, $pagesize, $page and $orderBy for you. The structured
// form takes a raw JSON document and overlays it on the default query
// (page 1 of 50, name contains "", modifiedDate descending):
//
//	res, err := c.AdvancedSearch(ctx, []byte(`{
//	    "query": {"property": "name", "simpleOperator": "contains", "value": "welcome"}
//	}`))
//
// The merge is shallow: each of page, query and sort is replaced
// wholesale when present in the input.
//
// # Errors
//
// Every failure is an *Error with a Kind tag (auth_error,
// transport_error, parse_error, not_initialized):
//
//	if sfmc.KindOf(err) == sfmc.KindAuth {
//	    // credentials rejected, token exchange failed
//	}
//
// Operations make exactly one HTTP attempt; there is no retry or backoff
// layer, and a failed token exchange short-circuits before any provider
// request.
package sfmc
