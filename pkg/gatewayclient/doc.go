// Package gatewayclient is the Go SDK for the sfmc-gateway REST API.
//
// It covers everything the gateway exposes: starting a Marketing Cloud
// session, both search forms, asset fetches, and the served reference
// documents.
//
// # Connecting
//
// The gateway holds one session per process. Connect verifies the
// credentials with a live token exchange, so a nil error means the
// tenant answered:
//
//	c, err := gatewayclient.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	status, err := c.Connect(ctx, "mc123456", clientID, clientSecret)
//
// When the gateway was started with credentials already configured,
// skip Connect and go straight to searching.
//
// # Searching
//
// SearchAssets takes the same parameter struct the direct client uses;
// zero values mean "no filter":
//
//	res, err := c.SearchAssets(ctx, sfmc.SearchParams{
//	    Name:      "welcome",
//	    AssetType: "email",
//	})
//	for _, a := range res.Assets {
//	    fmt.Println(a.ID, a.Name)
//	}
//
// AdvancedSearch posts a raw query document; omitted sections keep the
// gateway's defaults:
//
//	res, err := c.AdvancedSearch(ctx, json.RawMessage(
//	    `{"query":{"property":"name","simpleOperator":"contains","value":"promo"}}`,
//	))
//
// # Asset fetches and caching
//
// Asset returns the provider's full record verbatim. Add WithCacheTTL
// to keep repeat fetches of the same asset local:
//
//	c, _ := gatewayclient.New(base, gatewayclient.WithCacheTTL(60*time.Second))
//	raw, err := c.Asset(ctx, "12345")
//
// # Errors
//
// Failures carry the same kind tags the direct client produces, so one
// classification path handles both:
//
//	if sfmc.KindOf(err) == sfmc.KindNotInitialized {
//	    // connect first
//	}
package gatewayclient
