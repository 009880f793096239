package sfmc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// tokenPath is the OAuth2 client-credentials endpoint on the auth tenant.
const tokenPath = "/v2/token"

// refreshMargin is subtracted from expires_in when computing the cached
// expiry, so the token is replaced before the provider would reject it.
const refreshMargin = 60 * time.Second

// Token returns a bearer access token for this session, reusing the
// cached one while now is still before its (margin-adjusted) expiry.
// Thread-safe; concurrent callers share one exchange.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.AccessToken != "" && time.Now().Before(c.token.Expiry) {
		return c.token.AccessToken, nil
	}

	tok, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	return tok.AccessToken, nil
}

// exchange performs the client-credentials grant. The endpoint takes a
// JSON body rather than a form post, so the request is built by hand
// instead of going through an oauth2 token source.
func (c *Client) exchange(ctx context.Context) (*oauth2.Token, error) {
	grant := struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}{
		GrantType:    "client_credentials",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
	}
	payload, err := json.Marshal(grant)
	if err != nil {
		return nil, errf(KindAuth, err, "encode token request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return nil, errf(KindAuth, err, "build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info("authenticating", zap.String("subdomain", c.creds.Subdomain))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errf(KindAuth, err, "token request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, errf(KindAuth, err, "read token response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errf(KindAuth, nil, "token endpoint returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var grantResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &grantResp); err != nil {
		return nil, errf(KindAuth, err, "decode token response: %v", err)
	}
	if grantResp.Error != "" {
		if grantResp.ErrorDesc != "" {
			return nil, errf(KindAuth, nil, "token endpoint error: %s (%s)", grantResp.Error, grantResp.ErrorDesc)
		}
		return nil, errf(KindAuth, nil, "token endpoint error: %s", grantResp.Error)
	}
	if grantResp.AccessToken == "" {
		return nil, errf(KindAuth, nil, "token response missing access_token")
	}

	expiresIn := grantResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	tokenType := grantResp.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	c.logger.Info("authenticated", zap.Int("expires_in", expiresIn))

	return &oauth2.Token{
		AccessToken: grantResp.AccessToken,
		TokenType:   tokenType,
		Expiry:      time.Now().Add(time.Duration(expiresIn)*time.Second - refreshMargin),
	}, nil
}
