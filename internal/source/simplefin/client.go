// Package simplefin implements the Provider contract against the SimpleFIN
// bridge protocol (https://www.simplefin.org/protocol.html).
package simplefin

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SourceName is the registry key and external_ids key for this provider.
const SourceName = "simplefin"

// OptionAccessURL is the integration option holding the claimed access URL.
const OptionAccessURL = "access_url"

const requestTimeout = 30 * time.Second

// Client speaks the SimpleFIN bridge protocol.
type Client struct {
	httpClient *http.Client
}

// NewClient constructs a Client with the fixed request timeout.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: requestTimeout}}
}

// WithHTTPClient overrides the transport, for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// ClaimSetupToken exchanges a one-time setup token for a permanent access URL.
// The token is the base64 encoding of a claim URL; claiming is a bare POST
// whose response body is the access URL (credentials embedded as basic auth).
func (c *Client) ClaimSetupToken(ctx context.Context, token string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("simplefin: setup token is not valid base64: %w", err)
	}
	claimURL := strings.TrimSpace(string(decoded))
	if !strings.HasPrefix(claimURL, "http") {
		return "", fmt.Errorf("simplefin: setup token does not decode to a claim URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Length", "0")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("simplefin: claim setup token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("simplefin: read claim response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("simplefin: claim rejected with status %d", resp.StatusCode)
	}
	accessURL := strings.TrimSpace(string(body))
	if accessURL == "" {
		return "", fmt.Errorf("simplefin: claim returned an empty access URL")
	}
	return accessURL, nil
}
