// Package github talks to the GitHub REST and OAuth device-flow APIs on
// behalf of the host: obtaining a token without any embedded client
// secret, validating it, and creating the private bookmarks repository.
//
// API error responses are reported by status code only; response bodies
// are never echoed into errors since they can carry account details.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// ClientID identifies the WebTags OAuth app. Device flow apps have
	// no secret, so shipping the ID in the binary is fine.
	ClientID = "Ov23liYifB4i3sUooRaE"

	deviceAuthURL = "https://github.com/login/device/code"
	tokenURL      = "https://github.com/login/oauth/access_token"
	defaultAPIURL = "https://api.github.com"

	userAgent = "WebTags"
)

// Repository is the subset of the GitHub repository object the host cares
// about.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	SSHURL   string `json:"ssh_url"`
	Private  bool   `json:"private"`
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

// Client is a GitHub API client scoped to the operations the host
// performs. The zero value is not usable; use NewClient.
type Client struct {
	http   *http.Client
	apiURL string
	oauth  *oauth2.Config
}

// NewClient returns a client using the production GitHub endpoints.
func NewClient() *Client {
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		apiURL: defaultAPIURL,
		oauth: &oauth2.Config{
			ClientID: ClientID,
			Scopes:   []string{"repo"},
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: deviceAuthURL,
				TokenURL:      tokenURL,
			},
		},
	}
}

// NewClientWithAPIURL returns a client whose REST calls go to an
// alternate base URL. GitHub Enterprise hosts and tests use this; the
// OAuth endpoints are unchanged. A nil httpClient keeps the default.
func NewClientWithAPIURL(httpClient *http.Client, apiURL string) *Client {
	c := NewClient()
	if httpClient != nil {
		c.http = httpClient
	}
	c.apiURL = strings.TrimRight(apiURL, "/")
	return c
}

// StartDeviceFlow requests a device and user code pair. The user code and
// verification URI go back to the extension for display; the device code
// is held for polling.
func (c *Client) StartDeviceFlow(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	resp, err := c.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device flow: %w", err)
	}
	return resp, nil
}

// WaitForToken polls the token endpoint until the user approves or
// rejects the device, the code expires, or ctx is cancelled. Polling
// cadence, slow_down handling and expiry come from the OAuth library.
func (c *Client) WaitForToken(ctx context.Context, auth *oauth2.DeviceAuthResponse) (string, error) {
	tok, err := c.oauth.DeviceAccessToken(ctx, auth)
	if err != nil {
		return "", fmt.Errorf("device authorization failed: %w", err)
	}
	return tok.AccessToken, nil
}

// CreateRepository creates a private, auto-initialized repository under
// the authenticated user and returns its identifiers and clone URLs.
func (c *Client) CreateRepository(ctx context.Context, token, name, description string) (*Repository, error) {
	body, err := json.Marshal(createRepoRequest{
		Name:        name,
		Description: description,
		Private:     true,
		AutoInit:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode repository request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/user/repos", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to create repository: GitHub returned %s", resp.Status)
	}

	var repo Repository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("failed to parse repository response: %w", err)
	}
	return &repo, nil
}

// ValidateToken reports whether the token is accepted by the API. Only
// transport failures produce an error; an unauthorized token is simply
// false.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/user", nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to validate token: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
}
