// Package github is a minimal client for the GitHub REST and OAuth APIs:
// repository creation, authorization-code exchange and user lookup.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"
)

// ErrUpstream means the GitHub API could not be reached or answered with
// something unexpected.
var ErrUpstream = errors.New("github api request failed")

// APIError is a structured error response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []map[string]any
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		detail, _ := json.Marshal(e.Errors)
		return fmt.Sprintf("%s: %s", e.Message, detail)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("github api returned status %d", e.StatusCode)
}

// Repository is the subset of the repository resource this service
// surfaces to callers.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	SSHURL        string `json:"ssh_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Description   string `json:"description,omitempty"`
	Visibility    string `json:"visibility,omitempty"`
}

// CreateRepoOptions are the fields forwarded to the repository-creation
// endpoint. Merge toggles are sent only when explicitly provided.
type CreateRepoOptions struct {
	Name                string
	Description         string
	Private             bool
	Org                 string
	AllowSquashMerge    *bool
	AllowMergeCommit    *bool
	AllowRebaseMerge    *bool
	DeleteBranchOnMerge *bool
}

// User is a GitHub user profile, passed through untyped.
type User map[string]any

// Client talks to a GitHub-compatible API.
type Client struct {
	apiBase  string
	tokenURL string
	http     *http.Client
}

// NewClient creates a client for the given API base URL and OAuth token
// endpoint. All calls carry a fixed 30s timeout.
func NewClient(apiBase, tokenURL string) *Client {
	return &Client{
		apiBase:  strings.TrimRight(apiBase, "/"),
		tokenURL: tokenURL,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRepository creates a repository for the authenticated user, or in
// opts.Org when set. auto_init is always false: this service supplies its
// own initial commit.
func (c *Client) CreateRepository(ctx context.Context, token string, opts CreateRepoOptions) (*Repository, error) {
	endpoint := c.apiBase + "/user/repos"
	if opts.Org != "" {
		endpoint = c.apiBase + "/orgs/" + opts.Org + "/repos"
	}

	payload := map[string]any{
		"name":      opts.Name,
		"private":   opts.Private,
		"auto_init": false,
	}
	if opts.Description != "" {
		payload["description"] = opts.Description
	}
	if opts.AllowSquashMerge != nil {
		payload["allow_squash_merge"] = *opts.AllowSquashMerge
	}
	if opts.AllowMergeCommit != nil {
		payload["allow_merge_commit"] = *opts.AllowMergeCommit
	}
	if opts.AllowRebaseMerge != nil {
		payload["allow_rebase_merge"] = *opts.AllowRebaseMerge
	}
	if opts.DeleteBranchOnMerge != nil {
		payload["delete_branch_on_merge"] = *opts.DeleteBranchOnMerge
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setAPIHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp)
	}

	var repo Repository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	return &repo, nil
}

// ExchangeCode swaps an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (string, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token exchange returned %d: %s", ErrUpstream, resp.StatusCode, detail)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrUpstream, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: no access_token returned", ErrUpstream)
	}
	return tokenResp.AccessToken, nil
}

// GetUser fetches the authenticated user's profile. The upstream status
// code is returned alongside the profile so callers can pass it through.
func (c *Client) GetUser(ctx context.Context, token string) (User, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/user", nil)
	if err != nil {
		return nil, 0, err
	}
	c.setAPIHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: fetch user: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, parseAPIError(resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: decode user: %v", ErrUpstream, err)
	}
	return user, resp.StatusCode, nil
}

func (c *Client) setAPIHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var parsed struct {
		Message string           `json:"message"`
		Errors  []map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		apiErr.Message = parsed.Message
		apiErr.Errors = parsed.Errors
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
