// Package directory fetches the contact pool from the practice's CRM
// contact API. Loading happens strictly before a reconcile run; the
// matching engine itself never touches the network.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patientexplorer/patientexplorer/pkg/models"
)

// AuthProvider supplies tokens for the directory API.
type AuthProvider interface {
	GetToken(ctx context.Context) (string, error)
	TokenType() string
}

// StaticTokenProvider is an AuthProvider wrapping a fixed API token.
type StaticTokenProvider struct {
	Token string
}

func (p *StaticTokenProvider) GetToken(ctx context.Context) (string, error) { return p.Token, nil }
func (p *StaticTokenProvider) TokenType() string                            { return "Bearer" }

// Client is an HTTP client for the contact directory.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	authProvider AuthProvider
	pageSize     int
}

// ClientConfig holds directory client configuration.
type ClientConfig struct {
	BaseURL      string
	AuthProvider AuthProvider
	Timeout      time.Duration
	PageSize     int
}

// NewClient creates a directory client.
func NewClient(config *ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := config.PageSize
	if pageSize == 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		authProvider: config.AuthProvider,
		pageSize:     pageSize,
	}
}

// contact is the directory's wire representation of one contact.
type contact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

type contactPage struct {
	Contacts []contact `json:"contacts"`
	HasMore  bool      `json:"has_more"`
}

// ListContacts fetches every contact, following pagination, and maps
// them to candidate records for the matching engine.
func (c *Client) ListContacts(ctx context.Context) ([]models.CandidateRecord, error) {
	var candidates []models.CandidateRecord
	for page := 1; ; page++ {
		body, err := c.doRequest(ctx, http.MethodGet,
			"/contacts?page="+strconv.Itoa(page)+"&page_size="+strconv.Itoa(c.pageSize))
		if err != nil {
			return nil, err
		}

		var resp contactPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode contacts page %d: %w", page, err)
		}
		for _, ct := range resp.Contacts {
			candidates = append(candidates, models.CandidateRecord{
				ID:    ct.ID,
				Name:  ct.DisplayName,
				Phone: ct.PhoneNumber,
				Email: ct.Email,
			})
		}
		if !resp.HasMore {
			return candidates, nil
		}
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.authProvider != nil {
		token, err := c.authProvider.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("get auth token: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("%s %s", c.authProvider.TokenType(), token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
