// Package opensign talks to the OpenSign signing provider.
package opensign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"hr-center/internal/config"
)

// Client is an OpenSign REST client. Reads are retried; writes are sent once.
type Client struct {
	baseURL  string
	apiToken string
	reads    *retryablehttp.Client
	writes   *http.Client
}

// NewClient creates a new OpenSign client
func NewClient(cfg *config.OpenSignConfig) *Client {
	reads := retryablehttp.NewClient()
	reads.RetryMax = cfg.RetryMax
	reads.HTTPClient.Timeout = cfg.Timeout
	reads.Logger = slog.Default()

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		reads:    reads,
		writes:   &http.Client{Timeout: cfg.Timeout},
	}
}

// WidgetOptions configures a placed widget
type WidgetOptions struct {
	Name           string   `json:"name"`
	Required       bool     `json:"required"`
	Format         string   `json:"format,omitempty"`
	Values         []string `json:"values,omitempty"`
	SelectedValues []string `json:"selectedvalues,omitempty"`
}

// Widget is a field placed on the document, in points from the top-left of the page
type Widget struct {
	Type    string        `json:"type"`
	Page    int           `json:"page"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	W       float64       `json:"w"`
	H       float64       `json:"h"`
	Options WidgetOptions `json:"options"`
}

// Signer is a provider-side signer with their widgets
type Signer struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Widgets []Widget `json:"widgets"`
}

// CreateDocumentRequest uploads a PDF and opens a signing session
type CreateDocumentRequest struct {
	File     []byte
	Title    string
	Signers  []Signer
	Metadata map[string]any
}

// Session is an opened signing session
type Session struct {
	ID      string
	SignURL string
}

type createDocumentPayload struct {
	File      string         `json:"file"`
	Title     string         `json:"title"`
	Signers   []Signer       `json:"signers"`
	SendEmail bool           `json:"send_email"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type createDocumentResponse struct {
	ObjectID string `json:"objectId"`
	SignURL  []struct {
		Email string `json:"email"`
		URL   string `json:"url"`
	} `json:"signurl"`
	Message string `json:"message"`
}

// CreateDocument uploads the PDF as base64 JSON and returns the new session
func (c *Client) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Session, error) {
	payload := createDocumentPayload{
		File:      base64.StdEncoding.EncodeToString(req.File),
		Title:     req.Title,
		Signers:   req.Signers,
		SendEmail: true,
		Metadata:  req.Metadata,
	}

	var resp createDocumentResponse
	if err := c.post(ctx, "/createdocument", payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if resp.ObjectID == "" {
		return nil, fmt.Errorf("failed to create document: provider returned no id")
	}

	session := &Session{ID: resp.ObjectID}
	if len(resp.SignURL) > 0 {
		session.SignURL = resp.SignURL[0].URL
	}
	return session, nil
}

// DownloadSigned fetches the completed PDF of a signing session
func (c *Client) DownloadSigned(ctx context.Context, requestID string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/signature-requests/"+requestID+"/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-token", c.apiToken)
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.reads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download document: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// SendReminder asks the provider to re-notify the pending signer
func (c *Client) SendReminder(ctx context.Context, requestID string) error {
	if err := c.post(ctx, "/signature-requests/"+requestID+"/remind", nil, nil); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// Cancel withdraws a signing session
func (c *Client) Cancel(ctx context.Context, requestID string) error {
	if err := c.post(ctx, "/signature-requests/"+requestID+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("failed to cancel signature request: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.writes.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
