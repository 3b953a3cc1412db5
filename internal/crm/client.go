// Package crm writes signed documents and notes to the Bitrix24 employee record.
package crm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"hr-center/internal/config"
)

// Client is a Bitrix24 inbound-webhook REST client
type Client struct {
	baseURL    string
	pipeline   *Pipeline
	httpClient *http.Client
}

// NewClient creates a new CRM client
func NewClient(cfg *config.BitrixConfig, pipeline *Pipeline) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.WebhookURL, "/"),
		pipeline:   pipeline,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type apiResponse struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// AttachDocument uploads a file into the record's documents field and
// returns the CRM file id. Bitrix replaces a multi-value file field with the
// list it is sent, so the files already on the record are sent back by id.
func (c *Client) AttachDocument(ctx context.Context, recordID int64, fileName string, content []byte) (string, error) {
	field := c.pipeline.DocumentsField()

	existing, err := c.fileIDs(ctx, recordID, field)
	if err != nil {
		return "", fmt.Errorf("failed to read documents: %w", err)
	}

	files := make([]any, 0, len(existing)+1)
	for _, id := range existing {
		files = append(files, map[string]string{"id": id})
	}
	files = append(files, []string{fileName, base64.StdEncoding.EncodeToString(content)})

	params := map[string]any{
		"entityTypeId": c.pipeline.EntityTypeID(),
		"id":           recordID,
		"fields":       map[string]any{field: files},
	}

	var result struct {
		Item map[string]json.RawMessage `json:"item"`
	}
	if err := c.call(ctx, "crm.item.update", params, &result); err != nil {
		return "", fmt.Errorf("failed to attach document: %w", err)
	}

	ids, err := parseFileIDs(result.Item[field])
	if err != nil {
		return "", fmt.Errorf("failed to attach document: %w", err)
	}
	fileID, ok := newFileID(existing, ids)
	if !ok {
		return "", fmt.Errorf("failed to attach document: no file id returned")
	}
	return fileID, nil
}

// fileIDs lists the files currently held in a record's file field
func (c *Client) fileIDs(ctx context.Context, recordID int64, field string) ([]string, error) {
	params := map[string]any{
		"entityTypeId": c.pipeline.EntityTypeID(),
		"id":           recordID,
	}
	var result struct {
		Item map[string]json.RawMessage `json:"item"`
	}
	if err := c.call(ctx, "crm.item.get", params, &result); err != nil {
		return nil, err
	}
	raw, ok := result.Item[field]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	return parseFileIDs(raw)
}

// AddTimelineComment appends a note to the record's timeline
func (c *Client) AddTimelineComment(ctx context.Context, recordID int64, comment string) error {
	params := map[string]any{
		"fields": map[string]any{
			"ENTITY_ID":   recordID,
			"ENTITY_TYPE": c.pipeline.EntityType(),
			"COMMENT":     comment,
			"AUTHOR_ID":   c.pipeline.AuthorID(),
		},
	}
	if err := c.call(ctx, "crm.timeline.comment.add", params, nil); err != nil {
		return fmt.Errorf("failed to add timeline comment: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method+".json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if apiResp.Error != "" {
		if apiResp.ErrorDescription != "" {
			return fmt.Errorf("bitrix24 error: %s", apiResp.ErrorDescription)
		}
		return fmt.Errorf("bitrix24 error: %s", apiResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bitrix24 API error: status %d", resp.StatusCode)
	}

	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return nil
}

// parseFileIDs reads the ids of a file field, which Bitrix returns either as
// one object, a list of objects, or an empty string when nothing is attached.
func parseFileIDs(raw json.RawMessage) ([]string, error) {
	type file struct {
		ID json.Number `json:"id"`
	}

	var files []file
	if err := json.Unmarshal(raw, &files); err != nil {
		var single file
		if err := json.Unmarshal(raw, &single); err != nil {
			var empty string
			if json.Unmarshal(raw, &empty) == nil && empty == "" {
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected file field value")
		}
		files = []file{single}
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id := f.ID.String()
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid file id %q", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newFileID picks the id that was not on the record before the update,
// falling back to the last one
func newFileID(before, after []string) (string, bool) {
	for _, id := range after {
		if !slices.Contains(before, id) {
			return id, true
		}
	}
	if len(after) == 0 {
		return "", false
	}
	return after[len(after)-1], true
}
