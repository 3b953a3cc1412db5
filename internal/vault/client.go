// Package vault seals signature evidence with Vault's transit engine.
package vault

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/vault/api"

	"hr-center/internal/config"
)

// Client wraps HashiCorp Vault API
type Client struct {
	client       *api.Client
	transitMount string
	evidenceKey  string
}

// NewClient creates a new Vault client, mounting transit and creating the
// evidence key when missing
func NewClient(ctx context.Context, cfg *config.VaultConfig) (*Client, error) {
	vcfg := api.DefaultConfig()
	vcfg.Address = cfg.Address

	client, err := api.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	c := &Client{
		client:       client,
		transitMount: cfg.TransitMount,
		evidenceKey:  cfg.EvidenceKey,
	}

	if err := c.initTransitEngine(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize transit engine: %w", err)
	}
	if err := c.CreateKey(ctx, c.evidenceKey); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) initTransitEngine(ctx context.Context) error {
	mounts, err := c.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}
	if _, exists := mounts[c.transitMount+"/"]; exists {
		return nil
	}

	err = c.client.Sys().MountWithContext(ctx, c.transitMount, &api.MountInput{
		Type:        "transit",
		Description: "Transit encryption for HR Center signature evidence",
	})
	if err != nil {
		return fmt.Errorf("failed to mount transit engine: %w", err)
	}
	return nil
}

// CreateKey creates a transit key; existing keys are left as they are
func (c *Client) CreateKey(ctx context.Context, keyName string) error {
	path := fmt.Sprintf("%s/keys/%s", c.transitMount, keyName)
	data := map[string]any{
		"type":       "aes256-gcm96",
		"exportable": false,
	}
	if _, err := c.client.Logical().WriteWithContext(ctx, path, data); err != nil {
		return fmt.Errorf("failed to create key %s: %w", keyName, err)
	}
	return nil
}

// Encrypt encrypts data using Vault's transit engine
func (c *Client) Encrypt(ctx context.Context, keyName string, plaintext []byte) (string, error) {
	path := fmt.Sprintf("%s/encrypt/%s", c.transitMount, keyName)
	data := map[string]any{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}

	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("invalid ciphertext response")
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("invalid ciphertext response")
	}
	return ciphertext, nil
}

// Decrypt decrypts data using Vault's transit engine
func (c *Client) Decrypt(ctx context.Context, keyName, ciphertext string) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", c.transitMount, keyName)
	data := map[string]any{
		"ciphertext": ciphertext,
	}

	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	encoded, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}
	return plaintext, nil
}

// Health checks Vault health
func (c *Client) Health(ctx context.Context) error {
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

// Evidence describes one signer's act on a document
type Evidence struct {
	AssignmentID   uint      `json:"assignmentId"`
	SignerOrder    int       `json:"signerOrder"`
	SignerID       int64     `json:"signerId"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	DocumentSHA256 string    `json:"documentSha256"`
	SignedAt       time.Time `json:"signedAt"`
}

// SealEvidence encrypts an evidence record with the evidence key
func (c *Client) SealEvidence(ctx context.Context, ev Evidence) (string, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal evidence: %w", err)
	}
	return c.Encrypt(ctx, c.evidenceKey, payload)
}

// OpenEvidence decrypts a sealed evidence record
func (c *Client) OpenEvidence(ctx context.Context, ciphertext string) (*Evidence, error) {
	plaintext, err := c.Decrypt(ctx, c.evidenceKey, ciphertext)
	if err != nil {
		return nil, err
	}

	var ev Evidence
	if err := json.Unmarshal(plaintext, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}
	return &ev, nil
}
