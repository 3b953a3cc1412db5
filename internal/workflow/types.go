// Package workflow expands a template's abstract signer declarations into
// concrete, ordered and deduplicated signer lists, one per recipient.
package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SignerType identifies how a declared signer slot is filled
type SignerType string

const (
	SignerAssignee         SignerType = "assignee"
	SignerCreatingAdmin    SignerType = "creating_admin"
	SignerAssigneesManager SignerType = "assignees_manager"
	SignerSpecificPerson   SignerType = "specific_person"
)

// ParseSignerType rejects any tag outside the closed set
func ParseSignerType(s string) (SignerType, error) {
	switch t := SignerType(s); t {
	case SignerAssignee, SignerCreatingAdmin, SignerAssigneesManager, SignerSpecificPerson:
		return t, nil
	default:
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown signer type %q", s)}
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (t *SignerType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ConfigurationError{Reason: "signer type must be a string"}
	}
	parsed, err := ParseSignerType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Mode selects single or multi signer workflows
type Mode string

const (
	ModeSingleSigner Mode = "single_signer"
	ModeMultiSigner  Mode = "multi_signer"
)

// UnmarshalJSON implements json.Unmarshaler
func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ConfigurationError{Reason: "mode must be a string"}
	}
	switch Mode(s) {
	case ModeSingleSigner, ModeMultiSigner:
		*m = Mode(s)
		return nil
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown workflow mode %q", s)}
	}
}

// TemplateSignerConfig is one declared signer slot on a template
type TemplateSignerConfig struct {
	Order      int        `json:"order"`
	SignerType SignerType `json:"signerType"`
	RoleName   string     `json:"roleName"`
	// ExplicitIdentifier is the directory id for specific_person slots
	ExplicitIdentifier *int64 `json:"bitrixId,omitempty"`
}

// DefaultSignerConfig is the template-level workflow declaration
type DefaultSignerConfig struct {
	Mode    Mode                   `json:"mode"`
	Signers []TemplateSignerConfig `json:"signers"`
}

// Validate checks the structural rules that do not need a directory lookup
func (c *DefaultSignerConfig) Validate(maxSigners int) error {
	if c == nil || c.Mode == ModeSingleSigner {
		return nil
	}
	if c.Mode != ModeMultiSigner {
		return &ConfigurationError{Reason: fmt.Sprintf("unknown workflow mode %q", c.Mode)}
	}
	if len(c.Signers) == 0 {
		return &ConfigurationError{Reason: "no signers declared"}
	}
	if maxSigners > 0 && len(c.Signers) > maxSigners {
		return &ConfigurationError{Reason: fmt.Sprintf("%d signers declared, at most %d allowed", len(c.Signers), maxSigners)}
	}
	for i, s := range c.Signers {
		if _, err := ParseSignerType(string(s.SignerType)); err != nil {
			return err
		}
		if s.SignerType == SignerSpecificPerson && s.ExplicitIdentifier == nil {
			return &ConfigurationError{Reason: fmt.Sprintf("signer %d: specific_person requires an explicit identifier", i+1)}
		}
	}
	return nil
}

// Scan implements sql.Scanner for jsonb columns
func (c *DefaultSignerConfig) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, c)
}

// Value implements driver.Valuer
func (c DefaultSignerConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// ResolvedSigner is a concrete signer snapshot; it is never mutated once produced
type ResolvedSigner struct {
	Order       int     `json:"order"`
	Identifier  int64   `json:"bitrixId"`
	DisplayName string  `json:"employeeName"`
	Email       *string `json:"employeeEmail,omitempty"`
	RoleName    string  `json:"roleName"`
}

// ResolvedAssignment is the resolved signer list for one recipient.
// An empty Signers list means the recipient signs alone.
type ResolvedAssignment struct {
	RecipientID int64            `json:"recipientId"`
	Signers     []ResolvedSigner `json:"signers"`
}

// Snapshot is the persisted signer list on an assignment
type Snapshot []ResolvedSigner

// Scan implements sql.Scanner
func (s *Snapshot) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, s)
}

// Value implements driver.Valuer
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ResolvedSigner(s))
}

// At returns the signer at the given 1-based step
func (s Snapshot) At(step int) (ResolvedSigner, bool) {
	for _, signer := range s {
		if signer.Order == step {
			return signer, true
		}
	}
	return ResolvedSigner{}, false
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source %T", src)
	}
}
