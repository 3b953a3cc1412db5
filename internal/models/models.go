package models

import (
	"time"

	"hr-center/internal/pdf"
	"hr-center/internal/workflow"
)

// AssignmentStatus is the lifecycle state of a document assignment
type AssignmentStatus string

const (
	StatusAssigned AssignmentStatus = "assigned"
	StatusSent     AssignmentStatus = "sent"
	StatusSigned   AssignmentStatus = "signed"
	StatusDeclined AssignmentStatus = "declined"
	StatusExpired  AssignmentStatus = "expired"
)

// TerminalStatuses are never left once reached
var TerminalStatuses = []AssignmentStatus{StatusSigned, StatusDeclined, StatusExpired}

// IsTerminal reports whether s is signed, declined or expired
func (s AssignmentStatus) IsTerminal() bool {
	switch s {
	case StatusSigned, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// Priority values accepted on assignments
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Roles carried in caller tokens
const (
	RoleEmployee = "employee"
	RoleHRAdmin  = "hr_admin"
)

// Employee is a row of the CRM directory mirror
type Employee struct {
	BitrixID    int64     `json:"bitrix_id" db:"bitrix_id"`
	BadgeNumber *string   `json:"badge_number,omitempty" db:"badge_number"`
	FullName    string    `json:"full_name" db:"full_name"`
	Position    *string   `json:"position,omitempty" db:"position"`
	Department  *string   `json:"department,omitempty" db:"department"`
	Email       *string   `json:"email,omitempty" db:"email"`
	ManagerID   *int64    `json:"manager_id,omitempty" db:"-"`
	LastSync    time.Time `json:"last_sync" db:"last_sync"`
}

// DocumentTemplate is a source PDF with its field layout and default workflow
type DocumentTemplate struct {
	ID                  uint                          `json:"id" db:"id"`
	Title               string                        `json:"title" db:"title"`
	Description         *string                       `json:"description,omitempty" db:"description"`
	Category            string                        `json:"category" db:"category"`
	SourceKey           string                        `json:"-" db:"source_key"`
	FieldPositions      []pdf.PercentField            `json:"field_positions" db:"field_positions"`
	DefaultSignerConfig *workflow.DefaultSignerConfig `json:"default_signer_config,omitempty" db:"default_signer_config"`
	IsActive            bool                          `json:"is_active" db:"is_active"`
	CreatedAt           time.Time                     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time                     `json:"updated_at" db:"updated_at"`
}

// DocumentAssignment is one recipient's copy of a template moving through signing
type DocumentAssignment struct {
	ID                 uint              `json:"id" db:"id"`
	TemplateID         uint              `json:"template_id" db:"template_id"`
	EmployeeID         int64             `json:"employee_id" db:"employee_id"`
	CreatedBy          int64             `json:"created_by" db:"created_by"`
	Status             AssignmentStatus  `json:"status" db:"status"`
	Priority           string            `json:"priority" db:"priority"`
	DueDate            *time.Time        `json:"due_date,omitempty" db:"due_date"`
	SigningWorkflow    workflow.Snapshot `json:"signing_workflow" db:"signing_workflow"`
	CurrentSignerStep  int               `json:"current_signer_step" db:"current_signer_step"`
	SignatureRequestID *string           `json:"signature_request_id,omitempty" db:"signature_request_id"`
	WorkingArtifactKey *string           `json:"-" db:"working_artifact_key"`
	SignedArtifactKey  *string           `json:"-" db:"signed_artifact_key"`
	ExternalFileID     *string           `json:"external_file_id,omitempty" db:"external_file_id"`
	AssignedAt         time.Time         `json:"assigned_at" db:"assigned_at"`
	SentAt             *time.Time        `json:"sent_at,omitempty" db:"sent_at"`
	SignedAt           *time.Time        `json:"signed_at,omitempty" db:"signed_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	LastRemindedAt     *time.Time        `json:"last_reminded_at,omitempty" db:"last_reminded_at"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// CurrentSigner returns the signer whose turn it is, if the workflow has explicit signers
func (a *DocumentAssignment) CurrentSigner() (workflow.ResolvedSigner, bool) {
	return a.SigningWorkflow.At(a.CurrentSignerStep)
}

// IsFinalStep reports whether the current step is the last one in the workflow
func (a *DocumentAssignment) IsFinalStep() bool {
	return a.CurrentSignerStep >= len(a.SigningWorkflow)
}

// DocumentSigner is the persisted per-signer row of an assignment
type DocumentSigner struct {
	ID           uint       `json:"id" db:"id"`
	AssignmentID uint       `json:"assignment_id" db:"assignment_id"`
	SignerOrder  int        `json:"signer_order" db:"signer_order"`
	EmployeeID   int64      `json:"employee_id" db:"employee_id"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	Email        *string    `json:"email,omitempty" db:"email"`
	RoleName     string     `json:"role_name" db:"role_name"`
	Status       string     `json:"status" db:"status"`
	SignedAt     *time.Time `json:"signed_at,omitempty" db:"signed_at"`
}

// Audit outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           uint      `json:"id" db:"id"`
	AssignmentID *uint     `json:"assignment_id,omitempty" db:"assignment_id"`
	Actor        string    `json:"actor" db:"actor"`
	Action       string    `json:"action" db:"action"`
	Outcome      string    `json:"outcome" db:"outcome"`
	Details      string    `json:"details,omitempty" db:"details"`
	IPAddress    string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PendingTask is an item on an employee's to-do list
type PendingTask struct {
	ID                  uint       `json:"id" db:"id"`
	EmployeeID          int64      `json:"employee_id" db:"employee_id"`
	Type                string     `json:"type" db:"type"`
	Title               string     `json:"title" db:"title"`
	Priority            string     `json:"priority" db:"priority"`
	DueDate             *time.Time `json:"due_date,omitempty" db:"due_date"`
	RelatedAssignmentID *uint      `json:"related_assignment_id,omitempty" db:"related_assignment_id"`
	CompletedAt         *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// TaskTypeSignDocument marks tasks created for document assignments
const TaskTypeSignDocument = "sign_document"

// WebhookReceipt records a provider delivery by body hash
type WebhookReceipt struct {
	ID                 uint      `json:"id" db:"id"`
	RawBodySHA256      string    `json:"raw_body_sha256" db:"raw_body_sha256"`
	Event              string    `json:"event" db:"event"`
	SignatureRequestID *string   `json:"signature_request_id,omitempty" db:"signature_request_id"`
	Deliveries         int       `json:"deliveries" db:"deliveries"`
	ReceivedAt         time.Time `json:"received_at" db:"received_at"`
	LastReceivedAt     time.Time `json:"last_received_at" db:"last_received_at"`
}

// Reconciliation statuses
const (
	ReconciliationPending  = "pending"
	ReconciliationResolved = "resolved"
)

// ArtifactReconciliation is a stored object whose owning transition did not complete
type ArtifactReconciliation struct {
	ID           uint       `json:"id" db:"id"`
	AssignmentID uint       `json:"assignment_id" db:"assignment_id"`
	StorageKey   string     `json:"storage_key" db:"storage_key"`
	Stage        string     `json:"stage" db:"stage"`
	Reason       string     `json:"reason" db:"reason"`
	Status       string     `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// SignatureEvidence is the encrypted record of a single signer's act
type SignatureEvidence struct {
	ID           uint      `json:"id" db:"id"`
	AssignmentID uint      `json:"assignment_id" db:"assignment_id"`
	SignerOrder  int       `json:"signer_order" db:"signer_order"`
	SignerID     int64     `json:"signer_id" db:"signer_id"`
	Ciphertext   string    `json:"-" db:"ciphertext"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
