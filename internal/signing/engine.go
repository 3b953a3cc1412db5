// Package signing drives document assignments from assigned to a terminal state.
package signing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"hr-center/internal/models"
	"hr-center/internal/opensign"
	"hr-center/internal/pdf"
	"hr-center/internal/vault"
	"hr-center/internal/workflow"
)

// Audit actions
const (
	ActionDispatch      = "document.dispatch"
	ActionSign          = "document.sign"
	ActionProviderEvent = "document.provider_event"
)

// Reconciliation stages
const (
	StageWorking  = "working_artifact"
	StageCRM      = "crm_attach"
	StageTerminal = "terminal_update"
)

// ProviderActor is the audit actor for provider notifications
const ProviderActor = "opensign"

// Assignments is the state store. Every transition is a conditional update.
type Assignments interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error)
	GetBySignatureRequestID(ctx context.Context, requestID string) (*models.DocumentAssignment, error)
	MarkSent(ctx context.Context, id uint, requestID string) (bool, error)
	AdvanceStep(ctx context.Context, id uint, fromStep int, workingKey string) (bool, error)
	HandOff(ctx context.Context, id uint, fromStep int, workingKey string, requestID *string) (bool, error)
	MarkSigned(ctx context.Context, id uint, artifactKey string, externalFileID *string) (*models.DocumentAssignment, error)
	MarkClosed(ctx context.Context, id uint, status models.AssignmentStatus) (bool, error)
}

type Templates interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentTemplate, error)
}

type Signers interface {
	MarkSigned(ctx context.Context, assignmentID uint, order int) error
}

type Tasks interface {
	CompleteForAssignment(ctx context.Context, assignmentID uint) error
}

type AuditTrail interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type Receipts interface {
	Record(ctx context.Context, bodySHA256, event string, requestID *string) (int, error)
}

type Reconciliations interface {
	Create(ctx context.Context, rec *models.ArtifactReconciliation) error
}

type EvidenceStore interface {
	Create(ctx context.Context, ev *models.SignatureEvidence) error
}

// Sealer encrypts evidence records. Optional.
type Sealer interface {
	SealEvidence(ctx context.Context, ev vault.Evidence) (string, error)
}

// Storage holds source, intermediate and signed artifacts
type Storage interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// CRM receives the signed copy and a timeline note
type CRM interface {
	AttachDocument(ctx context.Context, recordID int64, fileName string, content []byte) (string, error)
	AddTimelineComment(ctx context.Context, recordID int64, comment string) error
}

// Provider is the external signing service
type Provider interface {
	CreateDocument(ctx context.Context, req opensign.CreateDocumentRequest) (*opensign.Session, error)
	DownloadSigned(ctx context.Context, requestID string) ([]byte, error)
	Cancel(ctx context.Context, requestID string) error
}

type Renderer interface {
	PageSizes(document []byte) ([]types.Dim, error)
	Stamp(ctx context.Context, document, signaturePNG []byte, placements []pdf.PercentField, signedAt time.Time) ([]byte, error)
}

// Notifier sends best effort emails
type Notifier interface {
	SendAssignmentCreated(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate *time.Time) error
	SendSigningConfirmation(ctx context.Context, to, name, documentTitle, downloadURL string, signedAt time.Time) error
}

// Deps are the engine's collaborators. Sealer may be nil.
type Deps struct {
	Assignments     Assignments
	Templates       Templates
	Signers         Signers
	Tasks           Tasks
	Audit           AuditTrail
	Receipts        Receipts
	Reconciliations Reconciliations
	Evidence        EvidenceStore
	Sealer          Sealer
	Storage         Storage
	CRM             CRM
	Provider        Provider
	Renderer        Renderer
	Notifier        Notifier
	Directory       workflow.Directory
}

// Engine runs the signature lifecycle. It holds no per-assignment state;
// concurrent callers are arbitrated by the store's conditional updates.
type Engine struct {
	Deps
	webhookSecret string
	now           func() time.Time
}

// NewEngine creates a lifecycle engine
func NewEngine(deps Deps, webhookSecret string) *Engine {
	return &Engine{
		Deps:          deps,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// Actor identifies who triggered an operation
type Actor struct {
	EmployeeID int64
	IPAddress  string
	UserAgent  string
}

func (a Actor) String() string {
	return fmt.Sprintf("employee:%d", a.EmployeeID)
}

func (e *Engine) audit(ctx context.Context, assignmentID *uint, actor Actor, actorName, action, outcome, details string) {
	if actorName == "" {
		actorName = actor.String()
	}
	entry := &models.AuditLog{
		AssignmentID: assignmentID,
		Actor:        actorName,
		Action:       action,
		Outcome:      outcome,
		Details:      details,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
	}
	if err := e.Audit.Create(ctx, entry); err != nil {
		slog.Error("Failed to write audit entry", "action", action, "error", err)
	}
}

func (e *Engine) reconcile(ctx context.Context, assignmentID uint, key, stage, reason string) {
	rec := &models.ArtifactReconciliation{
		AssignmentID: assignmentID,
		StorageKey:   key,
		Stage:        stage,
		Reason:       reason,
	}
	if err := e.Reconciliations.Create(ctx, rec); err != nil {
		slog.Error("Failed to queue artifact reconciliation",
			"assignment_id", assignmentID,
			"storage_key", key,
			"error", err,
		)
		return
	}
	slog.Warn("Queued artifact reconciliation",
		"assignment_id", assignmentID,
		"storage_key", key,
		"stage", stage,
		"reason", reason,
	)
}

// sourceKey is the document the next signature is drawn on
func sourceKey(a *models.DocumentAssignment, tmpl *models.DocumentTemplate) string {
	if a.WorkingArtifactKey != nil && *a.WorkingArtifactKey != "" {
		return *a.WorkingArtifactKey
	}
	return tmpl.SourceKey
}

func (e *Engine) loadTemplate(ctx context.Context, a *models.DocumentAssignment) (*models.DocumentTemplate, error) {
	tmpl, err := e.Templates.GetByID(ctx, a.TemplateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("template %d of assignment %d not found", a.TemplateID, a.ID)
	}
	return tmpl, nil
}

// isParty reports whether the actor may see or act on the assignment
func isParty(a *models.DocumentAssignment, employeeID int64) bool {
	if a.EmployeeID == employeeID {
		return true
	}
	for _, signer := range a.SigningWorkflow {
		if signer.Identifier == employeeID {
			return true
		}
	}
	return false
}

// currentSignerID is who must sign next: the workflow signer at the current
// step, or the recipient when the workflow is empty
func currentSignerID(a *models.DocumentAssignment) int64 {
	if signer, ok := a.CurrentSigner(); ok {
		return signer.Identifier
	}
	return a.EmployeeID
}

func (e *Engine) person(ctx context.Context, id int64) *workflow.Person {
	p, err := e.Directory.FindPerson(ctx, id)
	if err != nil {
		slog.Warn("Directory lookup failed", "employee_id", id, "error", err)
		return nil
	}
	return p
}

func signedFileName(tmpl *models.DocumentTemplate, a *models.DocumentAssignment) string {
	return fmt.Sprintf("%s - signed %d.pdf", tmpl.Title, a.ID)
}
