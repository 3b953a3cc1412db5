package signing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hr-center/internal/models"
	"hr-center/internal/pdf"
	"hr-center/internal/storage"
	"hr-center/internal/vault"
)

// CompleteRequest is an in-app signature by the current signer
type CompleteRequest struct {
	AssignmentID   uint
	Actor          Actor
	SignatureImage []byte
	Placements     []pdf.PercentField
}

// CompleteResult points at the stored document
type CompleteResult struct {
	DocumentURL    string  `json:"documentUrl"`
	ExternalFileID *string `json:"externalFileId"`
	Completed      bool    `json:"completed"`
	NextSignerStep int     `json:"nextSignerStep,omitempty"`
}

// Complete applies the caller's signature. Intermediate steps store a working
// copy and advance the workflow; the final step stores the signed artifact,
// attaches it to the CRM record and closes the assignment as signed.
func (e *Engine) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	res, auditID, err := e.complete(ctx, req)
	if err != nil {
		outcome := models.OutcomeFailure
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			outcome = models.OutcomeNoop
		}
		e.audit(ctx, auditID, req.Actor, "", ActionSign, outcome, err.Error())
		return nil, err
	}

	details := "document signed"
	if !res.Completed {
		details = fmt.Sprintf("step signed, waiting for signer %d", res.NextSignerStep)
	}
	e.audit(ctx, &req.AssignmentID, req.Actor, "", ActionSign, models.OutcomeSuccess, details)
	return res, nil
}

func (e *Engine) complete(ctx context.Context, req CompleteRequest) (*CompleteResult, *uint, error) {
	a, err := e.Assignments.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	if a == nil || !isParty(a, req.Actor.EmployeeID) {
		return nil, nil, &NotFoundError{AssignmentID: req.AssignmentID}
	}
	id := &a.ID

	switch {
	case a.Status == models.StatusSigned:
		return nil, id, &ConflictError{Reason: "already signed"}
	case a.Status.IsTerminal():
		return nil, id, &ConflictError{Reason: fmt.Sprintf("assignment is %s", a.Status)}
	}
	if currentSignerID(a) != req.Actor.EmployeeID {
		return nil, id, &ConflictError{Reason: fmt.Sprintf("waiting for signer %d", a.CurrentSignerStep)}
	}
	if len(req.SignatureImage) == 0 {
		return nil, id, &InvalidInputError{Reason: "signature image is required"}
	}

	tmpl, err := e.loadTemplate(ctx, a)
	if err != nil {
		return nil, id, err
	}
	placements := req.Placements
	if len(placements) == 0 {
		placements = tmpl.FieldPositions
	}

	document, err := e.Storage.Get(ctx, sourceKey(a, tmpl))
	if err != nil {
		return nil, id, fmt.Errorf("failed to load document: %w", err)
	}

	signedAt := e.now()
	stamped, err := e.Renderer.Stamp(ctx, document, req.SignatureImage, placements, signedAt)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPlacement) || errors.Is(err, pdf.ErrInvalidImage) {
			return nil, id, &InvalidInputError{Reason: err.Error()}
		}
		return nil, id, err
	}

	if !a.IsFinalStep() {
		res, err := e.advance(ctx, a, tmpl, stamped, req.Actor, signedAt)
		return res, id, err
	}

	res, err := e.finish(ctx, a, tmpl, stamped, req.Actor, signedAt)
	return res, id, err
}

// advance stores the intermediate copy and hands the document to the next signer
func (e *Engine) advance(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate, stamped []byte, actor Actor, signedAt time.Time) (*CompleteResult, error) {
	key := storage.WorkingKey(a.ID, a.CurrentSignerStep)
	if err := e.Storage.Put(ctx, key, stamped); err != nil {
		return nil, err
	}

	won, err := e.Assignments.AdvanceStep(ctx, a.ID, a.CurrentSignerStep, key)
	if err != nil {
		e.reconcile(ctx, a.ID, key, StageWorking, err.Error())
		return nil, err
	}
	if !won {
		e.reconcile(ctx, a.ID, key, StageWorking, "lost step update")
		return nil, &ConflictError{Reason: "signer step already advanced"}
	}

	e.afterSignerStep(ctx, a, a.CurrentSignerStep, stamped, actor, signedAt)

	next := *a
	next.CurrentSignerStep++
	e.notifyNextSigner(ctx, &next, tmpl)

	url, err := e.Storage.PresignGet(ctx, key)
	if err != nil {
		slog.Warn("Failed to presign working document", "assignment_id", a.ID, "error", err)
	}
	return &CompleteResult{DocumentURL: url, NextSignerStep: next.CurrentSignerStep}, nil
}

// notifyNextSigner tells the signer now at the current step that it is their turn
func (e *Engine) notifyNextSigner(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate) {
	signer, ok := a.CurrentSigner()
	if !ok || signer.Email == nil {
		return
	}
	if err := e.Notifier.SendAssignmentCreated(ctx, *signer.Email, signer.DisplayName, tmpl.Title, a.ID, a.DueDate); err != nil {
		slog.Warn("Failed to notify next signer", "assignment_id", a.ID, "error", err)
	}
}

// finish runs the terminal sequence: storage, CRM, conditional signed update,
// then best effort follow-ups
func (e *Engine) finish(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate, stamped []byte, actor Actor, signedAt time.Time) (*CompleteResult, error) {
	signed, key, err := e.commitSigned(ctx, a, tmpl, stamped)
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return nil, &ConflictError{Reason: "already signed"}
	}

	url := e.afterSigned(ctx, signed, tmpl, key, stamped, actor, signedAt)

	return &CompleteResult{
		DocumentURL:    url,
		ExternalFileID: signed.ExternalFileID,
		Completed:      true,
	}, nil
}

// commitSigned stores the artifact, attaches it to the CRM record and
// performs the terminal compare-and-set. A nil assignment with no error means
// another writer reached a terminal state first; the stored artifact is queued
// for reconciliation.
func (e *Engine) commitSigned(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate, artifact []byte) (*models.DocumentAssignment, string, error) {
	key := storage.SignedKey(a.ID)
	if err := e.Storage.Put(ctx, key, artifact); err != nil {
		return nil, "", err
	}

	fileID, err := e.CRM.AttachDocument(ctx, a.EmployeeID, signedFileName(tmpl, a), artifact)
	if err != nil {
		e.reconcile(ctx, a.ID, key, StageCRM, err.Error())
		return nil, "", err
	}

	signed, err := e.Assignments.MarkSigned(ctx, a.ID, key, &fileID)
	if err != nil {
		e.reconcile(ctx, a.ID, key, StageTerminal, err.Error())
		return nil, "", err
	}
	if signed == nil {
		e.reconcile(ctx, a.ID, key, StageTerminal, "lost terminal update")
		return nil, key, nil
	}

	slog.Info("Assignment signed",
		"assignment_id", a.ID,
		"storage_key", key,
		"external_file_id", fileID,
	)
	return signed, key, nil
}

// afterSignerStep marks the signer row and seals evidence of the act
func (e *Engine) afterSignerStep(ctx context.Context, a *models.DocumentAssignment, step int, document []byte, actor Actor, signedAt time.Time) {
	if len(a.SigningWorkflow) > 0 {
		if err := e.Signers.MarkSigned(ctx, a.ID, step); err != nil {
			slog.Error("Failed to mark signer signed", "assignment_id", a.ID, "step", step, "error", err)
		}
	}

	if e.Sealer == nil {
		return
	}
	sum := sha256.Sum256(document)
	sealed, err := e.Sealer.SealEvidence(ctx, vault.Evidence{
		AssignmentID:   a.ID,
		SignerOrder:    step,
		SignerID:       actor.EmployeeID,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
		DocumentSHA256: hex.EncodeToString(sum[:]),
		SignedAt:       signedAt,
	})
	if err != nil {
		slog.Error("Failed to seal signature evidence", "assignment_id", a.ID, "error", err)
		return
	}
	err = e.Evidence.Create(ctx, &models.SignatureEvidence{
		AssignmentID: a.ID,
		SignerOrder:  step,
		SignerID:     actor.EmployeeID,
		Ciphertext:   sealed,
	})
	if err != nil {
		slog.Error("Failed to store signature evidence", "assignment_id", a.ID, "error", err)
	}
}

// afterSigned runs follow-ups once the assignment is durably signed. Failures
// are logged and never undo the transition. Returns a download url.
func (e *Engine) afterSigned(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate, key string, artifact []byte, actor Actor, signedAt time.Time) string {
	comment := fmt.Sprintf("Document \"%s\" signed on %s.", tmpl.Title, signedAt.UTC().Format(time.RFC1123))
	if err := e.CRM.AddTimelineComment(ctx, a.EmployeeID, comment); err != nil {
		slog.Error("Failed to add timeline comment", "assignment_id", a.ID, "error", err)
	}

	if err := e.Tasks.CompleteForAssignment(ctx, a.ID); err != nil {
		slog.Error("Failed to complete pending task", "assignment_id", a.ID, "error", err)
	}

	e.afterSignerStep(ctx, a, a.CurrentSignerStep, artifact, actor, signedAt)

	url, err := e.Storage.PresignGet(ctx, key)
	if err != nil {
		slog.Error("Failed to presign signed document", "assignment_id", a.ID, "error", err)
		return ""
	}

	if p := e.person(ctx, a.EmployeeID); p != nil && p.Email != nil {
		if err := e.Notifier.SendSigningConfirmation(ctx, *p.Email, p.DisplayName, tmpl.Title, url, signedAt); err != nil {
			slog.Warn("Failed to send signing confirmation", "assignment_id", a.ID, "error", err)
		}
	}
	return url
}
