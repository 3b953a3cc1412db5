package signing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hr-center/internal/models"
	"hr-center/internal/opensign"
)

// DispatchResult is the provider session bound to an assignment
type DispatchResult struct {
	SignatureRequestID string `json:"signatureRequestId"`
	SignURL            string `json:"signUrl,omitempty"`
}

// Dispatch opens a provider signing session for the current signer and moves
// the assignment from assigned to sent.
func (e *Engine) Dispatch(ctx context.Context, assignmentID uint, actor Actor) (*DispatchResult, error) {
	res, err := e.dispatch(ctx, assignmentID)
	if err != nil {
		outcome := models.OutcomeFailure
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			outcome = models.OutcomeNoop
		}
		e.audit(ctx, knownID(err, assignmentID), actor, "", ActionDispatch, outcome, err.Error())
		return nil, err
	}

	e.audit(ctx, &assignmentID, actor, "", ActionDispatch, models.OutcomeSuccess,
		"signature request "+res.SignatureRequestID)
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, assignmentID uint) (*DispatchResult, error) {
	a, err := e.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	if a == nil {
		return nil, &NotFoundError{AssignmentID: assignmentID}
	}
	if a.Status != models.StatusAssigned {
		return nil, &ConflictError{Reason: fmt.Sprintf("assignment is %s", a.Status)}
	}

	tmpl, err := e.loadTemplate(ctx, a)
	if err != nil {
		return nil, err
	}
	session, err := e.openSession(ctx, a, tmpl)
	if err != nil {
		return nil, err
	}

	won, err := e.Assignments.MarkSent(ctx, a.ID, session.ID)
	if err != nil || !won {
		e.cancelSession(ctx, a.ID, session.ID)
		if err != nil {
			return nil, err
		}
		return nil, &ConflictError{Reason: "assignment was dispatched concurrently"}
	}

	slog.Info("Assignment dispatched",
		"assignment_id", a.ID,
		"signature_request_id", session.ID,
	)
	return &DispatchResult{SignatureRequestID: session.ID, SignURL: session.SignURL}, nil
}

// openSession creates a provider document for the current signer, drawn on
// the latest working copy
func (e *Engine) openSession(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate) (*opensign.Session, error) {
	document, err := e.Storage.Get(ctx, sourceKey(a, tmpl))
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	dims, err := e.Renderer.PageSizes(document)
	if err != nil {
		return nil, err
	}

	signerID := currentSignerID(a)
	p := e.person(ctx, signerID)
	if p == nil || p.Email == nil || *p.Email == "" {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("signer %d has no email on file", signerID)}
	}

	widgets := make([]opensign.Widget, 0, len(tmpl.FieldPositions))
	for i, f := range tmpl.FieldPositions {
		page := max(f.Page, 1)
		if page > len(dims) {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("field %d targets page %d of %d", i+1, page, len(dims))}
		}
		w, h := dims[page-1].Width, dims[page-1].Height
		// provider widgets use a top-left origin
		widgets = append(widgets, opensign.Widget{
			Type: "signature",
			Page: page,
			X:    f.X * w / 100,
			Y:    f.Y * h / 100,
			W:    f.Width * w / 100,
			H:    f.Height * h / 100,
			Options: opensign.WidgetOptions{
				Name:     fmt.Sprintf("signature-%d", i+1),
				Required: true,
			},
		})
	}

	return e.Provider.CreateDocument(ctx, opensign.CreateDocumentRequest{
		File:  document,
		Title: tmpl.Title,
		Signers: []opensign.Signer{{
			Email:   *p.Email,
			Name:    p.DisplayName,
			Role:    "signer",
			Widgets: widgets,
		}},
		Metadata: map[string]any{"assignmentId": a.ID, "signerStep": a.CurrentSignerStep},
	})
}

// cancelSession withdraws a provider session nothing is bound to
func (e *Engine) cancelSession(ctx context.Context, assignmentID uint, requestID string) {
	if err := e.Provider.Cancel(ctx, requestID); err != nil {
		slog.Error("Failed to cancel orphaned signature request",
			"assignment_id", assignmentID,
			"signature_request_id", requestID,
			"error", err,
		)
	}
}

// knownID keeps audit rows off assignments that do not exist
func knownID(err error, id uint) *uint {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return &id
}
