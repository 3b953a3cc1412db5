package signing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"hr-center/internal/models"
	"hr-center/internal/opensign"
	"hr-center/internal/storage"
)

// EventResult describes what a provider notification did
type EventResult struct {
	Event        string `json:"event"`
	AssignmentID *uint  `json:"assignmentId,omitempty"`
	Applied      bool   `json:"applied"`
	Reason       string `json:"reason,omitempty"`
}

// HandleProviderEvent authenticates and applies a provider notification.
// Redeliveries and events for closed assignments are no-ops that succeed.
func (e *Engine) HandleProviderEvent(ctx context.Context, rawBody []byte, signatureHeader string) (*EventResult, error) {
	if signatureHeader == "" {
		return nil, e.rejectEvent(ctx, "missing signature")
	}
	if !opensign.Verify(e.webhookSecret, rawBody, signatureHeader) {
		return nil, e.rejectEvent(ctx, "signature mismatch")
	}

	event, err := opensign.ParseEvent(rawBody)
	if err != nil {
		return e.noop(ctx, nil, "", "undecodable payload"), nil
	}
	if !event.Known() {
		return e.noop(ctx, nil, event.Event, "unhandled event type"), nil
	}

	sum := sha256.Sum256(rawBody)
	deliveries, err := e.Receipts.Record(ctx, hex.EncodeToString(sum[:]), event.Event, &event.SignatureRequestID)
	if err != nil {
		slog.Warn("Failed to record webhook receipt", "signature_request_id", event.SignatureRequestID, "error", err)
	} else if deliveries > 1 {
		slog.Info("Webhook redelivered", "signature_request_id", event.SignatureRequestID, "deliveries", deliveries)
	}

	a, err := e.Assignments.GetBySignatureRequestID(ctx, event.SignatureRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	if a == nil {
		return e.noop(ctx, nil, event.Event, "unknown signature request "+event.SignatureRequestID), nil
	}

	switch event.Event {
	case opensign.EventSigned:
		return e.providerSigned(ctx, a, event)
	case opensign.EventDeclined:
		return e.providerClosed(ctx, a, event, models.StatusDeclined)
	case opensign.EventExpired:
		return e.providerClosed(ctx, a, event, models.StatusExpired)
	}
	return e.noop(ctx, &a.ID, event.Event, "unhandled event type"), nil
}

func (e *Engine) rejectEvent(ctx context.Context, reason string) error {
	slog.Warn("Rejected provider notification", "reason", reason)
	e.audit(ctx, nil, Actor{}, ProviderActor, ActionProviderEvent, models.OutcomeFailure, reason)
	return &UnauthorizedError{Reason: reason}
}

func (e *Engine) noop(ctx context.Context, assignmentID *uint, event, reason string) *EventResult {
	e.audit(ctx, assignmentID, Actor{}, ProviderActor, ActionProviderEvent, models.OutcomeNoop,
		fmt.Sprintf("%s: %s", eventLabel(event), reason))
	return &EventResult{Event: event, AssignmentID: assignmentID, Reason: reason}
}

func (e *Engine) applied(ctx context.Context, a *models.DocumentAssignment, event, details string) *EventResult {
	e.audit(ctx, &a.ID, Actor{}, ProviderActor, ActionProviderEvent, models.OutcomeSuccess,
		fmt.Sprintf("%s: %s", event, details))
	return &EventResult{Event: event, AssignmentID: &a.ID, Applied: true}
}

func (e *Engine) failed(ctx context.Context, a *models.DocumentAssignment, event string, err error) error {
	e.audit(ctx, &a.ID, Actor{}, ProviderActor, ActionProviderEvent, models.OutcomeFailure,
		fmt.Sprintf("%s: %v", event, err))
	return err
}

func (e *Engine) providerSigned(ctx context.Context, a *models.DocumentAssignment, event opensign.Event) (*EventResult, error) {
	if a.Status.IsTerminal() {
		return e.noop(ctx, &a.ID, event.Event, fmt.Sprintf("assignment already %s", a.Status)), nil
	}

	tmpl, err := e.loadTemplate(ctx, a)
	if err != nil {
		return nil, e.failed(ctx, a, event.Event, err)
	}

	artifact, err := e.Provider.DownloadSigned(ctx, event.SignatureRequestID)
	if err != nil {
		return nil, e.failed(ctx, a, event.Event, err)
	}

	if !a.IsFinalStep() {
		return e.providerHandOff(ctx, a, tmpl, event, artifact)
	}

	signed, key, err := e.commitSigned(ctx, a, tmpl, artifact)
	if err != nil {
		return nil, e.failed(ctx, a, event.Event, err)
	}
	if signed == nil {
		return e.noop(ctx, &a.ID, event.Event, "assignment closed concurrently"), nil
	}

	signer := Actor{EmployeeID: currentSignerID(a)}
	e.afterSigned(ctx, signed, tmpl, key, artifact, signer, e.now())
	return e.applied(ctx, a, event.Event, "document signed"), nil
}

// providerHandOff keeps an intermediate provider signature as the working copy
// and rebinds the assignment to a new session for the next signer. The old
// session is unbound in the same update, so its redeliveries match nothing.
func (e *Engine) providerHandOff(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate, event opensign.Event, artifact []byte) (*EventResult, error) {
	step := a.CurrentSignerStep
	key := storage.WorkingKey(a.ID, step)
	if err := e.Storage.Put(ctx, key, artifact); err != nil {
		return nil, e.failed(ctx, a, event.Event, err)
	}

	next := *a
	next.CurrentSignerStep = step + 1
	next.WorkingArtifactKey = &key

	var requestID *string
	session, err := e.openSession(ctx, &next, tmpl)
	var invalid *InvalidInputError
	switch {
	case errors.As(err, &invalid):
		// the next signer continues in-app
		slog.Warn("Next signer cannot be sent to the provider", "assignment_id", a.ID, "step", next.CurrentSignerStep, "reason", invalid.Reason)
	case err != nil:
		e.reconcile(ctx, a.ID, key, StageWorking, err.Error())
		return nil, e.failed(ctx, a, event.Event, err)
	default:
		requestID = &session.ID
	}

	won, err := e.Assignments.HandOff(ctx, a.ID, step, key, requestID)
	if err != nil || !won {
		if requestID != nil {
			e.cancelSession(ctx, a.ID, *requestID)
		}
		if err != nil {
			e.reconcile(ctx, a.ID, key, StageWorking, err.Error())
			return nil, e.failed(ctx, a, event.Event, err)
		}
		e.reconcile(ctx, a.ID, key, StageWorking, "lost step update")
		return e.noop(ctx, &a.ID, event.Event, "signer step already advanced"), nil
	}

	e.afterSignerStep(ctx, a, step, artifact, Actor{EmployeeID: currentSignerID(a)}, e.now())
	e.notifyNextSigner(ctx, &next, tmpl)

	details := fmt.Sprintf("step %d signed, waiting for signer %d", step, next.CurrentSignerStep)
	if requestID != nil {
		details += ", signature request " + *requestID
	}
	slog.Info("Assignment handed to next signer", "assignment_id", a.ID, "step", next.CurrentSignerStep)
	return e.applied(ctx, a, event.Event, details), nil
}

func (e *Engine) providerClosed(ctx context.Context, a *models.DocumentAssignment, event opensign.Event, status models.AssignmentStatus) (*EventResult, error) {
	if a.Status.IsTerminal() {
		return e.noop(ctx, &a.ID, event.Event, fmt.Sprintf("assignment already %s", a.Status)), nil
	}

	won, err := e.Assignments.MarkClosed(ctx, a.ID, status)
	if err != nil {
		return nil, e.failed(ctx, a, event.Event, err)
	}
	if !won {
		return e.noop(ctx, &a.ID, event.Event, "assignment closed concurrently"), nil
	}

	slog.Info("Assignment closed by provider", "assignment_id", a.ID, "status", status)
	return e.applied(ctx, a, event.Event, "assignment "+string(status)), nil
}

func eventLabel(event string) string {
	if event == "" {
		return "event"
	}
	return event
}
