package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"hr-center/internal/pdf"
	"hr-center/internal/signing"
	"hr-center/pkg/validator"
)

// Signer applies in-app signatures
type Signer interface {
	Complete(ctx context.Context, req signing.CompleteRequest) (*signing.CompleteResult, error)
}

// SigningHandler handles direct signature completion
type SigningHandler struct {
	signer Signer
}

// NewSigningHandler creates a new signing handler
func NewSigningHandler(signer Signer) *SigningHandler {
	return &SigningHandler{signer: signer}
}

// SignRequest carries the drawn signature and optional placements
type SignRequest struct {
	SignatureImage  string             `json:"signatureImage" validate:"required"` // base64 PNG, data URL prefix allowed
	FieldPlacements []pdf.PercentField `json:"fieldPlacements,omitempty" validate:"max=50"`
}

// Sign completes the caller's signing step
// @Summary Sign assignment
// @Description Stamp the caller's signature into the document. The final signer closes the assignment and the signed PDF is attached to the CRM record.
// @Tags Signing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param request body SignRequest true "Signature data"
// @Success 200 {object} signing.CompleteResult
// @Failure 400 {object} map[string]string "Invalid image or placement"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Failure 409 {object} map[string]string "Already signed or waiting for another signer"
// @Failure 413 {object} map[string]string "Request body too large"
// @Router /assignments/{id}/sign [post]
func (h *SigningHandler) Sign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAssignmentID(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req SignRequest
	if !decodeJSON(w, r, maxSignBodyBytes, &req) {
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := decodeSignatureImage(req.SignatureImage)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "signatureImage must be base64 encoded")
		return
	}

	result, err := h.signer.Complete(r.Context(), signing.CompleteRequest{
		AssignmentID:   id,
		Actor:          actor,
		SignatureImage: image,
		Placements:     req.FieldPlacements,
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func decodeSignatureImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, data, found := strings.Cut(s, ","); found {
			s = data
		}
	}
	return base64.StdEncoding.DecodeString(s)
}
