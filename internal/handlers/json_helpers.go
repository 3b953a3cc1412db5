package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"hr-center/internal/middleware"
	"hr-center/internal/service"
	"hr-center/internal/signing"
	"hr-center/internal/workflow"
)

// JSONResponse sends a JSON response and ensures slices are never null
//
// Frontends expect "[]" where Go would encode a nil slice as "null", so every
// response goes through normalizeSlices first.
func JSONResponse(w http.ResponseWriter, data interface{}) error {
	normalized := normalizeSlices(data)

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(normalized)
}

var timeType = reflect.TypeOf(time.Time{})

// normalizeSlices recursively ensures all nil slices become empty slices
func normalizeSlices(data interface{}) interface{} {
	if data == nil {
		return data
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Type() == timeType {
			return data
		}
		elem := v.Elem()
		result := reflect.New(elem.Type())
		result.Elem().Set(reflect.ValueOf(normalizeSlices(elem.Interface())))
		return result.Interface()

	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
		// []byte encodes as base64 and has no nested slices
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return data
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			setNormalized(result.Index(i), v.Index(i))
		}
		return result.Interface()

	case reflect.Struct:
		if v.Type() == timeType {
			return data
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			setNormalized(result.Field(i), v.Field(i))
		}
		return result.Interface()
	}

	return data
}

// setNormalized copies src into dst, normalizing containers and leaving
// everything else untouched
func setNormalized(dst, src reflect.Value) {
	switch src.Kind() {
	case reflect.Slice, reflect.Ptr, reflect.Struct:
		if src.Kind() == reflect.Ptr && src.IsNil() {
			dst.Set(src)
			return
		}
		dst.Set(reflect.ValueOf(normalizeSlices(src.Interface())))
	default:
		dst.Set(src)
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(normalizeSlices(payload)); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps typed domain errors to status codes. Anything
// unrecognized is logged and answered with a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		configErr   *workflow.ConfigurationError
		invalidErr  *signing.InvalidInputError
		notFoundErr *signing.NotFoundError
		conflictErr *signing.ConflictError
		unauthErr   *signing.UnauthorizedError
	)

	switch {
	case errors.As(err, &configErr), errors.As(err, &invalidErr),
		errors.Is(err, service.ErrInvalidPriority), errors.Is(err, service.ErrNoRecipients):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr), errors.Is(err, service.ErrTemplateNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr), errors.Is(err, service.ErrTemplateInactive):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthErr):
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
	default:
		slog.Error("Request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondWithError(w, http.StatusInternalServerError, ErrMsgInternal)
	}
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, ErrMsgPayloadTooLarge)
			return false
		}
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return false
	}
	return true
}

func parseAssignmentID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidAssignmentID)
		return 0, false
	}
	return uint(id), true
}

// actorFromRequest builds the audited actor from the authenticated caller
func actorFromRequest(r *http.Request) (signing.Actor, bool) {
	employeeID, ok := middleware.GetEmployeeID(r)
	if !ok {
		return signing.Actor{}, false
	}
	return signing.Actor{
		EmployeeID: employeeID,
		IPAddress:  middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
	}, true
}
