package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/travelcrm/backend/internal/apperr"
	"github.com/travelcrm/backend/internal/respond"
	"github.com/travelcrm/backend/internal/services"
)

// maxBodyBytes caps request bodies for mutation endpoints.
const maxBodyBytes = 1 << 20

// BodyValidator checks a JSON body against a named schema.
type BodyValidator interface {
	Validate(ctx context.Context, name string, body json.RawMessage) error
}

// ValidateBody rejects bodies that do not match schema: 400 for malformed
// JSON, 422 with per-field errors otherwise. It reads the body and replaces
// r.Body so downstream handlers can decode it again.
func ValidateBody(v BodyValidator, schema string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				respond.Fail(w, http.StatusBadRequest, "Failed to read body")
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			err = v.Validate(r.Context(), schema, bodyBytes)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, services.ErrInvalidJSON):
				respond.Fail(w, http.StatusBadRequest, "Invalid JSON body")
			case errors.Is(err, apperr.ErrValidation):
				ve, _ := apperr.AsValidation(err)
				respond.JSON(w, http.StatusUnprocessableEntity, respond.Envelope{Success: false, Message: ve.Message, Errors: ve.Fields})
			default:
				log.Error("validate body", "schema", schema, "error", err)
				respond.Fail(w, http.StatusInternalServerError, "Internal server error")
			}
		})
	}
}
