// Package respond writes the {success, data, message, errors} JSON envelope
// shared by every endpoint.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/travelcrm/backend/internal/apperr"
)

type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Responder maps service errors onto envelope responses. Unexpected errors are
// logged and reported generically unless Debug is set.
type Responder struct {
	Log   *slog.Logger
	Debug bool
}

func New(log *slog.Logger, debug bool) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{Log: log, Debug: debug}
}

// Error writes the response for err. op names the failing operation in the log.
func (rs *Responder) Error(w http.ResponseWriter, op string, err error) {
	if ve, ok := apperr.AsValidation(err); ok {
		JSON(w, http.StatusUnprocessableEntity, Envelope{Success: false, Message: ve.Message, Errors: ve.Fields})
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		Fail(w, http.StatusNotFound, apperr.NotFoundMessage(err))
		return
	}
	if errors.Is(err, apperr.ErrConflict) {
		Fail(w, http.StatusConflict, "Transaction was modified concurrently, retry")
		return
	}
	rs.Log.Error(op+" failed", "error", err)
	msg := "Internal server error"
	if rs.Debug {
		msg = err.Error()
	}
	Fail(w, http.StatusInternalServerError, msg)
}

// DecodeJSON decodes the request body into dst and writes a 400 when it is
// not valid JSON. It reports whether the handler should continue.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
