package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"langlearn-server/internal/logger"
	"langlearn-server/pkg/apperr"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps err onto the error envelope. Untyped and upstream errors
// are logged and reported with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	msg := "internal error"
	if e, ok := apperr.As(err); ok && code != apperr.CodeUpstream {
		msg = e.Message
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
	}
	WriteJSON(w, status, ErrorEnvelope{Error: APIError{Code: string(code), Message: msg}})
}

// DecodeJSON decodes the request body into v. An empty body is allowed when
// allowEmpty is set, leaving v untouched.
func DecodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperr.Invalid("invalid request body")
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return apperr.Invalid("invalid request body")
	}
	return nil
}
