package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langlearn-server/internal/logger"
	"langlearn-server/pkg/apperr"
)

func TestWriteErrorTypedAndUntyped(t *testing.T) {
	log := logger.NewNop()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	WriteError(rec, req, log, apperr.ErrAttemptFinished)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "already_finished", env.Error.Code)
	assert.Equal(t, "attempt already finished", env.Error.Message)

	rec = httptest.NewRecorder()
	WriteError(rec, req, log, errors.New("pq: relation does not exist"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Token string `json:"token"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"abc"}`))
	require.NoError(t, DecodeJSON(req, &body, false))
	assert.Equal(t, "abc", body.Token)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(req, &body, true))
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(DecodeJSON(req, &body, false)))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(DecodeJSON(req, &body, true)))
}

func TestRequestIDAndLogger(t *testing.T) {
	var seen string
	h := RequestID(RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", seen)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}
