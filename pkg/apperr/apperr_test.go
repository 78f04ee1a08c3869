package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeUpstream, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("missing")))

	wrapped := fmt.Errorf("finish: %w", ErrAttemptFinished)
	assert.Equal(t, CodeAlreadyFinished, CodeOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrAttemptFinished))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("query failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "query failed: connection refused", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:         http.StatusBadRequest,
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeAlreadyFinished: http.StatusConflict,
		CodeNotFinished:     http.StatusConflict,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeUpstream:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}
