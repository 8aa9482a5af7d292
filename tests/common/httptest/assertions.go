//go:build unit || e2e

package httptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSuccessResponse checks the status and decodes a 2xx body into
// target when target is not nil.
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()

	if !assert.Equal(t, expectedStatus, w.Code, "unexpected status, body: %s", w.Body.String()) {
		return
	}
	if target == nil || expectedStatus < 200 || expectedStatus >= 300 {
		return
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "decode body: %s", w.Body.String())
}

// AssertErrorResponse accepts both error bodies the API writes: the handler
// shape {"error":{"message":...}} and the auth middleware shape
// {"error":"..."}.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedErrorMsg string) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "unexpected status, body: %s", w.Body.String())
	if expectedErrorMsg == "" {
		return
	}
	assert.Contains(t, errorMessage(t, w), expectedErrorMsg)
}

// AssertUnauthorized checks a 401 written by the auth middleware.
func AssertUnauthorized(t *testing.T, w *httptest.ResponseRecorder, expectedErrorMsg string) {
	t.Helper()
	AssertErrorResponse(t, w, http.StatusUnauthorized, expectedErrorMsg)
}

func AssertHeaders(t *testing.T, w *httptest.ResponseRecorder, expected map[string]string) {
	t.Helper()
	for k, v := range expected {
		assert.Equal(t, v, w.Header().Get(k), "header %s", k)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "decode error body: %s", w.Body.String())

	var msg string
	if json.Unmarshal(body.Error, &msg) == nil {
		return msg
	}
	var nested struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body.Error, &nested), "unexpected error shape: %s", w.Body.String())
	return nested.Message
}
