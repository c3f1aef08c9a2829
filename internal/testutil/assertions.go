package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the status and the {"detail": ...} body
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedDetail string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body struct {
		Detail string `json:"detail"`
	}
	AssertJSONResponse(t, resp, &body)
	assert.Equal(t, expectedDetail, body.Detail, "error detail mismatch")
}

// FindCookie returns the named Set-Cookie from resp, or nil.
func FindCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AssertNoCookies verifies resp sets none of the named cookies
func AssertNoCookies(t *testing.T, resp *http.Response, names ...string) {
	t.Helper()
	for _, name := range names {
		assert.Nil(t, FindCookie(resp, name), "cookie %s should not be set", name)
	}
}

// AssertSessionCookie verifies a token cookie is set with the session flags
func AssertSessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()

	cookie := FindCookie(resp, name)
	require.NotNil(t, cookie, "cookie %s not set", name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly, "cookie %s should be HttpOnly", name)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	return cookie
}
