package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/foodorder-backend/internal/api/middleware"
	"github.com/dom/foodorder-backend/internal/config"
	"github.com/dom/foodorder-backend/internal/repository/postgres"
	"github.com/dom/foodorder-backend/internal/service"
	"github.com/dom/foodorder-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repos := postgres.NewRepositories(db)
	tokens := service.NewTokenIssuer("secret", 30*time.Minute, time.Hour)
	authService := service.NewAuthService(repos.User, tokens, service.NewGoogleProvider(config.Google{}))

	user, _ := testutil.NewUserBuilder().WithEmail("mw@example.com").Build(t, db)

	valid, err := tokens.AccessToken(user.Email)
	require.NoError(t, err)

	forged, err := service.NewTokenIssuer("other", time.Hour, time.Hour).AccessToken(user.Email)
	require.NoError(t, err)

	expired, err := tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).AccessToken(user.Email)
	require.NoError(t, err)

	unknownSubject, err := tokens.AccessToken("ghost@example.com")
	require.NoError(t, err)

	var seenEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := middleware.GetUser(r.Context())
		require.True(t, ok)
		seenEmail = u.Email
		w.WriteHeader(http.StatusNoContent)
	})

	bearer := middleware.Bearer(authService)(next)
	cookie := middleware.Cookie(authService)(next)

	withBearer := func(token string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}
	withCookie := func(token string) func(*http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: token}) }
	}

	tests := []struct {
		name       string
		handler    http.Handler
		prepare    func(*http.Request)
		wantStatus int
	}{
		{name: "bearer valid", handler: bearer, prepare: withBearer(valid), wantStatus: http.StatusNoContent},
		{name: "bearer lowercase scheme", handler: bearer, prepare: func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) }, wantStatus: http.StatusNoContent},
		{name: "bearer missing header", handler: bearer, prepare: func(*http.Request) {}, wantStatus: http.StatusUnauthorized},
		{name: "bearer wrong scheme", handler: bearer, prepare: func(r *http.Request) { r.Header.Set("Authorization", "Basic "+valid) }, wantStatus: http.StatusUnauthorized},
		{name: "bearer wrong secret", handler: bearer, prepare: withBearer(forged), wantStatus: http.StatusUnauthorized},
		{name: "bearer expired", handler: bearer, prepare: withBearer(expired), wantStatus: http.StatusUnauthorized},
		{name: "bearer unknown subject", handler: bearer, prepare: withBearer(unknownSubject), wantStatus: http.StatusUnauthorized},
		{name: "cookie valid", handler: cookie, prepare: withCookie(valid), wantStatus: http.StatusNoContent},
		{name: "cookie missing", handler: cookie, prepare: func(*http.Request) {}, wantStatus: http.StatusUnauthorized},
		{name: "cookie wrong secret", handler: cookie, prepare: withCookie(forged), wantStatus: http.StatusUnauthorized},
		{name: "cookie expired", handler: cookie, prepare: withCookie(expired), wantStatus: http.StatusUnauthorized},
		{name: "cookie unknown subject", handler: cookie, prepare: withCookie(unknownSubject), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenEmail = ""
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				assert.JSONEq(t, `{"detail":"could not validate credentials"}`, rec.Body.String())
				assert.Empty(t, seenEmail)
				return
			}
			assert.Equal(t, user.Email, seenEmail)
		})
	}
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS([]string{"http://frontend.test/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed bool
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://frontend.test", wantStatus: http.StatusOK, wantAllowed: true},
		{name: "other origin", method: http.MethodGet, origin: "http://evil.test", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://frontend.test", wantStatus: http.StatusNoContent, wantAllowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/products", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
