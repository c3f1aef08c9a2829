package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dom/foodorder-backend/internal/api/respond"
	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/service"
)

type contextKey string

const (
	UserKey contextKey = "user"

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

var errNoToken = errors.New("no token")

type tokenExtractor func(r *http.Request) (string, error)

// Bearer authenticates requests with an "Authorization: Bearer <token>" header.
func Bearer(authService *service.AuthService) func(http.Handler) http.Handler {
	return session(authService, "middleware.Bearer", bearerToken)
}

// Cookie authenticates requests with the access_token cookie.
func Cookie(authService *service.AuthService) func(http.Handler) http.Handler {
	return session(authService, "middleware.Cookie", cookieToken)
}

func session(authService *service.AuthService, scope string, extract tokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extract(r)
			if err != nil {
				log.Printf("ERROR [%s] %v", scope, err)
				unauthorized(w)
				return
			}

			user, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					log.Printf("ERROR [%s] token validation failed: %v", scope, err)
					unauthorized(w)
					return
				}
				log.Printf("ERROR [%s] user lookup failed: %v", scope, err)
				respond.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func cookieToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", errNoToken
	}
	return cookie.Value, nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	respond.Error(w, http.StatusUnauthorized, "could not validate credentials")
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}
