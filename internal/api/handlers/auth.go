package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/dom/foodorder-backend/internal/api/middleware"
	"github.com/dom/foodorder-backend/internal/api/respond"
	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/service"
)

type AuthHandler struct {
	authService  *service.AuthService
	frontendURL  string
	cookieSecure bool
}

func NewAuthHandler(authService *service.AuthService, frontendURL string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		cookieSecure: cookieSecure,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type SetCookieRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type GoogleAuthResponse struct {
	AuthURL string `json:"auth_url"`
}

type UserResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	GoogleID *string `json:"google_id"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		FullName: user.FullName,
		GoogleID: user.GoogleID,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		respond.Error(w, http.StatusBadRequest, "invalid email address")
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			respond.Error(w, http.StatusConflict, "email already registered")
			return
		}
		if errors.Is(err, service.ErrPasswordTooLong) {
			respond.Error(w, http.StatusBadRequest, "password too long")
			return
		}
		log.Printf("ERROR [auth.Register] email=%s: %v", req.Email, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond.JSON(w, http.StatusOK, newUserResponse(user))
}

// Login accepts the OAuth2 password form (username, password), either
// form-encoded, multipart or as JSON, and sets both token cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    strings.TrimSpace(req.Username),
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respond.Error(w, http.StatusBadRequest, "incorrect email or password")
			return
		}
		log.Printf("ERROR [auth.Login]: %v", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, result.AccessToken)
	h.setCookie(w, middleware.RefreshTokenCookie, result.RefreshToken)
	respond.Message(w, "login successful")
}

const maxLoginFormMemory = 1 << 20

func decodeLogin(r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxLoginFormMemory); err != nil {
			return req, err
		}
	} else if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}

// Refresh issues a new access token from a refresh token in the body, or
// from the refresh_token cookie when the body has none.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := req.RefreshToken
	if token == "" {
		if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		respond.Error(w, http.StatusBadRequest, "refresh token required")
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			log.Printf("ERROR [auth.Refresh] %v", err)
			w.Header().Set("WWW-Authenticate", "Bearer")
			respond.Error(w, http.StatusUnauthorized, "could not validate refresh token")
			return
		}
		log.Printf("ERROR [auth.Refresh]: %v", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, accessToken)
	respond.JSON(w, http.StatusOK, RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	respond.JSON(w, http.StatusOK, newUserResponse(user))
}

// Logout only clears the cookies. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, middleware.RefreshTokenCookie)
	respond.Message(w, "logged out")
}

func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.authService.GoogleAuthURL()
	if err != nil {
		log.Printf("ERROR [auth.GoogleAuth]: %v", err)
		respond.Error(w, http.StatusInternalServerError, "google oauth not configured")
		return
	}

	respond.JSON(w, http.StatusOK, GoogleAuthResponse{AuthURL: authURL})
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respond.Error(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	result, err := h.authService.GoogleLogin(r.Context(), code)
	if err != nil {
		log.Printf("ERROR [auth.GoogleCallback]: %v", err)
		switch {
		case errors.Is(err, service.ErrOAuthNotConfigured):
			respond.Error(w, http.StatusInternalServerError, "google oauth not configured")
		case errors.Is(err, service.ErrOAuthExchange):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOAuthProfile):
			respond.Error(w, http.StatusBadGateway, err.Error())
		default:
			respond.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	userJSON, err := json.Marshal(newUserResponse(result.User))
	if err != nil {
		log.Printf("ERROR [auth.GoogleCallback] marshal user: %v", err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	q := url.Values{}
	q.Set("access_token", result.AccessToken)
	q.Set("refresh_token", result.RefreshToken)
	q.Set("user", string(userJSON))

	http.Redirect(w, r, h.frontendURL+"/auth/callback?"+q.Encode(), http.StatusTemporaryRedirect)
}

// SetCookie stores tokens the frontend received from the Google redirect.
func (h *AuthHandler) SetCookie(w http.ResponseWriter, r *http.Request) {
	var req SetCookieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AccessToken == "" || req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "missing tokens")
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, req.AccessToken)
	h.setCookie(w, middleware.RefreshTokenCookie, req.RefreshToken)
	respond.Message(w, "cookies set")
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
