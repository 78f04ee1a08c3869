package auth

import (
	"net/http"
	"time"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/httpx"
)

type Handler struct {
	service *Service
	admin   *AdminAuth
	cookies CookieConfig
	log     *logger.Logger
}

func NewHandler(service *Service, admin *AdminAuth, cookies CookieConfig, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		admin:   admin,
		cookies: cookies,
		log:     log.With("handler", "auth"),
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type UserResponse struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsVerified bool   `json:"isVerified"`
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, IsVerified: u.IsVerified}
}

func clientMeta(r *http.Request) ClientMeta {
	return ClientMeta{UserAgent: r.UserAgent(), IPAddress: httpx.ClientIP(r)}
}

// requestToken reads a token from the body, then the refresh cookie, then the
// Authorization header.
func requestToken(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	if t := cookieValue(r, RefreshCookie); t != "" {
		return t
	}
	return BearerToken(r)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.Register(r.Context(), req.Email, req.Name, req.Password); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	user, token, err := h.service.Verify(r.Context(), r.URL.Query().Get("token"), clientMeta(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.cookies.SetAll(w, token)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{User: userResponse(user), Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user, token, err := h.service.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.cookies.SetAll(w, token)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{User: userResponse(user), Token: token})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httpx.DecodeJSON(r, &req, true); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	token := requestToken(r, req.Token)
	ok, err := h.service.Sessions().Refresh(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if !ok {
		h.cookies.Clear(w)
		httpx.WriteError(w, r, h.log, apperr.Unauthenticated("invalid or expired token"))
		return
	}
	h.cookies.SetAll(w, token)
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) QRLogin(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := httpx.DecodeJSON(r, &req, true); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	token := requestToken(r, req.Token)
	user, err := h.service.QRLogin(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.cookies.SetAll(w, token)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{User: userResponse(user), Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, SessionCookie)
	if token == "" {
		token = requestToken(r, "")
	}
	if err := h.service.Sessions().Revoke(r.Context(), token); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.cookies.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	h.cookies.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, h.log, apperr.Unauthenticated("authentication required"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]UserResponse{"user": userResponse(user)})
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	token, exp, err := h.admin.Login(req.Password)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}
