package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"

	"langlearn-server/internal/logger"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/httpx"
)

const adminRole = "admin"

// AdminAuth issues and checks HS256 tokens for the back-office.
type AdminAuth struct {
	password  string
	jwtSecret []byte
	ttl       time.Duration
	log       *logger.Logger
	now       func() time.Time
}

func NewAdminAuth(password, jwtSecret string, ttl time.Duration, log *logger.Logger) *AdminAuth {
	return &AdminAuth{
		password:  password,
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		log:       log.With("service", "AdminAuth"),
		now:       time.Now,
	}
}

// Enabled is false when no admin password is configured.
func (a *AdminAuth) Enabled() bool {
	return a.password != "" && len(a.jwtSecret) > 0
}

func (a *AdminAuth) Login(password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, apperr.Forbidden("admin access disabled")
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		a.log.Warn("admin login rejected")
		return "", time.Time{}, apperr.Unauthenticated("invalid credentials")
	}

	exp := a.now().Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": adminRole,
		"iat":  a.now().Unix(),
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, exp, nil
}

func (a *AdminAuth) Validate(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return apperr.Unauthenticated("invalid token")
	}
	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return apperr.Unauthenticated("invalid token claims")
	}
	if role, _ := (*claims)["role"].(string); role != adminRole {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

func (a *AdminAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			httpx.WriteError(w, r, a.log, apperr.Forbidden("admin access disabled"))
			return
		}
		token := BearerToken(r)
		if token == "" {
			httpx.WriteError(w, r, a.log, apperr.Unauthenticated("authorization header required"))
			return
		}
		if err := a.Validate(token); err != nil {
			httpx.WriteError(w, r, a.log, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
