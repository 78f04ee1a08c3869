package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookie = "aif_session"
	RefreshCookie = "aif_refresh"

	refreshCookiePath = "/api/auth"
)

type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) build(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) SetSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.build(SessionCookie, token, "/", int(c.MaxAge.Seconds())))
}

func (c CookieConfig) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.build(RefreshCookie, token, refreshCookiePath, int(c.MaxAge.Seconds())))
}

// SetAll writes both cookies for a freshly issued or refreshed token.
func (c CookieConfig) SetAll(w http.ResponseWriter, token string) {
	c.SetSession(w, token)
	c.SetRefresh(w, token)
}

func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.build(SessionCookie, "", "/", -1))
	http.SetCookie(w, c.build(RefreshCookie, "", refreshCookiePath, -1))
}
