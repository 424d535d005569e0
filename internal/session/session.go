// Package session issues and verifies the signed session token stored in the
// "token" cookie.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/soundstack/soundstack/internal/config"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
)

// CookieName is the session cookie.
const CookieName = "token"

const issuer = "soundstack"

// Claims are the JWT claims of a session token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager signs, verifies and sets session tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	security config.Security
	now      func() time.Time
}

// NewManager creates a manager signing with HS256.
func NewManager(secret string, ttl time.Duration, security config.Security) *Manager {
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		security: security,
		now:      time.Now,
	}
}

// Issue returns a signed token for userID.
func (m *Manager) Issue(userID string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies tokenString and returns the user ID it was issued for.
func (m *Manager) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", svcerrors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", svcerrors.InvalidToken(nil)
	}
	return claims.UserID, nil
}

// SetCookie issues a token for userID and writes it as the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, userID string) (string, error) {
	token, err := m.Issue(userID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds())))
	return token, nil
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.security.CookieSecure,
		SameSite: m.security.CookieSameSite,
	}
}
