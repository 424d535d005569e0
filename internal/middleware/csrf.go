package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"mime"
	"net/http"
	"strings"

	"github.com/soundstack/soundstack/internal/config"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/pkg/logger"
)

// DefaultCSRFCookie holds the signed per-client secret.
const DefaultCSRFCookie = "_csrf"

// csrfFormField is checked when no token header is present.
const csrfFormField = "_csrf"

var csrfHeaders = []string{"XSRF-Token", "X-XSRF-Token", "CSRF-Token", "X-CSRF-Token"}

type csrfSecretKey struct{}

// CSRFMiddleware implements double-submit protection: a per-client secret in
// a signed HttpOnly cookie, and tokens derived from it that unsafe requests
// must echo back.
type CSRFMiddleware struct {
	key        []byte
	cookieName string
	security   config.Security
	responder  ErrorResponder
	logger     *logger.Logger
}

// NewCSRFMiddleware signs secret cookies with key.
func NewCSRFMiddleware(key, cookieName string, security config.Security, responder ErrorResponder, log *logger.Logger) *CSRFMiddleware {
	if cookieName == "" {
		cookieName = DefaultCSRFCookie
	}
	return &CSRFMiddleware{
		key:        []byte(key),
		cookieName: cookieName,
		security:   security,
		responder:  responder,
		logger:     log,
	}
}

// Handler returns the CSRF middleware handler
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret, ok := m.readSecret(r)
		if !ok {
			var err error
			secret, err = randomString(18)
			if err != nil {
				m.responder.Respond(w, r, svcerrors.Internal("generate csrf secret", err))
				return
			}
			http.SetCookie(w, m.cookie(secret))
		}
		ctx := context.WithValue(r.Context(), csrfSecretKey{}, secret)
		r = r.WithContext(ctx)

		if !isSafeMethod(r.Method) && !verifyToken(secret, submittedToken(r)) {
			m.logger.LogSecurityEvent(ctx, "csrf_rejected", map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			m.responder.Respond(w, r, svcerrors.InvalidCSRFToken())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CSRFMiddleware) readSecret(r *http.Request) (string, bool) {
	raw, ok := Cookie(r, m.cookieName)
	if !ok {
		return "", false
	}
	dot := strings.LastIndexByte(raw, '.')
	if dot <= 0 {
		return "", false
	}
	secret, sig := raw[:dot], raw[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(m.sign(secret))) {
		return "", false
	}
	return secret, true
}

func (m *CSRFMiddleware) sign(value string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *CSRFMiddleware) cookie(secret string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    secret + "." + m.sign(secret),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.security.CookieSecure,
		SameSite: m.security.CookieSameSite,
	}
}

// CSRFToken mints a token for the current request's secret. It returns ""
// when the CSRF middleware did not run.
func CSRFToken(r *http.Request) string {
	secret, _ := r.Context().Value(csrfSecretKey{}).(string)
	if secret == "" {
		return ""
	}
	saltBytes := make([]byte, 4)
	if _, err := rand.Read(saltBytes); err != nil {
		return ""
	}
	salt := hex.EncodeToString(saltBytes)
	return salt + "-" + tokenHash(salt, secret)
}

func tokenHash(salt, secret string) string {
	sum := sha256.Sum256([]byte(salt + "-" + secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func verifyToken(secret, token string) bool {
	dash := strings.IndexByte(token, '-')
	if secret == "" || dash <= 0 {
		return false
	}
	salt := token[:dash]
	want := salt + "-" + tokenHash(salt, secret)
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

func submittedToken(r *http.Request) string {
	for _, h := range csrfHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		return r.PostFormValue(csrfFormField)
	}
	return ""
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
