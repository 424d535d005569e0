package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundstack/soundstack/internal/config"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour, config.ResolveSecurity("development"))

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	userID, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	other := NewManager("other", time.Hour, config.Security{})
	token, err := other.Issue("user-1")
	require.NoError(t, err)

	m := NewManager("secret", time.Hour, config.Security{})
	_, err = m.Parse(token)
	assert.True(t, svcerrors.IsKind(err, svcerrors.KindUnauthorized))
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Minute, config.Security{})
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.Issue("user-1")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestCookieAttributesFollowSecurity(t *testing.T) {
	prod := NewManager("secret", time.Hour, config.ResolveSecurity("production"))
	rec := httptest.NewRecorder()
	_, err := prod.SetCookie(rec, "user-1")
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	dev := NewManager("secret", time.Hour, config.ResolveSecurity("development"))
	rec = httptest.NewRecorder()
	dev.ClearCookie(rec)
	cleared := rec.Result().Cookies()[0]
	assert.False(t, cleared.Secure)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.NotContains(t, rec.Header().Get("Set-Cookie"), "SameSite")
}
