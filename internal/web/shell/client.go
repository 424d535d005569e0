package shell

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/soundstack/soundstack/internal/app/domain/song"
	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/httputil"
)

// APIError is a decoded error envelope.
type APIError struct {
	Status  int
	Title   string
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Message)
}

// HTTPClient implements SessionAPI against the JSON API.
type HTTPClient struct {
	client *httputil.ServiceClient

	mu    sync.Mutex
	token string
}

var _ SessionAPI = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the API at baseURL. transport may be nil.
func NewHTTPClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *HTTPClient {
	c := &HTTPClient{}
	c.client = httputil.NewServiceClient(httputil.ServiceClientConfig{
		BaseURL:   baseURL,
		Timeout:   timeout,
		Transport: transport,
		Headers:   c.csrfHeader,
	})
	return c
}

// csrfHeader attaches the CSRF token to state-changing requests, fetching
// one first if needed.
func (c *HTTPClient) csrfHeader(ctx context.Context, method string) (http.Header, error) {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil, nil
	}
	token, err := c.csrfToken(ctx)
	if err != nil {
		return nil, err
	}
	return http.Header{"Xsrf-Token": []string{token}}, nil
}

func (c *HTTPClient) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	body, err := c.get(ctx, "/api/csrf/restore")
	if err != nil {
		return "", errors.Wrap(err, "restore csrf token")
	}
	token := gjson.GetBytes(body, "XSRF-Token").String()
	if token == "" {
		return "", errors.New("csrf restore returned no token")
	}
	c.token = token
	return token, nil
}

// RestoreCSRF fetches a fresh CSRF token.
func (c *HTTPClient) RestoreCSRF(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return c.csrfToken(ctx)
}

func (c *HTTPClient) FetchSongs(ctx context.Context) ([]song.Song, error) {
	body, err := c.get(ctx, "/api/songs")
	if err != nil {
		return nil, err
	}
	var songs []song.Song
	if raw := gjson.GetBytes(body, "songs"); raw.Exists() {
		if err := json.Unmarshal([]byte(raw.Raw), &songs); err != nil {
			return nil, errors.Wrap(err, "decode songs")
		}
	}
	return songs, nil
}

func (c *HTTPClient) RestoreUser(ctx context.Context) (*user.Public, error) {
	body, err := c.get(ctx, "/api/session")
	if err != nil {
		return nil, err
	}
	return parseUser(body)
}

func (c *HTTPClient) Login(ctx context.Context, credential, password string) (*user.Public, error) {
	body, err := c.send(ctx, http.MethodPost, "/api/session", map[string]string{
		"credential": credential,
		"password":   password,
	})
	if err != nil {
		return nil, err
	}
	return parseUser(body)
}

func (c *HTTPClient) Signup(ctx context.Context, username, email, password string) (*user.Public, error) {
	body, err := c.send(ctx, http.MethodPost, "/api/users", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return parseUser(body)
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodDelete, "/api/session", nil)
	return err
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, nil)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	resp, err := c.client.Do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	body, err := httputil.ReadResponse(resp)
	if err != nil {
		return nil, toAPIError(err)
	}
	return body, nil
}

func parseUser(body []byte) (*user.Public, error) {
	raw := gjson.GetBytes(body, "user")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil, nil
	}
	return &user.Public{
		ID:       raw.Get("id").String(),
		Username: raw.Get("username").String(),
		Email:    raw.Get("email").String(),
	}, nil
}

// toAPIError decodes an error envelope out of a StatusError.
func toAPIError(err error) error {
	var se *httputil.StatusError
	if !stderrors.As(err, &se) {
		return err
	}
	env := gjson.ParseBytes(se.Body)
	apiErr := &APIError{
		Status:  se.StatusCode,
		Title:   env.Get("title").String(),
		Message: env.Get("message").String(),
	}
	errs := env.Get("errors")
	switch {
	case errs.IsArray():
		for _, e := range errs.Array() {
			apiErr.Errors = append(apiErr.Errors, e.String())
		}
	case errs.IsObject():
		errs.ForEach(func(_, v gjson.Result) bool {
			apiErr.Errors = append(apiErr.Errors, v.String())
			return true
		})
	}
	return apiErr
}
