package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"

	svcerrors "github.com/soundstack/soundstack/internal/errors"
)

// MaxJSONBody bounds JSON and urlencoded request bodies.
const MaxJSONBody = 1 << 20

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeBody decodes a JSON or application/x-www-form-urlencoded body into
// dst. Form values are matched against dst's json tags. Parse failures are
// returned as a 400 BadRequest ServiceError.
func DecodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return svcerrors.BadRequest("request body is required", nil)
	}
	defer r.Body.Close()

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return svcerrors.BadRequest("invalid Content-Type", err)
		}
		mediaType = parsed
	}

	body := io.LimitReader(r.Body, MaxJSONBody)
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(body).Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return svcerrors.BadRequest("request body is required", err)
			}
			return svcerrors.BadRequest("invalid JSON body", err)
		}
		return nil
	case "application/x-www-form-urlencoded":
		// Already consumed by an earlier ParseForm.
		if r.PostForm != nil {
			return decodeForm(r.PostForm, dst)
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return svcerrors.BadRequest("read request body", err)
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return svcerrors.BadRequest("invalid form body", err)
		}
		return decodeForm(values, dst)
	default:
		return svcerrors.BadRequest(fmt.Sprintf("unsupported Content-Type %q", mediaType), nil)
	}
}

// decodeForm maps the first value of each form key onto dst's json fields.
func decodeForm(values url.Values, dst interface{}) error {
	flat := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			flat[key] = vals[0]
		}
	}
	encoded, err := json.Marshal(flat)
	if err != nil {
		return svcerrors.BadRequest("invalid form body", err)
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return svcerrors.BadRequest("invalid form body", err)
	}
	return nil
}

// ReadAllWithLimit reads up to limit bytes and reports whether the body was
// longer than that.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// ReadAllStrict reads the whole body and fails if it is longer than limit.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	data, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return data, nil
}

// ClientIP returns the host part of the connection's RemoteAddr.
// Forwarding headers are client-controlled and are not consulted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
