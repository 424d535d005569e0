// Package upload receives audio files from multipart requests and stores them
// on local disk.
package upload

import (
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Upload failure codes.
const (
	CodeLimitFileSize       = "LIMIT_FILE_SIZE"
	CodeLimitUnexpectedFile = "LIMIT_UNEXPECTED_FILE"
	CodeMissingFile         = "MISSING_FILE"
	CodeInvalidType         = "INVALID_TYPE"
	CodeMalformed           = "MALFORMED"
)

// formOverhead is the room left for the non-file fields and multipart framing.
const formOverhead = 1 << 20

// Error is a rejected upload. Field names the form field it concerns.
type Error struct {
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s: %v", e.Field, e.Code, e.Err)
	}
	return fmt.Sprintf("upload %s: %s", e.Field, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts an upload Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
}

// Upload is a parsed multipart request holding exactly one accepted file.
type Upload struct {
	File   *multipart.FileHeader
	Values url.Values

	form *multipart.Form
}

// Value returns the first value of a non-file form field.
func (u *Upload) Value(key string) string {
	if vs := u.Values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Close removes temporary files created while parsing.
func (u *Upload) Close() error {
	if u.form == nil {
		return nil
	}
	return u.form.RemoveAll()
}

// Receiver enforces the single-file, size and type rules for one form field.
type Receiver struct {
	field    string
	maxBytes int64
}

// NewReceiver accepts one file under field, at most maxBytes long.
func NewReceiver(field string, maxBytes int64) *Receiver {
	return &Receiver{field: field, maxBytes: maxBytes}
}

// Field is the accepted form field name.
func (rc *Receiver) Field() string { return rc.field }

// LimitMessage is the human readable size limit.
func (rc *Receiver) LimitMessage() string {
	return fmt.Sprintf("File size cannot exceed %dMB.", rc.maxBytes>>20)
}

// Receive parses r as multipart/form-data. The caller must Close the result.
func (rc *Receiver) Receive(w http.ResponseWriter, r *http.Request) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rc.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, rc.fail(CodeLimitFileSize, rc.LimitMessage(), err)
		}
		if stderrors.Is(err, http.ErrNotMultipart) {
			return nil, rc.fail(CodeMissingFile, "A file is required.", err)
		}
		return nil, rc.fail(CodeMalformed, "Malformed multipart form.", errors.WithStack(err))
	}

	form := r.MultipartForm
	u := &Upload{Values: url.Values(form.Value), form: form}

	for name, files := range form.File {
		if name != rc.field || len(files) > 1 {
			u.Close()
			return nil, &Error{Code: CodeLimitUnexpectedFile, Field: name, Message: "Unexpected file field."}
		}
	}

	files := form.File[rc.field]
	if len(files) == 0 {
		u.Close()
		return nil, rc.fail(CodeMissingFile, "A file is required.", nil)
	}
	fh := files[0]
	if fh.Size > rc.maxBytes {
		u.Close()
		return nil, rc.fail(CodeLimitFileSize, rc.LimitMessage(), nil)
	}
	if !isAudio(fh) {
		u.Close()
		return nil, rc.fail(CodeInvalidType, "Only audio files are allowed.", nil)
	}

	u.File = fh
	return u, nil
}

func (rc *Receiver) fail(code, message string, err error) *Error {
	return &Error{Code: code, Field: rc.field, Message: message, Err: err}
}

func isAudio(fh *multipart.FileHeader) bool {
	if strings.HasPrefix(fh.Header.Get("Content-Type"), "audio/") {
		return true
	}
	return audioExtensions[strings.ToLower(filepath.Ext(fh.Filename))]
}
