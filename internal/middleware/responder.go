package middleware

import "net/http"

// ErrorResponder writes the error envelope for a failed request. Middleware
// never formats errors itself; it hands them to the responder.
type ErrorResponder interface {
	Respond(w http.ResponseWriter, r *http.Request, err error)
}

// ErrorResponderFunc adapts a function to ErrorResponder.
type ErrorResponderFunc func(w http.ResponseWriter, r *http.Request, err error)

func (f ErrorResponderFunc) Respond(w http.ResponseWriter, r *http.Request, err error) {
	f(w, r, err)
}
