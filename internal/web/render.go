package web

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/wite2/internal/logging"
)

// badRequestError marks a malformed path or query parameter.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &badRequestError{err: err}
}

// render writes an HTML page.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logRenderError(r, err)
	}
}

func logRenderError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("render error", "path", r.URL.Path, "error", err)
}
