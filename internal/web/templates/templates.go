// Package templates renders the HTML pages of the report viewer.
//
// Pages are templ components. Every dynamic string goes through
// templ.EscapeString before it reaches the writer.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// html accumulates the first write error so page bodies stay linear.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *html) textf(format string, args ...any) { h.text(fmt.Sprintf(format, args...)) }

func (h *html) cell(s string) {
	h.raw("<td>")
	h.text(s)
	h.raw("</td>")
}

func (h *html) num(n int) { h.cell(strconv.Itoa(n)) }

func (h *html) header(cols ...string) {
	h.raw("<thead><tr>")
	for _, c := range cols {
		h.raw("<th>")
		h.text(c)
		h.raw("</th>")
	}
	h.raw("</tr></thead>")
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// component adapts a body function to templ.Component.
func component(body func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		body(ctx, h)
		return h.err
	})
}

const style = `body{font-family:sans-serif;margin:2rem;color:#222}` +
	`table{border-collapse:collapse;margin:1rem 0}` +
	`th,td{border:1px solid #ccc;padding:.25rem .5rem;text-align:left}` +
	`.error{color:#b00}.warning{color:#a60}.muted{color:#777}`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		h.text(title)
		h.raw(" - wite2</title><style>")
		h.raw(style)
		h.raw("</style></head><body><nav><a href=\"/\">Scenarios</a> | <a href=\"/history\">History</a></nav><h1>")
		h.text(title)
		h.raw("</h1>")
		h.render(ctx, body)
		h.raw("</body></html>")
	})
}

// ErrorAlert renders a user-facing error with its code.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw("<div class=\"error\" role=\"alert\"><p><strong>")
		h.text(message)
		h.raw("</strong></p>")
		if action != "" {
			h.raw("<p>")
			h.text(action)
			h.raw("</p>")
		}
		h.raw("<p class=\"muted\">Code: ")
		h.text(code)
		h.raw("</p></div>")
	})
}
