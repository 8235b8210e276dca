package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/inkwell/markdown"
)

// writer accumulates HTML and keeps the first write error, so components
// can emit markup without checking every call.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *writer {
	return &writer{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (hw *writer) raw(parts ...string) {
	for _, s := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, s)
	}
}

// text writes s HTML-escaped.
func (hw *writer) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (hw *writer) attr(name, value string) {
	hw.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// href writes an href attribute for u, dropping unsafe schemes.
func (hw *writer) href(u string) {
	hw.raw(` href="`, markdown.SafeURL(u), `"`)
}

func (hw *writer) num(n int) {
	hw.raw(strconv.Itoa(n))
}

// component renders a child component in place.
func (hw *writer) component(c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(hw.ctx, hw.w)
}

// tag writes <name attrs>text</name>.
func (hw *writer) tag(name, class, text string) {
	hw.raw("<", name)
	if class != "" {
		hw.attr("class", class)
	}
	hw.raw(">")
	hw.text(text)
	hw.raw("</", name, ">")
}

// component adapts a function that writes through a writer.
func component(fn func(hw *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newWriter(ctx, w)
		fn(hw)
		return hw.err
	})
}
