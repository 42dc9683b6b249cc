// Package highlight renders source text as syntax-highlighted HTML.
package highlight

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is used when no style is configured.
const DefaultStyle = "monokai"

// ErrUnsupported is returned for tags without a lexer.
var ErrUnsupported = errors.New("language not supported by highlighter")

// Highlighter turns text of a language tag into HTML.
type Highlighter interface {
	Highlight(text, tag string) (template.HTML, error)
	WriteCSS(w io.Writer) error
}

// Rendered is the outcome of Render: highlighted markup or the escaped raw
// text when highlighting is unavailable.
type Rendered struct {
	HTML     template.HTML
	Styled   bool
	Language string
}

// Render highlights text and falls back to escaped, unstyled text on any error.
func Render(h Highlighter, text, tag string) Rendered {
	if h != nil {
		if out, err := h.Highlight(text, tag); err == nil {
			return Rendered{HTML: out, Styled: true, Language: tag}
		}
	}
	return Rendered{HTML: Plain(text), Styled: false, Language: tag}
}

// Plain returns text escaped inside a pre/code block.
func Plain(text string) template.HTML {
	var b strings.Builder
	b.WriteString(`<pre class="plain"><code>`)
	template.HTMLEscape(&b, []byte(text))
	b.WriteString(`</code></pre>`)
	return template.HTML(b.String())
}

// Tags whose chroma lexer goes by another name.
var aliases = map[string]string{
	"jsx":    "react",
	"batch":  "batchfile",
	"csharp": "c#",
}

// Options configures a Chroma highlighter.
type Options struct {
	Style       string
	LineNumbers bool
	TabWidth    int
}

// Chroma implements Highlighter with chroma's HTML formatter.
type Chroma struct {
	style     *chroma.Style
	formatter *html.Formatter
}

// NewChroma creates a Chroma highlighter. Unknown styles fall back to chroma's default.
func NewChroma(opts Options) *Chroma {
	name := opts.Style
	if name == "" {
		name = DefaultStyle
	}

	fopts := []html.Option{
		html.WithClasses(true),
		html.WithLineNumbers(opts.LineNumbers),
	}
	if opts.TabWidth > 0 {
		fopts = append(fopts, html.TabWidth(opts.TabWidth))
	}

	return &Chroma{
		style:     styles.Get(name),
		formatter: html.New(fopts...),
	}
}

// Lexer returns the lexer for a language tag, or nil. The plaintext tag never
// has a lexer.
func Lexer(tag string) chroma.Lexer {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || tag == "plaintext" {
		return nil
	}
	if alias, ok := aliases[tag]; ok {
		tag = alias
	}
	return lexers.Get(tag)
}

// Supported reports whether tag can be highlighted.
func Supported(tag string) bool {
	return Lexer(tag) != nil
}

// Highlight implements Highlighter.
func (c *Chroma) Highlight(text, tag string) (template.HTML, error) {
	lexer := Lexer(tag)
	if lexer == nil {
		return "", ErrUnsupported
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// WriteCSS writes the stylesheet for the configured style.
func (c *Chroma) WriteCSS(w io.Writer) error {
	return c.formatter.WriteCSS(w, c.style)
}

var _ Highlighter = (*Chroma)(nil)
