// Package markdown renders post bodies to HTML and reads markdown documents
// with front matter.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Footnote,
		&frontmatter.Extender{},
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Markdown returns a templ.Component that renders content as HTML.
// Raw HTML in content is omitted.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := RenderMarkdown(&buf, content); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderMarkdown writes the HTML representation of content to buf.
func RenderMarkdown(buf *bytes.Buffer, content string) error {
	if err := md.Convert([]byte(content), buf); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// Meta is the front matter a post document may carry.
type Meta struct {
	Title         string    `yaml:"title" toml:"title"`
	Slug          string    `yaml:"slug" toml:"slug"`
	Summary       string    `yaml:"summary" toml:"summary"`
	Categories    []string  `yaml:"categories" toml:"categories"`
	Tags          []string  `yaml:"tags" toml:"tags"`
	Draft         bool      `yaml:"draft" toml:"draft"`
	FeaturedImage string    `yaml:"featuredImage" toml:"featuredImage"`
	Date          time.Time `yaml:"date" toml:"date"`
}

// Document is a markdown file split into front matter and body.
type Document struct {
	Meta Meta
	Body string
}

// ParseDocument reads front matter (YAML between --- lines or TOML between
// +++ lines) and returns it together with the remaining markdown body.
func ParseDocument(src []byte) (Document, error) {
	ctx := parser.NewContext()
	md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var doc Document
	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(&doc.Meta); err != nil {
			return Document{}, fmt.Errorf("decode front matter: %w", err)
		}
	}
	doc.Body = strings.TrimSpace(string(stripFrontMatter(src)))
	return doc, nil
}

func stripFrontMatter(src []byte) []byte {
	for _, delim := range []string{"---", "+++"} {
		open := delim + "\n"
		if !bytes.HasPrefix(src, []byte(open)) {
			continue
		}
		rest := src[len(open):]
		if i := bytes.Index(rest, []byte("\n"+delim)); i >= 0 {
			after := rest[i+1+len(delim):]
			if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
				return after[nl+1:]
			}
			return nil
		}
	}
	return src
}

// Excerpt returns up to max characters of the plain text of content's
// paragraphs, cut at a word boundary.
func Excerpt(content string, max int) string {
	src := []byte(content)
	root := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			t := n.(*ast.Text)
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case ast.KindParagraph:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	plain := strings.Join(strings.Fields(b.String()), " ")
	if max <= 0 || len(plain) <= max {
		return plain
	}
	cut := plain[:max]
	if plain[max] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// ReadingTime estimates minutes needed to read content at 200 words per
// minute, never less than one.
func ReadingTime(content string) int {
	const wordsPerMinute = 200
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
// Only relative paths, fragments and http(s), mailto and tel URLs survive.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "//") {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
