package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, input string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, input); err != nil {
		t.Fatalf("RenderMarkdown(%q) failed: %v", input, err)
	}
	return buf.String()
}

func TestRenderMarkdownInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"`x := 1`", "<code>x := 1</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("RenderMarkdown(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderMarkdownCodeBlockWithLanguage(t *testing.T) {
	got := render(t, "```go\nfmt.Println(\"<hi>\")\n```")
	if !strings.Contains(got, `<code class="language-go">`) {
		t.Errorf("missing language class: %q", got)
	}
	if !strings.Contains(got, "&lt;hi&gt;") {
		t.Errorf("code block content not escaped: %q", got)
	}
}

func TestRenderMarkdownHeadings(t *testing.T) {
	got := render(t, "# Title\n\n## Sub Title\n\n### Third")
	for _, want := range []string{`<h1 id="title">Title</h1>`, `<h2 id="sub-title">Sub Title</h2>`, "<h3"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderMarkdown headings = %q, missing %q", got, want)
		}
	}
}

func TestRenderMarkdownOmitsRawHTML(t *testing.T) {
	got := render(t, "hello\n\n<script>alert(1)</script>\n\n<img src=x onerror=alert(1)>")
	if strings.Contains(got, "<script>") || strings.Contains(got, "onerror") {
		t.Errorf("raw HTML leaked into output: %q", got)
	}
}

func TestRenderMarkdownListsAndTables(t *testing.T) {
	got := render(t, "- one\n- two\n\n1. first\n2. second\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	for _, want := range []string{"<ul>", "<li>one</li>", "<ol>", "<table>", "<th>a</th>", "<td>2</td>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("Hello **world**").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "<p>Hello <strong>world</strong></p>") {
		t.Errorf("Markdown component = %q", got)
	}
}

func TestParseDocumentYAML(t *testing.T) {
	src := []byte(`---
title: Hello Go
slug: hello-go
summary: A first post
categories: [Tech]
tags:
  - go
  - web
draft: true
date: 2024-01-15
---
# Hello

Body text.
`)
	doc, err := ParseDocument(src)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Meta.Title != "Hello Go" || doc.Meta.Slug != "hello-go" || doc.Meta.Summary != "A first post" {
		t.Errorf("unexpected meta: %+v", doc.Meta)
	}
	if len(doc.Meta.Categories) != 1 || doc.Meta.Categories[0] != "Tech" {
		t.Errorf("categories = %v", doc.Meta.Categories)
	}
	if len(doc.Meta.Tags) != 2 || doc.Meta.Tags[1] != "web" {
		t.Errorf("tags = %v", doc.Meta.Tags)
	}
	if !doc.Meta.Draft {
		t.Errorf("draft = false, want true")
	}
	if !doc.Meta.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", doc.Meta.Date)
	}
	if doc.Body != "# Hello\n\nBody text." {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestParseDocumentWithoutFrontMatter(t *testing.T) {
	doc, err := ParseDocument([]byte("just text\n"))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Meta.Title != "" {
		t.Errorf("expected empty meta, got %+v", doc.Meta)
	}
	if doc.Body != "just text" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestExcerpt(t *testing.T) {
	content := "# Heading\n\nFirst *paragraph* with a [link](https://example.com).\n\n```go\ncode()\n```\n\nSecond paragraph here."
	got := Excerpt(content, 0)
	want := "First paragraph with a link. Second paragraph here."
	if got != want {
		t.Errorf("Excerpt = %q, want %q", got, want)
	}

	short := Excerpt(content, 20)
	if short != "First paragraph with..." {
		t.Errorf("Excerpt(20) = %q", short)
	}
}

func TestReadingTime(t *testing.T) {
	if got := ReadingTime(""); got != 1 {
		t.Errorf("ReadingTime(empty) = %d, want 1", got)
	}
	if got := ReadingTime(strings.Repeat("word ", 450)); got != 3 {
		t.Errorf("ReadingTime(450 words) = %d, want 3", got)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/a?b=c&d=e", "https://example.com/a?b=c&amp;d=e"},
		{"/uploads/cover.jpg", "/uploads/cover.jpg"},
		{"#section", "#section"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"//evil.example.com/x.png", ""},
		{"relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
