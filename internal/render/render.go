// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render adapts external rendering capabilities: markdown to HTML,
// HTML sanitization, and terminal markdown output. The rest of the core
// treats these as opaque functions and never inspects their output.
package render

import (
	"bytes"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown converts chat prose; GFM gives tables and strikethrough, which
// models emit freely.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// policy is the sanitizer allowlist for rendered replies: formatting
// elements only, plus the handful of attributes the client styles on.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "b", "i", "em", "strong", "a", "ul", "ol", "li",
		"code", "pre", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6",
		"table", "thead", "tbody", "tr", "th", "td", "hr", "span", "div",
	)
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowAttrs("class", "id").Globally()
	p.RequireNoFollowOnLinks(true)
	return p
}

// ToHTML converts markdown to HTML. On conversion failure the source text
// is returned as-is; it will still pass through Sanitize before display.
func ToHTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return buf.String()
}

// Sanitize strips everything outside the formatting allowlist, script
// elements and event handlers included.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}

// SafeHTML is the full display path: markdown in, sanitized HTML out.
func SafeHTML(src string) string {
	return Sanitize(ToHTML(src))
}

// =============================================================================
// TERMINAL RENDERER
// =============================================================================

// TerminalRenderer renders markdown for terminal display.
type TerminalRenderer struct {
	renderer *glamour.TermRenderer
}

// NewTerminalRenderer builds a glamour renderer. When the terminal cannot
// be probed the renderer degrades to plain text rather than failing.
func NewTerminalRenderer() *TerminalRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		r = nil
	}
	return &TerminalRenderer{renderer: r}
}

// Render returns terminal-styled markdown, or the raw text when styling is
// unavailable.
func (t *TerminalRenderer) Render(src string) string {
	if t.renderer == nil {
		return src
	}
	out, err := t.renderer.Render(src)
	if err != nil {
		return src
	}
	return out
}
