package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	codeBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	inlineCodeRe = regexp.MustCompile(`<code>([^<]+)</code>`)
	headingRe    = regexp.MustCompile(`<h[1-6][^>]*>(.*?)</h[1-6]>`)
	strongRe     = regexp.MustCompile(`<strong>(.*?)</strong>`)
	emRe         = regexp.MustCompile(`<em>(.*?)</em>`)
	liRe         = regexp.MustCompile(`<li>(.*?)</li>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	multiBlankRe = regexp.MustCompile(`\n{3,}`)
)

// MarkdownRenderer converts assistant replies to styled terminal text with
// syntax-highlighted code blocks.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	formatter chroma.Formatter
	style     *chroma.Style

	heading lipgloss.Style
	bold    lipgloss.Style
	italic  lipgloss.Style
	code    lipgloss.Style
	bullet  lipgloss.Style
}

func NewMarkdownRenderer(theme Theme) *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithRendererOptions(html.WithHardWraps()),
		goldmark.WithExtensions(extension.GFM),
	)
	return &MarkdownRenderer{
		md:        md,
		formatter: formatters.Get("terminal256"),
		style:     styles.Get("dracula"),
		heading:   lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		code:      lipgloss.NewStyle().Foreground(theme.Success),
		bullet:    lipgloss.NewStyle().Foreground(theme.Accent),
	}
}

// Render converts markdown to terminal output wrapped to width.
func (r *MarkdownRenderer) Render(content string, width int) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	out := r.fromHTML(buf.String(), width)
	return lipgloss.NewStyle().Width(width).Render(out)
}

func (r *MarkdownRenderer) fromHTML(in string, width int) string {
	// Code blocks first, stashed behind placeholders so later passes
	// cannot mangle highlighted output.
	var blocks []string
	out := codeBlockRe.ReplaceAllStringFunc(in, func(m string) string {
		sub := codeBlockRe.FindStringSubmatch(m)
		highlighted := r.highlight(decodeEntities(sub[2]), sub[1])
		blocks = append(blocks, highlighted)
		return fmt.Sprintf("\n{{block-%d}}\n", len(blocks)-1)
	})

	out = inlineCodeRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		return r.code.Render(decodeEntities(sub[1]))
	})
	out = headingRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := headingRe.FindStringSubmatch(m)
		return r.heading.Render(htmlTagRe.ReplaceAllString(sub[1], "")) + "\n"
	})
	out = strongRe.ReplaceAllStringFunc(out, func(m string) string {
		return r.bold.Render(strongRe.FindStringSubmatch(m)[1])
	})
	out = emRe.ReplaceAllStringFunc(out, func(m string) string {
		return r.italic.Render(emRe.FindStringSubmatch(m)[1])
	})
	out = liRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := liRe.FindStringSubmatch(m)
		return r.bullet.Render("  • ") + htmlTagRe.ReplaceAllString(sub[1], "") + "\n"
	})

	out = strings.ReplaceAll(out, "</p>", "\n")
	out = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(out)
	out = htmlTagRe.ReplaceAllString(out, "")
	out = decodeEntities(out)

	for i, block := range blocks {
		out = strings.ReplaceAll(out, fmt.Sprintf("{{block-%d}}", i), block)
	}

	out = multiBlankRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func (r *MarkdownRenderer) highlight(code, lang string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

func decodeEntities(s string) string {
	return strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&#x60;", "`",
		"&nbsp;", " ",
	).Replace(s)
}
