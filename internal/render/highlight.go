package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
)

// Highlighter tokenises JSON or YAML text using chroma and renders it with
// lipgloss styles from a theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// NewHighlighter creates a Highlighter for the named chroma language. Unknown
// languages fall back to the plain-text lexer.
func NewHighlighter(language string) *Highlighter {
	l := lexers.Get(language)
	if l == nil {
		l = lexers.Fallback
	}
	// Coalesce runs of identical token types so the loop below processes
	// fewer, larger chunks.
	l = chroma.Coalesce(l)

	return &Highlighter{lexer: l}
}

// Highlight tokenises src and styles each token from th. Newlines are emitted
// as-is so line structure survives.
func (h *Highlighter) Highlight(src string, th *Theme) string {
	if th == nil {
		return src
	}

	iter, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var b strings.Builder
	b.Grow(len(src) * 2)

	for _, tok := range iter.Tokens() {
		value := tok.Value
		if value == "" {
			continue
		}

		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(value)
			continue
		}

		if strings.Contains(value, "\n") {
			lines := strings.Split(value, "\n")
			for i, line := range lines {
				if line != "" {
					b.WriteString(style.Render(line))
				}
				if i < len(lines)-1 {
					b.WriteByte('\n')
				}
			}
		} else {
			b.WriteString(style.Render(value))
		}
	}

	return b.String()
}

// styleFor maps a chroma token type to a theme style. The second return value
// is false when the token should pass through unstyled.
func styleFor(tt chroma.TokenType, th *Theme) (lipgloss.Style, bool) {
	switch {
	// JSON object keys and YAML mapping keys.
	case tt == chroma.NameTag || tt == chroma.NameAttribute:
		return th.Key, true
	case tt.InCategory(chroma.Keyword):
		return th.Constant, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.String, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.Number, true
	case tt.InCategory(chroma.Comment):
		return th.Comment, true
	case tt == chroma.Punctuation || tt == chroma.Operator:
		return th.Punctuation, true
	default:
		return lipgloss.Style{}, false
	}
}
