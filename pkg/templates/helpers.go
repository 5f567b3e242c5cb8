package templates

import (
	"strings"
	"text/template"
)

// markdownEscaper covers the union of characters Telegram's Markdown
// flavors treat as formatting. Unbalanced entities in interpolated text
// make the bot API reject the whole message, so rendered values get
// escaped rather than trusted.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdown escapes Telegram Markdown control characters in text.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// SafeText prepares free-form text (LLM analysis, provider error messages)
// for interpolation into a Markdown message: it strips invalid UTF-8, then
// escapes Markdown control characters.
func SafeText(text string) string {
	return EscapeMarkdown(strings.ToValidUTF8(text, ""))
}

// helperFuncs exposes the escape helpers to every loaded template.
func helperFuncs() template.FuncMap {
	return template.FuncMap{
		"escape":   EscapeMarkdown,
		"safeText": SafeText,
	}
}
