package preview

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// TextCleaner normalises text scraped from product pages.
type TextCleaner struct {
	multiWhitespace *regexp.Regexp
	htmlTags        *regexp.Regexp
	maxLength       int
}

func NewTextCleaner(maxLength int) *TextCleaner {
	return &TextCleaner{
		multiWhitespace: regexp.MustCompile(`\s+`),
		htmlTags:        regexp.MustCompile(`<[^>]*>`),
		maxLength:       maxLength,
	}
}

// Clean strips markup, decodes entities, collapses whitespace and truncates
// on a rune boundary.
func (tc *TextCleaner) Clean(text string) string {
	text = tc.htmlTags.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = strings.TrimSpace(tc.multiWhitespace.ReplaceAllString(text, " "))

	if tc.maxLength <= 0 || utf8.RuneCountInString(text) <= tc.maxLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:tc.maxLength])) + "…"
}
