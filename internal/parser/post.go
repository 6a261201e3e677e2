// Package parser turns the markdown post batches produced by the workflow
// engine into post records. Parsers never fail: blocks without a title and a
// post URL are dropped.
package parser

import (
	"regexp"
	"strings"
)

// NoResults is the value the workflow sends when a keyword found nothing.
const NoResults = "no_conversations_found"

// Post is one parsed post. Every field except Title and PostURL may be empty.
type Post struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	PostURL    string `json:"postUrl"`
	Subreddit  string `json:"subreddit,omitempty"`
	Author     string `json:"author,omitempty"`
	ProfileURL string `json:"profileUrl,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	Keyword    string `json:"keyword,omitempty"`
	Assessment string `json:"assessment,omitempty"`
}

func (p *Post) complete() bool {
	return p != nil && p.Title != "" && p.PostURL != ""
}

// IsNoResults reports whether a payload is the no-results sentinel.
func IsNoResults(payload string) bool {
	return strings.TrimSpace(payload) == NoResults
}

var (
	subredditLinkRe = regexp.MustCompile(`\[(?:r/)?(\w+)\]`)
	subredditWordRe = regexp.MustCompile(`^r/(\w+)`)
	linkTargetRe    = regexp.MustCompile(`\]\(([^)]+)\)`)
	linkTextRe      = regexp.MustCompile(`\[([^\]]+)\]\(`)
)

// NormalizeSubreddit reduces "[r/name](...)", "r/name" or "name" to "name".
func NormalizeSubreddit(value string) string {
	value = strings.TrimSpace(value)
	if m := subredditLinkRe.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	if m := subredditWordRe.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return strings.TrimPrefix(value, "r/")
}

func linkTarget(line string) string {
	if m := linkTargetRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func linkText(line string) string {
	if m := linkTextRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func normalizeNewlines(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	return strings.ReplaceAll(markdown, "\r", "\n")
}

func fieldValue(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}
