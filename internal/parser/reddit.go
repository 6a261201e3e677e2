package parser

import (
	"regexp"
	"strings"
)

var (
	conversationSplitRe = regexp.MustCompile(`# Conversation \d+`)
	subredditFieldRe    = regexp.MustCompile(`\*\*Subreddit:\*\* (.+)`)
	titleFieldRe        = regexp.MustCompile(`\*\*Title:\*\* (.+)`)
	postedFieldRe       = regexp.MustCompile(`\*\*Posted:\*\* (.+)`)
	assessmentFieldRe   = regexp.MustCompile(`\*\*Assessment:\*\* (.+)`)
	bodySectionRe       = regexp.MustCompile(`## Body\n((?s:.*?))\n\[View Post\]`)
	viewPostRe          = regexp.MustCompile(`\[View (?:Post|Full Post)\]\((.+?)\)`)
)

// ParseRedditMarkdown parses a Reddit batch, choosing the grouped format when
// the text has both keyword headers ("## ") and post headers ("### ").
func ParseRedditMarkdown(markdown string) []Post {
	if IsNoResults(markdown) {
		return nil
	}
	markdown = normalizeNewlines(markdown)
	if strings.Contains(markdown, "## ") && strings.Contains(markdown, "### ") {
		return ParseGroupedMarkdown(markdown)
	}
	return ParseSimpleMarkdown(markdown)
}

// ParseSimpleMarkdown parses the "# Conversation N" format.
func ParseSimpleMarkdown(markdown string) []Post {
	markdown = normalizeNewlines(markdown)

	var posts []Post
	for _, block := range conversationSplitRe.Split(markdown, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}

		var post Post
		if m := subredditFieldRe.FindStringSubmatch(block); m != nil {
			post.Subreddit = NormalizeSubreddit(m[1])
		}
		if m := titleFieldRe.FindStringSubmatch(block); m != nil {
			post.Title = strings.TrimSpace(m[1])
		}
		if m := postedFieldRe.FindStringSubmatch(block); m != nil {
			post.CreatedAt = strings.TrimSpace(m[1])
		}
		if m := assessmentFieldRe.FindStringSubmatch(block); m != nil {
			post.Assessment = strings.TrimSpace(m[1])
		}
		if m := bodySectionRe.FindStringSubmatch(block); m != nil {
			post.Body = strings.TrimSpace(m[1])
		}
		if m := viewPostRe.FindStringSubmatch(block); m != nil {
			post.PostURL = strings.TrimSpace(m[1])
		}

		if post.complete() {
			posts = append(posts, post)
		}
	}
	return posts
}

type lineState int

const (
	seekingHeader lineState = iota
	inMeta
	inBody
)

// blockParser holds the state of one line-oriented parse. A post is open
// while the state is inMeta or inBody.
type blockParser struct {
	state   lineState
	current Post
	posts   []Post
}

func (p *blockParser) open(post Post) {
	p.flush()
	p.current = post
	p.state = inMeta
}

func (p *blockParser) flush() {
	if p.state != seekingHeader && p.current.complete() {
		p.posts = append(p.posts, p.current)
	}
	p.current = Post{}
	p.state = seekingHeader
}

func (p *blockParser) appendBody(line string) {
	trimmed := strings.TrimSpace(line)
	if p.state != inBody || trimmed == "" || strings.HasPrefix(trimmed, "**") || strings.HasPrefix(trimmed, "[") {
		return
	}
	p.current.Body += line + "\n"
}

// ParseGroupedMarkdown parses posts grouped under "## keyword" headers, each
// post starting at "### title" and ending at "---" or the next post.
func ParseGroupedMarkdown(markdown string) []Post {
	var (
		p       blockParser
		keyword string
	)

	for _, line := range strings.Split(normalizeNewlines(markdown), "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			keyword = fieldValue(line, "## ")
		case strings.HasPrefix(line, "### "):
			p.open(Post{Keyword: keyword, Title: fieldValue(line, "### ")})
		case p.state == seekingHeader:
		case strings.HasPrefix(line, "**Subreddit:**"):
			p.current.Subreddit = NormalizeSubreddit(fieldValue(line, "**Subreddit:**"))
		case strings.HasPrefix(line, "**Posted:**"):
			p.current.CreatedAt = fieldValue(line, "**Posted:**")
		case strings.HasPrefix(line, "**Author:**"):
			p.current.Author = strings.TrimPrefix(fieldValue(line, "**Author:**"), "u/")
		case strings.HasPrefix(line, "**Assessment:**"):
			p.current.Assessment = fieldValue(line, "**Assessment:**")
		case strings.HasPrefix(line, "**Discussion:**"):
			p.state = inBody
		case strings.HasPrefix(line, "[View Full Post]"), strings.HasPrefix(line, "[View Post]"):
			p.current.PostURL = linkTarget(line)
		case strings.TrimSpace(line) == "---":
			p.flush()
		default:
			p.appendBody(line)
		}
	}
	p.flush()

	return p.posts
}
