package parser

import "strings"

// ParseLinkedInMarkdown parses the LinkedIn batch format: "### title",
// "**Profile:** [name](url)", "**Posted:** date", "**Post Content:**" followed
// by body lines, and "[View Full Post](url)".
func ParseLinkedInMarkdown(markdown string) []Post {
	if IsNoResults(markdown) {
		return nil
	}

	var p blockParser
	for _, line := range strings.Split(normalizeNewlines(markdown), "\n") {
		switch {
		case strings.HasPrefix(line, "### "):
			p.open(Post{Title: fieldValue(line, "### ")})
		case p.state == seekingHeader:
		case strings.HasPrefix(line, "**Profile:**"):
			p.current.ProfileURL = linkTarget(line)
			p.current.Author = linkText(line)
		case strings.HasPrefix(line, "**Posted:**"):
			p.current.CreatedAt = fieldValue(line, "**Posted:**")
		case strings.HasPrefix(line, "**Post Content:**"):
			p.state = inBody
		case strings.HasPrefix(line, "[View Full Post]"):
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
