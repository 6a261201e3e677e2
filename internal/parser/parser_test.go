package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedditMarkdown_GroupedScenario(t *testing.T) {
	input := "## kw1\n### Post A\n**Subreddit:** [r/test](url)\n**Posted:** 2024-01-01\n**Discussion:**\nbody text\n[View Full Post](http://x)\n---"

	posts := ParseRedditMarkdown(input)

	require.Len(t, posts, 1)
	assert.Equal(t, Post{
		Keyword:   "kw1",
		Title:     "Post A",
		Subreddit: "test",
		CreatedAt: "2024-01-01",
		Body:      "body text\n",
		PostURL:   "http://x",
	}, posts[0])
}

func TestParseGroupedMarkdown_MultipleGroups(t *testing.T) {
	input := `## crm software
### First
**Subreddit:** r/sales
**Posted:** 2024-02-01
**Discussion:**
line one
**Score:** ignored
[other link](http://ignored)

line two
[View Full Post](http://a)
### Missing URL
**Discussion:**
dropped
---
## invoicing
### Second
**Discussion:**
text
[View Full Post](http://b)`

	posts := ParseGroupedMarkdown(input)

	require.Len(t, posts, 2)
	assert.Equal(t, "crm software", posts[0].Keyword)
	assert.Equal(t, "sales", posts[0].Subreddit)
	assert.Equal(t, "line one\nline two\n", posts[0].Body)
	assert.Equal(t, "http://a", posts[0].PostURL)

	assert.Equal(t, "invoicing", posts[1].Keyword)
	assert.Equal(t, "Second", posts[1].Title)
	assert.Equal(t, "http://b", posts[1].PostURL)
}

func TestParseSimpleMarkdown(t *testing.T) {
	input := `# Conversation 1
**Subreddit:** [r/startups](https://reddit.com/r/startups)
**Title:** Looking for a CRM
**Posted:** 2024-03-05
**Assessment:** High intent

## Body
We need a CRM.
Budget is small.
[View Post](https://reddit.com/1)

# Conversation 2
**Subreddit:** r/smallbusiness
**Title:** No link here

# Conversation 3
**Subreddit:** r/saas
**Title:** Full post variant
[View Full Post](https://reddit.com/3)`

	posts := ParseRedditMarkdown(input)

	require.Len(t, posts, 2)
	assert.Equal(t, Post{
		Title:      "Looking for a CRM",
		Subreddit:  "startups",
		CreatedAt:  "2024-03-05",
		Assessment: "High intent",
		Body:       "We need a CRM.\nBudget is small.",
		PostURL:    "https://reddit.com/1",
	}, posts[0])
	assert.Equal(t, "saas", posts[1].Subreddit)
	assert.Equal(t, "https://reddit.com/3", posts[1].PostURL)
	assert.Empty(t, posts[1].Body)
}

func TestParseSimpleMarkdown_CRLF(t *testing.T) {
	input := "# Conversation 1\r\n**Title:** T\r\n## Body\r\nhello\r\n[View Post](http://x)\r\n"

	posts := ParseSimpleMarkdown(input)

	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Body)
	assert.Equal(t, "http://x", posts[0].PostURL)
}

func TestParseLinkedInMarkdown(t *testing.T) {
	input := `### Hiring a fractional CFO
**Profile:** [Jane Doe](https://linkedin.com/in/jane)
**Posted:** 2024-05-01
**Post Content:**
We are looking for help.
**Hashtags:** skipped
[link](http://skipped)
Second line.
[View Full Post](https://linkedin.com/posts/1)
---
### No url
**Post Content:**
nothing
---
### Last one
[View Full Post](https://linkedin.com/posts/2)`

	posts := ParseLinkedInMarkdown(input)

	require.Len(t, posts, 2)
	assert.Equal(t, Post{
		Title:      "Hiring a fractional CFO",
		Author:     "Jane Doe",
		ProfileURL: "https://linkedin.com/in/jane",
		CreatedAt:  "2024-05-01",
		Body:       "We are looking for help.\nSecond line.\n",
		PostURL:    "https://linkedin.com/posts/1",
	}, posts[0])
	assert.Equal(t, "Last one", posts[1].Title)
}

func TestParsers_DropIncompleteBlocks(t *testing.T) {
	inputs := map[string]func(string) []Post{
		"### Title only\n**Discussion:**\nbody\n---":               ParseGroupedMarkdown,
		"### \n[View Full Post](http://x)\n---":                    ParseGroupedMarkdown,
		"# Conversation 1\n**Title:** T\n":                          ParseSimpleMarkdown,
		"# Conversation 1\n[View Post](http://x)\n":                 ParseSimpleMarkdown,
		"### Title only\n**Post Content:**\nbody":                   ParseLinkedInMarkdown,
		"**Profile:** [x](y)\n[View Full Post](http://orphan)\n---": ParseLinkedInMarkdown,
	}

	for input, parse := range inputs {
		assert.Empty(t, parse(input), input)
	}
}

func TestParsers_NoResultsSentinel(t *testing.T) {
	assert.True(t, IsNoResults("  no_conversations_found\n"))
	assert.False(t, IsNoResults("no_conversations_found_today"))
	assert.Empty(t, ParseRedditMarkdown("no_conversations_found"))
	assert.Empty(t, ParseLinkedInMarkdown(" no_conversations_found "))
}

func TestParsers_GarbageInput(t *testing.T) {
	for _, input := range []string{"", "---", "###", "## \n### \n---", "[View Post](", "random text"} {
		assert.NotPanics(t, func() {
			ParseRedditMarkdown(input)
			ParseLinkedInMarkdown(input)
		})
	}
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := map[string]string{
		"[r/golang](https://reddit.com/r/golang)": "golang",
		"r/startups":                              "startups",
		"  r/saas  ":                              "saas",
		"entrepreneur":                            "entrepreneur",
	}
	for input, want := range tests {
		assert.Equal(t, want, NormalizeSubreddit(input), input)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:30:00Z", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"Jan 2, 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"Tue, 02 Jan 2024 15:04:05 GMT", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.input)
		require.True(t, ok, tt.input)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.input, got)
	}
}

func TestParseFlexibleDate_FallsBackToNow(t *testing.T) {
	before := time.Now()
	got := ParseFlexibleDate("3 days ago")
	assert.False(t, got.Before(before))
	assert.WithinDuration(t, time.Now(), got, time.Second)

	got = ParseFlexibleDate("")
	assert.WithinDuration(t, time.Now(), got, time.Second)
}
