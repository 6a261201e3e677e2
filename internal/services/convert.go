package services

import (
	"strings"
	"time"

	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/parser"
)

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func postedAt(raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Now()
	}
	return parser.ParseFlexibleDate(raw)
}

// keywordFor prefers the batch keyword over the one inside the post.
func keywordFor(batchKeyword, postKeyword string) *string {
	if batchKeyword != "" {
		return &batchKeyword
	}
	return optional(postKeyword)
}

func fromParsedPost(post parser.Post, batchKeyword string) models.Conversation {
	return models.Conversation{
		Title:      post.Title,
		URL:        post.PostURL,
		Excerpt:    strings.TrimSpace(post.Body),
		Author:     post.Author,
		Subreddit:  optional(post.Subreddit),
		Keyword:    keywordFor(batchKeyword, post.Keyword),
		Assessment: optional(post.Assessment),
		PostedAt:   postedAt(post.CreatedAt),
	}
}

func fromStructuredPost(post models.StructuredPost, batchKeyword string) models.Conversation {
	return models.Conversation{
		Title:          post.Title,
		URL:            post.PostURL,
		Excerpt:        strings.TrimSpace(post.Body),
		Author:         post.Author,
		Subreddit:      optional(parser.NormalizeSubreddit(post.Subreddit)),
		Keyword:        keywordFor(batchKeyword, post.Keyword),
		Assessment:     optional(post.Assessment),
		Upvotes:        post.Upvotes,
		Comments:       post.Comments,
		RelevanceScore: post.RelevanceScore,
		PostedAt:       postedAt(post.CreatedAt),
	}
}

// passedConversations flattens a partial or final batch. Markdown entries go
// through the Reddit parsers; the no-results sentinel contributes nothing.
// Structured posts with neither a title nor a URL are skipped.
func passedConversations(passed models.PassedPosts, batchKeyword string) []models.Conversation {
	var conversations []models.Conversation
	for _, markdown := range passed.Markdown {
		for _, post := range parser.ParseRedditMarkdown(strings.TrimSpace(markdown)) {
			conversations = append(conversations, fromParsedPost(post, batchKeyword))
		}
	}
	for _, post := range passed.Posts {
		if post.Title == "" && post.PostURL == "" {
			continue
		}
		conversations = append(conversations, fromStructuredPost(post, batchKeyword))
	}
	return conversations
}

func linkedInConversations(markdown string) []models.Conversation {
	var conversations []models.Conversation
	for _, post := range parser.ParseLinkedInMarkdown(markdown) {
		conversations = append(conversations, models.Conversation{
			Title:            post.Title,
			URL:              post.PostURL,
			Excerpt:          strings.TrimSpace(post.Body),
			Author:           post.Author,
			AuthorProfileURL: optional(post.ProfileURL),
			PostedAt:         postedAt(post.CreatedAt),
		})
	}
	return conversations
}
