package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/n8n"
	"github.com/leadscout/backend/internal/testutil"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_CreateValidation(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     models.CreateSearchRequest
		message string
	}{
		{
			name:    "missing url",
			req:     models.CreateSearchRequest{Platforms: []string{"REDDIT"}},
			message: "Product URL is required and must be a string",
		},
		{
			name:    "no platforms",
			req:     models.CreateSearchRequest{ProductURL: "https://acme.example"},
			message: "At least one platform must be selected",
		},
		{
			name:    "unknown platforms",
			req:     models.CreateSearchRequest{ProductURL: "https://acme.example", Platforms: []string{"reddit", "myspace", "digg"}},
			message: "Invalid platforms: myspace, digg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.searches.Create(ctx, env.user.ID, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.message, err.Error())
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Search{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.trigger.payloads())
}

func TestSearchService_CreateDispatchesSelectedPlatforms(t *testing.T) {
	env := newTestEnv(t, allWebhooks())

	search := env.createSearch(t, "reddit", "LinkedIn", "REDDIT")

	payloads := env.trigger.payloads()
	require.Len(t, payloads, 2)
	platforms := []string{payloads[0].Platform, payloads[1].Platform}
	assert.ElementsMatch(t, []string{"reddit", "linkedin"}, platforms)
	for _, p := range payloads {
		assert.Equal(t, search.ID, p.SearchID)
		assert.Equal(t, env.user.ID, p.UserID)
		assert.Equal(t, "https://acme.example", p.ProductURL)
	}

	stored := env.reload(t, search.ID)
	assert.Equal(t, models.SearchPending, stored.Status)
	require.Len(t, stored.Platforms, 3)
	assert.True(t, platformByName(t, stored, models.Reddit).Selected)
	assert.True(t, platformByName(t, stored, models.LinkedIn).Selected)
	assert.False(t, platformByName(t, stored, models.Twitter).Selected)
	for _, p := range stored.Platforms {
		assert.Equal(t, models.PlatformPending, p.Status)
	}

	var user models.User
	require.NoError(t, env.db.First(&user, "id = ?", env.user.ID).Error)
	assert.Equal(t, 1, user.SearchCount)
}

func TestSearchService_DispatchFailuresMarkPlatform(t *testing.T) {
	cfg := allWebhooks()
	cfg.WebhookTwitter = ""
	env := newTestEnv(t, cfg)
	env.trigger.failures["linkedin"] = &n8n.StatusError{StatusCode: 500}

	search := env.createSearch(t, "REDDIT", "LINKEDIN", "TWITTER")
	stored := env.reload(t, search.ID)

	reddit := platformByName(t, stored, models.Reddit)
	assert.Equal(t, models.PlatformPending, reddit.Status)

	linkedin := platformByName(t, stored, models.LinkedIn)
	assert.Equal(t, models.PlatformFailed, linkedin.Status)
	require.NotNil(t, linkedin.ErrorMessage)
	assert.Equal(t, "Webhook failed with status: 500", *linkedin.ErrorMessage)

	twitter := platformByName(t, stored, models.Twitter)
	assert.Equal(t, models.PlatformFailed, twitter.Status)
	require.NotNil(t, twitter.ErrorMessage)
	assert.Equal(t, "Webhook URL not configured", *twitter.ErrorMessage)

	// Reddit is still running, so the search is not finished.
	assert.Equal(t, models.SearchPending, stored.Status)
}

func TestSearchService_AllDispatchesFailed(t *testing.T) {
	env := newTestEnv(t, config.N8NConfig{})

	search := env.createSearch(t, "REDDIT")

	stored := env.reload(t, search.ID)
	assert.Equal(t, models.SearchFailed, stored.Status)
	assert.Nil(t, stored.ErrorMessage)
	assert.Empty(t, env.trigger.payloads())
}

// hangUpTrigger cancels the caller's request context mid-flight and fails the
// trigger the way an aborted outbound call does.
type hangUpTrigger struct {
	cancel  context.CancelFunc
	ctxErrs []error
}

func (h *hangUpTrigger) TriggerWorkflow(ctx context.Context, webhookURL string, payload n8n.TriggerPayload) error {
	h.cancel()
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	return fmt.Errorf("webhook request failed: %w", context.Canceled)
}

func TestSearchService_ClientHangUpStillMarksPlatformFailed(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := &hangUpTrigger{cancel: cancel}
	logger := utils.NewNopLogger()
	dispatcher := NewDispatcher(trigger, allWebhooks(), env.repos.Platform, env.repos.Search, logger)
	searches := NewSearchService(env.repos, dispatcher, SearchServiceOptions{Cache: env.cache}, logger)

	search, err := searches.Create(ctx, env.user.ID, models.CreateSearchRequest{
		ProductURL: "https://acme.example",
		Platforms:  []string{"REDDIT"},
	})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, []error{nil}, trigger.ctxErrs)

	stored := env.reload(t, search.ID)
	reddit := platformByName(t, stored, models.Reddit)
	assert.Equal(t, models.PlatformFailed, reddit.Status)
	require.NotNil(t, reddit.ErrorMessage)
	assert.Contains(t, *reddit.ErrorMessage, "context canceled")
	assert.Equal(t, models.SearchFailed, stored.Status)
}

func TestSearchService_OwnerScoping(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()
	search := env.createSearch(t, "REDDIT")
	other := testutil.CreateUser(t, env.db, "other@example.com")

	_, err := env.searches.Get(ctx, search.ID, other.ID)
	assert.ErrorIs(t, err, ErrSearchNotFound)

	_, err = env.searches.Conversations(ctx, search.ID, other.ID)
	assert.ErrorIs(t, err, ErrSearchNotFound)

	assert.ErrorIs(t, env.searches.Delete(ctx, search.ID, other.ID), ErrSearchNotFound)

	got, err := env.searches.Get(ctx, search.ID, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, search.ID, got.ID)
	assert.Len(t, got.Platforms, 3)
}

func TestSearchService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()
	search := env.createSearch(t, "REDDIT")

	_, err := env.webhooks.Handle(ctx, &models.WebhookCallback{
		SearchID:    search.ID,
		Stage:       StageConversationsPartial,
		PassedPosts: models.PassedPosts{Markdown: []string{"# Conversation 1\n**Title:** A\n[View Post](http://a)"}},
	})
	require.NoError(t, err)

	require.NoError(t, env.searches.Delete(ctx, search.ID, env.user.ID))

	_, err = env.searches.Get(ctx, search.ID, env.user.ID)
	assert.ErrorIs(t, err, ErrSearchNotFound)

	var platforms, conversations int64
	require.NoError(t, env.db.Model(&models.Platform{}).Where("search_id = ?", search.ID).Count(&platforms).Error)
	require.NoError(t, env.db.Model(&models.Conversation{}).Where("search_id = ?", search.ID).Count(&conversations).Error)
	assert.Zero(t, platforms)
	assert.Zero(t, conversations)
}

func TestSearchService_ListLimits(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env.createSearch(t, "REDDIT")
	}

	all, err := env.searches.List(ctx, env.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := env.searches.List(ctx, env.user.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	capped, err := env.searches.List(ctx, env.user.ID, 1000, -5)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestSearchService_StatsCache(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()
	env.createSearch(t, "REDDIT")

	stats, err := env.searches.Stats(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ActiveSearches)
	assert.Equal(t, int64(1), stats.SearchesThisMonth)
	require.Len(t, stats.Recent, 1)

	key := fmt.Sprintf("leadscout:stats:%s", env.user.ID)
	assert.True(t, env.redis.Exists(key))

	// A new search drops the cached value.
	env.createSearch(t, "REDDIT")
	assert.False(t, env.redis.Exists(key))

	stats, err = env.searches.Stats(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSearches)
}

type stubPreviews struct {
	preview *models.ProductPreview
	err     error
}

func (s stubPreviews) Fetch(ctx context.Context, pageURL string) (*models.ProductPreview, error) {
	return s.preview, s.err
}

func TestSearchService_StorePreview(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	ctx := context.Background()
	search := env.createSearch(t, "REDDIT")

	env.searches.previews = stubPreviews{err: errors.New("timeout")}
	env.searches.StorePreview(ctx, search.ID, search.ProductURL)
	assert.Equal(t, "null", string(models.NewSearchView(env.reload(t, search.ID)).Preview))

	env.searches.previews = stubPreviews{preview: &models.ProductPreview{Title: "Acme", Favicon: "https://acme.example/favicon.ico"}}
	env.searches.StorePreview(ctx, search.ID, search.ProductURL)

	view := models.NewSearchView(env.reload(t, search.ID))
	assert.JSONEq(t, `{"title":"Acme","favicon":"https://acme.example/favicon.ico"}`, string(view.Preview))
	assert.Equal(t, "null", string(view.WebsiteInfo))
}

func TestSearchService_CreateFetchesPreviewInBackground(t *testing.T) {
	env := newTestEnv(t, allWebhooks())
	env.searches.previews = stubPreviews{preview: &models.ProductPreview{Title: "Acme"}}

	search := env.createSearch(t, "REDDIT")
	env.searches.Wait()

	view := models.NewSearchView(env.reload(t, search.ID))
	assert.JSONEq(t, `{"title":"Acme"}`, string(view.Preview))
}
