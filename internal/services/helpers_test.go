package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/n8n"
	"github.com/leadscout/backend/internal/repository"
	"github.com/leadscout/backend/internal/testutil"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTrigger struct {
	mu       sync.Mutex
	calls    []n8n.TriggerPayload
	urls     []string
	failures map[string]error
}

func (f *fakeTrigger) TriggerWorkflow(ctx context.Context, webhookURL string, payload n8n.TriggerPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, payload)
	f.urls = append(f.urls, webhookURL)
	return f.failures[payload.Platform]
}

func (f *fakeTrigger) payloads() []n8n.TriggerPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]n8n.TriggerPayload(nil), f.calls...)
}

type testEnv struct {
	db       *gorm.DB
	repos    *repository.RepositoryManager
	cache    *database.Cache
	redis    *miniredis.Miniredis
	trigger  *fakeTrigger
	searches *SearchService
	webhooks *WebhookService
	user     *models.User
}

func allWebhooks() config.N8NConfig {
	return config.N8NConfig{
		WebhookSecret:   "secret",
		WebhookReddit:   "http://n8n.local/reddit",
		WebhookLinkedIn: "http://n8n.local/linkedin",
		WebhookTwitter:  "http://n8n.local/twitter",
	}
}

func newTestEnv(t *testing.T, n8nConfig config.N8NConfig) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	client, mr := testutil.NewTestRedis(t)
	logger := utils.NewNopLogger()

	repos := repository.NewRepositoryManager(db)
	cache := database.NewCache(client, logger)
	trigger := &fakeTrigger{failures: map[string]error{}}
	dispatcher := NewDispatcher(trigger, n8nConfig, repos.Platform, repos.Search, logger)

	return &testEnv{
		db:    db,
		repos: repos,
		cache: cache,
		redis: mr,
		searches: NewSearchService(repos, dispatcher, SearchServiceOptions{
			Cache:    cache,
			StatsTTL: time.Minute,
		}, logger),
		webhooks: NewWebhookService(repos, cache, logger),
		trigger:  trigger,
		user:     testutil.CreateUser(t, db, "owner@example.com"),
	}
}

func (e *testEnv) createSearch(t *testing.T, platforms ...string) *models.Search {
	t.Helper()
	search, err := e.searches.Create(context.Background(), e.user.ID, models.CreateSearchRequest{
		ProductURL: "https://acme.example",
		Platforms:  platforms,
	})
	require.NoError(t, err)
	return search
}

func (e *testEnv) reload(t *testing.T, id string) *models.Search {
	t.Helper()
	search, err := e.repos.Search.GetByID(context.Background(), id)
	require.NoError(t, err)
	return search
}

func platformByName(t *testing.T, search *models.Search, name models.PlatformName) models.Platform {
	t.Helper()
	for _, p := range search.Platforms {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("platform %s not found", name)
	return models.Platform{}
}
