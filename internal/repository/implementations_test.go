package repository

import (
	"context"
	"testing"
	"time"

	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	repos *RepositoryManager
	user  *models.User
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewTestDB(t)
	return &fixture{
		db:    db,
		repos: NewRepositoryManager(db),
		user:  testutil.CreateUser(t, db, "owner@example.com"),
	}
}

func (f *fixture) createSearch(t *testing.T, selected ...models.PlatformName) *models.Search {
	t.Helper()
	search := &models.Search{UserID: f.user.ID, ProductURL: "https://acme.io"}
	require.NoError(t, f.repos.Search.CreateWithPlatforms(context.Background(), search, selected))
	return search
}

func (f *fixture) reload(t *testing.T, id string) *models.Search {
	t.Helper()
	search, err := f.repos.Search.GetByID(context.Background(), id)
	require.NoError(t, err)
	return search
}

func (f *fixture) countRows(t *testing.T, model interface{}, searchID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Where("search_id = ?", searchID).Count(&count).Error)
	return count
}

func TestCreateWithPlatforms(t *testing.T) {
	f := newFixture(t)
	search := f.createSearch(t, models.Reddit)

	got := f.reload(t, search.ID)
	assert.Equal(t, models.SearchPending, got.Status)
	require.Len(t, got.Platforms, 3)
	for _, p := range got.Platforms {
		assert.Equal(t, models.PlatformPending, p.Status)
		assert.Equal(t, p.Name == models.Reddit, p.Selected, p.Name)
	}

	user, err := f.repos.User.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.SearchCount)
}

func TestCreateWithPlatforms_UnknownUserRollsBack(t *testing.T) {
	f := newFixture(t)
	search := &models.Search{UserID: "missing", ProductURL: "https://acme.io"}

	err := f.repos.Search.CreateWithPlatforms(context.Background(), search, []models.PlatformName{models.Reddit})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.Search{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&models.Platform{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetWebsiteInfoOnce_FirstWriterWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit, models.LinkedIn)

	won, err := f.repos.Search.SetWebsiteInfoOnce(ctx, search.ID, datatypes.JSON(`{"name":"first"}`))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = f.repos.Search.SetWebsiteInfoOnce(ctx, search.ID, datatypes.JSON(`{"name":"second"}`))
	require.NoError(t, err)
	assert.False(t, won)

	got := f.reload(t, search.ID)
	assert.JSONEq(t, `{"name":"first"}`, string(got.WebsiteInfo))
	assert.Equal(t, models.SearchAnalyzing, got.Status)
}

func TestSetKeywordsOnce_FirstWriterWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)

	won, err := f.repos.Search.SetKeywordsOnce(ctx, search.ID, datatypes.JSON(`["a","b"]`))
	require.NoError(t, err)
	assert.True(t, won)
	won, err = f.repos.Search.SetKeywordsOnce(ctx, search.ID, datatypes.JSON(`["c"]`))
	require.NoError(t, err)
	assert.False(t, won)

	got := f.reload(t, search.ID)
	assert.JSONEq(t, `["a","b"]`, string(got.Keywords))
	assert.Equal(t, models.SearchSearching, got.Status)
}

func TestSearchStatus_NeverMovesBackward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	searching := f.createSearch(t, models.Reddit)
	_, err := f.repos.Search.SetKeywordsOnce(ctx, searching.ID, datatypes.JSON(`["a"]`))
	require.NoError(t, err)
	_, err = f.repos.Search.SetWebsiteInfoOnce(ctx, searching.ID, datatypes.JSON(`{}`))
	require.NoError(t, err)
	assert.Equal(t, models.SearchSearching, f.reload(t, searching.ID).Status)

	failed := f.createSearch(t, models.Reddit)
	require.NoError(t, f.repos.Search.MarkFailed(ctx, failed.ID, "boom"))
	won, err := f.repos.Search.SetWebsiteInfoOnce(ctx, failed.ID, datatypes.JSON(`{}`))
	require.NoError(t, err)
	assert.True(t, won)
	got := f.reload(t, failed.ID)
	assert.Equal(t, models.SearchFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
}

func conversations(n int) []models.Conversation {
	out := make([]models.Conversation, n)
	for i := range out {
		out[i] = models.Conversation{Title: "post", URL: "https://reddit.com/x"}
	}
	return out
}

func TestIngest_CountsMatchRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)

	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID:       search.ID,
		Platform:       models.Reddit,
		Conversations:  conversations(2),
		PlatformStatus: models.PlatformSearching,
		SearchStatus:   models.SearchSearching,
	}))
	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID:       search.ID,
		Platform:       models.Reddit,
		Conversations:  conversations(3),
		PlatformStatus: models.PlatformCompleted,
	}))

	got := f.reload(t, search.ID)
	assert.Equal(t, int64(5), f.countRows(t, &models.Conversation{}, search.ID))
	assert.Equal(t, 5, got.ResultsCount)
	assert.Equal(t, models.SearchSearching, got.Status)

	for _, p := range got.Platforms {
		if p.Name == models.Reddit {
			assert.Equal(t, 5, p.ResultsCount)
			assert.Equal(t, models.PlatformCompleted, p.Status)
		} else {
			assert.Zero(t, p.ResultsCount)
		}
	}
}

func TestIngest_DoesNotReopenFinishedPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)

	require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformCompleted))
	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID:       search.ID,
		Platform:       models.Reddit,
		Conversations:  conversations(1),
		PlatformStatus: models.PlatformSearching,
	}))

	for _, p := range f.reload(t, search.ID).Platforms {
		if p.Name == models.Reddit {
			assert.Equal(t, models.PlatformCompleted, p.Status)
			assert.Equal(t, 1, p.ResultsCount)
		}
	}
}

func TestPlatformStatus_NeverMovesBackward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)

	redditStatus := func() models.PlatformStatus {
		for _, p := range f.reload(t, search.ID).Platforms {
			if p.Name == models.Reddit {
				return p.Status
			}
		}
		t.Fatal("reddit platform missing")
		return ""
	}

	require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformAnalyzing))
	assert.Equal(t, models.PlatformAnalyzing, redditStatus())

	require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformSearching))
	assert.Equal(t, models.PlatformSearching, redditStatus())

	require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformAnalyzing))
	assert.Equal(t, models.PlatformSearching, redditStatus())

	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID:       search.ID,
		Platform:       models.Reddit,
		Conversations:  conversations(1),
		PlatformStatus: models.PlatformPending,
	}))
	assert.Equal(t, models.PlatformSearching, redditStatus())

	require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformCompleted))
	assert.Equal(t, models.PlatformCompleted, redditStatus())
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("waits for every selected platform", func(t *testing.T) {
		f := newFixture(t)
		search := f.createSearch(t, models.Reddit, models.LinkedIn)
		require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformCompleted))

		status, changed, err := f.repos.Search.Finalize(ctx, search.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.SearchPending, status)

		require.NoError(t, f.repos.Platform.MarkFailed(ctx, search.ID, models.LinkedIn, "boom"))
		status, changed, err = f.repos.Search.Finalize(ctx, search.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.SearchComplete, status)
		assert.Equal(t, models.SearchComplete, f.reload(t, search.ID).Status)
	})

	t.Run("all failed", func(t *testing.T) {
		f := newFixture(t)
		search := f.createSearch(t, models.Twitter)
		require.NoError(t, f.repos.Platform.MarkFailed(ctx, search.ID, models.Twitter, "Webhook URL not configured"))

		status, changed, err := f.repos.Search.Finalize(ctx, search.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.SearchFailed, status)
	})

	t.Run("workflow failure stands", func(t *testing.T) {
		f := newFixture(t)
		search := f.createSearch(t, models.Reddit)
		require.NoError(t, f.repos.Search.MarkFailed(ctx, search.ID, "workflow crashed"))
		require.NoError(t, f.repos.Platform.UpdateStatus(ctx, search.ID, models.Reddit, models.PlatformCompleted))

		status, changed, err := f.repos.Search.Finalize(ctx, search.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.SearchFailed, status)
	})

	t.Run("missing search", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.repos.Search.Finalize(ctx, "missing")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestDelete_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)
	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID: search.ID, Platform: models.Reddit, Conversations: conversations(2),
	}))

	require.NoError(t, f.repos.Search.Delete(ctx, search.ID))

	_, err := f.repos.Search.GetByID(ctx, search.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, f.countRows(t, &models.Conversation{}, search.ID))
	assert.Zero(t, f.countRows(t, &models.Platform{}, search.ID))

	assert.ErrorIs(t, f.repos.Search.Delete(ctx, search.ID), gorm.ErrRecordNotFound)
}

func TestGetForUser_ScopesToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)
	other := testutil.CreateUser(t, f.db, "other@example.com")

	_, err := f.repos.Search.GetForUser(ctx, search.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := f.repos.Search.GetForUser(ctx, search.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, search.ID, got.ID)
}

func TestListForUser_NewestFirstWithPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		s := f.createSearch(t, models.Reddit)
		require.NoError(t, f.db.Model(&models.Search{}).Where("id = ?", s.ID).
			UpdateColumn("created_at", time.Now().Add(time.Duration(i)*time.Hour)).Error)
		ids = append(ids, s.ID)
	}

	page, err := f.repos.Search.ListForUser(ctx, f.user.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	assert.Len(t, page[0].Platforms, 3)

	page, err = f.repos.Search.ListForUser(ctx, f.user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestConversationListBySearch_Order(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	search := f.createSearch(t, models.Reddit)

	high, low := 0.9, 0.2
	batch := []models.Conversation{
		{Title: "unscored"},
		{Title: "low", RelevanceScore: &low},
		{Title: "high", RelevanceScore: &high},
	}
	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID: search.ID, Platform: models.Reddit, Conversations: batch,
	}))

	got, err := f.repos.Conversation.ListBySearch(ctx, search.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"high", "low", "unscored"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.createSearch(t, models.Reddit)
	require.NoError(t, f.db.Model(&models.Search{}).Where("id = ?", old.ID).
		UpdateColumn("created_at", time.Now().AddDate(0, -2, 0)).Error)
	require.NoError(t, f.repos.Search.MarkFailed(ctx, old.ID, "x"))

	recent := f.createSearch(t, models.Reddit)
	require.NoError(t, f.repos.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID: recent.ID, Platform: models.Reddit, Conversations: conversations(4),
	}))

	other := testutil.CreateUser(t, f.db, "other@example.com")
	require.NoError(t, f.repos.Search.CreateWithPlatforms(ctx, &models.Search{UserID: other.ID, ProductURL: "https://other.io"}, nil))

	monthStart := time.Now().AddDate(0, 0, -7)
	stats, err := f.repos.Search.Stats(ctx, f.user.ID, monthStart)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ActiveSearches)
	assert.Equal(t, int64(4), stats.TotalLeads)
	assert.Equal(t, int64(1), stats.SearchesThisMonth)
	require.Len(t, stats.Recent, 2)
	assert.Equal(t, recent.ID, stats.Recent[0].ID)
	assert.Equal(t, 4, stats.Recent[0].ResultsCount)
}
