// Package seeder fills a development database with a demo account and a
// finished search. The search is built by replaying recorded workflow
// callbacks through the webhook service, so the data goes through the same
// parsing and status rules as production traffic.
package seeder

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/parser"
	"github.com/leadscout/backend/internal/repository"
	"github.com/leadscout/backend/internal/services"
	"github.com/sirupsen/logrus"
)

//go:embed fixtures/*.md
var fixtures embed.FS

var demoKeywords = []string{"crm for startups", "lead generation tools"}

// Fixtures holds the recorded workflow output.
type Fixtures struct {
	Reddit   string
	LinkedIn string
}

// LoadFixtures reads the embedded markdown batches.
func LoadFixtures() (Fixtures, error) {
	reddit, err := fixtures.ReadFile("fixtures/reddit.md")
	if err != nil {
		return Fixtures{}, err
	}
	linkedIn, err := fixtures.ReadFile("fixtures/linkedin.md")
	if err != nil {
		return Fixtures{}, err
	}
	return Fixtures{Reddit: string(reddit), LinkedIn: string(linkedIn)}, nil
}

// Preview is what a replay would ingest, per platform.
type Preview struct {
	Reddit   []parser.Post
	LinkedIn []parser.Post
}

// Parse runs the fixtures through the markdown parsers without storing anything.
func (f Fixtures) Parse() Preview {
	return Preview{
		Reddit:   parser.ParseRedditMarkdown(f.Reddit),
		LinkedIn: parser.ParseLinkedInMarkdown(f.LinkedIn),
	}
}

// Result summarises one seeding run.
type Result struct {
	User          *models.User
	SearchID      string
	Status        models.SearchStatus
	Conversations int
}

type Seeder struct {
	repoManager *repository.RepositoryManager
	auth        *services.AuthService
	webhooks    *services.WebhookService
	logger      *logrus.Logger
}

func NewSeeder(repoManager *repository.RepositoryManager, auth *services.AuthService, webhooks *services.WebhookService, logger *logrus.Logger) *Seeder {
	return &Seeder{
		repoManager: repoManager,
		auth:        auth,
		webhooks:    webhooks,
		logger:      logger,
	}
}

// Seed signs the demo user up (or in, when it already exists) and replays a
// full workflow run for productURL.
func (s *Seeder) Seed(ctx context.Context, email, password, productURL string, f Fixtures) (*Result, error) {
	user, err := s.demoUser(ctx, email, password)
	if err != nil {
		return nil, err
	}

	search := &models.Search{
		UserID:     user.ID,
		ProductURL: productURL,
		Status:     models.SearchPending,
	}
	selected := []models.PlatformName{models.Reddit, models.LinkedIn}
	if err := s.repoManager.Search.CreateWithPlatforms(ctx, search, selected); err != nil {
		return nil, fmt.Errorf("create demo search: %w", err)
	}
	log := s.logger.WithField("search_id", search.ID)
	log.Info("Demo search created")

	total := 0
	for _, cb := range s.callbacks(search.ID, productURL, f) {
		resp, err := s.webhooks.Handle(ctx, cb)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", cb.Stage, err)
		}
		if resp.ConversationsCount != nil {
			total += *resp.ConversationsCount
		}
		log.WithFields(logrus.Fields{
			"stage":   cb.Stage,
			"message": resp.Message,
		}).Debug("Callback replayed")
	}

	stored, err := s.repoManager.Search.GetByID(ctx, search.ID)
	if err != nil {
		return nil, fmt.Errorf("reload demo search: %w", err)
	}
	return &Result{
		User:          user,
		SearchID:      search.ID,
		Status:        stored.Status,
		Conversations: total,
	}, nil
}

func (s *Seeder) demoUser(ctx context.Context, email, password string) (*models.User, error) {
	user, _, err := s.auth.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err == nil {
		s.logger.WithField("email", user.Email).Info("Demo user already exists")
		return user, nil
	}
	if !errors.Is(err, services.ErrInvalidCredentials) {
		return nil, fmt.Errorf("log in demo user: %w", err)
	}

	name := "Demo User"
	user, _, err = s.auth.Signup(ctx, models.SignupRequest{Email: email, Password: password, Name: &name})
	if err != nil {
		return nil, fmt.Errorf("sign up demo user: %w", err)
	}
	s.logger.WithField("email", user.Email).Info("Demo user created")
	return user, nil
}

// callbacks is the stage sequence a real run produces for Reddit and LinkedIn.
func (s *Seeder) callbacks(searchID, productURL string, f Fixtures) []*models.WebhookCallback {
	website, _ := json.Marshal([]map[string]string{{
		"url":         productURL,
		"summary":     "Demo product used to populate the dashboard.",
		"targetUsers": "Early stage B2B teams",
	}})

	return []*models.WebhookCallback{
		{SearchID: searchID, Stage: services.StageWebsiteAnalysis, WebsiteData: website},
		{SearchID: searchID, Stage: services.StageKeywordsGenerated, Keywords: models.KeywordList{Values: demoKeywords, Present: true}},
		{SearchID: searchID, Stage: services.StageConversationsFinal, Platform: string(models.Reddit), PassedPosts: models.PassedPosts{Markdown: []string{f.Reddit}}},
		{SearchID: searchID, Stage: services.StageLinkedInFinal, LinkedInFinal: f.LinkedIn},
	}
}
