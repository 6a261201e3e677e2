package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/metrics"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Workflow callback stages.
const (
	StageWebsiteAnalysis      = "website_analysis"
	StageKeywordsGenerated    = "keywords_generated"
	StageConversationsPartial = "conversations_partial"
	StageConversationsFinal   = "conversations_final"
	StageLinkedInFinal        = "linkedin_final"
)

// WebhookService applies workflow callbacks to the stored searches.
type WebhookService struct {
	repoManager *repository.RepositoryManager
	cache       *database.Cache
	logger      *logrus.Logger
}

func NewWebhookService(repoManager *repository.RepositoryManager, cache *database.Cache, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		repoManager: repoManager,
		cache:       cache,
		logger:      logger,
	}
}

// Handle processes one callback. Client mistakes come back as errors matching
// ErrValidation, ErrSearchNotFound, ErrInvalidPlatform or ErrUnknownStage.
func (s *WebhookService) Handle(ctx context.Context, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	resp, err := s.handle(ctx, cb)

	outcome := "ok"
	switch {
	case err == nil && cb.Error != "":
		outcome = "error"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSearchNotFound),
		errors.Is(err, ErrInvalidPlatform), errors.Is(err, ErrUnknownStage):
		outcome = "rejected"
	case err != nil:
		outcome = "failed"
	}
	metrics.WebhookCallbacksTotal.WithLabelValues(stageLabel(cb.Stage), outcome).Inc()

	return resp, err
}

func (s *WebhookService) handle(ctx context.Context, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	if strings.TrimSpace(cb.SearchID) == "" {
		return nil, validationError("Missing searchId")
	}

	search, err := s.repoManager.Search.GetByID(ctx, cb.SearchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSearchNotFound
		}
		return nil, fmt.Errorf("load search: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"search_id": search.ID,
		"stage":     cb.Stage,
		"platform":  cb.Platform,
	})

	if cb.Error != "" {
		if err := s.repoManager.Search.MarkFailed(ctx, search.ID, string(cb.Error)); err != nil {
			return nil, fmt.Errorf("record workflow error: %w", err)
		}
		s.invalidateStats(ctx, search.UserID)
		metrics.SearchesFinishedTotal.WithLabelValues(string(models.SearchFailed)).Inc()
		log.WithField("workflow_error", string(cb.Error)).Warn("Workflow reported an error")
		return &models.WebhookResponse{Success: true, Message: "Error recorded"}, nil
	}

	platform := models.Reddit
	if raw := strings.TrimSpace(cb.Platform); raw != "" {
		name, ok := models.ParsePlatformName(raw)
		if !ok {
			return nil, newClientError(ErrInvalidPlatform, "Invalid platform: "+cb.Platform)
		}
		platform = name
	}

	switch {
	case cb.Stage == StageWebsiteAnalysis:
		return s.websiteAnalysis(ctx, log, search, platform, cb)
	case cb.Stage == StageKeywordsGenerated:
		return s.keywordsGenerated(ctx, log, search, platform, cb)
	case cb.Stage == StageLinkedInFinal:
		return s.linkedInFinal(ctx, log, search, cb)
	case strings.HasPrefix(cb.Stage, StageConversationsPartial), cb.Stage == StageConversationsFinal:
		return s.conversations(ctx, log, search, platform, cb)
	}

	return nil, newClientError(ErrUnknownStage, "Unknown stage: "+cb.Stage)
}

func (s *WebhookService) websiteAnalysis(ctx context.Context, log *logrus.Entry, search *models.Search, platform models.PlatformName, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	if info, ok := cb.FirstWebsiteData(); ok {
		stored, err := s.repoManager.Search.SetWebsiteInfoOnce(ctx, search.ID, datatypes.JSON(info))
		if err != nil {
			return nil, fmt.Errorf("store website info: %w", err)
		}
		if !stored {
			log.Debug("Website info already set, discarding")
		}
	}

	if err := s.repoManager.Platform.UpdateStatus(ctx, search.ID, platform, models.PlatformAnalyzing); err != nil {
		return nil, fmt.Errorf("update platform status: %w", err)
	}

	return &models.WebhookResponse{Success: true, Message: "Website analysis received"}, nil
}

func (s *WebhookService) keywordsGenerated(ctx context.Context, log *logrus.Entry, search *models.Search, platform models.PlatformName, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	if cb.Keywords.Present {
		values := cb.Keywords.Values
		if values == nil {
			values = []string{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("encode keywords: %w", err)
		}
		stored, err := s.repoManager.Search.SetKeywordsOnce(ctx, search.ID, datatypes.JSON(data))
		if err != nil {
			return nil, fmt.Errorf("store keywords: %w", err)
		}
		if stored {
			log.WithField("keywords", len(values)).Info("Keywords stored")
		} else {
			log.Debug("Keywords already set, discarding")
		}
	}

	if err := s.repoManager.Platform.UpdateStatus(ctx, search.ID, platform, models.PlatformSearching); err != nil {
		return nil, fmt.Errorf("update platform status: %w", err)
	}

	return &models.WebhookResponse{Success: true, Message: "Keywords received"}, nil
}

func (s *WebhookService) linkedInFinal(ctx context.Context, log *logrus.Entry, search *models.Search, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	conversations := linkedInConversations(cb.LinkedInFinal)

	err := s.repoManager.Conversation.Ingest(ctx, models.IngestBatch{
		SearchID:       search.ID,
		Platform:       models.LinkedIn,
		Conversations:  conversations,
		PlatformStatus: models.PlatformCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest linkedin results: %w", err)
	}
	s.recordIngest(ctx, log, search, models.LinkedIn, len(conversations))

	if err := s.finalize(ctx, log, search.ID); err != nil {
		return nil, err
	}

	count := len(conversations)
	return &models.WebhookResponse{
		Success:            true,
		Message:            "LinkedIn results processed",
		ConversationsCount: &count,
	}, nil
}

// conversations handles the partial and final batches. A final batch only
// completes its platform; whether the search is done is left to finalize.
func (s *WebhookService) conversations(ctx context.Context, log *logrus.Entry, search *models.Search, platform models.PlatformName, cb *models.WebhookCallback) (*models.WebhookResponse, error) {
	final := cb.Stage == StageConversationsFinal
	conversations := passedConversations(cb.PassedPosts, strings.TrimSpace(cb.Keyword))

	batch := models.IngestBatch{
		SearchID:      search.ID,
		Platform:      platform,
		Conversations: conversations,
	}
	if len(conversations) > 0 {
		batch.PlatformStatus = models.PlatformSearching
		batch.SearchStatus = models.SearchSearching
	}
	if final {
		batch.PlatformStatus = models.PlatformCompleted
	}

	if err := s.repoManager.Conversation.Ingest(ctx, batch); err != nil {
		return nil, fmt.Errorf("ingest conversations: %w", err)
	}
	s.recordIngest(ctx, log, search, platform, len(conversations))

	message := "Conversations received"
	if final {
		message = "Final results processed"
		if err := s.finalize(ctx, log, search.ID); err != nil {
			return nil, err
		}
	}

	count := len(conversations)
	return &models.WebhookResponse{
		Success:            true,
		Message:            message,
		ConversationsCount: &count,
		Stage:              cb.Stage,
	}, nil
}

func (s *WebhookService) recordIngest(ctx context.Context, log *logrus.Entry, search *models.Search, platform models.PlatformName, n int) {
	if n == 0 {
		return
	}
	metrics.ConversationsIngestedTotal.WithLabelValues(string(platform)).Add(float64(n))
	s.invalidateStats(ctx, search.UserID)
	log.WithField("conversations", n).Info("Conversations ingested")
}

// finalize writes the aggregate status once every selected platform is done.
func (s *WebhookService) finalize(ctx context.Context, log *logrus.Entry, searchID string) error {
	status, changed, err := s.repoManager.Search.Finalize(ctx, searchID)
	if err != nil {
		return fmt.Errorf("finalize search: %w", err)
	}
	if changed {
		metrics.SearchesFinishedTotal.WithLabelValues(string(status)).Inc()
		log.WithField("status", status).Info("Search finished")
	}
	return nil
}

func (s *WebhookService) invalidateStats(ctx context.Context, userID string) {
	if err := s.cache.InvalidateSearchStats(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate cached stats")
	}
}

// stageLabel bounds the metric label values to the known stages.
func stageLabel(stage string) string {
	switch {
	case stage == StageWebsiteAnalysis, stage == StageKeywordsGenerated,
		stage == StageConversationsFinal, stage == StageLinkedInFinal:
		return stage
	case strings.HasPrefix(stage, StageConversationsPartial):
		return StageConversationsPartial
	case stage == "":
		return "none"
	}
	return "unknown"
}
