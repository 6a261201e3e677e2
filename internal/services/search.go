package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/now"
	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/metrics"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// PreviewFetcher loads a short summary of a product page.
type PreviewFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*models.ProductPreview, error)
}

type SearchService struct {
	repoManager    *repository.RepositoryManager
	dispatcher     *Dispatcher
	previews       PreviewFetcher
	previewTimeout time.Duration
	cache          *database.Cache
	statsTTL       time.Duration
	logger         *logrus.Logger

	background sync.WaitGroup
}

type SearchServiceOptions struct {
	// Previews is optional; nil disables product previews.
	Previews       PreviewFetcher
	PreviewTimeout time.Duration
	Cache          *database.Cache
	StatsTTL       time.Duration
}

func NewSearchService(
	repoManager *repository.RepositoryManager,
	dispatcher *Dispatcher,
	opts SearchServiceOptions,
	logger *logrus.Logger,
) *SearchService {
	if opts.PreviewTimeout <= 0 {
		opts.PreviewTimeout = 10 * time.Second
	}
	return &SearchService{
		repoManager:    repoManager,
		dispatcher:     dispatcher,
		previews:       opts.Previews,
		previewTimeout: opts.PreviewTimeout,
		cache:          opts.Cache,
		statsTTL:       opts.StatsTTL,
		logger:         logger,
	}
}

// parsePlatforms upper-cases and de-duplicates the requested platforms.
func parsePlatforms(raw []string) ([]models.PlatformName, error) {
	if len(raw) == 0 {
		return nil, validationError("At least one platform must be selected")
	}

	var (
		selected []models.PlatformName
		invalid  []string
		seen     = make(map[models.PlatformName]bool)
	)
	for _, p := range raw {
		name, ok := models.ParsePlatformName(p)
		if !ok {
			invalid = append(invalid, p)
			continue
		}
		if !seen[name] {
			seen[name] = true
			selected = append(selected, name)
		}
	}
	if len(invalid) > 0 {
		return nil, validationError("Invalid platforms: " + strings.Join(invalid, ", "))
	}
	return selected, nil
}

// Create stores the search with its platform rows, then triggers the
// workflow of each selected platform before returning.
func (s *SearchService) Create(ctx context.Context, userID string, req models.CreateSearchRequest) (*models.Search, error) {
	productURL := strings.TrimSpace(req.ProductURL)
	if productURL == "" {
		return nil, validationError("Product URL is required and must be a string")
	}
	selected, err := parsePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}

	search := &models.Search{
		UserID:     userID,
		ProductURL: productURL,
		Status:     models.SearchPending,
	}
	if err := s.repoManager.Search.CreateWithPlatforms(ctx, search, selected); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("create search: %w", err)
	}

	metrics.SearchesCreatedTotal.Inc()
	s.invalidateStats(ctx, userID)

	s.logger.WithFields(logrus.Fields{
		"search_id":   search.ID,
		"user_id":     userID,
		"product_url": productURL,
		"platforms":   selected,
	}).Info("Search created")

	s.dispatcher.Dispatch(ctx, search, selected)

	if s.previews != nil {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			ctx, cancel := context.WithTimeout(context.Background(), s.previewTimeout)
			defer cancel()
			s.StorePreview(ctx, search.ID, search.ProductURL)
		}()
	}

	return search, nil
}

// StorePreview fetches the product page summary and stores it on the search.
// Failures are logged only.
func (s *SearchService) StorePreview(ctx context.Context, searchID, productURL string) {
	log := s.logger.WithFields(logrus.Fields{
		"search_id":   searchID,
		"product_url": productURL,
	})

	preview, err := s.previews.Fetch(ctx, productURL)
	if err != nil {
		metrics.PreviewFetchTotal.WithLabelValues("error").Inc()
		log.WithError(err).Warn("Product preview unavailable")
		return
	}

	data, err := json.Marshal(preview)
	if err != nil {
		log.WithError(err).Error("Failed to encode product preview")
		return
	}
	if err := s.repoManager.Search.SetPreview(ctx, searchID, datatypes.JSON(data)); err != nil {
		metrics.PreviewFetchTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("Failed to store product preview")
		return
	}
	metrics.PreviewFetchTotal.WithLabelValues("ok").Inc()
}

// Wait blocks until background preview fetches have finished.
func (s *SearchService) Wait() {
	s.background.Wait()
}

// List returns the user's searches, newest first.
func (s *SearchService) List(ctx context.Context, userID string, limit, offset int) ([]models.Search, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	searches, err := s.repoManager.Search.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	return searches, nil
}

// Get returns a search owned by the user.
func (s *SearchService) Get(ctx context.Context, id, userID string) (*models.Search, error) {
	search, err := s.repoManager.Search.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSearchNotFound
		}
		return nil, fmt.Errorf("get search: %w", err)
	}
	return search, nil
}

// Conversations returns the results of a search owned by the user.
func (s *SearchService) Conversations(ctx context.Context, id, userID string) ([]models.Conversation, error) {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return nil, err
	}
	conversations, err := s.repoManager.Conversation.ListBySearch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// Delete removes a search owned by the user together with its results.
func (s *SearchService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repoManager.Search.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSearchNotFound
		}
		return fmt.Errorf("delete search: %w", err)
	}

	s.invalidateStats(ctx, userID)
	s.logger.WithFields(logrus.Fields{
		"search_id": id,
		"user_id":   userID,
	}).Info("Search deleted")
	return nil
}

// Stats returns the dashboard summary, served from the cache when fresh.
func (s *SearchService) Stats(ctx context.Context, userID string) (*models.SearchStats, error) {
	if cached, err := s.cache.GetCachedSearchStats(ctx, userID); err == nil {
		return cached, nil
	} else if !errors.Is(err, database.ErrCacheMiss) && !errors.Is(err, database.ErrCacheDisabled) {
		s.logger.WithError(err).Warn("Failed to read cached stats")
	}

	stats, err := s.repoManager.Search.Stats(ctx, userID, now.BeginningOfMonth())
	if err != nil {
		return nil, fmt.Errorf("search stats: %w", err)
	}

	if s.statsTTL > 0 {
		if err := s.cache.CacheSearchStats(ctx, userID, stats, s.statsTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache stats")
		}
	}
	return stats, nil
}

func (s *SearchService) invalidateStats(ctx context.Context, userID string) {
	if err := s.cache.InvalidateSearchStats(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate cached stats")
	}
}
