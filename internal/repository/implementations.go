package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/leadscout/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeSearchStatuses = []models.SearchStatus{
	models.SearchPending,
	models.SearchAnalyzing,
	models.SearchSearching,
}

// searchStatusExpr moves a search to target only from an earlier status.
func searchStatusExpr(target models.SearchStatus) clause.Expr {
	return gorm.Expr("CASE WHEN status IN (?) THEN ? ELSE status END", models.StatusesBefore(target), target)
}

// platformStatusExpr moves a platform to a running target only from an
// earlier running status. Terminal targets always apply.
func platformStatusExpr(target models.PlatformStatus) interface{} {
	if target.IsTerminal() {
		return target
	}
	return gorm.Expr("CASE WHEN status IN (?) THEN ? ELSE status END", models.PlatformStatusesBefore(target), target)
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) models.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchRepositoryImpl implements SearchRepository
type SearchRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) models.SearchRepository {
	return &SearchRepositoryImpl{db: db}
}

func orderPlatforms(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC")
}

// CreateWithPlatforms inserts the search, one platform row per known
// platform and bumps the owner's search count in a single transaction.
func (r *SearchRepositoryImpl) CreateWithPlatforms(ctx context.Context, search *models.Search, selected []models.PlatformName) error {
	isSelected := make(map[models.PlatformName]bool, len(selected))
	for _, name := range selected {
		isSelected[name] = true
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(search).Error; err != nil {
			return fmt.Errorf("create search: %w", err)
		}

		platforms := make([]models.Platform, 0, len(models.AllPlatforms))
		for _, name := range models.AllPlatforms {
			platforms = append(platforms, models.Platform{
				SearchID: search.ID,
				Name:     name,
				Selected: isSelected[name],
				Status:   models.PlatformPending,
			})
		}
		if err := tx.Create(&platforms).Error; err != nil {
			return fmt.Errorf("create platforms: %w", err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", search.UserID).
			UpdateColumn("search_count", gorm.Expr("search_count + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("increment search count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("increment search count: %w", gorm.ErrRecordNotFound)
		}

		search.Platforms = platforms
		return nil
	})
}

func (r *SearchRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Search, error) {
	var search models.Search
	err := r.db.WithContext(ctx).Preload("Platforms", orderPlatforms).First(&search, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &search, nil
}

func (r *SearchRepositoryImpl) GetForUser(ctx context.Context, id, userID string) (*models.Search, error) {
	var search models.Search
	err := r.db.WithContext(ctx).
		Preload("Platforms", orderPlatforms).
		Where("id = ? AND user_id = ?", id, userID).
		First(&search).Error
	if err != nil {
		return nil, err
	}
	return &search, nil
}

func (r *SearchRepositoryImpl) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Search, error) {
	var searches []models.Search
	err := r.db.WithContext(ctx).
		Preload("Platforms", orderPlatforms).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&searches).Error
	return searches, err
}

// Delete removes the search with its platforms and conversations.
func (r *SearchRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("search_id = ?", id).Delete(&models.Conversation{}).Error; err != nil {
			return fmt.Errorf("delete conversations: %w", err)
		}
		if err := tx.Where("search_id = ?", id).Delete(&models.Platform{}).Error; err != nil {
			return fmt.Errorf("delete platforms: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Search{})
		if res.Error != nil {
			return fmt.Errorf("delete search: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *SearchRepositoryImpl) Stats(ctx context.Context, userID string, monthStart time.Time) (*models.SearchStats, error) {
	db := r.db.WithContext(ctx)
	owned := func() *gorm.DB {
		return db.Model(&models.Search{}).Where("user_id = ?", userID)
	}

	stats := &models.SearchStats{Recent: []models.RecentSearch{}}
	if err := owned().Count(&stats.TotalSearches).Error; err != nil {
		return nil, fmt.Errorf("count searches: %w", err)
	}
	if err := owned().Where("status IN ?", activeSearchStatuses).Count(&stats.ActiveSearches).Error; err != nil {
		return nil, fmt.Errorf("count active searches: %w", err)
	}
	if err := owned().Select("COALESCE(SUM(results_count), 0)").Scan(&stats.TotalLeads).Error; err != nil {
		return nil, fmt.Errorf("sum results: %w", err)
	}
	if err := owned().Where("created_at >= ?", monthStart).Count(&stats.SearchesThisMonth).Error; err != nil {
		return nil, fmt.Errorf("count monthly searches: %w", err)
	}
	err := owned().
		Select("id, product_url, created_at, results_count").
		Order("created_at DESC").
		Limit(5).
		Scan(&stats.Recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	return stats, nil
}

// SetWebsiteInfoOnce stores the analysis only while none is stored yet.
// It reports whether this call won.
func (r *SearchRepositoryImpl) SetWebsiteInfoOnce(ctx context.Context, id string, info datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Search{}).
		Where("id = ? AND website_info IS NULL", id).
		Updates(map[string]interface{}{
			"website_info": info,
			"status":       searchStatusExpr(models.SearchAnalyzing),
		})
	return res.RowsAffected == 1, res.Error
}

// SetKeywordsOnce stores the keyword list only while none is stored yet.
func (r *SearchRepositoryImpl) SetKeywordsOnce(ctx context.Context, id string, keywords datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Search{}).
		Where("id = ? AND keywords IS NULL", id).
		Updates(map[string]interface{}{
			"keywords": keywords,
			"status":   searchStatusExpr(models.SearchSearching),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *SearchRepositoryImpl) SetPreview(ctx context.Context, id string, preview datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&models.Search{}).
		Where("id = ?", id).
		UpdateColumn("preview", preview).Error
}

func (r *SearchRepositoryImpl) MarkFailed(ctx context.Context, id, message string) error {
	return r.db.WithContext(ctx).Model(&models.Search{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.SearchFailed,
			"error_message": message,
		}).Error
}

// Finalize re-reads the platform rows under a lock on the search row and
// writes the aggregate outcome once every selected platform is terminal.
// changed is false when nothing was written.
func (r *SearchRepositoryImpl) Finalize(ctx context.Context, id string) (status models.SearchStatus, changed bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var search models.Search
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&search, "id = ?", id).Error; err != nil {
			return err
		}
		status = search.Status

		var platforms []models.Platform
		if err := tx.Where("search_id = ?", id).Find(&platforms).Error; err != nil {
			return fmt.Errorf("load platforms: %w", err)
		}

		outcome, done := models.AggregateStatus(platforms)
		if !done || outcome == search.Status {
			return nil
		}
		// A failure reported by the workflow itself stands.
		if search.Status == models.SearchFailed && search.ErrorMessage != nil {
			return nil
		}

		if err := tx.Model(&search).Update("status", outcome).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		status, changed = outcome, true
		return nil
	})
	return status, changed, err
}

// PlatformRepositoryImpl implements PlatformRepository
type PlatformRepositoryImpl struct {
	db *gorm.DB
}

func NewPlatformRepository(db *gorm.DB) models.PlatformRepository {
	return &PlatformRepositoryImpl{db: db}
}

func (r *PlatformRepositoryImpl) UpdateStatus(ctx context.Context, searchID string, name models.PlatformName, status models.PlatformStatus) error {
	return r.db.WithContext(ctx).Model(&models.Platform{}).
		Where("search_id = ? AND name = ?", searchID, name).
		Update("status", platformStatusExpr(status)).Error
}

func (r *PlatformRepositoryImpl) MarkFailed(ctx context.Context, searchID string, name models.PlatformName, message string) error {
	return r.db.WithContext(ctx).Model(&models.Platform{}).
		Where("search_id = ? AND name = ?", searchID, name).
		Updates(map[string]interface{}{
			"status":        models.PlatformFailed,
			"error_message": message,
		}).Error
}

// ConversationRepositoryImpl implements ConversationRepository
type ConversationRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) models.ConversationRepository {
	return &ConversationRepositoryImpl{db: db}
}

// Ingest inserts a batch and applies the matching counter increments and
// status moves in one transaction, so a search's results count always
// equals its conversation rows.
func (r *ConversationRepositoryImpl) Ingest(ctx context.Context, batch models.IngestBatch) error {
	n := len(batch.Conversations)
	if n == 0 && batch.PlatformStatus == "" && batch.SearchStatus == "" {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if n > 0 {
			for i := range batch.Conversations {
				batch.Conversations[i].SearchID = batch.SearchID
				batch.Conversations[i].Platform = batch.Platform
			}
			if err := tx.CreateInBatches(&batch.Conversations, 100).Error; err != nil {
				return fmt.Errorf("insert conversations: %w", err)
			}
		}

		platformUpdates := map[string]interface{}{}
		if n > 0 {
			platformUpdates["results_count"] = gorm.Expr("results_count + ?", n)
		}
		if batch.PlatformStatus != "" {
			platformUpdates["status"] = platformStatusExpr(batch.PlatformStatus)
		}
		if len(platformUpdates) > 0 {
			err := tx.Model(&models.Platform{}).
				Where("search_id = ? AND name = ?", batch.SearchID, batch.Platform).
				Updates(platformUpdates).Error
			if err != nil {
				return fmt.Errorf("update platform: %w", err)
			}
		}

		searchUpdates := map[string]interface{}{}
		if n > 0 {
			searchUpdates["results_count"] = gorm.Expr("results_count + ?", n)
		}
		if batch.SearchStatus != "" {
			searchUpdates["status"] = searchStatusExpr(batch.SearchStatus)
		}
		if len(searchUpdates) > 0 {
			err := tx.Model(&models.Search{}).
				Where("id = ?", batch.SearchID).
				Updates(searchUpdates).Error
			if err != nil {
				return fmt.Errorf("update search: %w", err)
			}
		}
		return nil
	})
}

// ListBySearch orders by relevance (unscored last), then newest first.
func (r *ConversationRepositoryImpl) ListBySearch(ctx context.Context, searchID string) ([]models.Conversation, error) {
	conversations := []models.Conversation{}
	err := r.db.WithContext(ctx).
		Where("search_id = ?", searchID).
		Order("relevance_score IS NULL, relevance_score DESC, found_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	User         models.UserRepository
	Search       models.SearchRepository
	Platform     models.PlatformRepository
	Conversation models.ConversationRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		User:         NewUserRepository(db),
		Search:       NewSearchRepository(db),
		Platform:     NewPlatformRepository(db),
		Conversation: NewConversationRepository(db),
	}
}
