package models

// GORM models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SearchStatus is the overall status of a search as shown on the dashboard.
type SearchStatus string

const (
	SearchPending   SearchStatus = "pending"
	SearchAnalyzing SearchStatus = "analyzing"
	SearchSearching SearchStatus = "searching"
	SearchComplete  SearchStatus = "complete"
	SearchFailed    SearchStatus = "failed"
)

// IsTerminal reports whether no further callback may change the status.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchComplete || s == SearchFailed
}

// PlatformStatus is the per-platform progress within a search.
type PlatformStatus string

const (
	PlatformPending   PlatformStatus = "pending"
	PlatformAnalyzing PlatformStatus = "analyzing"
	PlatformSearching PlatformStatus = "searching"
	PlatformCompleted PlatformStatus = "completed"
	PlatformFailed    PlatformStatus = "failed"
)

func (s PlatformStatus) IsTerminal() bool {
	return s == PlatformCompleted || s == PlatformFailed
}

// PlatformName identifies a social source.
type PlatformName string

const (
	Reddit   PlatformName = "REDDIT"
	LinkedIn PlatformName = "LINKEDIN"
	Twitter  PlatformName = "TWITTER"
)

// AllPlatforms lists every platform; each search gets one row per entry.
var AllPlatforms = []PlatformName{Reddit, LinkedIn, Twitter}

// ParsePlatformName normalises a platform name. ok is false for unknown names.
func ParsePlatformName(raw string) (PlatformName, bool) {
	name := PlatformName(strings.ToUpper(strings.TrimSpace(raw)))
	for _, p := range AllPlatforms {
		if p == name {
			return name, true
		}
	}
	return "", false
}

// Base model with common fields
type BaseModel struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *BaseModel) ensureID() {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
}

// User is an account that owns searches.
type User struct {
	BaseModel
	Email        string  `json:"email" gorm:"type:varchar(191);uniqueIndex;not null"`
	Name         *string `json:"name"`
	Image        *string `json:"image"`
	Plan         string  `json:"plan" gorm:"type:varchar(32);default:free"`
	SearchCount  int     `json:"searchCount" gorm:"default:0"`
	PasswordHash string  `json:"-" gorm:"not null"`
}

// Search is one analysis-and-scrape job for a product URL.
// Keywords, WebsiteInfo and Preview are JSON columns that stay NULL until set.
type Search struct {
	BaseModel
	UserID       string         `json:"userId" gorm:"type:varchar(36);index;not null"`
	ProductURL   string         `json:"productUrl" gorm:"not null"`
	Status       SearchStatus   `json:"status" gorm:"type:varchar(16);not null;index"`
	Keywords     datatypes.JSON `json:"-"`
	WebsiteInfo  datatypes.JSON `json:"-"`
	Preview      datatypes.JSON `json:"-"`
	ResultsCount int            `json:"resultsCount" gorm:"not null;default:0"`
	ErrorMessage *string        `json:"errorMessage"`

	// Associations
	User          User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Platforms     []Platform     `json:"platforms" gorm:"foreignKey:SearchID;constraint:OnDelete:CASCADE"`
	Conversations []Conversation `json:"-" gorm:"foreignKey:SearchID;constraint:OnDelete:CASCADE"`
}

// Platform tracks one social source within a search. Exactly one row exists
// per (search, name), created with the search regardless of selection.
type Platform struct {
	ID           string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	SearchID     string         `json:"searchId" gorm:"type:varchar(36);not null;uniqueIndex:idx_platform_search_name"`
	Name         PlatformName   `json:"name" gorm:"type:varchar(16);not null;uniqueIndex:idx_platform_search_name"`
	Selected     bool           `json:"selected" gorm:"not null"`
	Status       PlatformStatus `json:"status" gorm:"type:varchar(16);not null"`
	ResultsCount int            `json:"resultsCount" gorm:"not null;default:0"`
	ErrorMessage *string        `json:"errorMessage"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Conversation is one ingested social post. Rows are never updated.
type Conversation struct {
	ID               string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	SearchID         string       `json:"searchId" gorm:"type:varchar(36);not null;index"`
	Platform         PlatformName `json:"platform" gorm:"type:varchar(16);not null"`
	Title            string       `json:"title"`
	URL              string       `json:"url"`
	Excerpt          string       `json:"excerpt" gorm:"type:text"`
	Author           string       `json:"author"`
	AuthorProfileURL *string      `json:"authorProfileUrl"`
	Subreddit        *string      `json:"subreddit"`
	Keyword          *string      `json:"keyword"`
	Assessment       *string      `json:"assessment"`
	Upvotes          int          `json:"upvotes"`
	Comments         int          `json:"comments"`
	RelevanceScore   *float64     `json:"relevanceScore"`
	PostedAt         time.Time    `json:"postedAt"`
	FoundAt          time.Time    `json:"foundAt" gorm:"autoCreateTime"`
}

// SearchStats is the dashboard summary for one user.
type SearchStats struct {
	TotalSearches     int64          `json:"totalSearches"`
	ActiveSearches    int64          `json:"activeSearches"`
	TotalLeads        int64          `json:"totalLeads"`
	SearchesThisMonth int64          `json:"searchesThisMonth"`
	Recent            []RecentSearch `json:"recent"`
}

type RecentSearch struct {
	ID           string    `json:"id"`
	ProductURL   string    `json:"productUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	ResultsCount int       `json:"resultsCount"`
}

// IngestBatch is one set of conversations written for a platform together
// with the status transitions that accompany it.
type IngestBatch struct {
	SearchID       string
	Platform       PlatformName
	Conversations  []Conversation
	PlatformStatus PlatformStatus
	// SearchStatus is optional; empty leaves the search status untouched.
	SearchStatus SearchStatus
}

// Database interfaces for repository pattern
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type SearchRepository interface {
	CreateWithPlatforms(ctx context.Context, search *Search, selected []PlatformName) error
	GetByID(ctx context.Context, id string) (*Search, error)
	GetForUser(ctx context.Context, id, userID string) (*Search, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]Search, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, userID string, monthStart time.Time) (*SearchStats, error)
	SetWebsiteInfoOnce(ctx context.Context, id string, info datatypes.JSON) (bool, error)
	SetKeywordsOnce(ctx context.Context, id string, keywords datatypes.JSON) (bool, error)
	SetPreview(ctx context.Context, id string, preview datatypes.JSON) error
	MarkFailed(ctx context.Context, id, message string) error
	Finalize(ctx context.Context, id string) (SearchStatus, bool, error)
}

type PlatformRepository interface {
	UpdateStatus(ctx context.Context, searchID string, name PlatformName, status PlatformStatus) error
	MarkFailed(ctx context.Context, searchID string, name PlatformName, message string) error
}

type ConversationRepository interface {
	Ingest(ctx context.Context, batch IngestBatch) error
	ListBySearch(ctx context.Context, searchID string) ([]Conversation, error)
}

// TableName methods for custom table names
func (User) TableName() string         { return "users" }
func (Search) TableName() string       { return "searches" }
func (Platform) TableName() string     { return "platforms" }
func (Conversation) TableName() string { return "conversations" }

// Model validation methods
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

func (s *Search) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if s.ProductURL == "" {
		return fmt.Errorf("product URL is required")
	}
	validStatuses := map[SearchStatus]bool{
		SearchPending:   true,
		SearchAnalyzing: true,
		SearchSearching: true,
		SearchComplete:  true,
		SearchFailed:    true,
	}
	if !validStatuses[s.Status] {
		return fmt.Errorf("invalid search status: %s", s.Status)
	}
	return nil
}

// GORM hooks
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ensureID()
	if u.Plan == "" {
		u.Plan = "free"
	}
	return u.Validate()
}

func (s *Search) BeforeCreate(tx *gorm.DB) error {
	s.ensureID()
	if s.Status == "" {
		s.Status = SearchPending
	}
	return s.Validate()
}

func (p *Platform) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PlatformPending
	}
	return nil
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PostedAt.IsZero() {
		c.PostedAt = time.Now()
	}
	return nil
}
