package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type CreateSearchRequest struct {
	ProductURL string   `json:"productUrl"`
	Platforms  []string `json:"platforms"`
}

type CreateSearchResponse struct {
	Success  bool   `json:"success"`
	SearchID string `json:"searchId"`
	Message  string `json:"message"`
}

// SearchView is a search as returned to the dashboard, with the JSON columns
// decoded. Keywords is [] and websiteInfo null until the workflow sets them.
type SearchView struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	ProductURL   string          `json:"productUrl"`
	Status       SearchStatus    `json:"status"`
	Keywords     json.RawMessage `json:"keywords"`
	WebsiteInfo  json.RawMessage `json:"websiteInfo"`
	Preview      json.RawMessage `json:"preview"`
	ResultsCount int             `json:"resultsCount"`
	ErrorMessage *string         `json:"errorMessage"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Platforms    []Platform      `json:"platforms"`
}

func NewSearchView(s *Search) SearchView {
	view := SearchView{
		ID:           s.ID,
		UserID:       s.UserID,
		ProductURL:   s.ProductURL,
		Status:       s.Status,
		Keywords:     json.RawMessage("[]"),
		WebsiteInfo:  json.RawMessage("null"),
		Preview:      json.RawMessage("null"),
		ResultsCount: s.ResultsCount,
		ErrorMessage: s.ErrorMessage,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Platforms:    s.Platforms,
	}
	if !isNullJSON(s.Keywords) {
		view.Keywords = json.RawMessage(s.Keywords)
	}
	if !isNullJSON(s.WebsiteInfo) {
		view.WebsiteInfo = json.RawMessage(s.WebsiteInfo)
	}
	if !isNullJSON(s.Preview) {
		view.Preview = json.RawMessage(s.Preview)
	}
	if view.Platforms == nil {
		view.Platforms = []Platform{}
	}
	return view
}

// isNullJSON is true for unset columns; datatypes.JSON scans NULL as "null".
func isNullJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ProductPreview is the page summary fetched from the product URL.
type ProductPreview struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

type SignupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        *string `json:"name"`
	Image       *string `json:"image"`
	Plan        string  `json:"plan"`
	SearchCount int     `json:"searchCount"`
}

func NewUserView(u *User) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Image:       u.Image,
		Plan:        u.Plan,
		SearchCount: u.SearchCount,
	}
}

type SessionResponse struct {
	User *UserView `json:"user"`
}

type WebhookResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	ConversationsCount *int   `json:"conversationsCount,omitempty"`
	Stage              string `json:"stage,omitempty"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service,omitempty"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// ServiceHealth is the last check result for one dependency.
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}
