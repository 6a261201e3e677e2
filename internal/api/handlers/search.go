package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/middleware"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type SearchHandler struct {
	searchService *services.SearchService
	logger        *logrus.Logger
}

func NewSearchHandler(searchService *services.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// CreateSearch stores a search and triggers the selected workflows
func (h *SearchHandler) CreateSearch(c *gin.Context) {
	req, err := bindCreateSearch(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user := middleware.CurrentUser(c)
	search, err := h.searchService.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeError(c, h.logger, err, "Failed to process search request")
		return
	}

	c.JSON(http.StatusCreated, models.CreateSearchResponse{
		Success:  true,
		SearchID: search.ID,
		Message:  "Search request submitted successfully",
	})
}

// bindCreateSearch decodes leniently so that wrongly typed fields reach the
// service validation instead of failing the whole bind.
func bindCreateSearch(c *gin.Context) (models.CreateSearchRequest, error) {
	var raw struct {
		ProductURL json.RawMessage   `json:"productUrl"`
		Platforms  []json.RawMessage `json:"platforms"`
	}
	var req models.CreateSearchRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return req, err
		}
	}

	_ = json.Unmarshal(raw.ProductURL, &req.ProductURL)
	for _, item := range raw.Platforms {
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			name = string(item)
		}
		req.Platforms = append(req.Platforms, name)
	}
	return req, nil
}

// ListSearches returns the search history, newest first
func (h *SearchHandler) ListSearches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	searches, err := h.searchService.List(c.Request.Context(), middleware.CurrentUser(c).ID, limit, offset)
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch searches")
		return
	}

	views := make([]models.SearchView, 0, len(searches))
	for i := range searches {
		views = append(views, models.NewSearchView(&searches[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (h *SearchHandler) GetStats(c *gin.Context) {
	stats, err := h.searchService.Stats(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch search stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *SearchHandler) GetSearch(c *gin.Context) {
	search, err := h.searchService.Get(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch search")
		return
	}
	c.JSON(http.StatusOK, models.NewSearchView(search))
}

func (h *SearchHandler) GetConversations(c *gin.Context) {
	conversations, err := h.searchService.Conversations(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch conversations")
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *SearchHandler) DeleteSearch(c *gin.Context) {
	if err := h.searchService.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUser(c).ID); err != nil {
		writeError(c, h.logger, err, "Failed to delete search")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Search deleted successfully")
}
