package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geodrop-app/geodrop/backend/internal/feed"
	"github.com/geodrop-app/geodrop/backend/internal/models"
)

// FeedHandler serves the published post list kept by the synchronizer
type FeedHandler struct {
	synchronizer *feed.FeedSynchronizer
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(synchronizer *feed.FeedSynchronizer) *FeedHandler {
	return &FeedHandler{synchronizer: synchronizer}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/live", h.StreamFeed)
	g.GET("/feed/detail/:post_id", h.OpenDetail)
	g.DELETE("/feed/detail", h.CloseDetail)
	g.GET("/categories", h.GetCategories)
}

// GetFeed returns the current published list, optionally filtered by
// category.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	posts := h.synchronizer.Posts()

	if category := models.Category(c.QueryParam("category")); category != "" {
		if !category.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown category")
		}
		filtered := make([]models.Post, 0, len(posts))
		for _, p := range posts {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}

	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "count": len(posts)})
}

// StreamFeed streams the published list over server-sent events: the
// current list once on connect, then the full list again after every
// publish, until the client disconnects.
func (h *FeedHandler) StreamFeed(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	changes, unsubscribe := h.synchronizer.Subscribe()
	defer unsubscribe()

	if err := h.writeSnapshot(c); err != nil {
		return nil
	}

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-changes:
			if err := h.writeSnapshot(c); err != nil {
				return nil
			}
		}
	}
}

func (h *FeedHandler) writeSnapshot(c echo.Context) error {
	data, err := json.Marshal(h.synchronizer.Posts())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

// OpenDetail binds the detail view to a post and returns its live copy.
func (h *FeedHandler) OpenDetail(c echo.Context) error {
	post, ok := h.synchronizer.OpenDetail(c.Param("post_id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return c.JSON(http.StatusOK, post)
}

// CloseDetail clears the detail binding.
func (h *FeedHandler) CloseDetail(c echo.Context) error {
	h.synchronizer.CloseDetail()
	return c.NoContent(http.StatusNoContent)
}

// GetCategories returns the closed category set with its rendering metadata.
func (h *FeedHandler) GetCategories(c echo.Context) error {
	type categoryInfo struct {
		ID    models.Category `json:"id"`
		Icon  string          `json:"icon"`
		Color string          `json:"color"`
	}

	categories := make([]categoryInfo, 0, len(models.Categories()))
	for _, cat := range models.Categories() {
		categories = append(categories, categoryInfo{ID: cat, Icon: cat.Icon(), Color: cat.Color()})
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}
