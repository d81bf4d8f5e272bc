package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geodrop-app/geodrop/backend/internal/feed"
	"github.com/geodrop-app/geodrop/backend/internal/models"
)

const (
	maxImagesPerPost = 4
	maxImageBytes    = 10 << 20
)

// PostHandler handles HTTP requests that mutate drops
type PostHandler struct {
	mutations    *feed.PostMutationService
	synchronizer *feed.FeedSynchronizer
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(mutations *feed.PostMutationService, synchronizer *feed.FeedSynchronizer) *PostHandler {
	return &PostHandler{mutations: mutations, synchronizer: synchronizer}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.POST("/posts/:post_id/like", h.ToggleLike)
	g.DELETE("/posts/:post_id", h.DeletePost)
	g.POST("/posts/:post_id/report", h.ReportPost)
}

// CreatePost accepts a multipart submission: a "post" JSON part plus up to
// four "images" file parts. The handler hands the draft to the mutation
// service and returns immediately; uploads and the remote write continue in
// the background, so the authoring client is never blocked on them.
func (h *PostHandler) CreatePost(c echo.Context) error {
	authorID := c.Get("userID").(string)

	var req models.CreatePostRequest
	if err := json.Unmarshal([]byte(c.FormValue("post")), &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	images, err := h.readImages(c)
	if err != nil {
		return err
	}

	draft := feed.Draft{
		Title:     req.Title,
		Caption:   req.Caption,
		Category:  req.Category,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Images:    images,
	}

	id := h.mutations.Create(draft, authorID)
	return c.JSON(http.StatusAccepted, echo.Map{"id": id})
}

// ToggleLike flips the like state for the authenticated device and returns
// the updated published copy.
func (h *PostHandler) ToggleLike(c echo.Context) error {
	postID := c.Param("post_id")

	h.mutations.ToggleLike(postID)

	for _, post := range h.synchronizer.Posts() {
		if post.ID == postID {
			return c.JSON(http.StatusOK, post)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// DeletePost removes the drop. Only the author may delete it. The response
// returns as soon as the post is gone locally; the remote document and blob
// deletes continue in the background.
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID := c.Get("userID").(string)
	postID := c.Param("post_id")

	for _, post := range h.synchronizer.Posts() {
		if post.ID != postID {
			continue
		}
		if post.AuthorID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "Only the author may delete a drop")
		}
		h.mutations.Delete(postID)
		return c.NoContent(http.StatusNoContent)
	}
	return echo.NewHTTPError(http.StatusNotFound, "Post not found")
}

// ReportPost files a moderation record. The acknowledgement is the only
// feedback; nothing changes in the feed.
func (h *PostHandler) ReportPost(c echo.Context) error {
	reporterID := c.Get("userID").(string)
	postID := c.Param("post_id")

	var req models.ReportPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid report payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	h.mutations.Report(postID, reporterID, req.Reason)
	return c.JSON(http.StatusAccepted, echo.Map{"message": "Report received"})
}

func (h *PostHandler) readImages(c echo.Context) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// A drop without images is a plain form post.
		return nil, nil
	}

	files := form.File["images"]
	if len(files) > maxImagesPerPost {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Too many images")
	}

	var images [][]byte
	for _, fh := range files {
		if fh.Size > maxImageBytes {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image too large")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable image")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable image")
		}
		images = append(images, data)
	}
	return images, nil
}
