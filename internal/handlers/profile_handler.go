package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/profile"
)

// ProfileHandler handles HTTP requests related to the user's profile
type ProfileHandler struct {
	profiles *profile.Service
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterProfileRoutes registers profile-related routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
}

// GetProfile refreshes and returns the authenticated user's profile. The
// cached copy is served when the remote store is unreachable.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID := c.Get("userID").(string)

	p, err := h.profiles.Refresh(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profileResponse(p))
}

// UpdateProfile applies the submitted fields and saves the profile.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID := c.Get("userID").(string)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid profile payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p := h.profiles.Current(userID)
	if p == nil {
		var err error
		if p, err = h.profiles.Refresh(c.Request().Context(), userID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Handle != "" {
		p.Handle = req.Handle
	}
	if req.School != "" {
		p.School = req.School
	}
	if req.Major != "" {
		p.Major = req.Major
	}
	if req.Bio != "" {
		p.Bio = req.Bio
	}

	if err := h.profiles.Update(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profileResponse(p))
}

func profileResponse(p *models.UserProfile) echo.Map {
	return echo.Map{"profile": p, "rank_title": p.RankTitle()}
}
