package models

import (
	"time"
)

// Category is the closed set of drop categories. Each category carries a
// fixed icon and color pair used only for rendering on the client.
type Category string

const (
	CategoryAlert   Category = "alert"
	CategoryFood    Category = "food"
	CategoryMarket  Category = "market"
	CategoryExplore Category = "explore"
	CategoryCampus  Category = "campus"
)

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{CategoryAlert, CategoryFood, CategoryMarket, CategoryExplore, CategoryCampus}
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryAlert, CategoryFood, CategoryMarket, CategoryExplore, CategoryCampus:
		return true
	}
	return false
}

// Icon returns the symbol name rendered for the category.
func (c Category) Icon() string {
	switch c {
	case CategoryAlert:
		return "exclamationmark.triangle.fill"
	case CategoryFood:
		return "fork.knife"
	case CategoryMarket:
		return "sterlingsign.circle.fill"
	case CategoryExplore:
		return "camera.fill"
	case CategoryCampus:
		return "graduationcap.fill"
	}
	return "mappin"
}

// Color returns the hex color rendered for the category.
func (c Category) Color() string {
	switch c {
	case CategoryAlert:
		return "#FF3B30"
	case CategoryFood:
		return "#FF9500"
	case CategoryMarket:
		return "#34C759"
	case CategoryExplore:
		return "#007AFF"
	case CategoryCampus:
		return "#AF52DE"
	}
	return "#8E8E93"
}

// Post represents a drop: a post anchored to a geographic coordinate,
// stored in MongoDB. IsLiked is never persisted to the remote store; it is
// derived per device from the like ledger and overwritten on every merge.
type Post struct {
	ID        string    `json:"id" bson:"_id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Title     string    `json:"title" bson:"title"`
	Caption   string    `json:"caption" bson:"caption"`
	Category  Category  `json:"category" bson:"category"`
	Latitude  float64   `json:"latitude" bson:"latitude"`
	Longitude float64   `json:"longitude" bson:"longitude"`
	ImageURLs []string  `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	LikeCount int       `json:"like_count" bson:"like_count"`
	IsLiked   bool      `json:"is_liked" bson:"-"`
}

// WithIsLiked returns a copy of the post with the device-local like flag set.
func (p Post) WithIsLiked(liked bool) Post {
	p.IsLiked = liked
	return p
}

// CreatePostRequest defines the request body for creating a new drop
type CreatePostRequest struct {
	Title     string   `json:"title" validate:"required,min=1,max=80"`
	Caption   string   `json:"caption" validate:"max=500"`
	Category  Category `json:"category" validate:"required,oneof=alert food market explore campus"`
	Latitude  float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64  `json:"longitude" validate:"min=-180,max=180"`
}

// ReportPostRequest defines the request body for reporting a drop
type ReportPostRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=300"`
}
