package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geodrop-app/geodrop/backend/internal/models"
)

// ProfileStore defines the interface for the remote user profile store.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	// AddReputation atomically adds points to the stored reputation so
	// concurrent awards never lose an increment.
	AddReputation(ctx context.Context, id string, points int) error
}

// PostgresProfileStore implements ProfileStore for PostgreSQL
type PostgresProfileStore struct {
	db *gorm.DB
}

// NewPostgresProfileStore creates a new PostgresProfileStore
func NewPostgresProfileStore(db *gorm.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

// GetProfile retrieves a profile by user ID, returning nil when absent.
func (s *PostgresProfileStore) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile upserts the profile row. Reputation is deliberately left out
// of the conflict update; it only moves through AddReputation.
func (s *PostgresProfileStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "handle", "school", "major", "bio", "avatar_url"}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// AddReputation increments the reputation column in place.
func (s *PostgresProfileStore) AddReputation(ctx context.Context, id string, points int) error {
	err := s.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("id = ?", id).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", points)).Error
	if err != nil {
		return fmt.Errorf("failed to add reputation: %w", err)
	}
	return nil
}
