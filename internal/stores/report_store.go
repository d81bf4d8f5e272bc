package stores

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/geodrop-app/geodrop/backend/internal/models"
)

// ReportStore defines the interface for moderation records.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
}

// PostgresReportStore implements ReportStore for PostgreSQL
type PostgresReportStore struct {
	db *gorm.DB
}

// NewPostgresReportStore creates a new PostgresReportStore
func NewPostgresReportStore(db *gorm.DB) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

// CreateReport appends a moderation record.
func (s *PostgresReportStore) CreateReport(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}
