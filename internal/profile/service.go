// Package profile keeps the authenticated user's profile as a read-through
// cache of the remote copy, and applies reputation awards locally before the
// best-effort remote write.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/stores"
)

const cachedProfileKey = "user_profile"

var log = logrus.WithField("package", "profile")

// Service owns the cached profile for one authenticated user.
type Service struct {
	store stores.ProfileStore
	local stores.LocalStore

	mu     sync.Mutex
	cached *models.UserProfile
}

// NewService creates a new profile Service
func NewService(store stores.ProfileStore, local stores.LocalStore) *Service {
	return &Service{store: store, local: local}
}

// Refresh fetches the remote profile and refreshes the cache; it is called
// on session start. A missing remote row is initialized to an empty profile.
// When the remote fetch fails, a previously cached copy keeps the session
// usable.
func (s *Service) Refresh(ctx context.Context, userID string) (*models.UserProfile, error) {
	remote, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if cached := s.fromCache(userID); cached != nil {
			log.WithError(err).Warn("profile fetch failed, serving cached copy")
			return cached, nil
		}
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}

	if remote == nil {
		remote = &models.UserProfile{ID: userID}
		if err := s.store.SaveProfile(ctx, remote); err != nil {
			log.WithError(err).Warn("failed to initialize remote profile")
		}
	}

	s.cache(remote)
	return remote, nil
}

// Current returns the cached profile for the user, or nil when nothing has
// been cached yet.
func (s *Service) Current(userID string) *models.UserProfile {
	return s.fromCache(userID)
}

// Update saves the edited profile remotely and refreshes the cache.
func (s *Service) Update(ctx context.Context, p *models.UserProfile) error {
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	s.cache(p)
	return nil
}

// AwardReputation adds points to the cached profile immediately and then to
// the remote row. The remote write uses an atomic increment so concurrent
// awards never lose points.
func (s *Service) AwardReputation(ctx context.Context, userID string, points int) error {
	if cached := s.fromCache(userID); cached != nil {
		cached.Reputation += points
		s.cache(cached)
	}
	if err := s.store.AddReputation(ctx, userID, points); err != nil {
		return fmt.Errorf("failed to award reputation remotely: %w", err)
	}
	return nil
}

func (s *Service) cache(p *models.UserProfile) {
	cp := *p

	s.mu.Lock()
	s.cached = &cp
	s.mu.Unlock()

	data, err := json.Marshal(cp)
	if err != nil {
		log.WithError(err).Error("failed to encode cached profile")
		return
	}
	if err := s.local.Set(cachedProfileKey, data); err != nil {
		log.WithError(err).Error("failed to persist cached profile")
	}
}

func (s *Service) fromCache(userID string) *models.UserProfile {
	s.mu.Lock()
	if s.cached != nil && s.cached.ID == userID {
		cp := *s.cached
		s.mu.Unlock()
		return &cp
	}
	s.mu.Unlock()

	data, err := s.local.Get(cachedProfileKey)
	if err != nil || data == nil {
		return nil
	}
	var p models.UserProfile
	if err := json.Unmarshal(data, &p); err != nil || p.ID != userID {
		return nil
	}

	s.mu.Lock()
	s.cached = &p
	s.mu.Unlock()
	cp := p
	return &cp
}
