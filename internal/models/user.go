package models

// UserProfile represents a user's public profile, stored in PostgreSQL and
// cached locally as a read-through copy of the remote row. ID equals the
// authenticated session's user identifier.
type UserProfile struct {
	ID         string `json:"id" gorm:"primaryKey"`
	Name       string `json:"name"`
	Handle     string `json:"handle" gorm:"uniqueIndex"`
	School     string `json:"school"`
	Major      string `json:"major"`
	Bio        string `json:"bio"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	Reputation int    `json:"reputation"`
}

// RankTitle returns the display title earned at the current reputation.
func (p UserProfile) RankTitle() string {
	switch {
	case p.Reputation < 50:
		return "Freshman"
	case p.Reputation < 200:
		return "Explorer"
	case p.Reputation < 500:
		return "Guide"
	default:
		return "Legend"
	}
}

// UpdateProfileRequest defines the request body for editing the profile
type UpdateProfileRequest struct {
	Name   string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Handle string `json:"handle,omitempty" validate:"omitempty,min=2,max=30"`
	School string `json:"school,omitempty" validate:"omitempty,max=80"`
	Major  string `json:"major,omitempty" validate:"omitempty,max=80"`
	Bio    string `json:"bio,omitempty" validate:"omitempty,max=300"`
}
