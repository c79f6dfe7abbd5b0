package users

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidUser indicates an empty user identifier.
var ErrInvalidUser = errors.New("users: invalid user id")

// ServiceConfig describes the dependencies required for profile management.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages user profiles, favorites and download history.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the profile service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// EnsureProfile returns the profile for userID, creating one on first sight and
// refreshing the contact fields when they change.
func (s *Service) EnsureProfile(userID, email, displayName string) (Profile, error) {
	userID = normalize(userID)
	if userID == "" {
		return Profile{}, ErrInvalidUser
	}

	var profile Profile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = Profile{
			UserID:      userID,
			Email:       normalize(email),
			DisplayName: normalize(displayName),
			Favorites:   []string{},
			Downloads:   []string{},
			LastSeenAt:  s.now(),
		}
		if err := s.db.Create(&profile).Error; err != nil {
			return Profile{}, err
		}
		return profile, nil
	}
	if err != nil {
		return Profile{}, err
	}

	updates := map[string]interface{}{"last_seen_at": s.now()}
	if value := normalize(email); value != "" && value != profile.Email {
		updates["email"] = value
		profile.Email = value
	}
	if value := normalize(displayName); value != "" && value != profile.DisplayName {
		updates["display_name"] = value
		profile.DisplayName = value
	}
	if err := s.db.Model(&Profile{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// GetProfile returns the stored profile for userID.
func (s *Service) GetProfile(userID string) (Profile, error) {
	userID = normalize(userID)
	if userID == "" {
		return Profile{}, ErrInvalidUser
	}
	var profile Profile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// AddFavorite appends appID to the user's favorites if not already present.
func (s *Service) AddFavorite(userID, appID string) error {
	return s.appendRef(userID, appID, "favorites", func(p *Profile) *[]string { return &p.Favorites })
}

// RemoveFavorite deletes appID from the user's favorites.
func (s *Service) RemoveFavorite(userID, appID string) error {
	profile, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(profile.Favorites))
	for _, id := range profile.Favorites {
		if id != appID {
			kept = append(kept, id)
		}
	}
	return s.db.Model(&Profile{}).Where("user_id = ?", profile.UserID).
		Update("favorites", kept).Error
}

// RecordDownload appends appID to the user's download history if not already present.
func (s *Service) RecordDownload(userID, appID string) error {
	return s.appendRef(userID, appID, "downloads", func(p *Profile) *[]string { return &p.Downloads })
}

func (s *Service) appendRef(userID, appID, column string, field func(*Profile) *[]string) error {
	profile, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	refs := *field(&profile)
	for _, id := range refs {
		if id == appID {
			return nil
		}
	}
	refs = append(refs, appID)
	return s.db.Model(&Profile{}).Where("user_id = ?", profile.UserID).
		Update(column, refs).Error
}
