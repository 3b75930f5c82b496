package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"booknook/internal/domain"
	"booknook/internal/media"
	"booknook/internal/repos"
)

const profileImageDir = "profiles"

type ProfileService struct {
	Store *repos.Store
	Media *media.Store
}

func NewProfileService(store *repos.Store, m *media.Store) *ProfileService {
	return &ProfileService{Store: store, Media: m}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Store.Users.ByID(ctx, userID)
	if isNoRows(err) {
		return nil, domain.E(domain.ErrNotFound, "User not found.")
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.Store.Users.Roles(ctx, userID); err != nil {
		return nil, err
	}
	return u, nil
}

// Update saves names and, when image is non-nil, replaces the profile picture.
func (s *ProfileService) Update(ctx context.Context, userID, first, last string, image *multipart.FileHeader) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Store.Users.UpdateProfile(ctx, userID, strings.TrimSpace(first), strings.TrimSpace(last)); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if image == nil {
		return nil
	}
	url, err := s.Media.Replace(image, profileImageDir, u.ProfileImageURL)
	if err != nil {
		return err
	}
	return s.Store.Users.SetProfileImage(ctx, userID, url)
}

func (s *ProfileService) RemoveImage(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.ProfileImageURL == "" {
		return nil
	}
	if err := s.Store.Users.SetProfileImage(ctx, userID, ""); err != nil {
		return err
	}
	return s.Media.Delete(u.ProfileImageURL)
}
