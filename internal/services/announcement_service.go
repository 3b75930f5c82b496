package services

import (
	"context"
	"fmt"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
	"booknook/internal/textfmt"
)

type AnnouncementService struct {
	Store *repos.Store
	Pub   Publisher
	Now   func() time.Time
}

func NewAnnouncementService(store *repos.Store, pub Publisher) *AnnouncementService {
	return &AnnouncementService{Store: store, Pub: pub, Now: time.Now}
}

// AnnouncementInput is what the admin form submits. A zero Start means "now".
type AnnouncementInput struct {
	Title     string
	Message   string
	Start     time.Time
	ExpiresAt time.Time
}

func (in AnnouncementInput) clean(now time.Time) (domain.Announcement, error) {
	a := domain.Announcement{
		Title:     textfmt.Plain(in.Title),
		Message:   textfmt.Plain(in.Message),
		StartDate: in.Start.UTC(),
		ExpiresAt: in.ExpiresAt.UTC(),
	}
	if a.Message == "" {
		return a, domain.E(domain.ErrValidationFailed, "Message is required.")
	}
	if a.StartDate.IsZero() {
		a.StartDate = now
	}
	if !a.ExpiresAt.After(now) {
		return a, domain.E(domain.ErrValidationFailed, "Expiry must be in the future.")
	}
	if !a.ExpiresAt.After(a.StartDate) {
		return a, domain.E(domain.ErrValidationFailed, "Expiry must be after the start.")
	}
	return a, nil
}

// Broadcast pushes a one-off message to every connected client. Nothing is stored.
func (s *AnnouncementService) Broadcast(message string) error {
	msg := textfmt.Plain(message)
	if msg == "" {
		return domain.E(domain.ErrValidationFailed, "Message is required.")
	}
	s.Pub.Publish(EventAnnouncement, AnnouncementPayload{Message: msg})
	return nil
}

// CreateTimed stores an announcement shown on the home page until it expires, and pushes it now.
func (s *AnnouncementService) CreateTimed(ctx context.Context, in AnnouncementInput) (domain.Announcement, error) {
	now := s.Now().UTC()
	a, err := in.clean(now)
	if err != nil {
		return domain.Announcement{}, err
	}
	a.CreatedAt = now
	id, err := s.Store.Announcements.Create(ctx, a)
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("create announcement: %w", err)
	}
	a.ID = id
	s.Pub.Publish(EventTimedAnnouncement, AnnouncementPayload{
		Title:     a.Title,
		Message:   a.Message,
		ExpiresAt: domain.FormatTime(a.ExpiresAt),
	})
	return a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, id int64, in AnnouncementInput) error {
	a, err := in.clean(s.Now().UTC())
	if err != nil {
		return err
	}
	a.ID = id
	ok, err := s.Store.Announcements.Update(ctx, a)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Announcement not found.")
	}
	return nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id int64) error {
	ok, err := s.Store.Announcements.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Announcement not found.")
	}
	return nil
}

func (s *AnnouncementService) Get(ctx context.Context, id int64) (domain.Announcement, error) {
	a, err := s.Store.Announcements.Get(ctx, id)
	if isNoRows(err) {
		return a, domain.E(domain.ErrNotFound, "Announcement not found.")
	}
	return a, err
}

func (s *AnnouncementService) Active(ctx context.Context) ([]domain.Announcement, error) {
	return s.Store.Announcements.Active(ctx, s.Now())
}

// Unexpired includes scheduled announcements that have not started yet.
func (s *AnnouncementService) Unexpired(ctx context.Context) ([]domain.Announcement, error) {
	return s.Store.Announcements.Unexpired(ctx, s.Now())
}
