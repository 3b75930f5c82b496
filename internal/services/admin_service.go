package services

import (
	"context"
	"fmt"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/media"
	"booknook/internal/repos"
)

// AdminService manages accounts on behalf of administrators.
type AdminService struct {
	Store *repos.Store
	Auth  *AuthService
	Media *media.Store
}

func NewAdminService(store *repos.Store, auth *AuthService, m *media.Store) *AdminService {
	return &AdminService{Store: store, Auth: auth, Media: m}
}

func (s *AdminService) Users(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users.ListWithRoles(ctx)
}

func (s *AdminService) User(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Store.Users.ByID(ctx, id)
	if isNoRows(err) {
		return nil, domain.E(domain.ErrNotFound, "User not found.")
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.Store.Users.Roles(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

// SendDeletionNotice flags the account and emails its owner. The flag is kept even if the email fails,
// which is reported as DependencyFailure.
func (s *AdminService) SendDeletionNotice(ctx context.Context, id string) error {
	return s.setPendingDeletion(ctx, id, true, "deletion_notice", SubjectDeletionNotice)
}

func (s *AdminService) CancelDeletion(ctx context.Context, id string) error {
	return s.setPendingDeletion(ctx, id, false, "deletion_cancelled", SubjectDeletionCancelled)
}

func (s *AdminService) setPendingDeletion(ctx context.Context, id string, pending bool, tmpl, subject string) error {
	u, err := s.User(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Users.SetPendingDeletion(ctx, id, pending); err != nil {
		return fmt.Errorf("flag user: %w", err)
	}
	body, err := renderEmail(tmpl, emailData{Name: u.DisplayName()})
	if err != nil {
		return err
	}
	if err := s.Auth.Mail.Send(ctx, u.Email, subject, body); err != nil {
		return domain.Wrap(domain.ErrDependencyFailure, "The account was updated but the email could not be sent.", err)
	}
	return nil
}

// DeleteUser removes an account and its profile image. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return domain.E(domain.ErrForbidden, "You cannot delete your own account.")
	}
	u, err := s.User(ctx, id)
	if err != nil {
		return err
	}
	err = s.Store.InTx(ctx, func(st *repos.Store) error {
		ok, err := st.Users.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if !ok {
			return domain.E(domain.ErrNotFound, "User not found.")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Media.Delete(u.ProfileImageURL); err != nil {
		l := applog.Service("admin")
		l.Warn().Err(err).Str("user_id", id).Msg("user.image.delete_failed")
	}
	return nil
}

// CreateStaff provisions a confirmed Staff account. The welcome email is best-effort; its failure is
// reported in MailErr.
func (s *AdminService) CreateStaff(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	u, err := s.Auth.createAccount(ctx, in, domain.RoleStaff, true)
	if err != nil {
		return RegisterResult{}, err
	}
	res := RegisterResult{User: u}
	body, err := renderEmail("staff_welcome", emailData{Name: u.DisplayName(), Email: u.Email, Link: s.Auth.BaseURL + "/login"})
	if err != nil {
		res.MailErr = err
		return res, nil
	}
	res.MailErr = s.Auth.Mail.Send(ctx, u.Email, SubjectStaffWelcome, body)
	return res, nil
}
