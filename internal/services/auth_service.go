package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/mailer"
	"booknook/internal/repos"
	"booknook/internal/tokens"
)

var ErrBadCreds = errors.New("invalid email or password")

const (
	confirmTokenTTL = 48 * time.Hour
	resetTokenTTL   = time.Hour
)

type AuthService struct {
	Store   *repos.Store
	Tokens  *tokens.Issuer
	Mail    mailer.Mailer
	BaseURL string
}

func NewAuthService(store *repos.Store, issuer *tokens.Issuer, mail mailer.Mailer, baseURL string) *AuthService {
	return &AuthService{Store: store, Tokens: issuer, Mail: mail, BaseURL: strings.TrimRight(baseURL, "/")}
}

func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks credentials and binds the session id to the user. Unconfirmed accounts are refused.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Store.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if !u.EmailConfirmed {
		return nil, domain.E(domain.ErrUnauthorized, "Please confirm your email address before signing in.")
	}
	if err := s.Store.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	if u.Roles, err = s.Store.Users.Roles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Store.Users.UnbindSession(ctx, sid)
}

// CurrentUser resolves the session and the user's roles, fresh on every call.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	u, err := s.Store.Users.SessionUser(ctx, sid)
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.Store.Users.Roles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// RegisterResult carries the new account and, separately, whether the confirmation email went out.
type RegisterResult struct {
	User    domain.User
	MailErr error
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	u, err := s.createAccount(ctx, in, domain.RoleUser, false)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{User: u, MailErr: s.SendConfirmation(ctx, &u)}, nil
}

func (s *AuthService) createAccount(ctx context.Context, in RegisterInput, role string, confirmed bool) (domain.User, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:             uuid.NewString(),
		Email:          strings.TrimSpace(in.Email),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Hash:           hash,
		EmailConfirmed: confirmed,
		Roles:          []string{role},
	}
	err = s.Store.InTx(ctx, func(st *repos.Store) error {
		taken, err := st.Users.EmailTaken(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.E(domain.ErrConflict, "An account with this email already exists.")
		}
		if err := st.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return st.Users.AddRole(ctx, u.ID, role)
	})
	return u, err
}

// SendConfirmation mails a signed confirmation link.
func (s *AuthService) SendConfirmation(ctx context.Context, u *domain.User) error {
	tok, err := s.Tokens.Issue(tokens.PurposeConfirmEmail, u.ID, "", confirmTokenTTL)
	if err != nil {
		return err
	}
	body, err := renderEmail("confirm_email", emailData{Name: u.DisplayName(), Link: s.link("/account/confirm", tok)})
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, u.Email, SubjectConfirmEmail, body)
}

// ResendConfirmation mails a new link to an unconfirmed account. Unknown and confirmed addresses are a no-op.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	u, err := s.Store.Users.ByEmail(ctx, strings.TrimSpace(email))
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.EmailConfirmed {
		return nil
	}
	return s.SendConfirmation(ctx, u)
}

func (s *AuthService) link(path, token string) string {
	return s.BaseURL + path + "?token=" + url.QueryEscape(token)
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	claims, err := s.Tokens.Verify(token, tokens.PurposeConfirmEmail)
	if err != nil {
		return domain.E(domain.ErrValidationFailed, "This confirmation link is invalid or has expired.")
	}
	if _, err := s.Store.Users.ByID(ctx, claims.Subject); err != nil {
		if isNoRows(err) {
			return domain.E(domain.ErrNotFound, "Account not found.")
		}
		return err
	}
	return s.Store.Users.ConfirmEmail(ctx, claims.Subject)
}

// ForgotPassword mails a reset link when the address is known. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Store.Users.ByEmail(ctx, strings.TrimSpace(email))
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	tok, err := s.Tokens.Issue(tokens.PurposeResetPassword, u.ID, tokens.Fingerprint(u.Hash), resetTokenTTL)
	if err != nil {
		return err
	}
	body, err := renderEmail("reset_password", emailData{Name: u.DisplayName(), Link: s.link("/account/reset", tok)})
	if err != nil {
		return err
	}
	if err := s.Mail.Send(ctx, u.Email, SubjectResetPassword, body); err != nil {
		l := applog.Service("auth")
		l.Warn().Err(err).Str("user_id", u.ID).Msg("reset.email.failed")
	}
	return nil
}

// ResetPassword accepts a token only while the password it was issued against is still current.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	invalid := domain.E(domain.ErrValidationFailed, "This reset link is invalid or has expired.")
	claims, err := s.Tokens.Verify(token, tokens.PurposeResetPassword)
	if err != nil {
		return invalid
	}
	u, err := s.Store.Users.ByID(ctx, claims.Subject)
	if err != nil {
		return invalid
	}
	if claims.Fingerprint != tokens.Fingerprint(u.Hash) {
		return invalid
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users.SetPassword(ctx, u.ID, hash)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	u, err := s.Store.Users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(current)) != nil {
		return domain.E(domain.ErrValidationFailed, "Current password is incorrect.")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users.SetPassword(ctx, userID, hash)
}
