package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type UserRepo struct{ q sqlx.ExtContext }

func NewUserRepo(q sqlx.ExtContext) *UserRepo { return &UserRepo{q: q} }

const userCols = `u.id, u.email, u.first_name, u.last_name, u.password_hash, u.email_confirmed,
  u.profile_image_url, u.pending_deletion`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.q, &u, `SELECT `+userCols+` FROM users u WHERE LOWER(u.email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.q, &u, `SELECT `+userCols+` FROM users u WHERE u.id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Roles is looked up on every request; nothing caches it.
func (r *UserRepo) Roles(ctx context.Context, userID string) ([]string, error) {
	roles := []string{}
	err := sqlx.SelectContext(ctx, r.q, &roles, `SELECT role FROM user_roles WHERE user_id=? ORDER BY role`, userID)
	return roles, err
}

func (r *UserRepo) AddRole(ctx context.Context, userID, role string) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO user_roles(user_id, role) VALUES(?, ?) ON CONFLICT DO NOTHING`, userID, role)
	return err
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
	  INSERT INTO users(id, email, first_name, last_name, password_hash, email_confirmed, profile_image_url)
	  VALUES(?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Hash, u.EmailConfirmed, u.ProfileImageURL)
	return err
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`, email)
	return n > 0, err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, first, last string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET first_name=?, last_name=? WHERE id=?`, first, last, id)
	return err
}

func (r *UserRepo) SetProfileImage(ctx context.Context, id, url string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET profile_image_url=? WHERE id=?`, url, id)
	return err
}

func (r *UserRepo) SetPassword(ctx context.Context, id, hash string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	return err
}

func (r *UserRepo) ConfirmEmail(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET email_confirmed=1 WHERE id=?`, id)
	return err
}

func (r *UserRepo) SetPendingDeletion(ctx context.Context, id string, pending bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET pending_deletion=? WHERE id=?`, pending, id)
	return err
}

type userWithRoles struct {
	domain.User
	RoleList string `db:"role_list"`
}

// ListWithRoles returns every user with roles attached, sorted by email.
func (r *UserRepo) ListWithRoles(ctx context.Context) ([]domain.User, error) {
	var rows []userWithRoles
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+userCols+`, COALESCE(GROUP_CONCAT(ur.role, ','), '') AS role_list
	  FROM users u LEFT JOIN user_roles ur ON ur.user_id = u.id
	  GROUP BY u.id
	  ORDER BY LOWER(u.email)`); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		u := row.User
		u.Roles = []string{}
		if row.RoleList != "" {
			u.Roles = strings.Split(row.RoleList, ",")
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.q, &u, `
      SELECT `+userCols+`
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// Delete removes the user and everything they own. Replies to the user's reviews are removed
// first because the review self-reference restricts deletes.
func (r *UserRepo) Delete(ctx context.Context, userID string) (bool, error) {
	if _, err := r.q.ExecContext(ctx, `
	  DELETE FROM reviews
	  WHERE parent_review_id IN (SELECT id FROM reviews WHERE user_id = ?)`, userID); err != nil {
		return false, err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, userID); err != nil {
		return false, err
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id=?`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
