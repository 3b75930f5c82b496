package domain

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
	RoleUser  = "User"
)

type User struct {
	ID              string `db:"id"`
	Email           string `db:"email"`
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	Hash            string `db:"password_hash"`
	EmailConfirmed  bool   `db:"email_confirmed"`
	ProfileImageURL string `db:"profile_image_url"`
	PendingDeletion bool   `db:"pending_deletion"`

	// Roles are looked up per request, never persisted on the user row.
	Roles []string `db:"-"`
}

func (u *User) HasRole(role string) bool { return u != nil && slices.Contains(u.Roles, role) }

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// CanFulfill is true for staff and admins.
func (u *User) CanFulfill() bool { return u.HasRole(RoleStaff) || u.HasRole(RoleAdmin) }

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// CartLine is one (user, book) cart row joined with the live book row.
type CartLine struct {
	BookID        int64           `db:"book_id"`
	Quantity      int             `db:"quantity"`
	Title         string          `db:"title"`
	Author        string          `db:"author"`
	CoverImageURL string          `db:"cover_image_url"`
	Price         decimal.Decimal `db:"price"`
	Stock         int             `db:"stock"`
}
