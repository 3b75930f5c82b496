package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscountWindowIsInclusive(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	d := TimedDiscount{Fraction: decimal.RequireFromString("0.15"), StartDate: start, ExpiresAt: end}

	assert.True(t, d.ActiveAt(start))
	assert.True(t, d.ActiveAt(end))
	assert.False(t, d.ActiveAt(start.Add(-time.Nanosecond)))
	assert.False(t, d.ActiveAt(end.Add(time.Nanosecond)))
	assert.True(t, d.Percent().Equal(decimal.NewFromInt(15)))
}

func TestAnnouncementActiveAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := Announcement{StartDate: start, ExpiresAt: start.Add(time.Hour)}
	assert.True(t, a.ActiveAt(start.Add(30*time.Minute)))
	assert.False(t, a.ActiveAt(start.Add(2*time.Hour)))
}

func TestPricedBookFlags(t *testing.T) {
	p := PricedBook{Book: Book{Quantity: 0}}
	assert.False(t, p.IsAvailable())
	assert.False(t, p.IsDiscountActive())
	assert.False(t, p.OnSale())

	p.Quantity = 1
	p.Discount = &TimedDiscount{OnSaleFlag: true}
	assert.True(t, p.IsAvailable())
	assert.True(t, p.IsDiscountActive())
	assert.True(t, p.OnSale())
}

func TestUserRoles(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.Equal(t, "", nobody.DisplayName())

	staff := &User{Email: "s@x.test", Roles: []string{RoleStaff}}
	assert.True(t, staff.CanFulfill())
	assert.False(t, staff.IsAdmin())
	assert.Equal(t, "s@x.test", staff.DisplayName(), "falls back to the email")

	admin := &User{FirstName: "Ada", LastName: "Admin", Roles: []string{RoleAdmin}}
	assert.True(t, admin.CanFulfill())
	assert.Equal(t, "Ada Admin", admin.DisplayName())
}

func TestErrorCodes(t *testing.T) {
	err := Wrap(ErrDependencyFailure, "Mail is down.", assert.AnError)
	assert.True(t, Is(err, ErrDependencyFailure))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ErrCode(""), CodeOf(assert.AnError))
}
