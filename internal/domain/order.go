package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPlaced    = "Placed"
	StatusCancelled = "Cancelled"
	StatusReceived  = "Received"
)

// DefaultCancelWindow is the grace period after placement during which the owner may cancel.
const DefaultCancelWindow = 24 * time.Hour

// ClaimCodeLength is the length of the token staff use to hand an order over.
const ClaimCodeLength = 8

type Order struct {
	UserID      string          `db:"user_id"`
	BookID      int64           `db:"book_id"`
	OrderDate   time.Time       `db:"-"`
	OrderNo     int64           `db:"order_no"`
	Quantity    int             `db:"quantity"`
	TotalPrice  decimal.Decimal `db:"total_price"`
	ClaimCode   string          `db:"claim_code"`
	Status      string          `db:"status"`
	IsCancelled bool            `db:"is_cancelled"`
	IsFulfilled bool            `db:"is_fulfilled"`
	CancelledAt *time.Time      `db:"-"`
	FulfilledAt *time.Time      `db:"-"`

	// Joined for display.
	BookTitle string `db:"book_title"`
}

func (o Order) Key() OrderKey {
	return OrderKey{UserID: o.UserID, BookID: o.BookID, OrderDate: o.OrderDate}
}

// IsTerminal reports whether the order can only be deleted from here on.
func (o Order) IsTerminal() bool { return o.IsCancelled || o.Status == StatusReceived }

// IsPending counts toward the pending-order badge and the loyalty threshold.
func (o Order) IsPending() bool { return !o.IsCancelled && o.Status != StatusReceived }

func (o Order) IsCancellable(now time.Time, window time.Duration) bool {
	return !o.IsCancelled &&
		!o.IsFulfilled &&
		o.Status != StatusReceived &&
		now.Sub(o.OrderDate) <= window
}

func (o Order) IsDeletable() bool { return o.IsCancelled || o.Status == StatusReceived }

// OrderKey identifies an order: one user, one book, one exact placement time.
type OrderKey struct {
	UserID    string
	BookID    int64
	OrderDate time.Time
}

// String encodes the key as "userId|bookId|orderDate" for forms and bulk actions.
func (k OrderKey) String() string {
	return k.UserID + "|" + strconv.FormatInt(k.BookID, 10) + "|" + FormatTime(k.OrderDate)
}

var errBadOrderKey = errors.New("malformed order key")

func ParseOrderKey(s string) (OrderKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) != 3 || parts[0] == "" {
		return OrderKey{}, errBadOrderKey
	}
	bookID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || bookID <= 0 {
		return OrderKey{}, errBadOrderKey
	}
	at, err := ParseTime(parts[2])
	if err != nil {
		return OrderKey{}, errBadOrderKey
	}
	return OrderKey{UserID: parts[0], BookID: bookID, OrderDate: at}, nil
}
