package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

// Store bundles every repository over one query target: the pool, or a transaction from InTx.
type Store struct {
	db   *sqlx.DB
	inTx bool

	Books         *BookRepo
	Discounts     *DiscountRepo
	Inventory     *InventoryRepo
	Carts         *CartRepo
	Wishlists     *WishlistRepo
	Orders        *OrderRepo
	Reviews       *ReviewRepo
	Announcements *AnnouncementRepo
	Users         *UserRepo
	Facets        *FacetRepo
}

func NewStore(db *sqlx.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q sqlx.ExtContext) *Store {
	return &Store{
		Books:         NewBookRepo(q),
		Discounts:     NewDiscountRepo(q),
		Inventory:     NewInventoryRepo(q),
		Carts:         NewCartRepo(q),
		Wishlists:     NewWishlistRepo(q),
		Orders:        NewOrderRepo(q),
		Reviews:       NewReviewRepo(q),
		Announcements: NewAnnouncementRepo(q),
		Users:         NewUserRepo(q),
		Facets:        NewFacetRepo(q),
	}
}

// DB exposes the pool for health checks and shutdown.
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx runs fn against repositories bound to a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Calls made on a Store that is already transactional just run fn.
//
// The pool holds one connection, so fn must only use the Store it is given.
func (s *Store) InTx(ctx context.Context, fn func(*Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txs := bind(tx)
	txs.inTx = true
	if err := fn(txs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// parseTS reads a timestamp this package wrote; unreadable values come back as the zero time.
func parseTS(s string) time.Time {
	t, err := domain.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTS(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTS(*s)
	return &t
}

func fmtNullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.FormatTime(*t)
}
