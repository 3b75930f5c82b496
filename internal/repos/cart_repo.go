package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type CartRepo struct{ q sqlx.ExtContext }

func NewCartRepo(q sqlx.ExtContext) *CartRepo { return &CartRepo{q: q} }

const cartLineSelect = `
	  SELECT c.book_id, c.quantity, b.title, b.author, b.cover_image_url, b.price, b.quantity AS stock
	  FROM carts c JOIN books b ON b.id = c.book_id`

// Lines returns the user's cart joined with live book rows, ordered by title.
func (r *CartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	out := []domain.CartLine{}
	err := sqlx.SelectContext(ctx, r.q, &out, cartLineSelect+`
	  WHERE c.user_id = ?
	  ORDER BY b.title COLLATE NOCASE, c.book_id`, userID)
	return out, err
}

// Line returns a single cart line or sql.ErrNoRows.
func (r *CartRepo) Line(ctx context.Context, userID string, bookID int64) (domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.q, &l, cartLineSelect+`
	  WHERE c.user_id = ? AND c.book_id = ?`, userID, bookID)
	return l, err
}

// Quantity returns the quantity already in the cart, 0 when there is no entry.
func (r *CartRepo) Quantity(ctx context.Context, userID string, bookID int64) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.q, &qty, `
	  SELECT COALESCE(SUM(quantity), 0) FROM carts WHERE user_id = ? AND book_id = ?`, userID, bookID)
	return qty, err
}

// AddOrIncrement inserts the line or adds qty to the existing one.
func (r *CartRepo) AddOrIncrement(ctx context.Context, userID string, bookID int64, qty int) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO carts(user_id, book_id, quantity)
		VALUES(?, ?, ?)
		ON CONFLICT(user_id, book_id) DO UPDATE
		SET quantity = carts.quantity + excluded.quantity
	`, userID, bookID, qty)
	return err
}

func (r *CartRepo) SetQuantity(ctx context.Context, userID string, bookID int64, qty int) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE carts SET quantity = ? WHERE user_id = ? AND book_id = ?`, qty, userID, bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *CartRepo) Remove(ctx context.Context, userID string, bookID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ? AND book_id = ?`, userID, bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
	return err
}

// DistinctCount is the number of different books in the cart (the header badge).
func (r *CartRepo) DistinctCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM carts WHERE user_id = ?`, userID)
	return n, err
}
