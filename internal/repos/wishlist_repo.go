package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type WishlistRepo struct{ q sqlx.ExtContext }

func NewWishlistRepo(q sqlx.ExtContext) *WishlistRepo { return &WishlistRepo{q: q} }

func (r *WishlistRepo) Add(ctx context.Context, userID string, bookID int64) error {
	_, err := r.q.ExecContext(ctx, `
	  INSERT INTO wishlists(user_id, book_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(user_id, book_id) DO NOTHING
	`, userID, bookID)
	return err
}

func (r *WishlistRepo) Remove(ctx context.Context, userID string, bookID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM wishlists WHERE user_id=? AND book_id=?`, userID, bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *WishlistRepo) Contains(ctx context.Context, userID string, bookID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM wishlists WHERE user_id=? AND book_id=?`, userID, bookID)
	return n > 0, err
}

// Books lists the wishlisted books with stats, by title. Discounts are resolved by the caller.
func (r *WishlistRepo) Books(ctx context.Context, userID string) ([]domain.PricedBook, error) {
	var rows []statRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+bookCols+`, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold
	  FROM wishlists w
	  JOIN books b ON b.id = w.book_id`+bookStatsJoin+`
	  WHERE w.user_id = ?
	  ORDER BY b.title COLLATE NOCASE, b.id`, userID)
	if err != nil {
		return nil, err
	}
	return statsToDomain(rows), nil
}
