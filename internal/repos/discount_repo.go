package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type DiscountRepo struct{ q sqlx.ExtContext }

func NewDiscountRepo(q sqlx.ExtContext) *DiscountRepo { return &DiscountRepo{q: q} }

type discountRow struct {
	domain.TimedDiscount
	Start   string `db:"start_date"`
	Expires string `db:"expires_at"`
}

func (r discountRow) toDomain() domain.TimedDiscount {
	d := r.TimedDiscount
	d.StartDate = parseTS(r.Start)
	d.ExpiresAt = parseTS(r.Expires)
	return d
}

const discountCols = `id, book_id, discount_percentage, start_date, expires_at, on_sale_flag`

// ActiveForBooks returns every discount active at now for the given books, ordered by id.
// Picking one per book is left to the caller's tie-break policy.
func (r *DiscountRepo) ActiveForBooks(ctx context.Context, bookIDs []int64, now time.Time) ([]domain.TimedDiscount, error) {
	if len(bookIDs) == 0 {
		return nil, nil
	}
	nowS := domain.FormatTime(now)
	query, args, err := sqlx.In(`
	  SELECT `+discountCols+` FROM timed_discounts
	  WHERE book_id IN (?) AND start_date <= ? AND expires_at >= ?
	  ORDER BY id`, bookIDs, nowS, nowS)
	if err != nil {
		return nil, err
	}
	var rows []discountRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]domain.TimedDiscount, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ForBook lists all discounts of a book, newest start first, for the admin screen.
func (r *DiscountRepo) ForBook(ctx context.Context, bookID int64) ([]domain.TimedDiscount, error) {
	var rows []discountRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+discountCols+` FROM timed_discounts WHERE book_id = ? ORDER BY start_date DESC, id DESC`, bookID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TimedDiscount, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *DiscountRepo) Create(ctx context.Context, d domain.TimedDiscount) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
	  INSERT INTO timed_discounts(book_id, discount_percentage, start_date, expires_at, on_sale_flag)
	  VALUES(?,?,?,?,?)`,
		d.BookID, d.Fraction.InexactFloat64(), domain.FormatTime(d.StartDate), domain.FormatTime(d.ExpiresAt), d.OnSaleFlag)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteForBook removes every discount of a book.
func (r *DiscountRepo) DeleteForBook(ctx context.Context, bookID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM timed_discounts WHERE book_id = ?`, bookID)
	return err
}

func (r *DiscountRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM timed_discounts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
