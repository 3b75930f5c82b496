package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type OrderRepo struct{ q sqlx.ExtContext }

func NewOrderRepo(q sqlx.ExtContext) *OrderRepo { return &OrderRepo{q: q} }

type orderRow struct {
	domain.Order
	Date      string  `db:"order_date"`
	Cancelled *string `db:"cancelled_at"`
	Fulfilled *string `db:"fulfilled_at"`
}

func (r orderRow) toDomain() domain.Order {
	o := r.Order
	o.OrderDate = parseTS(r.Date)
	o.CancelledAt = parseNullTS(r.Cancelled)
	o.FulfilledAt = parseNullTS(r.Fulfilled)
	return o
}

const orderSelect = `
	  SELECT o.user_id, o.book_id, o.order_date, o.order_no, o.quantity, o.total_price, o.claim_code, o.status,
	         o.is_cancelled, o.is_fulfilled, o.cancelled_at, o.fulfilled_at, b.title AS book_title
	  FROM orders o JOIN books b ON b.id = o.book_id`

// Insert stores a new order. The claim code and order number must be unique.
func (r *OrderRepo) Insert(ctx context.Context, o domain.Order) error {
	_, err := r.q.ExecContext(ctx, `
	  INSERT INTO orders(user_id, book_id, order_date, order_no, quantity, total_price, claim_code, status,
	    is_cancelled, is_fulfilled, cancelled_at, fulfilled_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.UserID, o.BookID, domain.FormatTime(o.OrderDate), o.OrderNo, o.Quantity, o.TotalPrice, o.ClaimCode,
		o.Status, o.IsCancelled, o.IsFulfilled, fmtNullTS(o.CancelledAt), fmtNullTS(o.FulfilledAt))
	return err
}

// Get returns the order for key or sql.ErrNoRows.
func (r *OrderRepo) Get(ctx context.Context, key domain.OrderKey) (domain.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, r.q, &row, orderSelect+`
	  WHERE o.user_id = ? AND o.book_id = ? AND o.order_date = ?`,
		key.UserID, key.BookID, domain.FormatTime(key.OrderDate))
	if err != nil {
		return domain.Order{}, err
	}
	return row.toDomain(), nil
}

// ByClaimCode returns the order carrying code or sql.ErrNoRows.
func (r *OrderRepo) ByClaimCode(ctx context.Context, code string) (domain.Order, error) {
	var row orderRow
	if err := sqlx.GetContext(ctx, r.q, &row, orderSelect+` WHERE o.claim_code = ?`, code); err != nil {
		return domain.Order{}, err
	}
	return row.toDomain(), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, orderSelect+`
	  WHERE o.user_id = ?
	  ORDER BY o.order_date DESC, o.order_no DESC`, userID); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// CountPending counts orders that are neither cancelled nor received.
func (r *OrderRepo) CountPending(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `
	  SELECT COUNT(*) FROM orders
	  WHERE user_id = ? AND is_cancelled = 0 AND status <> ?`, userID, domain.StatusReceived)
	return n, err
}

func (r *OrderRepo) ClaimCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM orders WHERE claim_code = ?`, code)
	return n > 0, err
}

// NextOrderNo must be called inside the transaction that inserts the order.
func (r *OrderRepo) NextOrderNo(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.q, &n, `SELECT COALESCE(MAX(order_no), 0) + 1 FROM orders`)
	return n, err
}

// HasPurchased reports whether the user holds a non-cancelled order for the book.
func (r *OrderRepo) HasPurchased(ctx context.Context, userID string, bookID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `
	  SELECT COUNT(*) FROM orders WHERE user_id = ? AND book_id = ? AND is_cancelled = 0`, userID, bookID)
	return n > 0, err
}

// MarkCancelled flips an open order to Cancelled. It reports false if the order was already terminal.
func (r *OrderRepo) MarkCancelled(ctx context.Context, key domain.OrderKey, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
	  UPDATE orders SET is_cancelled = 1, cancelled_at = ?, status = ?
	  WHERE user_id = ? AND book_id = ? AND order_date = ?
	    AND is_cancelled = 0 AND is_fulfilled = 0 AND status <> ?`,
		domain.FormatTime(at), domain.StatusCancelled,
		key.UserID, key.BookID, domain.FormatTime(key.OrderDate), domain.StatusReceived)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkFulfilled flips an open order to Received. It reports false if the order changed underneath.
func (r *OrderRepo) MarkFulfilled(ctx context.Context, claimCode string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
	  UPDATE orders SET is_fulfilled = 1, fulfilled_at = ?, status = ?
	  WHERE claim_code = ? AND is_cancelled = 0 AND is_fulfilled = 0`,
		domain.FormatTime(at), domain.StatusReceived, claimCode)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a terminal order. Open orders are left untouched.
func (r *OrderRepo) Delete(ctx context.Context, key domain.OrderKey) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
	  DELETE FROM orders
	  WHERE user_id = ? AND book_id = ? AND order_date = ?
	    AND (is_cancelled = 1 OR status = ?)`,
		key.UserID, key.BookID, domain.FormatTime(key.OrderDate), domain.StatusReceived)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
