package repos

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientStock is returned by Decrement when the guarded update matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryRepo struct{ q sqlx.ExtContext }

func NewInventoryRepo(q sqlx.ExtContext) *InventoryRepo { return &InventoryRepo{q: q} }

// Row used by the admin stock overview.
type InventoryRow struct {
	BookID   int64  `db:"book_id"`
	Title    string `db:"title"`
	Quantity int    `db:"quantity"`
}

func (r *InventoryRepo) ListAll(ctx context.Context) ([]InventoryRow, error) {
	var rows []InventoryRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT id AS book_id, title, quantity
		FROM books
		ORDER BY quantity, title COLLATE NOCASE
	`)
	return rows, err
}

// Qty returns current stock for a book.
// If the book does not exist it returns sql.ErrNoRows.
func (r *InventoryRepo) Qty(ctx context.Context, bookID int64) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.q, &qty, `SELECT quantity FROM books WHERE id = ?`, bookID)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Decrement atomically subtracts "by" units if enough stock exists.
func (r *InventoryRepo) Decrement(ctx context.Context, bookID int64, by int) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE books
		SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?
	`, by, bookID, by)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Restore puts "by" units back on the shelf.
func (r *InventoryRepo) Restore(ctx context.Context, bookID int64, by int) error {
	_, err := r.q.ExecContext(ctx, `UPDATE books SET quantity = quantity + ? WHERE id = ?`, by, bookID)
	return err
}
