package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type ReviewRepo struct{ q sqlx.ExtContext }

func NewReviewRepo(q sqlx.ExtContext) *ReviewRepo { return &ReviewRepo{q: q} }

type reviewRow struct {
	domain.Review
	Date string `db:"review_date"`
}

const reviewSelect = `
	  SELECT r.id, r.user_id, r.book_id, r.parent_review_id, r.rating, r.comment, r.review_date,
	         TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, '')) AS author_name
	  FROM reviews r LEFT JOIN users u ON u.id = r.user_id`

func (r *ReviewRepo) Get(ctx context.Context, id int64) (domain.Review, error) {
	var row reviewRow
	if err := sqlx.GetContext(ctx, r.q, &row, reviewSelect+` WHERE r.id = ?`, id); err != nil {
		return domain.Review{}, err
	}
	rv := row.Review
	rv.ReviewDate = parseTS(row.Date)
	return rv, nil
}

// ForBook returns every review and reply of a book, oldest first.
func (r *ReviewRepo) ForBook(ctx context.Context, bookID int64) ([]domain.Review, error) {
	var rows []reviewRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, reviewSelect+`
	  WHERE r.book_id = ?
	  ORDER BY r.review_date, r.id`, bookID); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		rv := row.Review
		rv.ReviewDate = parseTS(row.Date)
		out = append(out, rv)
	}
	return out, nil
}

// HasTopLevel reports whether the user already reviewed the book.
func (r *ReviewRepo) HasTopLevel(ctx context.Context, userID string, bookID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, `
	  SELECT COUNT(*) FROM reviews WHERE user_id = ? AND book_id = ? AND parent_review_id IS NULL`, userID, bookID)
	return n > 0, err
}

func (r *ReviewRepo) Insert(ctx context.Context, rv domain.Review) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
	  INSERT INTO reviews(user_id, book_id, parent_review_id, rating, comment, review_date)
	  VALUES(?,?,?,?,?,?)`,
		rv.UserID, rv.BookID, rv.ParentReviewID, rv.Rating, rv.Comment, domain.FormatTime(rv.ReviewDate))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
