package repos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type BookRepo struct{ q sqlx.ExtContext }

func NewBookRepo(q sqlx.ExtContext) *BookRepo { return &BookRepo{q: q} }

const bookCols = `b.id, b.title, b.author, b.genre, b.description, b.price, b.quantity, b.isbn, b.language,
  b.format, b.publisher, b.cover_image_url, b.is_physical_library_access, b.is_bestseller, b.is_award_winner,
  b.is_coming_soon, b.publication_date, b.release_date, b.added_date`

// Average of top-level ratings and units sold in non-cancelled orders, joined onto b.
const bookStatsJoin = `
  LEFT JOIN (SELECT book_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count
             FROM reviews WHERE parent_review_id IS NULL GROUP BY book_id) rs ON rs.book_id = b.id
  LEFT JOIN (SELECT book_id, SUM(quantity) AS sold
             FROM orders WHERE is_cancelled = 0 GROUP BY book_id) os ON os.book_id = b.id`

type bookRow struct {
	domain.Book
	Published string  `db:"publication_date"`
	Released  *string `db:"release_date"`
	Added     string  `db:"added_date"`
}

func (r bookRow) toDomain() domain.Book {
	b := r.Book
	b.PublicationDate = parseTS(r.Published)
	b.ReleaseDate = parseNullTS(r.Released)
	b.AddedDate = parseTS(r.Added)
	return b
}

type statRow struct {
	bookRow
	Rating float64 `db:"rating"`
	Sold   int     `db:"sold"`
}

func (r statRow) toDomain() domain.PricedBook {
	return domain.PricedBook{Book: r.bookRow.toDomain(), Rating: r.Rating, Sold: r.Sold}
}

func statsToDomain(rows []statRow) []domain.PricedBook {
	out := make([]domain.PricedBook, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func (r *BookRepo) Get(ctx context.Context, id int64) (domain.Book, error) {
	var row bookRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+bookCols+` FROM books b WHERE b.id = ?`, id)
	if err != nil {
		return domain.Book{}, err
	}
	return row.toDomain(), nil
}

// GetWithStats is Get plus the rating average and units sold.
func (r *BookRepo) GetWithStats(ctx context.Context, id int64) (domain.PricedBook, error) {
	var row statRow
	err := sqlx.GetContext(ctx, r.q, &row, `
	  SELECT `+bookCols+`, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold
	  FROM books b`+bookStatsJoin+`
	  WHERE b.id = ?`, id)
	if err != nil {
		return domain.PricedBook{}, err
	}
	return row.toDomain(), nil
}

// likeArg wraps s for a LIKE ... ESCAPE '\' contains match.
func likeArg(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func catalogWhere(f domain.CatalogFilter, now time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}
	nowS := domain.FormatTime(now)

	if s := strings.TrimSpace(f.Search); s != "" {
		p := likeArg(s)
		add(`(b.title LIKE ? ESCAPE '\' OR b.isbn LIKE ? ESCAPE '\' OR b.description LIKE ? ESCAPE '\')`, p, p, p)
	}
	if s := strings.TrimSpace(f.Author); s != "" {
		add(`b.author LIKE ? ESCAPE '\'`, likeArg(s))
	}
	if s := strings.TrimSpace(f.Genre); s != "" {
		add(`b.genre = ?`, s)
	}
	switch f.Availability {
	case domain.AvailabilityAvailable:
		add(`b.quantity > 0`)
	case domain.AvailabilityUnavailable:
		add(`b.quantity = 0`)
	}
	if f.PhysicalAccess {
		add(`b.is_physical_library_access = 1`)
	}
	if f.MinPrice != nil {
		add(`b.price >= ?`, f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		add(`b.price <= ?`, f.MaxPrice.InexactFloat64())
	}
	if f.MinRating > 0 {
		add(`COALESCE(rs.avg_rating, 0) >= ?`, f.MinRating)
	}
	if s := strings.TrimSpace(f.Language); s != "" {
		add(`b.language = ?`, s)
	}
	if s := strings.TrimSpace(f.Format); s != "" {
		add(`b.format = ?`, s)
	}
	if s := strings.TrimSpace(f.Publisher); s != "" {
		add(`b.publisher LIKE ? ESCAPE '\'`, likeArg(s))
	}
	if s := strings.TrimSpace(f.ISBN); s != "" {
		add(`b.isbn LIKE ? ESCAPE '\'`, likeArg(s))
	}

	switch f.Category {
	case domain.CategoryBestsellers:
		add(`b.is_bestseller = 1`)
	case domain.CategoryAwardWinners:
		add(`b.is_award_winner = 1`)
	case domain.CategoryNewReleases:
		add(`b.publication_date >= ? AND b.publication_date <= ?`, domain.FormatTime(now.AddDate(0, -3, 0)), nowS)
	case domain.CategoryNewArrivals:
		add(`b.added_date >= ?`, domain.FormatTime(now.AddDate(0, -1, 0)))
	case domain.CategoryComingSoon:
		add(`(b.is_coming_soon = 1 OR b.publication_date > ?)`, nowS)
	case domain.CategoryDeals:
		add(`EXISTS (SELECT 1 FROM timed_discounts d
		             WHERE d.book_id = b.id AND d.start_date <= ? AND d.expires_at >= ?)`, nowS, nowS)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func catalogOrder(sort string) string {
	switch sort {
	case domain.SortAuthor:
		return ` ORDER BY b.author COLLATE NOCASE, b.title COLLATE NOCASE, b.id`
	case domain.SortPublicationDate:
		return ` ORDER BY b.publication_date DESC, b.id`
	case domain.SortPrice:
		return ` ORDER BY b.price, b.id`
	case domain.SortPopularity:
		return ` ORDER BY COALESCE(os.sold, 0) DESC, b.title COLLATE NOCASE, b.id`
	default:
		return ` ORDER BY b.title COLLATE NOCASE, b.id`
	}
}

// List returns one page of books matching f and the total match count. Discounts are left unresolved.
func (r *BookRepo) List(ctx context.Context, f domain.CatalogFilter, now time.Time) ([]domain.PricedBook, int, error) {
	where, args := catalogWhere(f, now)
	from := ` FROM books b` + bookStatsJoin + where

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*)`+from, args...); err != nil {
		return nil, 0, err
	}

	var rows []statRow
	query := `SELECT ` + bookCols + `, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold` +
		from + catalogOrder(f.Sort) + ` LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, f.Offset())
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return statsToDomain(rows), total, nil
}

func (r *BookRepo) Newest(ctx context.Context, limit int) ([]domain.PricedBook, error) {
	var rows []statRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+bookCols+`, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold
	  FROM books b`+bookStatsJoin+`
	  ORDER BY b.added_date DESC, b.id DESC
	  LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return statsToDomain(rows), nil
}

// MostRated lists other books ordered by number of top-level reviews.
func (r *BookRepo) MostRated(ctx context.Context, excludeID int64, limit int) ([]domain.PricedBook, error) {
	var rows []statRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+bookCols+`, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold
	  FROM books b`+bookStatsJoin+`
	  WHERE b.id <> ?
	  ORDER BY COALESCE(rs.review_count, 0) DESC, COALESCE(rs.avg_rating, 0) DESC, b.id
	  LIMIT ?`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return statsToDomain(rows), nil
}

// MostOrdered lists other books ordered by units sold.
func (r *BookRepo) MostOrdered(ctx context.Context, excludeID int64, limit int) ([]domain.PricedBook, error) {
	var rows []statRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+bookCols+`, COALESCE(rs.avg_rating, 0) AS rating, COALESCE(os.sold, 0) AS sold
	  FROM books b`+bookStatsJoin+`
	  WHERE b.id <> ?
	  ORDER BY COALESCE(os.sold, 0) DESC, b.id
	  LIMIT ?`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return statsToDomain(rows), nil
}

func (r *BookRepo) Create(ctx context.Context, b domain.Book) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
	  INSERT INTO books(title, author, genre, description, price, quantity, isbn, language, format, publisher,
	    cover_image_url, is_physical_library_access, is_bestseller, is_award_winner, is_coming_soon,
	    publication_date, release_date, added_date)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Author, b.Genre, b.Description, b.Price, b.Quantity, b.ISBN, b.Language, b.Format, b.Publisher,
		b.CoverImageURL, b.IsPhysicalLibraryAccess, b.IsBestseller, b.IsAwardWinner, b.IsComingSoon,
		domain.FormatTime(b.PublicationDate), fmtNullTS(b.ReleaseDate), domain.FormatTime(b.AddedDate))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update overwrites the editable columns. added_date is immutable.
func (r *BookRepo) Update(ctx context.Context, b domain.Book) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
	  UPDATE books SET title=?, author=?, genre=?, description=?, price=?, quantity=?, isbn=?, language=?,
	    format=?, publisher=?, cover_image_url=?, is_physical_library_access=?, is_bestseller=?,
	    is_award_winner=?, is_coming_soon=?, publication_date=?, release_date=?
	  WHERE id=?`,
		b.Title, b.Author, b.Genre, b.Description, b.Price, b.Quantity, b.ISBN, b.Language,
		b.Format, b.Publisher, b.CoverImageURL, b.IsPhysicalLibraryAccess, b.IsBestseller,
		b.IsAwardWinner, b.IsComingSoon, domain.FormatTime(b.PublicationDate), fmtNullTS(b.ReleaseDate), b.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a book. Replies go first because the review self-reference restricts deletes.
func (r *BookRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM reviews WHERE book_id=? AND parent_review_id IS NOT NULL`, id); err != nil {
		return false, err
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
