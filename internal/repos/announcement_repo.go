package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

type AnnouncementRepo struct{ q sqlx.ExtContext }

func NewAnnouncementRepo(q sqlx.ExtContext) *AnnouncementRepo { return &AnnouncementRepo{q: q} }

type announcementRow struct {
	domain.Announcement
	Created string `db:"created_at"`
	Start   string `db:"start_date"`
	Expires string `db:"expires_at"`
}

func (r announcementRow) toDomain() domain.Announcement {
	a := r.Announcement
	a.CreatedAt = parseTS(r.Created)
	a.StartDate = parseTS(r.Start)
	a.ExpiresAt = parseTS(r.Expires)
	return a
}

func announcementsToDomain(rows []announcementRow) []domain.Announcement {
	out := make([]domain.Announcement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

const announcementCols = `id, title, message, created_at, start_date, expires_at`

func (r *AnnouncementRepo) Get(ctx context.Context, id int64) (domain.Announcement, error) {
	var row announcementRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+announcementCols+` FROM timed_announcements WHERE id = ?`, id); err != nil {
		return domain.Announcement{}, err
	}
	return row.toDomain(), nil
}

// Active lists announcements whose window contains now, newest start first.
func (r *AnnouncementRepo) Active(ctx context.Context, now time.Time) ([]domain.Announcement, error) {
	nowS := domain.FormatTime(now)
	var rows []announcementRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+announcementCols+` FROM timed_announcements
	  WHERE start_date <= ? AND expires_at >= ?
	  ORDER BY start_date DESC, id DESC`, nowS, nowS); err != nil {
		return nil, err
	}
	return announcementsToDomain(rows), nil
}

// Unexpired lists everything not yet expired, including scheduled ones (admin view).
func (r *AnnouncementRepo) Unexpired(ctx context.Context, now time.Time) ([]domain.Announcement, error) {
	var rows []announcementRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `
	  SELECT `+announcementCols+` FROM timed_announcements
	  WHERE expires_at >= ?
	  ORDER BY start_date DESC, id DESC`, domain.FormatTime(now)); err != nil {
		return nil, err
	}
	return announcementsToDomain(rows), nil
}

func (r *AnnouncementRepo) Create(ctx context.Context, a domain.Announcement) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
	  INSERT INTO timed_announcements(title, message, created_at, start_date, expires_at)
	  VALUES(?,?,?,?,?)`,
		a.Title, a.Message, domain.FormatTime(a.CreatedAt), domain.FormatTime(a.StartDate), domain.FormatTime(a.ExpiresAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *AnnouncementRepo) Update(ctx context.Context, a domain.Announcement) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
	  UPDATE timed_announcements SET title = ?, message = ?, start_date = ?, expires_at = ? WHERE id = ?`,
		a.Title, a.Message, domain.FormatTime(a.StartDate), domain.FormatTime(a.ExpiresAt), a.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *AnnouncementRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM timed_announcements WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
