package domain

import "time"

type Announcement struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"-"`
	StartDate time.Time `db:"-"`
	ExpiresAt time.Time `db:"-"`
}

func (a Announcement) ActiveAt(now time.Time) bool {
	return !now.Before(a.StartDate) && !now.After(a.ExpiresAt)
}
