package domain

import "time"

type Review struct {
	ID             int64     `db:"id"`
	UserID         string    `db:"user_id"`
	BookID         int64     `db:"book_id"`
	ParentReviewID *int64    `db:"parent_review_id"`
	Rating         int       `db:"rating"` // 1..5 top-level, 0 for replies
	Comment        string    `db:"comment"`
	ReviewDate     time.Time `db:"-"`

	AuthorName string `db:"author_name"`
}

func (r Review) IsReply() bool { return r.ParentReviewID != nil }

type ReviewThread struct {
	Review
	Replies []Review
}
