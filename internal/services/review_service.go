package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
	"booknook/internal/textfmt"
)

const maxCommentLength = 2000

type ReviewService struct {
	Store *repos.Store
	Now   func() time.Time
}

func NewReviewService(store *repos.Store) *ReviewService {
	return &ReviewService{Store: store, Now: time.Now}
}

func cleanComment(comment string) (string, error) {
	c := textfmt.Plain(comment)
	if c == "" {
		return "", domain.E(domain.ErrValidationFailed, "Please write a comment.")
	}
	if len(c) > maxCommentLength {
		return "", domain.Ef(domain.ErrValidationFailed, "Comments are limited to %d characters.", maxCommentLength)
	}
	return c, nil
}

func requirePurchase(ctx context.Context, st *repos.Store, userID string, bookID int64) error {
	ok, err := st.Orders.HasPurchased(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("check purchase: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotPurchased, "Only customers who bought this book can review it.")
	}
	return nil
}

// CreateReview adds the user's single top-level review of a book.
func (s *ReviewService) CreateReview(ctx context.Context, userID string, bookID int64, rating int, comment string) (domain.Review, error) {
	if rating < 1 || rating > 5 {
		return domain.Review{}, domain.E(domain.ErrValidationFailed, "Rating must be between 1 and 5.")
	}
	text, err := cleanComment(comment)
	if err != nil {
		return domain.Review{}, err
	}

	rv := domain.Review{UserID: userID, BookID: bookID, Rating: rating, Comment: text, ReviewDate: s.Now().UTC()}
	err = s.Store.InTx(ctx, func(st *repos.Store) error {
		if _, err := st.Books.Get(ctx, bookID); err != nil {
			if isNoRows(err) {
				return domain.E(domain.ErrNotFound, "Book not found.")
			}
			return fmt.Errorf("load book: %w", err)
		}
		if err := requirePurchase(ctx, st, userID, bookID); err != nil {
			return err
		}
		dup, err := st.Reviews.HasTopLevel(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("check review: %w", err)
		}
		if dup {
			return duplicateReview()
		}
		id, err := st.Reviews.Insert(ctx, rv)
		if err != nil {
			if isUniqueViolation(err) {
				return duplicateReview()
			}
			return fmt.Errorf("insert review: %w", err)
		}
		rv.ID = id
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func duplicateReview() error {
	return domain.E(domain.ErrDuplicateReview, "You have already reviewed this book.")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateReply answers a top-level review. Replies carry no rating and cannot be nested.
func (s *ReviewService) CreateReply(ctx context.Context, userID string, bookID, parentID int64, comment string) (domain.Review, error) {
	text, err := cleanComment(comment)
	if err != nil {
		return domain.Review{}, err
	}
	rv := domain.Review{UserID: userID, BookID: bookID, ParentReviewID: &parentID, Rating: 0, Comment: text, ReviewDate: s.Now().UTC()}

	err = s.Store.InTx(ctx, func(st *repos.Store) error {
		parent, err := st.Reviews.Get(ctx, parentID)
		if isNoRows(err) {
			return domain.E(domain.ErrNotFound, "The review you replied to no longer exists.")
		}
		if err != nil {
			return fmt.Errorf("load review: %w", err)
		}
		if parent.BookID != bookID {
			return domain.E(domain.ErrValidationFailed, "That review belongs to a different book.")
		}
		if parent.IsReply() {
			return domain.E(domain.ErrValidationFailed, "Replies cannot be nested.")
		}
		if err := requirePurchase(ctx, st, userID, bookID); err != nil {
			return err
		}
		id, err := st.Reviews.Insert(ctx, rv)
		if err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}
		rv.ID = id
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

// Thread returns top-level reviews newest first, each with its replies oldest first.
func (s *ReviewService) Thread(ctx context.Context, bookID int64) ([]domain.ReviewThread, error) {
	return reviewThread(ctx, s.Store, bookID)
}

func reviewThread(ctx context.Context, st *repos.Store, bookID int64) ([]domain.ReviewThread, error) {
	all, err := st.Reviews.ForBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	idx := map[int64]int{}
	var threads []domain.ReviewThread
	for _, rv := range all {
		if !rv.IsReply() {
			idx[rv.ID] = len(threads)
			threads = append(threads, domain.ReviewThread{Review: rv})
		}
	}
	for _, rv := range all {
		if rv.IsReply() {
			if i, ok := idx[*rv.ParentReviewID]; ok {
				threads[i].Replies = append(threads[i].Replies, rv)
			}
		}
	}
	// ForBook is oldest first; flip the top level.
	for i, j := 0, len(threads)-1; i < j; i, j = i+1, j-1 {
		threads[i], threads[j] = threads[j], threads[i]
	}
	return threads, nil
}
