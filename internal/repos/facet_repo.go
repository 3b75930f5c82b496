package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"booknook/internal/domain"
)

// FacetRepo lists the distinct values behind the catalog filter dropdowns.
type FacetRepo struct{ q sqlx.ExtContext }

func NewFacetRepo(q sqlx.ExtContext) *FacetRepo { return &FacetRepo{q: q} }

func (r *FacetRepo) distinct(ctx context.Context, col string) ([]string, error) {
	out := []string{}
	err := sqlx.SelectContext(ctx, r.q, &out, `
	  SELECT DISTINCT `+col+` FROM books
	  WHERE `+col+` <> ''
	  ORDER BY `+col+` COLLATE NOCASE`)
	return out, err
}

func (r *FacetRepo) List(ctx context.Context) (domain.Facets, error) {
	var (
		f   domain.Facets
		err error
	)
	if f.Genres, err = r.distinct(ctx, "genre"); err != nil {
		return f, err
	}
	if f.Languages, err = r.distinct(ctx, "language"); err != nil {
		return f, err
	}
	if f.Formats, err = r.distinct(ctx, "format"); err != nil {
		return f, err
	}
	return f, nil
}
