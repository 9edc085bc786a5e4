package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Reviews interface {
	ListByTitle(ctx context.Context, titleID uuid.UUID, limit, offset int) ([]*Review, int, error)
	GetByID(ctx context.Context, titleID, id uuid.UUID) (*Review, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, record *Review) (*Review, error)
	Update(ctx context.Context, record *Review) (*Review, error)
	Delete(ctx context.Context, titleID, id uuid.UUID) error
}

type Comments interface {
	ListByReview(ctx context.Context, reviewID uuid.UUID, limit, offset int) ([]*Comment, int, error)
	GetByID(ctx context.Context, reviewID, id uuid.UUID) (*Comment, error)
	Create(ctx context.Context, record *Comment) (*Comment, error)
	Update(ctx context.Context, record *Comment) (*Comment, error)
	Delete(ctx context.Context, reviewID, id uuid.UUID) error
}

type reviews struct {
	db *bun.DB
}

func NewReviewsRepository(db *bun.DB) Reviews {
	return &reviews{db: db}
}

func (r *reviews) ListByTitle(ctx context.Context, titleID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	records := []*Review{}

	total, err := r.db.NewSelect().
		Model(&records).
		Relation("Author").
		Where("?TableAlias.title_id = ?", titleID).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *reviews) GetByID(ctx context.Context, titleID, id uuid.UUID) (*Review, error) {
	record := &Review{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Author").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.title_id = ?", titleID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *reviews) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*Review)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}

// Create inserts a review, enforcing the one-review-per-author-per-title
// invariant inside a transaction.
func (r *reviews) Create(ctx context.Context, record *Review) (*Review, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Review)(nil)).
			Where("title_id = ?", record.TitleID).
			Where("author_id = ?", record.AuthorID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReview
		}

		_, err = tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.TitleID, record.ID)
}

func (r *reviews) Update(ctx context.Context, record *Review) (*Review, error) {
	res, err := r.db.NewUpdate().
		Model(record).
		Column("text", "score").
		Where("?TableAlias.id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.TitleID, record.ID)
}

func (r *reviews) Delete(ctx context.Context, titleID, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*Comment)(nil)).
			Where("review_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*Review)(nil)).
			Where("id = ?", id).
			Where("title_id = ?", titleID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

type comments struct {
	db *bun.DB
}

func NewCommentsRepository(db *bun.DB) Comments {
	return &comments{db: db}
}

func (r *comments) ListByReview(ctx context.Context, reviewID uuid.UUID, limit, offset int) ([]*Comment, int, error) {
	records := []*Comment{}

	total, err := r.db.NewSelect().
		Model(&records).
		Relation("Author").
		Where("?TableAlias.review_id = ?", reviewID).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *comments) GetByID(ctx context.Context, reviewID, id uuid.UUID) (*Comment, error) {
	record := &Comment{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Author").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.review_id = ?", reviewID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *comments) Create(ctx context.Context, record *Comment) (*Comment, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.ReviewID, record.ID)
}

func (r *comments) Update(ctx context.Context, record *Comment) (*Comment, error) {
	res, err := r.db.NewUpdate().
		Model(record).
		Column("text").
		Where("?TableAlias.id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.ReviewID, record.ID)
}

func (r *comments) Delete(ctx context.Context, reviewID, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Comment)(nil)).
		Where("id = ?", id).
		Where("review_id = ?", reviewID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
