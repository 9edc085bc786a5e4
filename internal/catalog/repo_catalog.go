package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ratingExpr computes the read-only rating projection for title queries.
const ratingExpr = `(SELECT ROUND(AVG("rev"."score"), 0) FROM "reviews" AS "rev" WHERE "rev"."title_id" = ?TableAlias."id")`

type Categories interface {
	List(ctx context.Context, search string, limit, offset int) ([]*Category, int, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	Create(ctx context.Context, record *Category) (*Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type Genres interface {
	List(ctx context.Context, search string, limit, offset int) ([]*Genre, int, error)
	GetBySlug(ctx context.Context, slug string) (*Genre, error)
	ResolveSlugs(ctx context.Context, slugs []string) ([]*Genre, error)
	Create(ctx context.Context, record *Genre) (*Genre, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

// TitleFilter narrows title listings. Zero values mean "no constraint".
type TitleFilter struct {
	Category string
	Genre    string
	Name     string
	Year     int
}

type Titles interface {
	List(ctx context.Context, filter TitleFilter, limit, offset int) ([]*Title, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Title, error)
	Create(ctx context.Context, record *Title, genres []*Genre) (*Title, error)
	Update(ctx context.Context, record *Title, genres []*Genre) (*Title, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AverageScore(ctx context.Context, titleID uuid.UUID) (*float64, error)
}

type categories struct {
	db *bun.DB
}

func NewCategoriesRepository(db *bun.DB) Categories {
	return &categories{db: db}
}

func (r *categories) List(ctx context.Context, search string, limit, offset int) ([]*Category, int, error) {
	records := []*Category{}

	q := r.db.NewSelect().Model(&records)
	if search != "" {
		q = q.Where("?TableAlias.name LIKE ?", "%"+search+"%")
	}

	total, err := q.Order("name ASC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *categories) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	record := &Category{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.slug = ?", slug).
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

func (r *categories) Create(ctx context.Context, record *Category) (*Category, error) {
	if _, err := r.GetBySlug(ctx, record.Slug); err == nil {
		return nil, ErrDuplicateSlug
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *categories) DeleteBySlug(ctx context.Context, slug string) error {
	res, err := r.db.NewDelete().
		Model((*Category)(nil)).
		Where("slug = ?", slug).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type genres struct {
	db *bun.DB
}

func NewGenresRepository(db *bun.DB) Genres {
	return &genres{db: db}
}

func (r *genres) List(ctx context.Context, search string, limit, offset int) ([]*Genre, int, error) {
	records := []*Genre{}

	q := r.db.NewSelect().Model(&records)
	if search != "" {
		q = q.Where("?TableAlias.name LIKE ?", "%"+search+"%")
	}

	total, err := q.Order("name ASC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *genres) GetBySlug(ctx context.Context, slug string) (*Genre, error) {
	record := &Genre{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.slug = ?", slug).
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

// ResolveSlugs maps genre slugs to records, failing when any slug is unknown.
func (r *genres) ResolveSlugs(ctx context.Context, slugs []string) ([]*Genre, error) {
	resolved := make([]*Genre, 0, len(slugs))
	for _, slug := range slugs {
		genre, err := r.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, genre)
	}
	return resolved, nil
}

func (r *genres) Create(ctx context.Context, record *Genre) (*Genre, error) {
	if _, err := r.GetBySlug(ctx, record.Slug); err == nil {
		return nil, ErrDuplicateSlug
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *genres) DeleteBySlug(ctx context.Context, slug string) error {
	res, err := r.db.NewDelete().
		Model((*Genre)(nil)).
		Where("slug = ?", slug).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type titles struct {
	db *bun.DB
}

func NewTitlesRepository(db *bun.DB) Titles {
	return &titles{db: db}
}

func (r *titles) List(ctx context.Context, filter TitleFilter, limit, offset int) ([]*Title, int, error) {
	records := []*Title{}

	q := r.db.NewSelect().
		Model(&records).
		Relation("Category").
		Relation("Genres").
		ColumnExpr("?TableAlias.*").
		ColumnExpr(ratingExpr + " AS rating")

	if filter.Category != "" {
		q = q.Where("?TableAlias.category_id IN (SELECT id FROM categories WHERE slug = ?)", filter.Category)
	}
	if filter.Genre != "" {
		q = q.Where("EXISTS (SELECT 1 FROM title_genres AS tg JOIN genres AS g ON g.id = tg.genre_id WHERE tg.title_id = ?TableAlias.id AND g.slug = ?)", filter.Genre)
	}
	if filter.Name != "" {
		q = q.Where("?TableAlias.name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Year != 0 {
		q = q.Where("?TableAlias.year = ?", filter.Year)
	}

	total, err := q.OrderExpr("?TableAlias.name ASC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *titles) GetByID(ctx context.Context, id uuid.UUID) (*Title, error) {
	record := &Title{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Category").
		Relation("Genres").
		ColumnExpr("?TableAlias.*").
		ColumnExpr(ratingExpr+" AS rating").
		Where("?TableAlias.id = ?", id).
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

func (r *titles) Create(ctx context.Context, record *Title, genres []*Genre) (*Title, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		return r.setGenresTx(ctx, tx, record.ID, genres)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.ID)
}

func (r *titles) Update(ctx context.Context, record *Title, genres []*Genre) (*Title, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(record).
			Column("name", "year", "description", "category_id").
			Where("?TableAlias.id = ?", record.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		if genres == nil {
			return nil
		}
		return r.setGenresTx(ctx, tx, record.ID, genres)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, record.ID)
}

func (r *titles) setGenresTx(ctx context.Context, tx bun.Tx, titleID uuid.UUID, genres []*Genre) error {
	if _, err := tx.NewDelete().
		Model((*TitleGenre)(nil)).
		Where("title_id = ?", titleID).
		Exec(ctx); err != nil {
		return err
	}

	for _, genre := range genres {
		join := &TitleGenre{TitleID: titleID, GenreID: genre.ID}
		if _, err := tx.NewInsert().Model(join).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *titles) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*TitleGenre)(nil)).
			Where("title_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*Title)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// AverageScore computes the mean review score for a title, nil when the
// title has no reviews yet.
func (r *titles) AverageScore(ctx context.Context, titleID uuid.UUID) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.NewSelect().
		Model((*Review)(nil)).
		ColumnExpr("AVG(?TableAlias.score)").
		Where("?TableAlias.title_id = ?", titleID).
		Scan(ctx, &avg)
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
