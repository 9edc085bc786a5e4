package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"reviewhub/internal/auth"
)

// Category groups titles by kind of work (books, films, music).
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"-"`
	Name          string    `bun:"name,notnull" json:"name"`
	Slug          string    `bun:"slug,notnull,unique" json:"slug"`
}

// Genre tags titles; a title carries zero or more genres.
type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:gnr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"-"`
	Name          string    `bun:"name,notnull" json:"name"`
	Slug          string    `bun:"slug,notnull,unique" json:"slug"`
}

// Title is a reviewable work. Rating is a read projection: the rounded
// average of review scores, null while unreviewed. It is never written.
type Title struct {
	bun.BaseModel `bun:"table:titles,alias:ttl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Year          int        `bun:"year" json:"year"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CategoryID    *uuid.UUID `bun:"category_id,nullzero,type:uuid" json:"-"`
	Category      *Category  `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Genres        []*Genre   `bun:"m2m:title_genres,join:Title=Genre" json:"genre,omitempty"`
	Rating        *float64   `bun:"rating,scanonly" json:"rating"`
}

// TitleGenre is the m2m join model between titles and genres.
type TitleGenre struct {
	bun.BaseModel `bun:"table:title_genres,alias:tg"`
	TitleID       uuid.UUID `bun:"title_id,pk,type:uuid"`
	Title         *Title    `bun:"rel:belongs-to,join:title_id=id"`
	GenreID       uuid.UUID `bun:"genre_id,pk,type:uuid"`
	Genre         *Genre    `bun:"rel:belongs-to,join:genre_id=id"`
}

// Review holds one author's score for a title. One review per author per
// title; the unique (title_id, author_id) pair is enforced by the store.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:rev"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	TitleID       uuid.UUID  `bun:"title_id,notnull,type:uuid" json:"-"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"-"`
	Author        *auth.User `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	Text          string     `bun:"text,notnull" json:"text"`
	Score         int        `bun:"score,notnull" json:"score"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"pub_date,omitempty"`
}

// AuthorUsername resolves the author relation for API projections.
func (r *Review) AuthorUsername() string {
	if r.Author == nil {
		return ""
	}
	return r.Author.Username
}

// Comment is a remark on a review.
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	ReviewID      uuid.UUID  `bun:"review_id,notnull,type:uuid" json:"-"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"-"`
	Author        *auth.User `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	Text          string     `bun:"text,notnull" json:"text"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"pub_date,omitempty"`
}

// AuthorUsername resolves the author relation for API projections.
func (c *Comment) AuthorUsername() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.Username
}
