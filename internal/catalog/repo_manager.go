package catalog

import (
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Store exposes the catalog repositories.
type Store interface {
	Validate() error
	MustValidate()
	Categories() Categories
	Genres() Genres
	Titles() Titles
	Reviews() Reviews
	Comments() Comments
}

type store struct {
	db         *bun.DB
	categories Categories
	genres     Genres
	titles     Titles
	reviews    Reviews
	comments   Comments
}

func NewStore(db *bun.DB) Store {
	return &store{
		db:         db,
		categories: NewCategoriesRepository(db),
		genres:     NewGenresRepository(db),
		titles:     NewTitlesRepository(db),
		reviews:    NewReviewsRepository(db),
		comments:   NewCommentsRepository(db),
	}
}

func (s store) Validate() error {
	if s.categories == nil || s.genres == nil || s.titles == nil {
		return errors.New("catalog repositories should be initialized")
	}

	if s.reviews == nil || s.comments == nil {
		return errors.New("review repositories should be initialized")
	}

	return nil
}

func (s store) MustValidate() {
	if err := s.Validate(); err != nil {
		log.Panic(err)
	}
}

func (s store) Categories() Categories { return s.categories }
func (s store) Genres() Genres         { return s.genres }
func (s store) Titles() Titles         { return s.titles }
func (s store) Reviews() Reviews       { return s.reviews }
func (s store) Comments() Comments     { return s.comments }
