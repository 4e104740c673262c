package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is the book-specific media aggregate attached to a library item.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LibraryItemID string    `bun:",nullzero" json:"library_item_id"`

	Title         string  `bun:",nullzero" json:"title"`
	SortTitle     string  `bun:",nullzero" json:"sort_title"`
	Subtitle      *string `json:"subtitle,omitempty"`
	Description   *string `json:"description,omitempty"`
	Publisher     *string `json:"publisher,omitempty"`
	PublishedYear *string `json:"published_year,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	ASIN          *string `json:"asin,omitempty"`
	Language      *string `json:"language,omitempty"`
	Abridged      bool    `json:"abridged"`

	Narrators StringList `bun:",nullzero" json:"narrators"`
	Genres    StringList `bun:",nullzero" json:"genres"`
	Tags      StringList `bun:",nullzero" json:"tags"`

	CoverPath *string `json:"cover_path,omitempty"`

	Authors  []*Author      `bun:"m2m:book_authors,join:Book=Author" json:"authors,omitempty"`
	Series   []*BookSeries  `bun:"rel:has-many,join:id=book_id" json:"series,omitempty"`
	Chapters []*BookChapter `bun:"rel:has-many,join:id=book_id" json:"chapters,omitempty"`
}

// AuthorNames returns the book's author names in sort order.
func (b *Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return names
}

type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID    int     `bun:",pk" json:"book_id"`
	Book      *Book   `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	AuthorID  int     `bun:",pk" json:"author_id"`
	Author    *Author `bun:"rel:belongs-to,join:author_id=id" json:"-"`
	SortOrder int     `json:"sort_order"`
}

// BookSeries links a book into a series with an optional position. Sequence
// is free-form text so values like "1.5" or "3, part 2" survive round trips.
type BookSeries struct {
	bun.BaseModel `bun:"table:book_series,alias:bs"`

	ID       int     `bun:",pk,nullzero" json:"id"`
	BookID   int     `bun:",nullzero" json:"book_id"`
	SeriesID int     `bun:",nullzero" json:"series_id"`
	Series   *Series `bun:"rel:belongs-to,join:series_id=id" json:"series,omitempty"`
	Sequence *string `json:"sequence,omitempty"`
}

type BookChapter struct {
	bun.BaseModel `bun:"table:book_chapters,alias:bc"`

	ID     int     `bun:",pk,nullzero" json:"id"`
	BookID int     `bun:",nullzero" json:"book_id"`
	Idx    int     `json:"idx"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Title  string  `bun:",nullzero" json:"title"`
}
