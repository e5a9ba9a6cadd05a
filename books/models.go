// Package books implements the catalog: book records, search, and cover
// images. Availability (`available`) counts the copies not currently on
// loan; it always stays within [0, quantity] and is only ever mutated by
// the loan lifecycle or by a quantity change on the book itself.
package books

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a title in the catalog.
type Book struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Category  string    `json:"category"`
	Year      int       `json:"year"`
	Quantity  int       `json:"quantity"`  // total owned copies
	Available int       `json:"available"` // copies currently loanable
	CoverURL  *string   `json:"cover_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBookRequest is the payload for adding a book to the catalog.
type CreateBookRequest struct {
	Title    string `json:"title" example:"Dom Casmurro"`
	Author   string `json:"author" example:"Machado de Assis"`
	ISBN     string `json:"isbn" example:"9788535910663"`
	Category string `json:"category" example:"Romance"`
	Year     int    `json:"year" example:"1899"`
	Quantity int    `json:"quantity" example:"3"`
}

// UpdateBookRequest is the payload for editing a book. Nil fields are left
// unchanged.
type UpdateBookRequest struct {
	Title    *string `json:"title,omitempty"`
	Author   *string `json:"author,omitempty"`
	ISBN     *string `json:"isbn,omitempty"`
	Category *string `json:"category,omitempty"`
	Year     *int    `json:"year,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

// ListQuery holds the catalog listing filters: a case-insensitive
// substring match over title, author and ISBN, and an exact category match.
type ListQuery struct {
	Search   string
	Category string
}
