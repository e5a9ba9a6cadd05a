package books

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/libris-go/apperror"
)

var pgDialect = goqu.Dialect("postgres")

// BookService provides catalog operations over the books table.
type BookService struct {
	db *pgxpool.Pool
}

// NewBookService creates a new BookService.
func NewBookService(db *pgxpool.Pool) *BookService {
	return &BookService{db: db}
}

// validateBookFields checks the fields shared by create and update.
func validateBookFields(title, author, isbn, category string, year, quantity int) error {
	switch {
	case strings.TrimSpace(title) == "":
		return apperror.NewValidationError("title is required", nil)
	case len(title) > 200:
		return apperror.NewValidationError("title must be at most 200 characters", nil)
	case strings.TrimSpace(author) == "":
		return apperror.NewValidationError("author is required", nil)
	case len(author) > 200:
		return apperror.NewValidationError("author must be at most 200 characters", nil)
	case len(strings.TrimSpace(isbn)) < 10 || len(isbn) > 20:
		return apperror.NewValidationError("isbn must be between 10 and 20 characters", nil)
	case strings.TrimSpace(category) == "":
		return apperror.NewValidationError("category is required", nil)
	case year < 1800 || year > time.Now().Year()+1:
		return apperror.NewValidationError("year is out of range", nil)
	case quantity < 1:
		return apperror.NewValidationError("quantity must be at least 1", nil)
	}
	return nil
}

// Create adds a book to the catalog. A new book starts with all copies
// available.
func (s *BookService) Create(ctx context.Context, req CreateBookRequest) (*Book, error) {
	if err := validateBookFields(req.Title, req.Author, req.ISBN, req.Category, req.Year, req.Quantity); err != nil {
		return nil, err
	}

	book := &Book{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(req.Title),
		Author:    strings.TrimSpace(req.Author),
		ISBN:      strings.TrimSpace(req.ISBN),
		Category:  req.Category,
		Year:      req.Year,
		Quantity:  req.Quantity,
		Available: req.Quantity,
	}

	query := `INSERT INTO books (id, title, author, isbn, category, year, quantity, available)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at`
	err := s.db.QueryRow(ctx, query,
		book.ID, book.Title, book.Author, book.ISBN, book.Category, book.Year, book.Quantity, book.Available,
	).Scan(&book.CreatedAt)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create book", err)
	}
	return book, nil
}

// Get retrieves a single book by id.
func (s *BookService) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	var book Book
	query := `SELECT id, title, author, isbn, category, year, quantity, available, cover_url, created_at
	          FROM books WHERE id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&book.ID, &book.Title, &book.Author, &book.ISBN, &book.Category,
		&book.Year, &book.Quantity, &book.Available, &book.CoverURL, &book.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("book not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get book", err)
	}
	return &book, nil
}

// buildListSQL composes the catalog listing query from the optional
// filters.
func buildListSQL(q ListQuery) (string, []interface{}, error) {
	ds := pgDialect.From("books").
		Select("id", "title", "author", "isbn", "category", "year", "quantity", "available", "cover_url", "created_at").
		Order(goqu.I("title").Asc())

	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("title").ILike(pattern),
			goqu.I("author").ILike(pattern),
			goqu.I("isbn").ILike(pattern),
		))
	}
	if q.Category != "" {
		ds = ds.Where(goqu.I("category").Eq(q.Category))
	}

	return ds.Prepared(true).ToSQL()
}

// List returns the catalog filtered by the given query, ordered by title.
func (s *BookService) List(ctx context.Context, q ListQuery) ([]Book, error) {
	sql, args, err := buildListSQL(q)
	if err != nil {
		return nil, apperror.NewInternalError("failed to build catalog query", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list books", err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var book Book
		if err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.ISBN, &book.Category,
			&book.Year, &book.Quantity, &book.Available, &book.CoverURL, &book.CreatedAt,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan book", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read books", err)
	}
	return books, nil
}

// Update edits a book's metadata. A quantity change moves `available` by
// the same delta, floored at zero so copies currently on loan stay
// accounted for, and capped at the new quantity.
func (s *BookService) Update(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*Book, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Title != nil {
		next.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		next.Author = strings.TrimSpace(*req.Author)
	}
	if req.ISBN != nil {
		next.ISBN = strings.TrimSpace(*req.ISBN)
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Year != nil {
		next.Year = *req.Year
	}
	if req.Quantity != nil {
		next.Quantity = *req.Quantity
	}
	if err := validateBookFields(next.Title, next.Author, next.ISBN, next.Category, next.Year, next.Quantity); err != nil {
		return nil, err
	}

	// The availability adjustment references the stored quantity so one
	// UPDATE applies metadata and counter consistently.
	query := `UPDATE books
	          SET title = $2, author = $3, isbn = $4, category = $5, year = $6,
	              quantity = $7,
	              available = LEAST(GREATEST(available + ($7 - quantity), 0), $7)
	          WHERE id = $1
	          RETURNING quantity, available`
	err = s.db.QueryRow(ctx, query,
		id, next.Title, next.Author, next.ISBN, next.Category, next.Year, next.Quantity,
	).Scan(&next.Quantity, &next.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("book not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update book", err)
	}
	return &next, nil
}

// SetCoverURL records the public URL of an uploaded cover image.
func (s *BookService) SetCoverURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := s.db.Exec(ctx, `UPDATE books SET cover_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return apperror.NewDatabaseError("failed to set cover url", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("book not found", nil)
	}
	return nil
}

// Categories returns the distinct categories present in the catalog, for
// the catalog filter dropdown.
func (s *BookService) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT category FROM books ORDER BY category`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list categories", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read categories", err)
	}
	return categories, nil
}
