package loans

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/libris-go/apperror"
)

// pgForeignKeyViolation is the PostgreSQL error code for foreign key violations.
const pgForeignKeyViolation = "23503"

var pgDialect = goqu.Dialect("postgres")

// PgStore is the PostgreSQL implementation of Store. Each lifecycle
// operation runs inside one transaction, and the availability counter is
// only ever moved with a guarded UPDATE, so the database itself arbitrates
// races between concurrent callers.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new PgStore.
func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// OpenLoan implements Store. The conditional decrement
// (available - 1 WHERE available > 0) and the loan insert commit together
// or not at all; two callers racing for the last copy serialize on the
// book row and exactly one of them gets it.
func (s *PgStore) OpenLoan(ctx context.Context, loan *Loan) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx,
		`UPDATE books SET available = available - 1 WHERE id = $1 AND available > 0`,
		loan.BookID,
	)
	if err != nil {
		return apperror.NewDatabaseError("failed to reserve book copy", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, loan.BookID).Scan(&exists); err != nil {
			return apperror.NewDatabaseError("failed to check book", err)
		}
		if !exists {
			return apperror.NewNotFoundError("book not found", nil)
		}
		return apperror.NewOutOfStockError("no copies of this book are available")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO loans (id, user_id, book_id, loan_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, 'active')`,
		loan.ID, loan.UserID, loan.BookID, loan.LoanDate, loan.DueDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.NewNotFoundError("user not found", nil)
		}
		return apperror.NewDatabaseError("failed to insert loan", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewDatabaseError("failed to commit loan", err)
	}
	return nil
}

// CloseLoan implements Store. The guarded terminal update
// (return_date = now WHERE return_date IS NULL) makes a second return of
// the same loan fail instead of double-incrementing availability.
func (s *PgStore) CloseLoan(ctx context.Context, loanID uuid.UUID, returnedAt time.Time) (*Loan, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	loan := &Loan{ID: loanID, ReturnDate: &returnedAt}
	err = tx.QueryRow(ctx,
		`UPDATE loans SET return_date = $2, status = 'returned'
		 WHERE id = $1 AND return_date IS NULL
		 RETURNING user_id, book_id, loan_date, due_date`,
		loanID, returnedAt,
	).Scan(&loan.UserID, &loan.BookID, &loan.LoanDate, &loan.DueDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, loanID).Scan(&exists); err != nil {
				return nil, apperror.NewDatabaseError("failed to check loan", err)
			}
			if !exists {
				return nil, apperror.NewNotFoundError("loan not found", nil)
			}
			return nil, apperror.NewAlreadyReturnedError("loan is already returned")
		}
		return nil, apperror.NewDatabaseError("failed to close loan", err)
	}

	// The available < quantity guard keeps the invariant even if the
	// counter drifted; a correct history makes it always true here.
	_, err = tx.Exec(ctx,
		`UPDATE books SET available = available + 1 WHERE id = $1 AND available < quantity`,
		loan.BookID,
	)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to release book copy", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewDatabaseError("failed to commit return", err)
	}
	return loan, nil
}

// GetLoan implements Store.
func (s *PgStore) GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	var loan Loan
	err := s.db.QueryRow(ctx,
		`SELECT l.id, l.user_id, l.book_id, l.loan_date, l.due_date, l.return_date, p.name, b.title
		 FROM loans l
		 JOIN profiles p ON l.user_id = p.id
		 JOIN books b ON l.book_id = b.id
		 WHERE l.id = $1`,
		loanID,
	).Scan(
		&loan.ID, &loan.UserID, &loan.BookID, &loan.LoanDate, &loan.DueDate,
		&loan.ReturnDate, &loan.HolderName, &loan.BookTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("loan not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get loan", err)
	}
	return &loan, nil
}

// buildListSQL composes the loan listing query. The status filter is
// expressed purely over return_date and due_date, never over the stored
// status column.
func buildListSQL(filter ListFilter, now time.Time) (string, []interface{}, error) {
	ds := pgDialect.From(goqu.T("loans").As("l")).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.I("l.user_id").Eq(goqu.I("p.id")))).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.user_id"), goqu.I("l.book_id"),
			goqu.I("l.loan_date"), goqu.I("l.due_date"), goqu.I("l.return_date"),
			goqu.I("p.name"), goqu.I("b.title"),
		).
		Order(goqu.I("l.loan_date").Desc())

	if filter.UserID != nil {
		ds = ds.Where(goqu.I("l.user_id").Eq(filter.UserID.String()))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("p.name").ILike(pattern),
			goqu.I("b.title").ILike(pattern),
		))
	}
	if filter.Status != nil {
		switch *filter.Status {
		case StatusReturned:
			ds = ds.Where(goqu.I("l.return_date").IsNotNull())
		case StatusOverdue:
			ds = ds.Where(goqu.I("l.return_date").IsNull(), goqu.I("l.due_date").Lt(now))
		case StatusActive:
			ds = ds.Where(goqu.I("l.return_date").IsNull(), goqu.I("l.due_date").Gte(now))
		}
	}

	return ds.Prepared(true).ToSQL()
}

// ListLoans implements Store.
func (s *PgStore) ListLoans(ctx context.Context, filter ListFilter, now time.Time) ([]Loan, error) {
	sql, args, err := buildListSQL(filter, now)
	if err != nil {
		return nil, apperror.NewInternalError("failed to build loan query", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list loans", err)
	}
	defer rows.Close()

	loans := []Loan{}
	for rows.Next() {
		var loan Loan
		if err := rows.Scan(
			&loan.ID, &loan.UserID, &loan.BookID, &loan.LoanDate, &loan.DueDate,
			&loan.ReturnDate, &loan.HolderName, &loan.BookTitle,
		); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan loan", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read loans", err)
	}
	return loans, nil
}

// CountOverdue returns the number of open loans past their due date. Used
// by the overdue sweeper.
func (s *PgStore) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM loans WHERE return_date IS NULL AND due_date < $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to count overdue loans", err)
	}
	return count, nil
}
