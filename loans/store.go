package loans

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence boundary of the loan lifecycle. Implementations
// must make OpenLoan and CloseLoan atomic: either the loan row and the
// availability counter both change, or neither does, and the conditional
// decrement must be safe against concurrent callers racing for the last
// copy.
type Store interface {
	// OpenLoan decrements the book's availability if a copy is free and
	// inserts the loan in the same atomic step. It fails with OutOfStock
	// when no copy is available, or NotFound when the book or user does
	// not exist; on failure nothing is mutated.
	OpenLoan(ctx context.Context, loan *Loan) error

	// CloseLoan sets the loan's return date if it is still open and
	// increments the book's availability in the same atomic step. It fails
	// with AlreadyReturned when the return date is already set, or
	// NotFound for an unknown loan; on failure nothing is mutated.
	CloseLoan(ctx context.Context, loanID uuid.UUID, returnedAt time.Time) (*Loan, error)

	// GetLoan returns a single loan with holder and book title joined.
	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// ListLoans returns loans matching the filter, newest first. The
	// caller's clock decides how the derived-status filter maps onto the
	// due date.
	ListLoans(ctx context.Context, filter ListFilter, now time.Time) ([]Loan, error)
}
