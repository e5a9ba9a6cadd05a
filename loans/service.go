package loans

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/config"
)

// Service defines the loan lifecycle operations exposed to handlers.
type Service interface {
	Open(ctx context.Context, req OpenLoanRequest) (*Loan, error)
	Return(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	Get(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	List(ctx context.Context, filter ListFilter) ([]Loan, error)
}

// service implements Service on top of a Store. The clock is a field so
// tests can pin "now".
type service struct {
	store         Store
	defaultPeriod time.Duration
	now           func() time.Time
}

// NewService creates a loan Service with the given policy configuration.
func NewService(store Store, cfg *config.LoanConfig) Service {
	return &service{
		store:         store,
		defaultPeriod: cfg.DefaultPeriod,
		now:           time.Now,
	}
}

// Open opens a loan for a user against a book. A zero due date defaults to
// now plus the configured loan period; an explicit due date must lie in
// the future. On success the book's availability has decreased by exactly
// one; on any failure nothing has changed.
func (s *service) Open(ctx context.Context, req OpenLoanRequest) (*Loan, error) {
	if req.UserID == uuid.Nil {
		return nil, apperror.NewValidationError("user_id is required", nil)
	}
	if req.BookID == uuid.Nil {
		return nil, apperror.NewValidationError("book_id is required", nil)
	}

	now := s.now()
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = now.Add(s.defaultPeriod)
	}
	if !dueDate.After(now) {
		return nil, apperror.NewValidationError("due date must be in the future", nil)
	}

	loan := &Loan{
		ID:       uuid.New(),
		UserID:   req.UserID,
		BookID:   req.BookID,
		LoanDate: now,
		DueDate:  dueDate,
	}
	if err := s.store.OpenLoan(ctx, loan); err != nil {
		return nil, err
	}

	loan.Status = loan.StatusAt(now)
	return loan, nil
}

// Return closes a loan. The store rejects a second return of the same
// loan, so availability is incremented exactly once per loan.
func (s *service) Return(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.store.CloseLoan(ctx, loanID, s.now())
	if err != nil {
		return nil, err
	}
	loan.Status = StatusReturned
	return loan, nil
}

// Get returns a single loan with its derived status.
func (s *service) Get(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	loan.Status = loan.StatusAt(s.now())
	return loan, nil
}

// List returns loans matching the filter with their derived status.
func (s *service) List(ctx context.Context, filter ListFilter) ([]Loan, error) {
	now := s.now()
	loans, err := s.store.ListLoans(ctx, filter, now)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i].Status = loans[i].StatusAt(now)
	}
	return loans, nil
}
