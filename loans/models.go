// Package loans implements the loan lifecycle: opening a loan against a
// book with spare copies, returning it, and deriving its status. These are
// the only two code paths that mutate a book's availability, and each runs
// as a single atomic store operation so two concurrent borrowers can never
// both take the last copy.
package loans

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the derived lifecycle state of a loan. It is computed from
// loan dates and never read back from storage: a loan is returned once its
// return date is set, overdue while open past its due date, active
// otherwise.
type Status string

const (
	StatusActive   Status = "active"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
)

// ParseStatus converts a query-parameter value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusOverdue, StatusReturned:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown loan status %q", s)
	}
}

// Loan links one user to one book copy for a bounded period. HolderName
// and BookTitle are denormalized from the joined profile and book rows for
// listing; Status is filled in by the service from StatusAt.
type Loan struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	BookID     uuid.UUID  `json:"book_id"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     Status     `json:"status"`
	HolderName string     `json:"holder_name,omitempty"`
	BookTitle  string     `json:"book_title,omitempty"`
}

// StatusAt derives the loan's status at the given instant. A set return
// date wins over the due date comparison: a loan returned late is
// returned, not overdue.
func (l *Loan) StatusAt(now time.Time) Status {
	if l.ReturnDate != nil {
		return StatusReturned
	}
	if now.After(l.DueDate) {
		return StatusOverdue
	}
	return StatusActive
}

// OpenLoanRequest is the payload for opening a loan. A zero DueDate means
// "now plus the configured default loan period".
type OpenLoanRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	BookID  uuid.UUID `json:"book_id"`
	DueDate time.Time `json:"due_date,omitempty"`
}

// ListFilter holds the loan listing filters: derived status, free-text
// match over holder name and book title, and an optional holder scope.
type ListFilter struct {
	Status *Status
	Search string
	UserID *uuid.UUID
}
