package loans

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/libris-go/apperror"
)

// memBook is the slice of a catalog row the loan lifecycle touches.
type memBook struct {
	title     string
	quantity  int
	available int
}

// memStore is an in-memory Store. Its mutex makes the conditional
// decrement atomic the way the PostgreSQL row lock does, so the lifecycle
// rules can be exercised under real goroutine concurrency.
type memStore struct {
	mu       sync.Mutex
	books    map[uuid.UUID]*memBook
	profiles map[uuid.UUID]string // id -> name
	loans    map[uuid.UUID]*Loan
}

func newMemStore() *memStore {
	return &memStore{
		books:    make(map[uuid.UUID]*memBook),
		profiles: make(map[uuid.UUID]string),
		loans:    make(map[uuid.UUID]*Loan),
	}
}

func (m *memStore) addBook(title string, quantity int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.books[id] = &memBook{title: title, quantity: quantity, available: quantity}
	return id
}

func (m *memStore) addProfile(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.profiles[id] = name
	return id
}

func (m *memStore) available(bookID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[bookID].available
}

func (m *memStore) OpenLoan(_ context.Context, loan *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, ok := m.books[loan.BookID]
	if !ok {
		return apperror.NewNotFoundError("book not found", nil)
	}
	if _, ok := m.profiles[loan.UserID]; !ok {
		return apperror.NewNotFoundError("user not found", nil)
	}
	if book.available < 1 {
		return apperror.NewOutOfStockError("no copies of this book are available")
	}

	book.available--
	stored := *loan
	m.loans[loan.ID] = &stored
	return nil
}

func (m *memStore) CloseLoan(_ context.Context, loanID uuid.UUID, returnedAt time.Time) (*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loan, ok := m.loans[loanID]
	if !ok {
		return nil, apperror.NewNotFoundError("loan not found", nil)
	}
	if loan.ReturnDate != nil {
		return nil, apperror.NewAlreadyReturnedError("loan is already returned")
	}

	loan.ReturnDate = &returnedAt
	if book := m.books[loan.BookID]; book.available < book.quantity {
		book.available++
	}

	result := *loan
	return &result, nil
}

func (m *memStore) GetLoan(_ context.Context, loanID uuid.UUID) (*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loan, ok := m.loans[loanID]
	if !ok {
		return nil, apperror.NewNotFoundError("loan not found", nil)
	}
	result := *loan
	result.HolderName = m.profiles[loan.UserID]
	result.BookTitle = m.books[loan.BookID].title
	return &result, nil
}

func (m *memStore) ListLoans(_ context.Context, filter ListFilter, now time.Time) ([]Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Loan{}
	for _, loan := range m.loans {
		if filter.UserID != nil && loan.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && loan.StatusAt(now) != *filter.Status {
			continue
		}
		holder := m.profiles[loan.UserID]
		title := m.books[loan.BookID].title
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(holder), needle) &&
				!strings.Contains(strings.ToLower(title), needle) {
				continue
			}
		}

		row := *loan
		row.HolderName = holder
		row.BookTitle = title
		result = append(result, row)
	}
	return result, nil
}
