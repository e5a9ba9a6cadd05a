package loans

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/libris-go/apperror"
)

func newTestService(store *memStore, now time.Time) *service {
	return &service{
		store:         store,
		defaultPeriod: 7 * 24 * time.Hour,
		now:           func() time.Time { return now },
	}
}

func TestOpen_DefaultDueDate(t *testing.T) {
	store := newMemStore()
	userID := store.addProfile("Joana Silva")
	bookID := store.addBook("1984", 2)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	loan, err := svc.Open(context.Background(), OpenLoanRequest{UserID: userID, BookID: bookID})
	require.NoError(t, err)

	assert.Equal(t, now, loan.LoanDate)
	assert.Equal(t, now.Add(7*24*time.Hour), loan.DueDate)
	assert.Equal(t, StatusActive, loan.Status)
	assert.Nil(t, loan.ReturnDate)
	assert.Equal(t, 1, store.available(bookID))
}

func TestOpen_Validation(t *testing.T) {
	store := newMemStore()
	userID := store.addProfile("Joana Silva")
	bookID := store.addBook("1984", 1)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	tests := []struct {
		name string
		req  OpenLoanRequest
	}{
		{"missing_user", OpenLoanRequest{BookID: bookID}},
		{"missing_book", OpenLoanRequest{UserID: userID}},
		{"due_date_in_past", OpenLoanRequest{UserID: userID, BookID: bookID, DueDate: now.Add(-24 * time.Hour)}},
		{"due_date_not_after_now", OpenLoanRequest{UserID: userID, BookID: bookID, DueDate: now}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Open(context.Background(), tc.req)
			assert.True(t, apperror.IsValidationError(err), "expected validation error, got %v", err)
			// Failed opens never touch the counter.
			assert.Equal(t, 1, store.available(bookID))
		})
	}
}

func TestOpen_UnknownBookAndUser(t *testing.T) {
	store := newMemStore()
	userID := store.addProfile("Joana Silva")
	bookID := store.addBook("1984", 1)
	svc := newTestService(store, time.Now())

	_, err := svc.Open(context.Background(), OpenLoanRequest{UserID: userID, BookID: uuid.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Open(context.Background(), OpenLoanRequest{UserID: uuid.New(), BookID: bookID})
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 1, store.available(bookID))
}

func TestOpen_OutOfStock(t *testing.T) {
	store := newMemStore()
	userA := store.addProfile("Ana Costa")
	userB := store.addProfile("Pedro Oliveira")
	bookID := store.addBook("Dom Casmurro", 1)
	svc := newTestService(store, time.Now())

	_, err := svc.Open(context.Background(), OpenLoanRequest{UserID: userA, BookID: bookID})
	require.NoError(t, err)
	assert.Equal(t, 0, store.available(bookID))

	_, err = svc.Open(context.Background(), OpenLoanRequest{UserID: userB, BookID: bookID})
	assert.True(t, apperror.IsOutOfStock(err), "expected out-of-stock, got %v", err)
	assert.Equal(t, 0, store.available(bookID))
}

// The full single-copy lifecycle: open takes the copy, a second borrower
// is rejected, the return releases the copy and the loan ends returned.
func TestLoanLifecycle_SingleCopy(t *testing.T) {
	store := newMemStore()
	userA := store.addProfile("Ana Costa")
	userB := store.addProfile("Pedro Oliveira")
	bookID := store.addBook("O Pequeno Príncipe", 1)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	loanA, err := svc.Open(context.Background(), OpenLoanRequest{UserID: userA, BookID: bookID, DueDate: now.Add(7 * 24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 0, store.available(bookID))

	_, err = svc.Open(context.Background(), OpenLoanRequest{UserID: userB, BookID: bookID})
	assert.True(t, apperror.IsOutOfStock(err))

	returned, err := svc.Return(context.Background(), loanA.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 1, store.available(bookID))
}

func TestReturn_TwiceFailsAndIncrementsOnce(t *testing.T) {
	store := newMemStore()
	userID := store.addProfile("Joana Silva")
	bookID := store.addBook("1984", 3)
	svc := newTestService(store, time.Now())

	loan, err := svc.Open(context.Background(), OpenLoanRequest{UserID: userID, BookID: bookID})
	require.NoError(t, err)
	assert.Equal(t, 2, store.available(bookID))

	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, store.available(bookID))

	_, err = svc.Return(context.Background(), loan.ID)
	assert.True(t, apperror.IsAlreadyReturned(err), "expected already-returned, got %v", err)
	// Incremented exactly once, not twice.
	assert.Equal(t, 3, store.available(bookID))
}

func TestReturn_UnknownLoan(t *testing.T) {
	svc := newTestService(newMemStore(), time.Now())
	_, err := svc.Return(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

// N concurrent opens against a single remaining copy must produce exactly
// one success and N-1 out-of-stock failures, never a negative counter.
func TestOpen_ConcurrentLastCopy(t *testing.T) {
	const callers = 32

	store := newMemStore()
	bookID := store.addBook("Harry Potter", 1)
	userIDs := make([]uuid.UUID, callers)
	for i := range userIDs {
		userIDs[i] = store.addProfile("Reader")
	}
	svc := newTestService(store, time.Now())

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Open(context.Background(), OpenLoanRequest{UserID: userIDs[i], BookID: bookID})
		}(i)
	}
	wg.Wait()

	var successes, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case apperror.IsOutOfStock(err):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, outOfStock)
	assert.Equal(t, 0, store.available(bookID))
}

func TestList_FiltersByStatusAndSearch(t *testing.T) {
	store := newMemStore()
	ana := store.addProfile("Ana Costa")
	pedro := store.addProfile("Pedro Oliveira")
	orwell := store.addBook("1984", 2)
	machado := store.addBook("Dom Casmurro", 2)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Ana's loan was opened in the past and is overdue by now; Pedro's is
	// current.
	past := newTestService(store, now.Add(-10*24*time.Hour))
	overdueLoan, err := past.Open(context.Background(), OpenLoanRequest{UserID: ana, BookID: orwell})
	require.NoError(t, err)

	svc := newTestService(store, now)
	_, err = svc.Open(context.Background(), OpenLoanRequest{UserID: pedro, BookID: machado})
	require.NoError(t, err)

	overdue := StatusOverdue
	result, err := svc.List(context.Background(), ListFilter{Status: &overdue})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, overdueLoan.ID, result[0].ID)
	assert.Equal(t, StatusOverdue, result[0].Status)
	assert.Equal(t, "Ana Costa", result[0].HolderName)
	assert.Equal(t, "1984", result[0].BookTitle)

	result, err = svc.List(context.Background(), ListFilter{Search: "casmurro"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Pedro Oliveira", result[0].HolderName)

	result, err = svc.List(context.Background(), ListFilter{UserID: &ana})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, ana, result[0].UserID)
}
