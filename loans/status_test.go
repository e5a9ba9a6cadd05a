package loans

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name       string
		dueDate    time.Time
		returnDate *time.Time
		want       Status
	}{
		{name: "open_before_due_is_active", dueDate: tomorrow, want: StatusActive},
		{name: "open_at_due_is_active", dueDate: now, want: StatusActive},
		{name: "open_past_due_is_overdue", dueDate: yesterday, want: StatusOverdue},
		{name: "returned_is_returned", dueDate: tomorrow, returnDate: &yesterday, want: StatusReturned},
		// Return takes precedence over overdue: a loan returned after its
		// due date is returned, not overdue.
		{name: "late_return_is_returned", dueDate: yesterday, returnDate: &now, want: StatusReturned},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			loan := &Loan{DueDate: tc.dueDate, ReturnDate: tc.returnDate}
			assert.Equal(t, tc.want, loan.StatusAt(now))
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"active", "overdue", "returned"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	_, err := ParseStatus("late")
	assert.Error(t, err)
}

func TestBuildListSQL_StatusDerivedFromDates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	returned := StatusReturned
	sql, _, err := buildListSQL(ListFilter{Status: &returned}, now)
	require.NoError(t, err)
	assert.Contains(t, sql, `"l"."return_date" IS NOT NULL`)

	overdue := StatusOverdue
	sql, args, err := buildListSQL(ListFilter{Status: &overdue}, now)
	require.NoError(t, err)
	assert.Contains(t, sql, `"l"."return_date" IS NULL`)
	assert.Contains(t, sql, `"l"."due_date" <`)
	assert.Contains(t, args, now)

	active := StatusActive
	sql, _, err = buildListSQL(ListFilter{Status: &active}, now)
	require.NoError(t, err)
	assert.Contains(t, sql, `"l"."due_date" >=`)

	// The stored status column is never part of the filter.
	for _, status := range []Status{StatusActive, StatusOverdue, StatusReturned} {
		s := status
		sql, _, err := buildListSQL(ListFilter{Status: &s}, now)
		require.NoError(t, err)
		assert.False(t, strings.Contains(sql, `"l"."status"`), "query must not read the stored status column: %s", sql)
	}
}

func TestBuildListSQL_SearchAndUser(t *testing.T) {
	now := time.Now()
	userID := uuid.New()

	sql, args, err := buildListSQL(ListFilter{Search: "silva", UserID: &userID}, now)
	require.NoError(t, err)
	assert.Contains(t, sql, `"p"."name" ILIKE`)
	assert.Contains(t, sql, `"b"."title" ILIKE`)
	assert.Contains(t, sql, `"l"."user_id" =`)
	assert.Contains(t, args, "%silva%")
	assert.Contains(t, args, userID.String())
	assert.Contains(t, sql, `ORDER BY "l"."loan_date" DESC`)
}
