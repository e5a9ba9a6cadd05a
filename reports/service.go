// Package reports aggregates catalog and loan data into the librarian
// dashboard figures.
package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/libris-go/apperror"
)

// MonthlyLoanCount is the number of loans opened in one calendar month.
type MonthlyLoanCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// TopBook is a catalog entry ranked by how often it has been borrowed.
type TopBook struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	LoanCount int64  `json:"loan_count"`
}

// Dashboard holds the aggregate figures shown to librarians.
type Dashboard struct {
	TotalBooks    int64              `json:"total_books"`
	TotalUsers    int64              `json:"total_users"`
	ActiveLoans   int64              `json:"active_loans"`
	OverdueLoans  int64              `json:"overdue_loans"`
	LoansPerMonth []MonthlyLoanCount `json:"loans_per_month"`
	TopBooks      []TopBook          `json:"top_books"`
}

// topBookLimit caps the ranked book list.
const topBookLimit = 5

// ReportService computes dashboard aggregates.
type ReportService struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(db *pgxpool.Pool) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

// Dashboard assembles the full set of dashboard figures. Loan states are
// derived from return_date and due_date, the same rule the loan listing
// uses.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	d := &Dashboard{
		LoansPerMonth: []MonthlyLoanCount{},
		TopBooks:      []TopBook{},
	}

	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM books`,
	).Scan(&d.TotalBooks)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to count books", err)
	}

	err = s.db.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&d.TotalUsers)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to count users", err)
	}

	err = s.db.QueryRow(ctx,
		`SELECT
		    count(*) FILTER (WHERE due_date >= $1),
		    count(*) FILTER (WHERE due_date < $1)
		 FROM loans WHERE return_date IS NULL`,
		now,
	).Scan(&d.ActiveLoans, &d.OverdueLoans)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to count open loans", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT to_char(date_trunc('month', loan_date), 'YYYY-MM') AS month, count(*)
		 FROM loans
		 WHERE loan_date >= date_trunc('month', $1::timestamptz) - interval '5 months'
		 GROUP BY month
		 ORDER BY month`,
		now,
	)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to aggregate monthly loans", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthlyLoanCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan monthly count", err)
		}
		d.LoansPerMonth = append(d.LoansPerMonth, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read monthly counts", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT b.id, b.title, b.author, count(l.id) AS loan_count
		 FROM books b
		 JOIN loans l ON l.book_id = b.id
		 GROUP BY b.id, b.title, b.author
		 ORDER BY loan_count DESC, b.title ASC
		 LIMIT $1`,
		topBookLimit,
	)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to rank books", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t TopBook
		if err := rows.Scan(&t.BookID, &t.Title, &t.Author, &t.LoanCount); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan book ranking", err)
		}
		d.TopBooks = append(d.TopBooks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read book ranking", err)
	}

	return d, nil
}
