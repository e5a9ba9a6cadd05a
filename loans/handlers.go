// HTTP handlers for the loan endpoints. Opening and returning loans is
// librarian territory (gated at the router); listing is available to any
// authenticated user, with students scoped to their own loans here rather
// than trusting the client to filter.
package loans

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/libris-go/apperror"
	"github.com/user/libris-go/auth"
)

// LoanHandlers provides HTTP handlers for the loan lifecycle.
type LoanHandlers struct {
	service Service
}

// NewLoanHandlers creates new LoanHandlers.
func NewLoanHandlers(service Service) *LoanHandlers {
	return &LoanHandlers{service: service}
}

// HandleOpen godoc
// @Summary Open a loan (librarian)
// @Description Opens a loan for a user against a book with spare copies. Omitting due_date applies the default loan period.
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanBody body loans.OpenLoanRequest true "Loan details"
// @Success 201 {object} loans.Loan
// @Failure 400 {object} apperror.ErrorResponse "Invalid input or past due date"
// @Failure 404 {object} apperror.ErrorResponse "Unknown user or book"
// @Failure 409 {object} apperror.ErrorResponse "No copies available"
// @Router /loans [post]
func (h *LoanHandlers) HandleOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenLoanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		loan, err := h.service.Open(r.Context(), req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusCreated, loan)
	}
}

// HandleReturn godoc
// @Summary Return a loan (librarian)
// @Description Closes an open loan and releases the book copy. Returning the same loan twice fails.
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan id"
// @Success 200 {object} loans.Loan
// @Failure 404 {object} apperror.ErrorResponse "Loan not found"
// @Failure 409 {object} apperror.ErrorResponse "Loan already returned"
// @Router /loans/{id}/return [post]
func (h *LoanHandlers) HandleReturn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid loan id", err))
			return
		}

		loan, err := h.service.Return(r.Context(), loanID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, loan)
	}
}

// HandleList godoc
// @Summary List loans
// @Description Lists loans filtered by derived status and a free-text match over holder name and book title. Students see only their own loans.
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Derived status: active, overdue, returned"
// @Param search query string false "Substring match over holder name and book title"
// @Success 200 {array} loans.Loan
// @Failure 400 {object} apperror.ErrorResponse "Unknown status value"
// @Router /loans [get]
func (h *LoanHandlers) HandleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}

		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := ParseStatus(raw)
			if err != nil {
				auth.WriteError(w, r, apperror.NewBadRequestError(err.Error(), nil))
				return
			}
			filter.Status = &status
		}

		// Students only ever see their own loans, regardless of what the
		// client asked for.
		if !auth.IsLibrarian(r.Context()) {
			userID, ok := auth.GetUserIDFromContext(r.Context())
			if !ok {
				auth.WriteError(w, r, apperror.NewAuthError("no authentication context", nil))
				return
			}
			filter.UserID = &userID
		}

		result, err := h.service.List(r.Context(), filter)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleGet godoc
// @Summary Get a loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan id"
// @Success 200 {object} loans.Loan
// @Failure 404 {object} apperror.ErrorResponse "Loan not found"
// @Router /loans/{id} [get]
func (h *LoanHandlers) HandleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid loan id", err))
			return
		}

		loan, err := h.service.Get(r.Context(), loanID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		// A student may only read their own loan.
		if !auth.IsLibrarian(r.Context()) {
			userID, ok := auth.GetUserIDFromContext(r.Context())
			if !ok || loan.UserID != userID {
				auth.WriteError(w, r, apperror.NewUnauthorizedError("insufficient permissions", nil))
				return
			}
		}

		auth.WriteJSON(w, http.StatusOK, loan)
	}
}
