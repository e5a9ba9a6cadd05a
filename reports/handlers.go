package reports

import (
	"net/http"

	"github.com/user/libris-go/auth"
)

// ReportHandlers provides HTTP handlers for the dashboard.
type ReportHandlers struct {
	service *ReportService
}

// NewReportHandlers creates new ReportHandlers.
func NewReportHandlers(service *ReportService) *ReportHandlers {
	return &ReportHandlers{service: service}
}

// HandleDashboard godoc
// @Summary Dashboard figures (librarian)
// @Description Returns catalog and loan totals, loans opened per month over the last six months, and the most borrowed books.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} reports.Dashboard
// @Failure 403 {object} apperror.ErrorResponse "Not a librarian"
// @Router /reports/dashboard [get]
func (h *ReportHandlers) HandleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := h.service.Dashboard(r.Context())
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		auth.WriteJSON(w, http.StatusOK, dashboard)
	}
}
