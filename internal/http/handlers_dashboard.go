package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
)

// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard.Dashboard(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, "Dashboard failed", err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

// GET /api/analysis?period=current|last|year&category=<id>
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, err := s.svc.Analysis.Analyze(r.Context(), userFrom(r.Context()).ID,
		strings.TrimSpace(q.Get("period")), strings.TrimSpace(q.Get("category")))
	if err != nil {
		s.writeError(w, r, "Analysis failed", err)
		return
	}
	NewJSONResponse().Body(a).Write(w)
}

// GET /api/reports/{year}/{month} downloads the monthly PDF report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := core.ValidateYearMonth(year, month); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	user := userFrom(r.Context())
	doc, _, err := s.svc.Reports.MonthlyReport(r.Context(), user.ID, year, month)
	if err != nil {
		s.writeError(w, r, "Report generation failed", err)
		return
	}

	applog.FromContext(r.Context()).Fields(r.Context(), slog.LevelInfo, "Report downloaded",
		applog.NewFields().
			WithOperation(applog.OpRender).
			WithUser(user.ID).
			WithPeriod(year, month))

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}
