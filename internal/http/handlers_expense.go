package http

import (
	"log/slog"
	"net/http"
	"strings"

	"roadrich/internal/core"
	applog "roadrich/internal/log"
	"roadrich/internal/nav"
)

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Expenses.Categories(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, "List categories failed", err)
		return
	}
	NewJSONResponse().Body(newCategoryViews(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := req.toCategory(userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, "Invalid category", err)
		return
	}
	created, err := s.svc.Expenses.CreateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, "Create category failed", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newCategoryView(created)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	c, err := req.toCategory(userFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, "Invalid category", err)
		return
	}
	c.ID = r.PathValue("id")
	if err := s.svc.Expenses.UpdateCategory(r.Context(), c); err != nil {
		s.writeError(w, r, "Update category failed", err)
		return
	}
	NewJSONResponse().Body(newCategoryView(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.DeleteCategory(r.Context(), userFrom(r.Context()).ID, r.PathValue("id")); err != nil {
		s.writeError(w, r, "Delete category failed", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Expenses

// GET /api/expenses?year=&month= or ?from=&to=, optionally &category=.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := DateRange(q, s.opts.Clock())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	list, err := s.svc.Expenses.ListExpenses(r.Context(), userFrom(r.Context()).ID, from, to, strings.TrimSpace(q.Get("category")))
	if err != nil {
		s.writeError(w, r, "List expenses failed", err)
		return
	}
	NewJSONResponse().Body(newExpenseViews(list)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	user := userFrom(r.Context())
	e, err := req.toExpense(user.ID)
	if err != nil {
		s.writeError(w, r, "Invalid expense", err)
		return
	}
	// the category must belong to the caller
	if _, err := s.findCategory(r, e.CategoryID); err != nil {
		s.writeError(w, r, "Unknown category", err)
		return
	}

	created, err := s.svc.Expenses.CreateExpense(r.Context(), e)
	if err != nil {
		s.writeError(w, r, "Create expense failed", err)
		return
	}
	s.dispatch(r, nav.ExpenseSaved{})
	applog.FromContext(r.Context()).Fields(r.Context(), slog.LevelInfo, "Expense created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithUser(user.ID).
			WithExpense(created.ID, created.CategoryID, created.Amount.Cents))
	NewJSONResponse().Status(http.StatusCreated).Body(newExpenseView(created)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	user := userFrom(r.Context())
	e, err := req.toExpense(user.ID)
	if err != nil {
		s.writeError(w, r, "Invalid expense", err)
		return
	}
	if _, err := s.findCategory(r, e.CategoryID); err != nil {
		s.writeError(w, r, "Unknown category", err)
		return
	}
	e.ID = r.PathValue("id")
	if err := s.svc.Expenses.UpdateExpense(r.Context(), e); err != nil {
		s.writeError(w, r, "Update expense failed", err)
		return
	}
	NewJSONResponse().Body(newExpenseView(e)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.DeleteExpense(r.Context(), userFrom(r.Context()).ID, r.PathValue("id")); err != nil {
		s.writeError(w, r, "Delete expense failed", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// findCategory resolves one of the caller's categories.
func (s *Server) findCategory(r *http.Request, id string) (core.Category, error) {
	return s.svc.Expenses.Category(r.Context(), userFrom(r.Context()).ID, id)
}
