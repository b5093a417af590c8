// Package memory is an in-process storage.Store used by tests and by
// DATA_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"roadrich/internal/core"
	"roadrich/internal/storage"
)

type expenseRow struct {
	expense   core.Expense
	seq       int
	version   int64
	status    string
	updatedAt time.Time
}

type Store struct {
	mu         sync.Mutex
	seq        int
	users      map[string]core.User
	byEmail    map[string]string
	profiles   map[string]core.Profile
	categories []core.Category
	expenses   map[string]*expenseRow
	now        func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		byEmail:  make(map[string]string),
		profiles: make(map[string]core.Profile),
		expenses: make(map[string]*expenseRow),
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.byEmail[email]; ok {
		return core.User{}, storage.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	u.Email = email
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return core.User{}, fmt.Errorf("get user: %w", storage.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user: %w", storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return fmt.Errorf("save profile: user %s: %w", p.UserID, storage.ErrNotFound)
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) Profile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, fmt.Errorf("get profile: %w", storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.BudgetLimit = cloneMoney(c.BudgetLimit)
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(c.UserID, c.ID)
	if i < 0 {
		return fmt.Errorf("update category: %w", storage.ErrNotFound)
	}
	c.BudgetLimit = cloneMoney(c.BudgetLimit)
	s.categories[i] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(userID, id)
	if i < 0 {
		return fmt.Errorf("delete category: %w", storage.ErrNotFound)
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	for eid, row := range s.expenses {
		if row.expense.CategoryID == id {
			delete(s.expenses, eid)
		}
	}
	return nil
}

func (s *Store) Category(_ context.Context, userID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(userID, id)
	if i < 0 {
		return core.Category{}, fmt.Errorf("get category: %w", storage.ErrNotFound)
	}
	c := s.categories[i]
	c.BudgetLimit = cloneMoney(c.BudgetLimit)
	return c, nil
}

func (s *Store) Categories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			c.BudgetLimit = cloneMoney(c.BudgetLimit)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) categoryIndex(userID, id string) int {
	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(e.UserID, e.CategoryID) < 0 {
		return core.Expense{}, fmt.Errorf("create expense: category %s: %w", e.CategoryID, storage.ErrNotFound)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if !e.IsRecurring {
		e.RecurrenceDay = 0
	}
	s.seq++
	s.expenses[e.ID] = &expenseRow{
		expense:   e,
		seq:       s.seq,
		version:   1,
		status:    storage.MirrorPending,
		updatedAt: s.now(),
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.expenses[e.ID]
	if !ok || row.expense.UserID != e.UserID || s.categoryIndex(e.UserID, e.CategoryID) < 0 {
		return fmt.Errorf("update expense: %w", storage.ErrNotFound)
	}
	if !e.IsRecurring {
		e.RecurrenceDay = 0
	}
	row.expense = e
	row.version++
	row.status = storage.MirrorPending
	row.updatedAt = s.now()
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.expenses[id]
	if !ok || row.expense.UserID != userID {
		return fmt.Errorf("delete expense: %w", storage.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) Expense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.expenses[id]
	if !ok || row.expense.UserID != userID {
		return core.Expense{}, fmt.Errorf("get expense: %w", storage.ErrNotFound)
	}
	return row.expense, nil
}

func (s *Store) ExpensesBetween(_ context.Context, userID string, from, to core.Date) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filter(func(e core.Expense) bool {
		return e.UserID == userID && inRange(e.Date, from, to)
	})
	// newest first
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.expense.Date.Key() != b.expense.Date.Key() {
			return a.expense.Date.Key() > b.expense.Date.Key()
		}
		return a.seq > b.seq
	})
	return expensesOf(rows), nil
}

func (s *Store) RecurringBetween(_ context.Context, from, to core.Date) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filter(func(e core.Expense) bool {
		return e.IsRecurring && inRange(e.Date, from, to)
	})
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.expense.UserID != b.expense.UserID {
			return a.expense.UserID < b.expense.UserID
		}
		if a.expense.Date.Key() != b.expense.Date.Key() {
			return a.expense.Date.Key() < b.expense.Date.Key()
		}
		return a.seq < b.seq
	})
	return expensesOf(rows), nil
}

func (s *Store) PendingMirror(_ context.Context, limit int) ([]storage.PendingMirror, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filter(func(core.Expense) bool { return true })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	var out []storage.PendingMirror
	for _, row := range rows {
		if row.status == storage.MirrorSynced {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, storage.PendingMirror{ID: row.expense.ID, Version: row.version, UpdatedAt: row.updatedAt})
	}
	return out, nil
}

func (s *Store) MirrorRecord(_ context.Context, id string) (storage.MirrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.expenses[id]
	if !ok {
		return storage.MirrorRecord{}, fmt.Errorf("get mirror record: %w", storage.ErrNotFound)
	}
	rec := storage.MirrorRecord{Expense: row.expense, Version: row.version, Status: row.status}
	if i := s.categoryIndex(row.expense.UserID, row.expense.CategoryID); i >= 0 {
		rec.CategoryName = s.categories[i].Name
	}
	return rec, nil
}

func (s *Store) MarkMirrored(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.expenses[id]; ok && row.version == version {
		row.status = storage.MirrorSynced
	}
	return nil
}

func (s *Store) MarkMirrorError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.expenses[id]; ok {
		row.status = storage.MirrorError
	}
	return nil
}

func (s *Store) filter(keep func(core.Expense) bool) []*expenseRow {
	var out []*expenseRow
	for _, row := range s.expenses {
		if keep(row.expense) {
			out = append(out, row)
		}
	}
	return out
}

func expensesOf(rows []*expenseRow) []core.Expense {
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = row.expense
	}
	return out
}

func inRange(d, from, to core.Date) bool {
	k := d.Key()
	return k >= from.Key() && k <= to.Key()
}

func cloneMoney(m *core.Money) *core.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
