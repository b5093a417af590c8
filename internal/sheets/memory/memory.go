package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roadrich/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

// Store is an in-process spreadsheet used when no Google credentials are
// configured and in tests.
type Store struct {
	mu    sync.Mutex
	rows  []sheets.Row
	index map[string]int
}

func New() *Store {
	return &Store{index: map[string]int{}}
}

// Upsert replaces the row with the same ID or appends a new one. A row
// carrying an older version than the stored one is ignored.
func (s *Store) Upsert(_ context.Context, r sheets.Row) (string, error) {
	if r.ID == "" {
		return "", errors.New("row without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[r.ID]; ok {
		if r.Version >= s.rows[i].Version {
			s.rows[i] = r
		}
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, r)
	s.index[r.ID] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.rows); j++ {
		s.index[s.rows[j].ID] = j
	}
	return nil
}

func (s *Store) Rows(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...), nil
}
