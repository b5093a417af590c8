package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"roadrich/internal/core"
	ports "roadrich/internal/sheets"
)

// fakeSheets serves the handful of values endpoints the client uses over an
// in-memory grid.
type fakeSheets struct {
	mu   sync.Mutex
	grid [][]any
	hits map[string]int
}

var rowRe = regexp.MustCompile(`!A(\d+)`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodGet:
		f.hits["get"]++
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.grid})

	case r.Method == http.MethodPut:
		f.hits["update"]++
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		n := rowNumber(rng)
		for len(f.grid) < n {
			f.grid = append(f.grid, []any{})
		}
		f.grid[n-1] = body.Values[0]
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})

	case strings.HasSuffix(rng, ":append"):
		f.hits["append"]++
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.grid = append(f.grid, body.Values[0])
		n := len(f.grid)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": fmt.Sprintf("'Dépenses'!A%d:H%d", n, n)},
		})

	case strings.HasSuffix(rng, ":clear"):
		f.hits["clear"]++
		n := rowNumber(strings.TrimSuffix(rng, ":clear"))
		f.grid[n-1] = []any{}
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})

	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func rowNumber(rng string) int {
	m := rowRe.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{hits: map[string]int{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := NewHTTPService(context.Background(), srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPService: %v", err)
	}
	return NewWithService(svc, "sheet-id", ""), fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsJSON: "not-json"})
	if err == nil || !strings.Contains(err.Error(), "parse service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	row := ports.Row{
		ID:          "exp-1",
		UserID:      "user-1",
		Date:        core.NewDate(2026, 3, 14),
		Category:    "Courses",
		Description: "marché",
		Amount:      core.Money{Cents: 1234},
		Version:     1,
	}
	ref, err := c.Upsert(ctx, row)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if ref != "'Dépenses'!A2:H2" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.grid) != 2 || fake.grid[0][0] != "ID" {
		t.Fatalf("expected header plus one row, got %v", fake.grid)
	}

	row.Amount = core.Money{Cents: 2000}
	row.Recurring = true
	row.Version = 2
	ref, err = c.Upsert(ctx, row)
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if ref != "'Dépenses'!A2:H2" {
		t.Errorf("update ref = %q", ref)
	}
	if fake.hits["append"] != 1 {
		t.Errorf("append hits = %d, want 1", fake.hits["append"])
	}

	rows, err := c.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	got := rows[0]
	if got.Amount.Cents != 2000 || !got.Recurring || got.Version != 2 || got.Date.Key() != "2026-03-14" || got.UserID != "user-1" {
		t.Errorf("unexpected row: %+v", got)
	}
}

func TestClient_UpsertSkipsStaleVersion(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	row := ports.Row{ID: "exp-1", Date: core.NewDate(2026, 1, 1), Amount: core.Money{Cents: 100}, Version: 3}
	if _, err := c.Upsert(ctx, row); err != nil {
		t.Fatal(err)
	}
	updates := fake.hits["update"]

	row.Version = 2
	row.Amount = core.Money{Cents: 1}
	if _, err := c.Upsert(ctx, row); err != nil {
		t.Fatal(err)
	}
	if fake.hits["update"] != updates {
		t.Error("stale version should not rewrite the row")
	}
}

func TestClient_Delete(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	for _, id := range []string{"a", "b"} {
		if _, err := c.Upsert(ctx, ports.Row{ID: id, Date: core.NewDate(2026, 1, 2), Version: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if fake.hits["clear"] != 1 {
		t.Errorf("clear hits = %d", fake.hits["clear"])
	}

	rows, _ := c.Rows(ctx)
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("rows after delete = %+v", rows)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{sheet: DefaultSheetName}
	if _, err := c.Upsert(context.Background(), ports.Row{ID: "x"}); err == nil {
		t.Fatal("expected error without a service")
	}
}
