package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"roadrich/internal/core"
	ports "roadrich/internal/sheets"
)

// Column order of the mirror sheet.
var header = []any{"ID", "Date", "Catégorie", "Description", "Montant", "Récurrente", "Version", "Utilisateur"}

func formatRow(r ports.Row) []any {
	recurring := "non"
	if r.Recurring {
		recurring = "oui"
	}
	return []any{
		r.ID,
		r.Date.Key(),
		r.Category,
		r.Description,
		decimal.New(r.Amount.Cents, -2).StringFixed(2),
		recurring,
		r.Version,
		r.UserID,
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseRow reads one sheet row. The header, blank rows and rows without a
// parseable date are rejected.
func parseRow(values []any) (ports.Row, bool) {
	cols := toStrings(values)
	id := safeGet(cols, 0)
	if id == "" || strings.EqualFold(id, "ID") {
		return ports.Row{}, false
	}
	date, err := parseSheetDate(safeGet(cols, 1))
	if err != nil {
		return ports.Row{}, false
	}
	r := ports.Row{
		ID:          id,
		Date:        date,
		Category:    safeGet(cols, 2),
		Description: safeGet(cols, 3),
		Recurring:   strings.EqualFold(safeGet(cols, 5), "oui"),
		UserID:      safeGet(cols, 7),
	}
	if cents, ok := parseEurosToCents(safeGet(cols, 4)); ok {
		r.Amount = core.Money{Cents: cents}
	}
	if v, err := strconv.ParseInt(safeGet(cols, 6), 10, 64); err == nil {
		r.Version = v
	}
	return r, true
}

// parseSheetDate accepts ISO dates and the serial day numbers Sheets
// returns for date cells read unformatted.
func parseSheetDate(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return core.Date{}, fmt.Errorf("invalid sheet date %q", s)
	}
	// day 0 of the Sheets epoch is 1899-12-30
	epoch := core.NewDate(1899, 12, 30)
	return core.Date{Time: epoch.AddDate(0, 0, int(serial))}, nil
}

func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}
