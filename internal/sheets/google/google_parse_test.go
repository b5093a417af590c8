package google

import (
	"testing"

	"roadrich/internal/core"
	ports "roadrich/internal/sheets"
)

func TestParseRow(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		ok     bool
		want   ports.Row
	}{
		{
			name:   "header",
			values: header,
		},
		{
			name:   "blank",
			values: []any{},
		},
		{
			name:   "iso date and string amount",
			values: []any{"e1", "2026-02-03", "Loyer", "février", "850.00", "oui", "4", "u1"},
			ok:     true,
			want: ports.Row{ID: "e1", Date: core.NewDate(2026, 2, 3), Category: "Loyer", Description: "février",
				Amount: core.Money{Cents: 85000}, Recurring: true, Version: 4, UserID: "u1"},
		},
		{
			name:   "serial date and numeric amount",
			values: []any{"e2", 46026.0, "Courses", "", 12.5, "non", 1.0, "u1"},
			ok:     true,
			want: ports.Row{ID: "e2", Date: core.NewDate(2026, 1, 4), Category: "Courses",
				Amount: core.Money{Cents: 1250}, Version: 1, UserID: "u1"},
		},
		{
			name:   "comma decimal",
			values: []any{"e3", "2026-01-01", "x", "", "3,99"},
			ok:     true,
			want:   ports.Row{ID: "e3", Date: core.NewDate(2026, 1, 1), Category: "x", Amount: core.Money{Cents: 399}},
		},
		{
			name:   "bad date",
			values: []any{"e4", "soon"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRow(tt.values)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.ID != tt.want.ID || got.Date.Key() != tt.want.Date.Key() || got.Category != tt.want.Category ||
				got.Description != tt.want.Description || got.Amount != tt.want.Amount ||
				got.Recurring != tt.want.Recurring || got.Version != tt.want.Version || got.UserID != tt.want.UserID {
				t.Errorf("parseRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatRowRoundTrip(t *testing.T) {
	r := ports.Row{ID: "e1", UserID: "u", Date: core.NewDate(2026, 12, 31), Category: "Épargne",
		Amount: core.Money{Cents: 100005}, Version: 7}
	got, ok := parseRow(formatRow(r))
	if !ok || got.Amount.Cents != 100005 || got.Version != 7 || got.Recurring {
		t.Fatalf("round trip = %+v, %v", got, ok)
	}
}
