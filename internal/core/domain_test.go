package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2026, 1, 15)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-01-15"` {
		t.Fatalf("unexpected json %s", b)
	}
	var back Date
	if err := json.Unmarshal([]byte(`"2026-02-03"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Key() != "2026-02-03" {
		t.Fatalf("unexpected date %s", back.Key())
	}
	if err := json.Unmarshal([]byte(`"03/02/2026"`), &back); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#00BBF9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != (RGB{R: 0x00, G: 0xBB, B: 0xF9}) {
		t.Fatalf("unexpected color %+v", c)
	}
	if c.Hex() != "#00BBF9" {
		t.Fatalf("unexpected hex %s", c.Hex())
	}
	for _, bad := range []string{"", "#FFF", "#GGGGGG", "1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		CategoryID:  "cat-1",
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{CategoryID: "c", Date: Date{Time: time.Time{}}, Amount: Money{Cents: 1}}, // zero date
		{CategoryID: "c", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}},
		{CategoryID: "", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}},
		{CategoryID: "c", Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, IsRecurring: true, RecurrenceDay: 0},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	budget := Money{Cents: 30000}
	good := Category{Name: "Courses", Type: CategoryExpense, BudgetLimit: &budget}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	negative := Money{Cents: -1}
	bads := []Category{
		{Name: " ", Type: CategoryExpense},
		{Name: "Épargne", Type: "other"},
		{Name: "Loisirs", Type: CategoryExpense, BudgetLimit: &negative},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestProfileValidate(t *testing.T) {
	if err := (Profile{FirstName: "Lea", MonthlyIncome: Money{Cents: 250000}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Profile{FirstName: ""}).Validate(); err == nil {
		t.Fatalf("expected error for empty first name")
	}
	if err := (Profile{FirstName: "Lea", MonthlyIncome: Money{Cents: -5}}).Validate(); err == nil {
		t.Fatalf("expected error for negative income")
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.fr", "first.last@example.com"} {
		if err := ValidateEmail(ok); err != nil {
			t.Fatalf("%q expected ok, got %v", ok, err)
		}
	}
	for _, bad := range []string{"", "nope", "@b.fr", "a@", "a@b", "a b@c.fr"} {
		if err := ValidateEmail(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestCalendarHelpers(t *testing.T) {
	if got := MonthLabel(2026, 1); got != "Janvier 2026" {
		t.Fatalf("MonthLabel = %q", got)
	}
	if got := MonthLabel(2026, 8); got != "Août 2026" {
		t.Fatalf("MonthLabel = %q", got)
	}
	if got := FormatLongDate(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)); got != "19 octobre 2026" {
		t.Fatalf("FormatLongDate = %q", got)
	}
	y, m := PreviousMonth(2026, 1)
	if y != 2025 || m != 12 {
		t.Fatalf("PreviousMonth = %d-%d", y, m)
	}
	start, end := MonthRange(2024, 2)
	if start.Key() != "2024-02-01" || end.Key() != "2024-02-29" {
		t.Fatalf("MonthRange = %s..%s", start.Key(), end.Key())
	}
	if err := ValidateYearMonth(2026, 13); err == nil {
		t.Fatalf("expected invalid month")
	}
}

func TestOverview(t *testing.T) {
	ov := Overview(2026, 3, []Expense{
		{CategoryID: "a", Amount: Money{Cents: 100}},
		{CategoryID: "b", Amount: Money{Cents: 250}},
		{CategoryID: "a", Amount: Money{Cents: 50}},
	})
	if ov.Total.Cents != 400 {
		t.Fatalf("total = %d", ov.Total.Cents)
	}
	if len(ov.ByCategory) != 2 || ov.ByCategory[0].CategoryID != "a" {
		t.Fatalf("unexpected categories %+v", ov.ByCategory)
	}
	if ov.AmountFor("a").Cents != 150 || ov.AmountFor("zzz").Cents != 0 {
		t.Fatalf("unexpected AmountFor results")
	}
}
