package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CategoryExpense CategoryType = "expense"
	CategorySavings CategoryType = "savings"
)

const dateLayout = "2006-01-02"

type (
	CategoryType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RGB is a category accent color.
	RGB struct {
		R, G, B uint8
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Profile struct {
		UserID        string
		FirstName     string
		MonthlyIncome Money
	}

	Category struct {
		ID          string
		UserID      string
		Name        string
		Icon        string
		Color       RGB
		Type        CategoryType
		BudgetLimit *Money // nil when the category has no monthly budget
	}

	Expense struct {
		ID            string
		UserID        string
		CategoryID    string
		Amount        Money
		Date          Date
		IsRecurring   bool
		RecurrenceDay int // day of month the expense renews on
		Description   string
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidColor        = errors.New("invalid color")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyFirstName      = errors.New("empty first name")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidRecurrence   = errors.New("invalid recurrence day")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrNegativeIncome      = errors.New("income cannot be negative")
	ErrNegativeBudget      = errors.New("budget limit cannot be negative")
	ErrTooLong             = errors.New("too long")
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrInvalidDate         = errors.New("invalid date")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Key returns the calendar day as YYYY-MM-DD.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Key())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("unquote date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// MarshalJSON encodes the amount as integer cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse cents: %w", err)
	}
	m.Cents = v
	return nil
}

// ParseHexColor parses #RRGGBB (or RRGGBB).
func ParseHexColor(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, ErrInvalidColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, ErrInvalidColor
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex formats the color as #RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.Hex())), nil
}

func (c *RGB) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("unquote color: %w", err)
	}
	parsed, err := ParseHexColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (t CategoryType) Valid() bool {
	return t == CategoryExpense || t == CategorySavings
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if utf8.RuneCountInString(p.FirstName) > 60 {
		return fmt.Errorf("first name %w (max 60 characters)", ErrTooLong)
	}
	if p.MonthlyIncome.Cents < 0 {
		return ErrNegativeIncome
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(c.Name) > 50 {
		return fmt.Errorf("name %w (max 50 characters)", ErrTooLong)
	}
	if !c.Type.Valid() {
		return ErrInvalidCategoryType
	}
	if c.BudgetLimit != nil && c.BudgetLimit.Cents < 0 {
		return ErrNegativeBudget
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("description %w (max 200 characters)", ErrTooLong)
	}
	if e.IsRecurring && (e.RecurrenceDay < 1 || e.RecurrenceDay > 31) {
		return ErrInvalidRecurrence
	}
	return nil
}

// ValidateEmail performs a minimal shape check on an address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\n") {
		return ErrInvalidEmail
	}
	if !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}
