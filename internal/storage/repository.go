package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"roadrich/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

// DSN builds the connection string used by both the repository and migrations.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = normalizeEmail(u.Email)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return core.User{}, notFound(err, "get user")
	}
	return u, nil
}

// Profiles

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, first_name, monthly_income_cents, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			monthly_income_cents = excluded.monthly_income_cents,
			updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.FirstName, p.MonthlyIncome.Cents)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Profile(ctx context.Context, userID string) (core.Profile, error) {
	p := core.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT first_name, monthly_income_cents FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.FirstName, &p.MonthlyIncome.Cents)
	if err != nil {
		return core.Profile{}, notFound(err, "get profile")
	}
	return p, nil
}

// Categories

const categoryColumns = `id, user_id, name, icon, color, type, budget_limit_cents`

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM categories WHERE user_id = ?))`,
		c.ID, c.UserID, c.Name, c.Icon, c.Color.Hex(), string(c.Type), budgetArg(c.BudgetLimit), c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "user_id", c.UserID, "category_id", c.ID, "type", c.Type)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, color = ?, type = ?, budget_limit_cents = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Icon, c.Color.Hex(), string(c.Type), budgetArg(c.BudgetLimit), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectRow(res, "update category")
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE category_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete category expenses: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := expectRow(res, "delete category"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "user_id", userID, "category_id", id)
	return nil
}

func (r *SQLiteRepository) Category(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound(err, "get category")
	}
	return c, nil
}

func (r *SQLiteRepository) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY position, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c      core.Category
		color  string
		typ    string
		budget sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &color, &typ, &budget); err != nil {
		return core.Category{}, err
	}
	rgb, err := core.ParseHexColor(color)
	if err != nil {
		return core.Category{}, fmt.Errorf("category %s color: %w", c.ID, err)
	}
	c.Color = rgb
	c.Type = core.CategoryType(typ)
	if budget.Valid {
		c.BudgetLimit = &core.Money{Cents: budget.Int64}
	}
	return c, nil
}

func budgetArg(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

// Expenses

const expenseColumns = `id, user_id, category_id, amount_cents, date, is_recurring, recurrence_day, description`

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		SELECT ?, ?, c.id, ?, ?, ?, ?, ?
		FROM categories c WHERE c.id = ? AND c.user_id = ?`,
		e.ID, e.UserID, e.Amount.Cents, e.Date.Key(), e.IsRecurring, recurrenceArg(e), e.Description,
		e.CategoryID, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	// INSERT ... SELECT inserts nothing when the category is not the user's.
	if err := expectRow(res, "create expense: category "+e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.Key())
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET
			category_id = (SELECT c.id FROM categories c WHERE c.id = ? AND c.user_id = ?),
			amount_cents = ?, date = ?, is_recurring = ?, recurrence_day = ?, description = ?,
			mirror_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
			AND EXISTS (SELECT 1 FROM categories c WHERE c.id = ? AND c.user_id = ?)`,
		e.CategoryID, e.UserID,
		e.Amount.Cents, e.Date.Key(), e.IsRecurring, recurrenceArg(e), e.Description,
		e.ID, e.UserID,
		e.CategoryID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectRow(res, "update expense")
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectRow(res, "delete expense")
}

func (r *SQLiteRepository) Expense(ctx context.Context, userID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	return e, nil
}

func (r *SQLiteRepository) ExpensesBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Expense, error) {
	return r.queryExpenses(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, rowid DESC`,
		userID, from.Key(), to.Key())
}

func (r *SQLiteRepository) RecurringBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	return r.queryExpenses(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE is_recurring = 1 AND date >= ? AND date <= ?
		ORDER BY user_id, date, rowid`,
		from.Key(), to.Key())
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		recurring bool
		day       sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount.Cents, &date, &recurring, &day, &e.Description); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date: %w", e.ID, err)
	}
	e.Date = d
	e.IsRecurring = recurring
	if day.Valid {
		e.RecurrenceDay = int(day.Int64)
	}
	return e, nil
}

func recurrenceArg(e core.Expense) any {
	if !e.IsRecurring {
		return nil
	}
	return e.RecurrenceDay
}

// Mirror queue

func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]PendingMirror, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, updated_at FROM expenses
		WHERE mirror_status IN ('pending', 'error')
		ORDER BY rowid
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending mirror expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingMirror
	for rows.Next() {
		var p PendingMirror
		if err := rows.Scan(&p.ID, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending mirror expense: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MirrorRecord(ctx context.Context, id string) (MirrorRecord, error) {
	var (
		rec MirrorRecord
		e   core.Expense
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT e.id, e.user_id, e.category_id, e.amount_cents, e.date, e.is_recurring,
			e.recurrence_day, e.description, c.name, e.version, e.mirror_status
		FROM expenses e JOIN categories c ON c.id = e.category_id
		WHERE e.id = ?`, id)

	var (
		date      string
		recurring bool
		day       sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount.Cents, &date, &recurring,
		&day, &e.Description, &rec.CategoryName, &rec.Version, &rec.Status)
	if err != nil {
		return MirrorRecord{}, notFound(err, "get mirror record")
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return MirrorRecord{}, fmt.Errorf("expense %s date: %w", e.ID, err)
	}
	e.IsRecurring = recurring
	if day.Valid {
		e.RecurrenceDay = int(day.Int64)
	}
	rec.Expense = e
	return rec, nil
}

// MarkMirrored records a successful sync unless the row changed since the
// synced version was read.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirror_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark expense mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id, "version", version)
	return nil
}

func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirror_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
