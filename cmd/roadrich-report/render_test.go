package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadrich/internal/core"
	"roadrich/internal/report"
)

func bundle() report.Input {
	return report.Input{
		MonthName:         "Mars 2026",
		TotalExpenses:     core.Money{Cents: 60000},
		PrevTotalExpenses: core.Money{Cents: 50000},
		Income:            core.Money{Cents: 250000},
		Categories: []report.CategoryTotal{
			{ID: "a", Name: "Courses", Color: core.RGB{R: 0x9B, G: 0x5D, B: 0xE5}, Total: core.Money{Cents: 40000}},
			{ID: "b", Name: "Loisirs", Color: core.RGB{R: 0x00, G: 0xBB, B: 0xF9}, Total: core.Money{Cents: 20000}},
		},
		PrevCategories: []report.CategoryTotal{
			{ID: "a", Name: "Courses", Total: core.Money{Cents: 50000}},
		},
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderFromFile(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(bundle())
	require.NoError(t, err)
	input := filepath.Join(dir, "march.json")
	require.NoError(t, os.WriteFile(input, data, 0o644))

	out, err := run(t, "", "render", "--input", input, "--out", dir, "--font-dir", "")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Mars 2026")

	pdf, err := os.ReadFile(filepath.Join(dir, "rapport_mars_2026.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderFromStdinWithSummary(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(bundle())
	require.NoError(t, err)

	out, err := run(t, string(data), "render", "-i", "-", "-o", dir, "--prefix", "bilan", "--summary", "--font-dir", "")
	require.NoError(t, err, out)

	var s report.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, "Mars 2026", s.MonthName)
	assert.Equal(t, 20, s.ExpenseVariation.Percent)
	assert.FileExists(t, filepath.Join(dir, "bilan_mars_2026.pdf"))
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "", "render", "--out", dir)
	assert.ErrorContains(t, err, "--input is required")

	_, err = run(t, `{"monthName":"x","bogus":1}`, "render", "-i", "-", "-o", dir)
	assert.ErrorContains(t, err, "decode input")

	data, err := json.Marshal(bundle())
	require.NoError(t, err)
	_, err = run(t, string(data), "render", "-i", "-", "-o", dir, "--font-dir", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, report.ErrBackendUnavailable)
}

func TestMonthlyValidatesFlags(t *testing.T) {
	_, err := run(t, "", "monthly", "--year", "2026", "--month", "3")
	assert.ErrorContains(t, err, "--email is required")

	_, err = run(t, "", "monthly", "--email", "lea@example.com", "--month", "13")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}
