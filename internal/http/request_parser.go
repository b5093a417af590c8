// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roadrich/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// now as defaults for missing or malformed values.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}

// DateRange resolves ?from=&to= (YYYY-MM-DD). Missing bounds default to the
// month selected by ParseMonthParams.
func DateRange(query url.Values, now time.Time) (core.Date, core.Date, error) {
	mp := ParseMonthParams(query, now)
	if err := core.ValidateYearMonth(mp.Year, mp.Month); err != nil {
		return core.Date{}, core.Date{}, err
	}
	from, to := core.MonthRange(mp.Year, mp.Month)

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, core.Date{}, err
		}
		from = d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, core.Date{}, err
		}
		to = d
	}
	return from, to, nil
}

// DecodeJSON reads a bounded JSON body into dst, rejecting unknown fields
// and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// ParseOptionalMoney parses a user-typed amount ("12,50", "1234"). Empty
// input yields nil; zero is accepted and returned as a zero amount.
func ParseOptionalMoney(s string) (*core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if isZeroAmount(s) {
		return &core.Money{}, nil
	}
	m, err := core.ParseMoney(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isZeroAmount(s string) bool {
	return strings.Trim(s, "0.,") == "" && strings.ContainsAny(s, "0")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathInt parses a numeric path segment.
func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, r.PathValue(name))
	}
	return v, nil
}
