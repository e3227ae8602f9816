// Package validator checks search and suggest request parameters and
// reports every bad field at once.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const maxWindow = 1000

// ValidationError holds per-field failure messages. It unwraps to
// ErrInvalidInput.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Search is a validated search request. Zero Limit or Window means the
// engine default.
type Search struct {
	Query  string
	Limit  int
	Window int
}

type Suggest struct {
	Prefix string
	Limit  int
}

// ValidateSearch reads q, limit and window. A blank query is valid and
// simply matches nothing.
func ValidateSearch(values url.Values, cfg config.SearchConfig) (Search, error) {
	errs := make(map[string]string)
	req := Search{Query: values.Get("q")}

	if n := utf8.RuneCountInString(req.Query); cfg.MaxQueryLength > 0 && n > cfg.MaxQueryLength {
		errs["q"] = fmt.Sprintf("query must be at most %d characters", cfg.MaxQueryLength)
	}
	req.Limit = intParam(values, "limit", 1, cfg.MaxResults, errs)
	req.Window = intParam(values, "window", 0, maxWindow, errs)

	if len(errs) > 0 {
		return Search{}, &ValidationError{Fields: errs}
	}
	return req, nil
}

// ValidateSuggest reads prefix and limit.
func ValidateSuggest(values url.Values, cfg config.SearchConfig) (Suggest, error) {
	errs := make(map[string]string)
	req := Suggest{Prefix: strings.TrimSpace(values.Get("prefix"))}

	if req.Prefix == "" {
		errs["prefix"] = "prefix is required"
	} else if cfg.MaxQueryLength > 0 && utf8.RuneCountInString(req.Prefix) > cfg.MaxQueryLength {
		errs["prefix"] = fmt.Sprintf("prefix must be at most %d characters", cfg.MaxQueryLength)
	}
	req.Limit = intParam(values, "limit", 1, cfg.MaxResults, errs)

	if len(errs) > 0 {
		return Suggest{}, &ValidationError{Fields: errs}
	}
	return req, nil
}

// intParam parses an optional integer within [lo, hi]; hi <= 0 means no
// upper bound. Absent yields 0.
func intParam(values url.Values, name string, lo, hi int, errs map[string]string) int {
	raw := values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs[name] = name + " must be an integer"
		return 0
	}
	if n < lo || (hi > 0 && n > hi) {
		if hi > 0 {
			errs[name] = fmt.Sprintf("%s must be between %d and %d", name, lo, hi)
		} else {
			errs[name] = fmt.Sprintf("%s must be at least %d", name, lo)
		}
		return 0
	}
	return n
}
