package services

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"restaurant-ordering-api/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func looksLikeEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}

// fieldErrors collects per-field failures so a request reports all of them at once
type fieldErrors []apperrors.FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, apperrors.FieldError{Field: field, Message: message})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.Validation("Validation failed", f...)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
