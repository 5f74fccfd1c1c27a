package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"fantasy12/apperr"
	"fantasy12/rules"
	"fantasy12/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// normalizeTaxID validates a tax id and returns its canonical formatted
// form. Empty input means "not provided".
func normalizeTaxID(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !rules.ValidateTaxID(raw) {
		return nil, apperr.Validation("invalid CPF")
	}
	formatted := rules.FormatTaxID(raw)
	return &formatted, nil
}

func taxIDValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// checkUnique fails with Conflict when a user other than exceptID already
// owns email or taxID.
func checkUnique(ctx context.Context, users store.Users, email string, taxID *string, exceptID string) error {
	other, err := users.FindUserByEmailOrTaxID(ctx, email, taxIDValue(taxID), exceptID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperr.Internal("failed to check user uniqueness", err)
	case other.Email == email:
		return apperr.Conflict("email already registered")
	default:
		return apperr.Conflict("CPF already registered")
	}
}
