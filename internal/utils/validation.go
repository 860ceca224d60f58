package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"
)

var (
	ErrAmountEmpty        = fmt.Errorf("amount cannot be empty")
	ErrAmountNotPositive  = fmt.Errorf("amount must be greater than zero")
	ErrAmountTooManyDigit = fmt.Errorf("amount cannot have more than two fractional digits")
)

// ValidateFiatAmount parses a fiat amount string and ensures it is positive with at most two
// fractional digits, the precision the coordinator stores and the verifier reports in.
func ValidateFiatAmount(amount string) (decimal.Decimal, error) {
	if strings.TrimSpace(amount) == "" {
		return decimal.Decimal{}, ErrAmountEmpty
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("the provided amount is not a valid number: %w", err)
	}

	if !value.IsPositive() {
		return decimal.Decimal{}, ErrAmountNotPositive
	}

	if value.Exponent() < -2 {
		return decimal.Decimal{}, ErrAmountTooManyDigit
	}

	return value, nil
}

// ValidateStringLength will validate the given string to ensure it is not empty and does not exceed the maximum length.
func ValidateStringLength(field, fieldName string, maxLength int) error {
	if strings.TrimSpace(field) == "" {
		return fmt.Errorf("%s field is required", fieldName)
	}

	if len(field) > maxLength {
		return fmt.Errorf("%s cannot exceed %d characters", fieldName, maxLength)
	}

	return nil
}

var pathTraversalPattern = regexp.MustCompile(`(^|[\\/])\.\.([\\/]|$)`)

// ValidatePathIsNotTraversal will validate the given path to ensure it does not contain path traversal.
func ValidatePathIsNotTraversal(p string) error {
	if pathTraversalPattern.MatchString(p) {
		return errors.New("path cannot contain path traversal")
	}

	return nil
}

// ValidateURLScheme checks if a URL is valid and if it has a valid scheme. Used to validate the
// verifier and coordinator base URLs supplied at startup.
func ValidateURLScheme(link string, scheme ...string) error {
	if !govalidator.IsURL(link) {
		return errors.New("invalid URL format")
	}

	parsedURL, err := url.ParseRequestURI(link)
	if err != nil {
		return errors.New("invalid URL format")
	}

	if len(scheme) > 0 {
		if !slices.Contains(scheme, parsedURL.Scheme) {
			return fmt.Errorf("invalid URL scheme is not part of %v", scheme)
		}
	}

	return nil
}
