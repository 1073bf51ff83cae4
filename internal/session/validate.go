package session

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/guilhermegouw/parley/internal/apperr"
)

// MaxOwnerIDLength is the maximum length of an owner ID in bytes.
const MaxOwnerIDLength = 128

// Validation errors.
var (
	ErrEmptyOwnerID   = errors.New("owner id cannot be empty")
	ErrOwnerIDTooLong = errors.New("owner id cannot exceed 128 bytes")
	ErrInvalidOwnerID = errors.New("owner id contains whitespace or control characters")
)

// ValidateOwnerID checks an owner ID supplied by the caller.
func ValidateOwnerID(id string) error {
	if id == "" {
		return apperr.New(apperr.KindValidation, "session.owner", ErrEmptyOwnerID)
	}
	if len(id) > MaxOwnerIDLength {
		return apperr.New(apperr.KindValidation, "session.owner", ErrOwnerIDTooLong)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError {
			return apperr.New(apperr.KindValidation, "session.owner", ErrInvalidOwnerID)
		}
	}
	return nil
}
