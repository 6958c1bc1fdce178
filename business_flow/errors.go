// Package businessflow contains the link shortening use cases: slug generation,
// redirect resolution, click recording and click enrichment.
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Slug errors
	ErrCodeSpaceExhausted = errors.New("no free short code up to the maximum length")
	ErrDuplicateSlug      = errors.New("short code already taken")
	ErrInvalidCustomSlug  = errors.New("custom slug may only contain letters, digits, '-' and '_'")
	ErrCustomSlugTooLong  = errors.New("custom slug is too long")
	ErrReservedSlug       = errors.New("custom slug collides with a reserved path")

	// Link errors
	ErrLinkNotFound         = errors.New("link not found")
	ErrLinkAccessDenied     = errors.New("link access denied")
	ErrCustomSlugNotAllowed = errors.New("custom slugs require a paid plan or a team link")
	ErrInvalidDestination   = errors.New("destination url is invalid")
	ErrExpiryInPast         = errors.New("expiry must be in the future")
	ErrStatsNotAllowed      = errors.New("link statistics require a paid plan")

	// Team errors
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamAccessDenied = errors.New("team access denied")

	// Auth errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrAPIKeyNotFound  = errors.New("api key not found")
	ErrInvalidAPIKey   = errors.New("invalid api key")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsCodeSpaceExhausted(err error) bool {
	return errors.Is(err, ErrCodeSpaceExhausted)
}

func IsDuplicateSlug(err error) bool {
	return errors.Is(err, ErrDuplicateSlug)
}

func IsInvalidCustomSlug(err error) bool {
	return errors.Is(err, ErrInvalidCustomSlug) || errors.Is(err, ErrCustomSlugTooLong) || errors.Is(err, ErrReservedSlug)
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsLinkAccessDenied(err error) bool {
	return errors.Is(err, ErrLinkAccessDenied)
}

func IsCustomSlugNotAllowed(err error) bool {
	return errors.Is(err, ErrCustomSlugNotAllowed)
}

func IsInvalidDestination(err error) bool {
	return errors.Is(err, ErrInvalidDestination)
}

func IsExpiryInPast(err error) bool {
	return errors.Is(err, ErrExpiryInPast)
}

func IsStatsNotAllowed(err error) bool {
	return errors.Is(err, ErrStatsNotAllowed)
}

func IsTeamNotFound(err error) bool {
	return errors.Is(err, ErrTeamNotFound)
}

func IsTeamAccessDenied(err error) bool {
	return errors.Is(err, ErrTeamAccessDenied)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsAPIKeyNotFound(err error) bool {
	return errors.Is(err, ErrAPIKeyNotFound)
}

func IsInvalidAPIKey(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}
