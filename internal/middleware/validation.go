package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// MaxIDLen matches creators.creator_id and payout_cycles.cycle_id VARCHAR(64).
const MaxIDLen = 64

// idRe matches opaque ids: alphanumeric, dash, underscore.
var idRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateCreatorID checks that a creator id is well-formed and within DB limits.
func ValidateCreatorID(id string) (string, string) {
	return validateID("creatorId", id)
}

// ValidateCycleID checks that a cycle id is well-formed and within DB limits.
func ValidateCycleID(id string) (string, string) {
	return validateID("cycleId", id)
}

// validateID trims id and checks it. The id is otherwise kept as given,
// since ids are matched byte for byte against what ingestion stored.
func validateID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	if len(id) > MaxIDLen {
		return "", field + " must be at most 64 characters"
	}
	if !idRe.MatchString(id) {
		return "", field + " contains invalid characters"
	}
	return id, ""
}
