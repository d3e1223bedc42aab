package httpserver

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var idChars = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// getValidator returns the shared validator instance with the id charset
// rule registered. Tag order matters: max runs before idchars so an
// over-long id reports TOO_LONG, not INVALID_FORMAT.
func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		_ = vld.RegisterValidation("idchars", func(fl validator.FieldLevel) bool {
			return idChars.MatchString(fl.Field().String())
		})
	})
	return vld
}

// validateID checks a session or user identifier against the shared rules.
// Empty is valid; the caller substitutes a default.
func validateID(field, label, id string) ValidationResult {
	if id == "" {
		return ValidationResult{Valid: true}
	}

	err := getValidator().Var(id, "max=64,idchars")
	if err == nil {
		return ValidationResult{Valid: true}
	}

	verr := ValidationError{
		Field:   field,
		Code:    "INVALID_FORMAT",
		Message: label + " contains invalid characters",
	}
	if fes, ok := err.(validator.ValidationErrors); ok && len(fes) > 0 && fes[0].Tag() == "max" {
		verr.Code = "TOO_LONG"
		verr.Message = label + " is too long (max 64 characters)"
	}
	return ValidationResult{Valid: false, Errors: []ValidationError{verr}}
}

// ValidateSessionID validates a client-supplied session ID. An empty ID is
// valid; the gateway mints a fresh one in that case.
func ValidateSessionID(sessionID string) ValidationResult {
	return validateID("session_id", "Session ID", sessionID)
}

// ValidateUserID validates a trader/user identifier such as T_HY_TRADER7.
// Empty is valid; the desk then defaults to GENERAL.
func ValidateUserID(userID string) ValidationResult {
	return validateID("user", "User ID", userID)
}

// SanitizeString sanitizes a short string input such as a desk name.
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	// Limit length to prevent DoS
	if len(input) > 1000 {
		input = input[:1000]
	}

	// Ensure valid UTF-8
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}

	return input
}
