package domain

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{2,19}$`)
	sensorIDRe = regexp.MustCompile(`^sen_\d{4}$`)
)

const passwordSpecials = "@$!%*?&"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

// RegisterValidations installs the custom tags (username, password, sensorid)
// on v. The HTTP binding engine calls it too.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(strings.ToLower(fl.Field().String()))
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("sensorid", func(fl validator.FieldLevel) bool {
		return sensorIDRe.MatchString(fl.Field().String())
	})
}

func NormalizeEmail(s string) string    { return strings.ToLower(strings.TrimSpace(s)) }
func NormalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ValidEmail(s string) bool {
	return s != "" && validate.Var(s, "email") == nil
}

// ValidUsername expects an already normalized value.
func ValidUsername(s string) bool { return usernameRe.MatchString(s) }

// StrongPassword: 8-50 chars with an upper, a lower, a digit and one of @$!%*?&.
func StrongPassword(s string) bool {
	if n := len(s); n < 8 || n > 50 {
		return false
	}
	var up, low, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			up = true
		case unicode.IsLower(r):
			low = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return up && low && digit && special
}

func ValidSensorID(s string) bool { return sensorIDRe.MatchString(s) }

// SanitizeUsername lower-cases s and drops everything outside [a-z0-9_].
func SanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
