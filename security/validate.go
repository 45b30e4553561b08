package security

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	PasswordMinLength = 8
	// PasswordMaxBytes is the longest input bcrypt accepts
	PasswordMaxBytes  = 72
	LocationMaxLength = 100

	ReasonPasswordLength  = "Password must be at least 8 characters long"
	ReasonPasswordTooLong = "Password must be at most 72 bytes long"
	ReasonPasswordUpper   = "Password must contain at least one uppercase letter"
	ReasonPasswordLower   = "Password must contain at least one lowercase letter"
	ReasonPasswordDigit   = "Password must contain at least one number"
	ReasonPasswordValid   = "Password is valid"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	locationPattern = regexp.MustCompile(`^[a-zA-Z0-9\s,.-]+$`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
)

// AllowedTrades is the fixed list of searchable trade categories
var AllowedTrades = []string{
	"roofing", "solar", "pool", "painting", "plumbing",
	"electrical", "hvac", "landscaping", "construction", "remodeling",
}

// PasswordRules are evaluated in order, the first failure is the reason
// reported back to the caller. The minimum counts characters, the maximum
// counts bytes.
var PasswordRules = []validation.Rule{
	validation.Required.Error(ReasonPasswordLength),
	validation.RuneLength(PasswordMinLength, 0).Error(ReasonPasswordLength),
	PasswordByteLimit,
	validation.Match(upperPattern).Error(ReasonPasswordUpper),
	validation.Match(lowerPattern).Error(ReasonPasswordLower),
	validation.Match(digitPattern).Error(ReasonPasswordDigit),
}

var EmailRules = []validation.Rule{
	validation.Required,
	validation.Match(emailPattern).Error("must be a valid email address"),
}

var LocationRules = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, LocationMaxLength),
	validation.Match(locationPattern).Error("may only contain letters, numbers, spaces, commas, periods and dashes"),
}

// PasswordByteLimit rejects passwords bcrypt would refuse to hash
var PasswordByteLimit = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if len(s) > PasswordMaxBytes {
		return errors.New(ReasonPasswordTooLong)
	}
	return nil
})

// TradeRule matches the allow-list ignoring case
var TradeRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if !ValidateTrade(s) {
		return errors.New("must be one of: " + strings.Join(AllowedTrades, ", "))
	}
	return nil
})

// ValidatePassword checks password strength and returns the reason it was
// rejected.
func ValidatePassword(password string) (bool, string) {
	if err := validation.Validate(password, PasswordRules...); err != nil {
		return false, err.Error()
	}
	return true, ReasonPasswordValid
}

// ValidateEmail checks the email format
func ValidateEmail(email string) bool {
	return validation.Validate(email, EmailRules...) == nil
}

// ValidateLocation allows letters, digits, whitespace and basic punctuation
// up to LocationMaxLength characters.
func ValidateLocation(location string) bool {
	return validation.Validate(location, LocationRules...) == nil
}

// ValidateTrade checks value against AllowedTrades ignoring case
func ValidateTrade(value string) bool {
	trade := strings.ToLower(value)
	for _, allowed := range AllowedTrades {
		if trade == allowed {
			return true
		}
	}
	return false
}
