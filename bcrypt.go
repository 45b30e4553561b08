package auth

import (
	"errors"

	"github.com/google/uuid"
	"github.com/leadnest/leadnest-auth/security"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", NewValidationError("password", security.ReasonPasswordTooLong)
	}
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a throwaway digest nobody knows the password for.
// Login compares against it when the email is unknown so both paths cost
// one bcrypt comparison.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

// BcryptHasher implements PasswordHasher
type BcryptHasher struct{}

var _ PasswordHasher = BcryptHasher{}

// Hash returns the bcrypt digest of password
func (BcryptHasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

// Verify reports whether password matches digest
func (BcryptHasher) Verify(password, digest string) bool {
	return ComparePasswordAndHash(password, digest) == nil
}
