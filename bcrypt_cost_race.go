//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds are slow enough already, the default cost keeps tests in budget
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
