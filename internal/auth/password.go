package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the cost existing hashes were created with.
const PasswordCost = 10

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword returns false for a mismatch and for a malformed hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
