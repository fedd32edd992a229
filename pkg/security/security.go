package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDigest compares two hex digests case-insensitively in constant time.
// Providers are inconsistent about hex casing in postback signatures.
func CompareDigest(got, want string) bool {
	g := strings.ToLower(strings.TrimSpace(got))
	w := strings.ToLower(want)
	if len(g) != len(w) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g), []byte(w)) == 1
}
