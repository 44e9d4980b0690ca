// internal/app/system/authutil/password.go
package authutil

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored account passwords.
const BcryptCost = 12

// DefaultGeneratedLength is the length of passwords issued to new accounts.
const DefaultGeneratedLength = 8

// passwordAlphabet holds the characters generated passwords are drawn from.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashPassword returns the bcrypt hash of password. Each call uses a fresh
// salt, so hashing the same password twice yields different strings.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// An empty or malformed hash never matches.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GeneratePassword creates a random password of the given length (letters
// and digits only) together with its hash. The plaintext is meant to be
// shown once to the administrator who provisions the account.
//
// Panics if the system's cryptographic random number generator fails.
func GeneratePassword(length int) (plain, hash string, err error) {
	if length <= 0 {
		length = DefaultGeneratedLength
	}
	plain = randomString(length)
	hash, err = HashPassword(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hash, nil
}

func randomString(n int) string {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand.Int failed: " + err.Error())
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b)
}
