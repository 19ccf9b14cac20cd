package service

import (
	"crypto/hmac"
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// applyPepper applies HMAC-SHA256 using the pepper as the key.
// Результат всегда 32 байта, поэтому лимит bcrypt в 72 байта не срезает длинные пароли.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the password after applying the pepper.
func hashPassword(password, pepper string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain text password (after applying pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
