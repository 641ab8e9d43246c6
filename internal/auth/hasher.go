package auth

import "golang.org/x/crypto/bcrypt"

// maxPasswordBytes is the most bcrypt reads of a password.
const maxPasswordBytes = 72

// PasswordHasher defines the minimal hashing interface so the algorithm can be
// swapped without touching the service.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. Passwords longer than 72 bytes are truncated
// on both hash and verify, so they are accepted rather than rejected.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword(truncate(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(pw)) == nil
}

func truncate(pw string) []byte {
	b := []byte(pw)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
