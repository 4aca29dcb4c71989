// Package password provides password hashing and strength policy.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher abstracts the password hashing scheme so services and tests can
// substitute implementations.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hashed, plain string) error
}

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = bcrypt.ErrMismatchedHashAndPassword

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

const minPasswordLength = 16

// ValidateStrength reports whether the password meets policy. When it does
// not, feedback holds a user-presentable reason.
func ValidateStrength(password string) (ok bool, feedback string) {
	if len(password) < minPasswordLength {
		return false, "Password should be 16 characters minimum"
	}
	return true, ""
}
