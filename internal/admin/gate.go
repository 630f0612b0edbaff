// Package admin guards the management view behind one shared secret.
package admin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when a gate is built without a secret.
var ErrEmptySecret = errors.New("admin secret must not be empty")

// Decision is the outcome of one verification attempt.
type Decision int

const (
	// Idle means nothing was entered; neither success nor failure is shown.
	Idle Decision = iota
	// Granted means the secret matched.
	Granted
	// Denied means a non-empty secret did not match.
	Denied
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "idle"
	}
}

// Gate compares entered secrets against the configured one. Only the bcrypt
// hash of the secret's SHA-256 digest is kept, so secrets of any length are
// compared in full. Attempts are independent: no lockout.
type Gate struct {
	hash []byte
}

// New builds a gate for secret using bcrypt.DefaultCost.
func New(secret string) (*Gate, error) {
	return NewWithCost(secret, bcrypt.DefaultCost)
}

// NewWithCost builds a gate for secret hashed at the given bcrypt cost.
func NewWithCost(secret string, cost int) (*Gate, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword(digest(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin secret: %w", err)
	}
	return &Gate{hash: hash}, nil
}

// NewFromHash builds a gate from a bcrypt hash produced by HashSecret.
func NewFromHash(hash string) (*Gate, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("parse admin secret hash: %w", err)
	}
	return &Gate{hash: []byte(hash)}, nil
}

// HashSecret returns the bcrypt hash to put in the admin-secret-hash setting.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword(digest(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks an entered secret.
func (g *Gate) Verify(secret string) Decision {
	if secret == "" {
		return Idle
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, digest(secret)); err != nil {
		return Denied
	}
	return Granted
}

// digest maps a secret to the fixed 64-byte input bcrypt sees. bcrypt reads
// at most 72 bytes.
func digest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}
