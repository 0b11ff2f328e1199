package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrTokenMismatch = errors.New("token does not match stored hash")

const tokenBytes = 32

// TokenIssuer mints and verifies capability secrets. The raw secret is
// returned to the caller exactly once; storage keeps a deterministic SHA-256
// lookup digest (for indexed retrieval) and a bcrypt hash (for
// verification), so a leaked table does not yield usable tokens.
type TokenIssuer interface {
	Mint() (secret, lookup, hash string, err error)
	Lookup(secret string) string
	Verify(secret, hash string) error
}

type bcryptTokenIssuer struct {
	cost int
}

// NewTokenIssuer creates a capability token issuer backed by bcrypt.
func NewTokenIssuer(cost int) TokenIssuer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptTokenIssuer{cost: cost}
}

func (i *bcryptTokenIssuer) Mint() (string, string, string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), i.cost)
	if err != nil {
		return "", "", "", err
	}
	return secret, i.Lookup(secret), string(hash), nil
}

func (i *bcryptTokenIssuer) Lookup(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

func (i *bcryptTokenIssuer) Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrTokenMismatch
	}
	return nil
}
