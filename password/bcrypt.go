package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the production hashing cost (~2^12 rounds).
const DefaultCost = 12

// dummyPlaintext feeds the fixed-cost verification used to equalize the
// timing of unknown-user and wrong-password failures.
const dummyPlaintext = "authcore-dummy-credential-placeholder"

// Hasher produces and verifies bcrypt password hashes at a fixed cost.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// New creates a Hasher. The dummy hash used by [Hasher.DummyVerify] is
// computed once here so construction, not the hot path, pays for it.
func New(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPlaintext), cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Cost returns the configured hashing cost.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash derives a salted hash of plaintext. Each call salts freshly, so
// hashing the same input twice yields different outputs.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("empty password")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes verify
// false; no error escapes.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyVerify burns one full-cost verification against the precomputed
// placeholder hash. The engine calls it when the login identifier does not
// resolve, so that branch performs the same hashing work as a
// wrong-password branch.
func (h *Hasher) DummyVerify() {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte("not-the-placeholder"))
}
