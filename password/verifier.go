package password

import (
	"errors"
	"strings"
)

// Algorithm selects the primary hashing algorithm of a [Verifier].
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// ErrUnknownHash is returned when a stored hash matches no known algorithm.
var ErrUnknownHash = errors.New("unrecognized password hash format")

type hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

// Config configures a [Verifier].
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Config
}

// Verifier hashes with the configured primary algorithm and verifies hashes
// produced by either supported algorithm. It is safe for concurrent use.
type Verifier struct {
	primary Algorithm
	bcrypt  *Bcrypt
	argon2  *Argon2
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.Argon2 == (Argon2Config{}) {
		cfg.Argon2 = DefaultArgon2Config()
	}

	b, err := NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	a, err := NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return nil, errors.New("unsupported password algorithm")
	}

	return &Verifier{primary: cfg.Algorithm, bcrypt: b, argon2: a}, nil
}

// Hash hashes plain with the primary algorithm.
func (v *Verifier) Hash(plain string) (string, error) {
	if v.primary == AlgorithmArgon2id {
		return v.argon2.Hash(plain)
	}
	return v.bcrypt.Hash(plain)
}

// Verify compares plain against encoded. A mismatch is (false, nil).
func (v *Verifier) Verify(plain, encoded string) (bool, error) {
	h, err := v.hasherFor(encoded)
	if err != nil {
		return false, err
	}
	return h.Verify(plain, encoded)
}

// NeedsRehash reports whether encoded should be replaced by a fresh Hash:
// either it was made by a non-primary algorithm or with weaker parameters.
func (v *Verifier) NeedsRehash(encoded string) (bool, error) {
	h, err := v.hasherFor(encoded)
	if err != nil {
		return false, err
	}
	if algorithmOf(encoded) != v.primary {
		return true, nil
	}
	return h.NeedsUpgrade(encoded)
}

func (v *Verifier) hasherFor(encoded string) (hasher, error) {
	switch algorithmOf(encoded) {
	case AlgorithmBcrypt:
		return v.bcrypt, nil
	case AlgorithmArgon2id:
		return v.argon2, nil
	}
	return nil, ErrUnknownHash
}

func algorithmOf(encoded string) Algorithm {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return AlgorithmArgon2id
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return AlgorithmBcrypt
	}
	return ""
}
