package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Prefix    = "$argon2id$"
	minArgon2Memory = 8 * 1024
	minArgon2Salt   = 16
	minArgon2Key    = 16
)

// Argon2Config holds argon2id parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns 64 MiB, 3 passes, 2 lanes, 16 byte salt, 32 byte key.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < minArgon2Memory:
		return errors.New("argon2 memory must be >= 8192 KiB")
	case c.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < minArgon2Salt:
		return errors.New("argon2 salt length must be >= 16")
	case c.KeyLength < minArgon2Key:
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Argon2 produces PHC-formatted argon2id hashes:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type Argon2 struct {
	cfg Argon2Config
}

func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{cfg: cfg}, nil
}

func (a *Argon2) Hash(plain string) (string, error) {
	salt := make([]byte, a.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version,
		a.cfg.Memory, a.cfg.Time, a.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	p, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(plain), p.salt, p.cfg.Time, p.cfg.Memory, p.cfg.Parallelism, p.cfg.KeyLength)
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	p, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	return p.cfg.Memory < a.cfg.Memory ||
		p.cfg.Time < a.cfg.Time ||
		p.cfg.Parallelism < a.cfg.Parallelism ||
		p.cfg.KeyLength != a.cfg.KeyLength, nil
}

type argon2Hash struct {
	cfg  Argon2Config
	salt []byte
	key  []byte
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	if !strings.HasPrefix(encoded, argon2Prefix) {
		return nil, errors.New("not an argon2id hash")
	}
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, errors.New("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var h argon2Hash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.cfg.Memory, &h.cfg.Time, &h.cfg.Parallelism); err != nil {
		return nil, errors.New("invalid argon2 parameters")
	}
	if h.cfg.Memory < minArgon2Memory || h.cfg.Time < 1 || h.cfg.Parallelism < 1 {
		return nil, errors.New("invalid argon2 parameters")
	}

	var err error
	if h.salt, err = decodeB64(parts[4]); err != nil || len(h.salt) < minArgon2Salt {
		return nil, errors.New("invalid argon2 salt")
	}
	if h.key, err = decodeB64(parts[5]); err != nil || len(h.key) == 0 {
		return nil, errors.New("invalid argon2 hash")
	}
	h.cfg.KeyLength = uint32(len(h.key))
	h.cfg.SaltLength = uint32(len(h.salt))
	return &h, nil
}

// decodeB64 accepts padded and unpadded standard base64, since both appear
// in PHC strings written by different libraries.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
