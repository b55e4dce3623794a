package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidKeyHash         = errors.New("invalid admin key hash format")
	ErrIncompatibleKeyVersion = errors.New("incompatible admin key hash version")
)

// Argon2idParams tunes admin key hashing.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// CreateAdminKeyHash hashes key in the $argon2id$v=19$m=...,t=...,p=...$salt$hash format.
func CreateAdminKeyHash(key string, params Argon2idParams) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("admin key must not be empty")
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

type adminKeyHash struct {
	params Argon2idParams
	salt   []byte
	hash   []byte
}

func parseAdminKeyHash(encoded string) (adminKeyHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return adminKeyHash{}, ErrInvalidKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return adminKeyHash{}, ErrInvalidKeyHash
	}
	if version != argon2.Version {
		return adminKeyHash{}, ErrIncompatibleKeyVersion
	}

	var parsed adminKeyHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &parsed.params.Memory, &parsed.params.Iterations, &parsed.params.Parallelism); err != nil {
		return adminKeyHash{}, ErrInvalidKeyHash
	}

	var err error
	if parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return adminKeyHash{}, ErrInvalidKeyHash
	}
	if parsed.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return adminKeyHash{}, ErrInvalidKeyHash
	}
	parsed.params.SaltLength = uint32(len(parsed.salt))
	parsed.params.KeyLength = uint32(len(parsed.hash))
	return parsed, nil
}

// AdminAuthenticator checks presented admin keys against a stored hash.
type AdminAuthenticator struct {
	hash adminKeyHash
}

// NewAdminAuthenticator parses the configured hash up front so that a
// malformed value fails at startup.
func NewAdminAuthenticator(encodedHash string) (*AdminAuthenticator, error) {
	parsed, err := parseAdminKeyHash(encodedHash)
	if err != nil {
		return nil, err
	}
	return &AdminAuthenticator{hash: parsed}, nil
}

// Authenticate returns ErrUnauthorized unless key matches.
func (a *AdminAuthenticator) Authenticate(key string) error {
	if a == nil || key == "" {
		return ErrUnauthorized
	}
	p := a.hash.params
	candidate := argon2.IDKey([]byte(key), a.hash.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(a.hash.hash, candidate) != 1 {
		return ErrUnauthorized
	}
	return nil
}
