package ninjaauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned by Hash for an empty plaintext.
var ErrEmptyPassword = errors.New("password must not be empty")

// Hasher hashes and verifies passwords.
type Hasher interface {
	// Hash returns a salted digest. Two calls with the same input differ.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches digest. Malformed digests
	// never match.
	Verify(digest, plaintext string) bool
}

// Argon2Params are the tunables of the Argon2id hasher. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params matches the defaults of the node argon2 package so
// digests written by earlier deployments verify unchanged.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// upper bounds applied to parameters parsed out of stored digests
const (
	maxArgon2Memory     = 1024 * 1024
	maxArgon2Iterations = 64
	maxArgon2KeyLength  = 128
)

// Argon2Hasher produces PHC formatted Argon2id digests:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher validates params and runs one hash/verify round trip. An
// error here is a configuration problem and should stop the process.
func NewArgon2Hasher(params Argon2Params) (*Argon2Hasher, error) {
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("argon2: memory, iterations and parallelism must be positive")
	}
	if params.Memory > maxArgon2Memory || params.Iterations > maxArgon2Iterations {
		return nil, fmt.Errorf("argon2: parameters exceed supported limits")
	}
	if params.SaltLength < 8 || params.KeyLength < 16 || params.KeyLength > maxArgon2KeyLength {
		return nil, fmt.Errorf("argon2: salt must be >= 8 bytes and key 16-%d bytes", maxArgon2KeyLength)
	}
	h := &Argon2Hasher{params: params}
	digest, err := h.Hash("self-test")
	if err != nil {
		return nil, fmt.Errorf("argon2 self-test: %w", err)
	}
	if !h.Verify(digest, "self-test") {
		return nil, fmt.Errorf("argon2 self-test: digest does not verify")
	}
	return h, nil
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey([]byte(plaintext), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(digest, plaintext string) bool {
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}
	p, salt, key, err := decodeArgon2Digest(digest)
	if err != nil {
		return false
	}
	other := argon2.IDKey([]byte(plaintext), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(key, other) == 1
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

func decodeArgon2Digest(digest string) (p Argon2Params, salt, key []byte, err error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("not an argon2id digest")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, err
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, err
	}
	if p.Memory == 0 || p.Memory > maxArgon2Memory || p.Iterations == 0 || p.Iterations > maxArgon2Iterations || p.Parallelism == 0 {
		return p, nil, nil, errors.New("argon2 parameters out of range")
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, nil, nil, err
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return p, nil, nil, err
	}
	if len(key) == 0 || len(key) > maxArgon2KeyLength {
		return p, nil, nil, errors.New("argon2 key length out of range")
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
