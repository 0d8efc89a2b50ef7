// Package security provides password hashing and verification.
//
// Passwords are hashed with Argon2id and stored as PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$<salt>$<key>), so every hash carries its
// own random salt and parameters. Verification reads the parameters back out
// of the stored hash, which keeps old hashes valid if the defaults change.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidInput is returned when the hasher is given unusable input, such
// as a stored hash whose encoded parameters are outside the values argon2
// will accept.
var ErrInvalidInput = errors.New("security: invalid input")

const (
	argonMemory  uint32 = 64 * 1024 // KiB
	argonTime    uint32 = 1
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	// maxDecodeMemory caps the memory parameter accepted from a stored
	// hash (KiB, 4 GiB). A hostile hash string must not be able to make
	// verification allocate arbitrary amounts of memory.
	maxDecodeMemory uint64 = 4 * 1024 * 1024
)

// Hash hashes password with Argon2id using a fresh random salt and returns
// a PHC-formatted string. Hashing the same password twice yields different
// outputs; both verify.
func Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the stored PHC hash. A malformed,
// truncated, or wrongly encoded hash verifies as false; Verify never fails.
func Verify(storedHash, password string) bool {
	memory, time, threads, salt, key, err := decode(storedHash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// decode parses a $argon2id$v=19$m=...,t=...,p=...$<salt>$<key> string.
func decode(encoded string) (memory, time uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, errors.New("not an argon2id hash")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return 0, 0, 0, nil, nil, errors.New("malformed parameter segment")
	}
	m, err := paramValue(params[0], "m")
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	t, err := paramValue(params[1], "t")
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	p, err := paramValue(params[2], "p")
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}

	// argon2.IDKey panics on zero time or parallelism, so hashes carrying
	// them must be rejected here, not fed through.
	if t < 1 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: time must be >= 1", ErrInvalidInput)
	}
	if p < 1 || p > 255 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: parallelism must be in 1..255", ErrInvalidInput)
	}
	if m < 8*p {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: memory below 8*parallelism", ErrInvalidInput)
	}
	if m > maxDecodeMemory {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: memory above %d KiB", ErrInvalidInput, maxDecodeMemory)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	if len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("empty key")
	}
	return uint32(m), uint32(t), uint8(p), salt, key, nil
}

func paramValue(s, name string) (uint64, error) {
	v, ok := strings.CutPrefix(s, name+"=")
	if !ok {
		return 0, fmt.Errorf("expected %s= in %q", name, s)
	}
	return strconv.ParseUint(v, 10, 32)
}
