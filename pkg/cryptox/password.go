package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. These follow the OWASP baseline for interactive
// logins; bumping them only affects newly minted hashes because each hash
// string carries its own parameters.
const (
	saltLength  = 16
	iterations  = 3
	memory      = 64 * 1024 // KiB
	parallelism = 2
	keyLength   = 32
)

// MaxSecretLength is the largest secret the hasher accepts. Argon2 itself
// has no practical input ceiling, but password policies must not exceed
// this so a hostile multi-megabyte "password" can't pin a CPU.
const MaxSecretLength = 1024

// ErrMismatch is returned when a password does not match its stored hash,
// or when the stored hash is malformed. The two cases are deliberately not
// distinguishable to callers.
var ErrMismatch = errors.New("cryptox: password mismatch")

// HashPassword generates a PHC-format Argon2id hash string including salt
// and parameters.
func HashPassword(password string) (string, error) {
	if len(password) > MaxSecretLength {
		// Oversize input is a policy violation, not an internal failure.
		return "", &StrengthError{
			Reasons: []string{fmt.Sprintf("must be at most %d characters", MaxSecretLength)},
		}
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism, b64Salt, b64Hash,
	), nil
}

// VerifyPassword compares a plaintext password against a PHC-style Argon2id
// hash. Any malformed stored hash verifies as ErrMismatch rather than a
// distinct parse failure, so a storage anomaly is indistinguishable from a
// wrong password.
func VerifyPassword(password, encodedHash string) error {
	salt, expected, mem, iters, par, err := decodePHC(encodedHash)
	if err != nil {
		return ErrMismatch
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - key length comes from our own encoder
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrMismatch
}

// decodePHC parses "$argon2id$v=19$m=X,t=Y,p=Z$salt$hash".
func decodePHC(encoded string) (salt, hash []byte, mem, iters uint32, par uint8, err error) {
	parts := make([]string, 0, 6)
	start := 0
	for i := range len(encoded) {
		if encoded[i] == '$' {
			parts = append(parts, encoded[start:i])
			start = i + 1
		}
	}
	parts = append(parts, encoded[start:])

	// Expected structure: ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return nil, nil, 0, 0, 0, errors.New("cryptox: invalid hash format")
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("cryptox: invalid hash parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("cryptox: invalid salt encoding: %w", err)
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("cryptox: invalid hash encoding: %w", err)
	}
	if len(hash) == 0 {
		return nil, nil, 0, 0, 0, errors.New("cryptox: empty hash")
	}

	return salt, hash, mem, iters, par, nil
}
