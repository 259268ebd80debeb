package domain

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// APIKeySecretPrefix marks API key secrets so logs can redact them.
	APIKeySecretPrefix = "clas_"

	// SecretLength is the number of random bytes in a generated secret.
	SecretLength = 32
)

// Argon2id parameters for API key secret hashing.
const (
	Argon2Memory      uint32 = 16384
	Argon2Time        uint32 = 2
	Argon2Parallelism uint8  = 2
	Argon2KeyLen      uint32 = 32
	Argon2SaltLen            = 16
)

const argon2Prefix = "$argon2id$v=19$m=16384,t=2,p=2$"

// Role defines what an API key may do.
type Role string

const (
	// RoleIssuer may submit mints. The key's address is the mint caller.
	RoleIssuer Role = "issuer"

	// RoleAdmin may submit mints and manage the cluster.
	RoleAdmin Role = "admin"
)

// IsValidRole reports whether r names a known role.
func IsValidRole(r string) bool {
	switch Role(r) {
	case RoleIssuer, RoleAdmin:
		return true
	}
	return false
}

// Allows reports whether the role grants required.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// APIKey binds a hashed secret to the caller address it authenticates as.
type APIKey struct {
	ID         string  `koanf:"id" json:"id"`
	SecretHash string  `koanf:"secret_hash" json:"-"`
	Address    Address `koanf:"address" json:"address"`
	Role       Role    `koanf:"role" json:"role"`

	// Allowlist restricts the key to these IPs or CIDRs. Empty means any.
	Allowlist []string `koanf:"allowlist" json:"allowlist,omitempty"`
}

// Validate checks the key definition.
func (k *APIKey) Validate() error {
	if strings.TrimSpace(k.ID) == "" {
		return ErrBadRequest.WithDetails("api key id is required")
	}
	if !strings.HasPrefix(k.SecretHash, "$argon2id$") {
		return ErrBadRequest.WithDetails("api key " + k.ID + ": secret_hash must be an argon2id hash")
	}
	if !IsValidRole(string(k.Role)) {
		return ErrBadRequest.WithDetails("api key " + k.ID + ": unknown role " + string(k.Role))
	}
	if _, err := ParseAddress(string(k.Address)); err != nil {
		return ErrBadRequest.WithDetails("api key " + k.ID + ": invalid address").WithCause(err)
	}
	return nil
}

// Clone returns a deep copy of the key.
func (k *APIKey) Clone() *APIKey {
	c := *k
	if k.Allowlist != nil {
		c.Allowlist = append([]string(nil), k.Allowlist...)
	}
	return &c
}

// Verify reports whether secret matches the stored hash.
func (k *APIKey) Verify(secret string) bool {
	return VerifySecret(secret, k.SecretHash)
}

// GenerateSecret returns a new random secret carrying APIKeySecretPrefix.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return APIKeySecretPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret computes an Argon2id hash of the secret in the format
// $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", ErrInternalServer.WithCause(err)
	}

	hash := argon2.IDKey([]byte(secret), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)

	return argon2Prefix +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(hash), nil
}

// VerifySecret checks secret against an Argon2id hash produced by HashSecret.
func VerifySecret(secret, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(secret), salt, Argon2Time, Argon2Memory, Argon2Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// MaskSecret returns a display-safe form of a secret.
func MaskSecret(secret string) string {
	body := strings.TrimPrefix(secret, APIKeySecretPrefix)
	if len(body) <= 6 {
		return APIKeySecretPrefix + "***"
	}
	return APIKeySecretPrefix + body[:3] + "..." + body[len(body)-3:]
}
