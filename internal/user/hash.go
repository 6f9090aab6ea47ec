package user

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// credentialHasher derives argon2id digests for stored user credentials.
// The salt is generated here and stored alongside the digest; both are
// needed to verify a raw password later.
type credentialHasher struct {
	passes  uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

func newCredentialHasher() *credentialHasher {
	return &credentialHasher{passes: 1, memory: 64 * 1024, threads: 1, keyLen: 128, saltLen: 64}
}

// HashPassword derives a digest of the raw password under a freshly
// generated salt, returning both.
func (hasher *credentialHasher) HashPassword(rawPassword []byte) (digest []byte, salt []byte, err error) {
	salt = make([]byte, hasher.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate credential salt: %w", err)
	}

	return hasher.derive(rawPassword, salt), salt, nil
}

// VerifyPassword re-derives the digest of the raw password under the
// stored salt and compares it, in constant time, against the stored
// digest.
func (hasher *credentialHasher) VerifyPassword(digest []byte, salt []byte, rawPassword []byte) error {
	if subtle.ConstantTimeCompare(digest, hasher.derive(rawPassword, salt)) != 1 {
		return errors.New("password does not match stored digest")
	}

	return nil
}

func (hasher *credentialHasher) derive(rawPassword []byte, salt []byte) []byte {
	return argon2.IDKey(rawPassword, salt, hasher.passes, hasher.memory, hasher.threads, hasher.keyLen)
}
