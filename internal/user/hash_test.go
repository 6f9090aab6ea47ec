package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CredentialHasher_VerifyAcceptsMatchingPassword(t *testing.T) {
	t.Parallel()

	hasher := newCredentialHasher()
	digest, salt, err := hasher.HashPassword([]byte("hunter2hunter2"))
	assert.Nil(t, err)
	assert.Len(t, digest, 128)
	assert.Len(t, salt, 64)

	assert.Nil(t, hasher.VerifyPassword(digest, salt, []byte("hunter2hunter2")))
	assert.NotNil(t, hasher.VerifyPassword(digest, salt, []byte("wrong-password")))
}

func Test_CredentialHasher_SaltIsUniquePerHash(t *testing.T) {
	t.Parallel()

	hasher := newCredentialHasher()
	firstDigest, firstSalt, err := hasher.HashPassword([]byte("hunter2hunter2"))
	assert.Nil(t, err)
	secondDigest, secondSalt, err := hasher.HashPassword([]byte("hunter2hunter2"))
	assert.Nil(t, err)

	assert.NotEqual(t, firstSalt, secondSalt)
	assert.NotEqual(t, firstDigest, secondDigest)
}
