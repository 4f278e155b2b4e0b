package security_test

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmatch/internal/domain"
	"workmatch/internal/security"
)

func TestTokenService(t *testing.T) {
	tokens := security.NewTokenService("test-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		tok, err := tokens.CreateForUser(&domain.User{ID: 42, Role: domain.RoleSpecialist})
		require.NoError(t, err)

		claims, err := tokens.Parse(tok)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, domain.RoleSpecialist, claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		tok, err := tokens.CreateWithTTL(1, domain.RoleClient, -time.Minute)
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := security.NewTokenService("other-secret", time.Hour)
		tok, err := other.CreateWithTTL(1, domain.RoleClient, time.Hour)
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		tok, err := tokens.CreateWithTTL(1, domain.Role("admin"), time.Hour)
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.Error(t, err)
	})
}

func TestEncryptor(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("a long enough passphrase"), nil)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := enc.Encrypt("Hello, can you fix a leaking pipe?")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "leaking")

		plain, err := enc.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "Hello, can you fix a leaking pipe?", plain)
	})

	t.Run("nonce differs per call", func(t *testing.T) {
		a, _ := enc.Encrypt("same")
		b, _ := enc.Encrypt("same")
		assert.NotEqual(t, a, b)
	})

	t.Run("previous fernet key", func(t *testing.T) {
		var old fernet.Key
		require.NoError(t, old.Generate())
		legacy, err := fernet.EncryptAndSign([]byte("written before rotation"), &old)
		require.NoError(t, err)

		rotated, err := security.NewEncryptor([]byte("new key"), []string{old.Encode()})
		require.NoError(t, err)
		plain, err := rotated.Decrypt(string(legacy))
		require.NoError(t, err)
		assert.Equal(t, "written before rotation", plain)
	})

	t.Run("rotation keeps old bodies readable", func(t *testing.T) {
		sealed, err := enc.Encrypt("before rotation")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, "v1:"+enc.KeyID()+":"))

		rotated, err := security.NewEncryptor([]byte("the next passphrase"), []string{"a long enough passphrase"})
		require.NoError(t, err)
		assert.NotEqual(t, enc.KeyID(), rotated.KeyID())

		plain, err := rotated.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "before rotation", plain)

		fresh, err := rotated.Encrypt("after rotation")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(fresh, "v1:"+rotated.KeyID()+":"))
		_, err = enc.Decrypt(fresh)
		assert.ErrorContains(t, err, "unknown key")
	})

	t.Run("untagged body", func(t *testing.T) {
		sum := sha256.Sum256([]byte("a long enough passphrase"))
		block, err := aes.NewCipher(sum[:])
		require.NoError(t, err)
		aead, err := cipher.NewGCM(block)
		require.NoError(t, err)
		nonce := make([]byte, aead.NonceSize())
		_, err = rand.Read(nonce)
		require.NoError(t, err)
		untagged := base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte("older format"), nil))

		rotated, err := security.NewEncryptor([]byte("the next passphrase"), []string{"a long enough passphrase"})
		require.NoError(t, err)
		plain, err := rotated.Decrypt(untagged)
		require.NoError(t, err)
		assert.Equal(t, "older format", plain)
	})

	t.Run("tampered", func(t *testing.T) {
		sealed, err := enc.Encrypt("intact")
		require.NoError(t, err)
		_, err = enc.Decrypt(sealed[:len(sealed)-4] + "AAAA")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := enc.Decrypt("not-a-ciphertext")
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := security.NewEncryptor(nil, nil)
		assert.Error(t, err)
	})
}
