package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fernet/fernet-go"
)

// sealedPrefix marks bodies that carry the id of the key that sealed them:
// "v1:<key id>:<base64(nonce|ciphertext)>".
const sealedPrefix = "v1:"

// Encryptor seals message bodies at rest with AES-GCM. Every body records
// which key sealed it, so ENCRYPTION_KEY can be rotated while the old secret
// stays listed as a previous key. Previous keys that parse as Fernet keys
// also open Fernet tokens.
type Encryptor struct {
	current string
	keys    map[string]cipher.AEAD
	// order is the current key followed by previous keys, for untagged bodies.
	order      []string
	fernetKeys []*fernet.Key
}

// NewEncryptor derives each AES-256 key from the SHA-256 of its secret.
func NewEncryptor(key []byte, previousKeys []string) (*Encryptor, error) {
	if len(key) == 0 {
		return nil, errors.New("encryption key must not be empty")
	}
	e := &Encryptor{keys: make(map[string]cipher.AEAD)}
	id, err := e.addKey(key)
	if err != nil {
		return nil, err
	}
	e.current = id

	for _, raw := range previousKeys {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, err := e.addKey([]byte(raw)); err != nil {
			return nil, err
		}
		if fk, err := fernet.DecodeKey(raw); err == nil {
			e.fernetKeys = append(e.fernetKeys, fk)
		}
	}
	return e, nil
}

func (e *Encryptor) addKey(secret []byte) (string, error) {
	sum := sha256.Sum256(secret)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return "", err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	id := keyID(sum[:])
	if _, ok := e.keys[id]; !ok {
		e.keys[id] = aead
		e.order = append(e.order, id)
	}
	return id, nil
}

// keyID names a derived key without revealing it.
func keyID(derived []byte) string {
	sum := sha256.Sum256(derived)
	return hex.EncodeToString(sum[:4])
}

// KeyID is the id stamped on bodies sealed by Encrypt.
func (e *Encryptor) KeyID() string {
	return e.current
}

func (e *Encryptor) Encrypt(plain string) (string, error) {
	aead := e.keys[e.current]
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + e.current + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(enc string) (string, error) {
	if rest, ok := strings.CutPrefix(enc, sealedPrefix); ok {
		id, body, ok := strings.Cut(rest, ":")
		if !ok {
			return "", errors.New("malformed message body")
		}
		aead, ok := e.keys[id]
		if !ok {
			return "", fmt.Errorf("message body sealed with unknown key %s", id)
		}
		plain, err := open(aead, body)
		if err != nil {
			return "", fmt.Errorf("decrypt with key %s: %w", id, err)
		}
		return plain, nil
	}

	// Untagged bodies predate key ids; try every key.
	for _, id := range e.order {
		if plain, err := open(e.keys[id], enc); err == nil {
			return plain, nil
		}
	}
	if len(e.fernetKeys) > 0 {
		// ttl 0 disables the Fernet timestamp check.
		if plain := fernet.VerifyAndDecrypt([]byte(enc), 0, e.fernetKeys); plain != nil {
			return string(plain), nil
		}
	}
	return "", errors.New("failed to decrypt message body")
}

func open(aead cipher.AEAD, body string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
