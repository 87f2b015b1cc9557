package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const masterKeySize = 32

var errCiphertextTooShort = errors.New("ciphertext too short")

// loadOrCreateSecret reads the device secret from dir, generating it on
// first use. The secret is random; the at-rest key is derived from it so a
// future key-rotation scheme can re-derive without touching the secret file.
func loadOrCreateSecret(dir string) ([]byte, error) {
	path := filepath.Join(dir, "device.secret")
	if data, err := os.ReadFile(path); err == nil && len(data) == masterKeySize {
		return data, nil
	}
	secret := make([]byte, masterKeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("generate device secret: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("write device secret: %w", err)
	}
	return secret, nil
}

// deriveKey derives the AES key for at-rest encryption from the device secret.
func deriveKey(secret []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte("chat-intray-kv-at-rest"))
	out := make([]byte, masterKeySize)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// seal encrypts plaintext with AES-GCM, prepending the nonce to the ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	if len(key) != masterKeySize {
		return nil, errors.New("master key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ct...), nil
}

// open decrypts a nonce-prefixed AES-GCM blob.
func open(key, blob []byte) ([]byte, error) {
	if len(key) != masterKeySize {
		return nil, errors.New("master key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(blob) < ns {
		return nil, errCiphertextTooShort
	}
	return gcm.Open(nil, blob[:ns], blob[ns:], nil)
}
