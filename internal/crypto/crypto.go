// Package crypto derives per-session encryption keys and performs
// authenticated encryption of vault entry values.
//
// Key derivation is PBKDF2-HMAC-SHA256 at 600,000 iterations over the
// deployment master key and a per-session random salt. Encryption is
// AES-256-GCM with a fresh random nonce per call and no associated data.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyLen is the derived key length in bytes (AES-256).
	KeyLen = 32
	// SaltLen is the required session salt length in bytes.
	SaltLen = 32
	// NonceLen is the GCM nonce length in bytes.
	NonceLen = 12
	// Iterations is the PBKDF2 iteration count.
	Iterations = 600_000
)

// ErrAuthenticationFailed is returned when decryption fails: wrong key,
// wrong nonce, or a tampered ciphertext. It never distinguishes which.
var ErrAuthenticationFailed = errors.New("crypto: authentication failed")

// DeriveKey derives a 32-byte AES-256 key from the master key and a
// session salt. Deterministic: identical inputs always yield the same key.
func DeriveKey(masterKey string, salt []byte) ([]byte, error) {
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("crypto: salt must be %d bytes, got %d", SaltLen, len(salt))
	}
	if masterKey == "" {
		return nil, errors.New("crypto: master key is empty")
	}
	return pbkdf2.Key([]byte(masterKey), salt, Iterations, KeyLen, sha256.New), nil
}

// NewSalt generates a fresh random session salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext under key with a fresh random nonce, returning
// the ciphertext and the nonce used. No associated data is bound.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	nonce = make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext with key and nonce. Any mismatch — wrong key,
// wrong nonce, or tampered ciphertext — returns ErrAuthenticationFailed.
func Decrypt(ciphertext, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrAuthenticationFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for string plaintexts.
func EncryptString(plaintext string, key []byte) (ciphertext, nonce []byte, err error) {
	return Encrypt([]byte(plaintext), key)
}

// DecryptString is a convenience wrapper returning a string plaintext.
func DecryptString(ciphertext, key, nonce []byte) (string, error) {
	pt, err := Decrypt(ciphertext, key, nonce)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
