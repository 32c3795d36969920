// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authcache

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// ===== PASSPHRASE PROTECTION =====
//
// By default the record embeds its own key, which protects against casual
// file reads but not against an attacker who copies the whole record. An
// optional passphrase mode wraps the data key under a PBKDF2-derived key
// instead of storing it bare.

// PBKDF2Iterations matches current OWASP guidance for PBKDF2-SHA256.
const PBKDF2Iterations = 600_000

// SaltSize is the PBKDF2 salt size in bytes.
const SaltSize = 16

// DeriveKey derives an AES-256 key from a passphrase and salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// StoreProtected encrypts the credential under a fresh data key, then wraps
// that key under a passphrase-derived key before persisting. Unlike Store
// there is no plaintext fallback: a caller asking for passphrase protection
// gets an error when crypto fails, never a silent downgrade.
func (c *Cache) StoreProtected(cred Credential, passphrase string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dataKey := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.randSource, dataKey); err != nil {
		return fmt.Errorf("failed to generate data key: %w", err)
	}
	if _, err := io.ReadFull(c.randSource, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	defer zeroBytes(dataKey)

	sealed, err := seal(dataKey, nonce, payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	// Wrap the data key under the passphrase key, reusing the record nonce.
	// The two plaintexts differ so nonce reuse across the two seals with
	// distinct keys is safe.
	wrapKey := DeriveKey(passphrase, salt)
	defer zeroBytes(wrapKey)
	wrapped, err := seal(wrapKey, nonce, dataKey)
	if err != nil {
		return fmt.Errorf("failed to wrap data key: %w", err)
	}

	if err := c.writeRecord(record{
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Key:       base64.StdEncoding.EncodeToString(wrapped),
		Protected: true,
		Salt:      base64.StdEncoding.EncodeToString(salt),
	}); err != nil {
		return err
	}

	// The caller just proved they hold the credential; keep this run's
	// session signed in rather than forcing an immediate unlock.
	c.unlocked = &cred
	return nil
}

// LoadProtected unwraps and decrypts a passphrase-protected record. Unlike
// Load it does return errors, because the caller supplied a passphrase and
// needs to know whether it was wrong.
func (c *Cache) LoadProtected(passphrase string) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadProtectedLocked(passphrase)
}

// Unlock decrypts a protected record and keeps the credential in memory, so
// Load and Token serve it for the rest of the run. Unlocking an unprotected
// or absent record is a no-op.
func (c *Cache) Unlock(passphrase string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.readRecord(); !ok || !rec.Protected {
		return nil
	}
	cred, err := c.loadProtectedLocked(passphrase)
	if err != nil {
		return err
	}
	c.unlocked = &cred
	return nil
}

// loadProtectedLocked holds the decryption logic. Callers hold c.mu.
func (c *Cache) loadProtectedLocked(passphrase string) (Credential, error) {
	rec, ok := c.readRecord()
	if !ok {
		return Credential{}, nil
	}
	if !rec.Protected {
		// Plain record: passphrase ignored, open normally.
		return openRecord(rec, nil)
	}

	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return Credential{}, fmt.Errorf("bad salt encoding: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil {
		return Credential{}, fmt.Errorf("bad nonce encoding: %w", err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(rec.Key)
	if err != nil {
		return Credential{}, fmt.Errorf("bad key encoding: %w", err)
	}

	wrapKey := DeriveKey(passphrase, salt)
	defer zeroBytes(wrapKey)
	dataKey, err := open(wrapKey, nonce, wrapped)
	if err != nil {
		return Credential{}, ErrBadPassphrase
	}

	return openRecord(rec, dataKey)
}

// IsProtected reports whether the stored record requires a passphrase.
func (c *Cache) IsProtected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.readRecord()
	return ok && rec.Protected
}
