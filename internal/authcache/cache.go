// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authcache persists the authenticated user's token and profile
// across runs without storing plaintext.
//
// The record on disk is one JSON blob holding base64 ciphertext, nonce and
// key. A fresh AES-256-GCM key is generated at every store, so a stale
// record can never be decrypted with a newer key. "Logged out" is a valid
// state, not an error: Load never fails for callers that only want to check
// login state.
package authcache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/clarity-hq/clarity-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// NonceSize is the AES-GCM nonce size (12 bytes / 96 bits).
const NonceSize = 12

// KeySize is the AES-256 key size (32 bytes).
const KeySize = 32

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrProtected indicates the record key is passphrase-wrapped and a
	// passphrase is required to read it.
	ErrProtected = errors.New("credential record is passphrase-protected")

	// ErrBadPassphrase indicates the supplied passphrase could not unwrap
	// the record key.
	ErrBadPassphrase = errors.New("wrong passphrase")
)

// =============================================================================
// CREDENTIAL TYPE
// =============================================================================

// Credential is the decrypted auth payload. The zero value means logged out.
type Credential struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// LoggedIn reports whether the credential carries a usable token.
func (c Credential) LoggedIn() bool {
	return c.Token != ""
}

// =============================================================================
// ON-DISK RECORD
// =============================================================================

// record is the persisted shape: all fields std base64. Either all of
// Encrypted/IV/Key are present, or the record is treated as no credential.
// The crypto-unavailable fallback leaves IV and Key empty and stores the
// payload plaintext in Encrypted.
type record struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Key       string `json:"key"`

	// Passphrase protection (optional): when Protected is set, Key holds
	// the data key wrapped under a PBKDF2-derived key and Salt holds the
	// derivation salt.
	Protected bool   `json:"protected,omitempty"`
	Salt      string `json:"salt,omitempty"`
}

// =============================================================================
// CACHE
// =============================================================================

// Cache stores one credential record at a fixed path. Reads and writes from
// one process are serialized; concurrent processes race last-write-wins,
// which is acceptable for a single-user client and documented as such.
type Cache struct {
	mu   sync.Mutex
	path string

	// unlocked holds the decrypted credential of a passphrase-protected
	// record after Unlock, for the rest of the run. Nil means Load reads
	// the record from disk.
	unlocked *Credential

	// randSource feeds key and nonce generation. Tests substitute a failing
	// reader to exercise the plaintext fallback.
	randSource io.Reader
}

// New creates a cache backed by the given record path.
func New(path string) *Cache {
	return &Cache{path: path, randSource: rand.Reader}
}

// =============================================================================
// STORE
// =============================================================================

// Store encrypts the credential under a fresh key and nonce and writes the
// record atomically. If key material cannot be generated the payload is
// written plaintext with a logged warning - the caller is not failed, it
// simply gets no at-rest protection (mirrors the platform-unavailable
// fallback of the original client).
func (c *Cache) Store(cred Credential) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The new record replaces whatever was unlocked before.
	c.unlocked = nil

	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	key := make([]byte, KeySize)
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.randSource, key); err != nil {
		log.Printf("authcache: crypto unavailable, storing credential plaintext: %v", err)
		return c.writeRecord(record{Encrypted: string(payload)})
	}
	if _, err := io.ReadFull(c.randSource, nonce); err != nil {
		log.Printf("authcache: crypto unavailable, storing credential plaintext: %v", err)
		return c.writeRecord(record{Encrypted: string(payload)})
	}
	defer zeroBytes(key)

	sealed, err := seal(key, nonce, payload)
	if err != nil {
		log.Printf("authcache: crypto unavailable, storing credential plaintext: %v", err)
		return c.writeRecord(record{Encrypted: string(payload)})
	}

	return c.writeRecord(record{
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		IV:        base64.StdEncoding.EncodeToString(nonce),
		Key:       base64.StdEncoding.EncodeToString(key),
	})
}

// writeRecord persists a record with restrictive permissions.
func (c *Cache) writeRecord(rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(c.path, data, 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write credential record: %w", err)
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads and decrypts the stored credential. It never returns an error:
// a missing, partial, locked or corrupt record all yield the zero credential
// (logged out), with failures logged rather than surfaced. A protected
// record reads as logged out until Unlock succeeds, after which Load serves
// the unlocked credential for the rest of the run.
func (c *Cache) Load() Credential {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unlocked != nil {
		return *c.unlocked
	}

	rec, ok := c.readRecord()
	if !ok {
		return Credential{}
	}

	if rec.Protected {
		log.Printf("authcache: record is passphrase-protected, unlock required")
		return Credential{}
	}

	cred, err := openRecord(rec, nil)
	if err != nil {
		log.Printf("authcache: failed to decrypt credential record: %v", err)
		return Credential{}
	}
	return cred
}

// Token returns the stored bearer token, empty when logged out. It exists
// so the cache can serve directly as the API client's token source.
func (c *Cache) Token() string {
	return c.Load().Token
}

// readRecord reads and decodes the on-disk record. A missing file or an
// undecodable/partial record reads as "no credential".
func (c *Cache) readRecord() (record, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("authcache: failed to read credential record: %v", err)
		}
		return record{}, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("authcache: corrupt credential record: %v", err)
		return record{}, false
	}
	if rec.Encrypted == "" {
		return record{}, false
	}
	// Partial encrypted record: exactly one of IV/Key present. All three
	// present is the normal shape; IV and Key both empty is the plaintext
	// fallback shape.
	if (rec.IV == "") != (rec.Key == "") {
		log.Printf("authcache: partial credential record, treating as logged out")
		return record{}, false
	}
	return rec, true
}

// openRecord decrypts a record into a credential. keyOverride replaces the
// record's own key material (used by passphrase unwrapping).
func openRecord(rec record, keyOverride []byte) (Credential, error) {
	var payload []byte

	switch {
	case rec.IV == "" && rec.Key == "" && keyOverride == nil:
		// Plaintext fallback record.
		payload = []byte(rec.Encrypted)
	default:
		key := keyOverride
		if key == nil {
			var err error
			key, err = base64.StdEncoding.DecodeString(rec.Key)
			if err != nil {
				return Credential{}, fmt.Errorf("bad key encoding: %w", err)
			}
		}
		defer zeroBytes(key)

		nonce, err := base64.StdEncoding.DecodeString(rec.IV)
		if err != nil {
			return Credential{}, fmt.Errorf("bad nonce encoding: %w", err)
		}
		sealed, err := base64.StdEncoding.DecodeString(rec.Encrypted)
		if err != nil {
			return Credential{}, fmt.Errorf("bad ciphertext encoding: %w", err)
		}

		payload, err = open(key, nonce, sealed)
		if err != nil {
			return Credential{}, err
		}
	}

	var cred Credential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return Credential{}, fmt.Errorf("bad credential payload: %w", err)
	}
	return cred, nil
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear removes the stored record. Clearing an absent record is not an error.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unlocked = nil
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential record: %w", err)
	}
	return nil
}

// =============================================================================
// AES-GCM PRIMITIVES
// =============================================================================

// seal encrypts plaintext with AES-256-GCM.
func seal(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// open decrypts AES-256-GCM ciphertext.
func open(key, nonce, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// zeroBytes zeros key material after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
