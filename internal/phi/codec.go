// Package phi implements the field-level protection codec for classified
// attributes: authenticated encryption for values that must be readable
// again, and a deterministic salted digest for identifiers that only need
// equality lookups.
//
// The codec is pure transformation over a key derived once at startup. It is
// safe for concurrent use; the derived key is the only state and is never
// mutated, logged, or persisted.
package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// encodingVersion tags the wire form so the layout can evolve.
	encodingVersion = "v1"

	// keyIterations is the fixed PBKDF2 cost. Changing it invalidates every
	// stored ciphertext, so treat it as part of the data format.
	keyIterations = 210_000

	keyLen = 32 // AES-256
)

// kdfSalt binds derived keys to this protected-data domain.
var kdfSalt = []byte("carelock.phi.kdf.v1")

// aad authenticates every ciphertext against cross-domain substitution: a
// value sealed here cannot be replayed into a different deployment domain.
var aad = []byte("carelock.phi")

// Codec seals, opens, and digests individual field values.
type Codec struct {
	aead     cipher.AEAD
	hashSalt []byte
}

// NewCodec derives the process-lifetime key from the configured secret and
// hash salt. An empty secret is a startup configuration error.
func NewCodec(secret, hashSalt string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if hashSalt == "" {
		return nil, fmt.Errorf("phi: hash salt is not configured")
	}

	key := pbkdf2.Key([]byte(secret), kdfSalt, keyIterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi: init gcm: %w", err)
	}

	return &Codec{aead: aead, hashSalt: []byte(hashSalt)}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The returned encoding
// embeds the nonce and the GCM authentication tag, so each value decrypts
// independently of any external state beyond the key.
func (c *Codec) Encrypt(plaintext string) (EncryptedValue, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrEncrypt, err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), aad)

	encoded := encodingVersion + ":" +
		base64.RawStdEncoding.EncodeToString(nonce) + ":" +
		base64.RawStdEncoding.EncodeToString(sealed)
	return EncryptedValue(encoded), nil
}

// Decrypt opens a sealed value. Any tampering, truncation, or cross-domain
// substitution fails authentication and surfaces as ErrDecrypt; the input is
// never returned in place of the plaintext.
func (c *Codec) Decrypt(value EncryptedValue) (string, error) {
	parts := strings.SplitN(string(value), ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: malformed encoding", ErrDecrypt)
	}
	if parts[0] != encodingVersion {
		return "", fmt.Errorf("%w: unsupported version %q", ErrDecrypt, parts[0])
	}
	nonce, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce", ErrDecrypt)
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecrypt)
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return "", fmt.Errorf("%w: authentication", ErrDecrypt)
	}
	return string(plaintext), nil
}

// Hash produces the deterministic salted digest of an identifier. Equal
// inputs digest equally under the same salt, which keeps hashed identifiers
// searchable; the digest is never invertible.
func (c *Codec) Hash(identifier string) HashedValue {
	mac := hmac.New(sha256.New, c.hashSalt)
	mac.Write([]byte(identifier))
	return HashedValue(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}
