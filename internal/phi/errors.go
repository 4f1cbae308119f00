package phi

import "errors"

// Typed codec errors. Callers at the data-access boundary decide whether to
// fail the surrounding read/write; the codec itself never falls back to
// returning plaintext or ciphertext unchanged.
var (
	// ErrEncrypt wraps any failure while sealing a value.
	ErrEncrypt = errors.New("phi: encrypt failed")

	// ErrDecrypt wraps any failure while opening a value, including
	// authentication failures and malformed encodings.
	ErrDecrypt = errors.New("phi: decrypt failed")

	// ErrMissingSecret is returned at construction when no secret is
	// configured. Fatal at startup, never a request-time condition.
	ErrMissingSecret = errors.New("phi: encryption secret is not configured")
)
