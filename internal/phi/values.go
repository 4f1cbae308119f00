package phi

// EncryptedValue is the self-describing encoding of one sealed field:
// version, nonce, and ciphertext-with-tag, colon-separated and base64
// encoded. It is replaced wholesale on every write, never patched.
type EncryptedValue string

// HashedValue is the salted one-way digest of an identifier field. It is
// used only for equality lookups, never for display.
type HashedValue string
