package records

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelock/internal/phi"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokenCodec fails on a chosen field so seal/open abort paths are testable
// without a database.
type brokenCodec struct {
	failOn string
}

func (c brokenCodec) Encrypt(plaintext string) (phi.EncryptedValue, error) {
	if plaintext == c.failOn {
		return "", phi.ErrEncrypt
	}
	return phi.EncryptedValue("sealed:" + plaintext), nil
}

func (c brokenCodec) Decrypt(value phi.EncryptedValue) (string, error) {
	return "", phi.ErrDecrypt
}

func (c brokenCodec) Hash(identifier string) phi.HashedValue {
	return phi.HashedValue("hash:" + identifier)
}

func TestSealAbortsOnCodecFailure(t *testing.T) {
	store := NewStore(nil, brokenCodec{failOn: "Hypertension"}, nil)

	_, err := store.seal(PatientRecord{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		NationalID: "19151210-0001",
		Diagnosis:  "Hypertension",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, phi.ErrEncrypt))
}

func TestOpenNeverReturnsCiphertextOnFailure(t *testing.T) {
	store := NewStore(nil, brokenCodec{}, nil)

	record := PatientRecord{ID: "rec-1"}
	err := store.open(&record, sealed{
		firstName:  "v1:junk",
		lastName:   "v1:junk",
		nationalID: "v1:junk",
		diagnosis:  "v1:junk",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, phi.ErrDecrypt))
	assert.Empty(t, record.FirstName)
}
