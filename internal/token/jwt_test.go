package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelock/internal/domain"
)

const signingKey = "test-signing-key"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		Roles:         []string{"doctor"},
		InstitutionID: "inst-a",
		Status:        "active",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestActor(t *testing.T) {
	verifier := NewVerifier(signingKey)

	token := signToken(t, jwt.SigningMethodHS256, []byte(signingKey), validClaims())
	actor, err := verifier.Actor(token)
	require.NoError(t, err)

	assert.Equal(t, domain.Actor{
		ID:            "doc-1",
		Roles:         []domain.Role{domain.RoleDoctor},
		InstitutionID: "inst-a",
		Status:        domain.ActorActive,
	}, actor)
}

func TestActorEmptyStatusMeansInactive(t *testing.T) {
	claims := validClaims()
	claims.Status = ""

	token := signToken(t, jwt.SigningMethodHS256, []byte(signingKey), claims)
	actor, err := NewVerifier(signingKey).Actor(token)
	require.NoError(t, err)
	assert.Equal(t, domain.ActorInactive, actor.Status)
}

func TestActorRejections(t *testing.T) {
	verifier := NewVerifier(signingKey)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noSubject := validClaims()
	noSubject.Subject = ""

	noRoles := validClaims()
	noRoles.Roles = nil

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong key", token: signToken(t, jwt.SigningMethodHS256, []byte("other-key"), validClaims())},
		{name: "expired", token: signToken(t, jwt.SigningMethodHS256, []byte(signingKey), expired)},
		{name: "missing subject", token: signToken(t, jwt.SigningMethodHS256, []byte(signingKey), noSubject)},
		{name: "no roles", token: signToken(t, jwt.SigningMethodHS256, []byte(signingKey), noRoles)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Actor(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestActorRejectsNonHMACAlgorithm(t *testing.T) {
	// alg=none tokens must never verify, whatever key the server holds.
	token := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())
	_, err := NewVerifier(signingKey).Actor(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
