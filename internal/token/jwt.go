// Package token validates the bearer tokens issued by the upstream identity
// subsystem and maps their claims onto the domain actor. Token issuance and
// refresh are owned upstream; this side only verifies.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"carelock/internal/domain"
)

// ErrInvalidToken covers every verification failure; callers translate it to
// an opaque 401.
var ErrInvalidToken = errors.New("token: invalid")

// Claims are carelock's access-token claims.
type Claims struct {
	Roles         []string `json:"roles"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Status        string   `json:"status"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens.
type Verifier struct {
	signingKey []byte
}

func NewVerifier(signingKey string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey)}
}

// Actor verifies the token and builds the actor it describes. A token
// without roles is rejected: every actor holds at least one role.
func (v *Verifier) Actor(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Actor{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	if len(claims.Roles) == 0 {
		return domain.Actor{}, fmt.Errorf("%w: no roles", ErrInvalidToken)
	}

	roles := make([]domain.Role, len(claims.Roles))
	for i, r := range claims.Roles {
		roles[i] = domain.Role(r)
	}
	status := domain.ActorStatus(claims.Status)
	if status == "" {
		status = domain.ActorInactive
	}

	return domain.Actor{
		ID:            claims.Subject,
		Roles:         roles,
		InstitutionID: claims.InstitutionID,
		Status:        status,
	}, nil
}
