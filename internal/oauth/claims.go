package oauth

import (
	"context"
	"slices"
	"time"

	"poppang-auth/internal/domain"
)

// IdentityTokenVerifier valida un id_token y devuelve sus claims ya verificados.
type IdentityTokenVerifier interface {
	Verify(ctx context.Context, idToken, expectedClientID string) (VerifiedClaims, error)
}

// VerifiedClaims es el conjunto de claims de un id_token que paso firma,
// issuer, audience y expiracion.
type VerifiedClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	Email     *string
	Name      string
	Picture   string
}

// Identity proyecta los claims a la identidad externa del proveedor.
func (c VerifiedClaims) Identity(provider domain.Provider) domain.ExternalIdentity {
	return domain.ExternalIdentity{
		Provider:   provider,
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       c.Name,
		PictureURL: c.Picture,
	}
}

// checkStandardClaims aplica, en orden, issuer, audience y expiracion.
func checkStandardClaims(provider domain.Provider, c VerifiedClaims, issuers []string, clientID string, now time.Time) error {
	if !slices.Contains(issuers, c.Issuer) {
		return invalidToken(provider, "wrong issuer", nil)
	}
	if clientID == "" || !slices.Contains(c.Audience, clientID) {
		return invalidToken(provider, "wrong audience", nil)
	}
	if c.ExpiresAt.IsZero() || !c.ExpiresAt.After(now) {
		return invalidToken(provider, "expired", nil)
	}
	if c.Subject == "" {
		return invalidToken(provider, "missing subject", nil)
	}
	return nil
}
