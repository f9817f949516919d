package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
)

// AppleVerifier valida id_token de Sign in with Apple contra el JWKS publicado.
type AppleVerifier struct {
	keys *remoteKeySet
	now  func() time.Time
}

// NewAppleVerifier crea el cache de claves. ctx controla la vida del refresco en segundo plano.
func NewAppleVerifier(ctx context.Context, httpClient *http.Client, cfg KeySetConfig, logger *zap.Logger) (*AppleVerifier, error) {
	keys, err := newRemoteKeySet(ctx, httpClient, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("apple: %w", err)
	}
	return &AppleVerifier{keys: keys, now: time.Now}, nil
}

type appleClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verify comprueba firma, issuer, audience y expiracion, en ese orden.
func (v *AppleVerifier) Verify(ctx context.Context, idToken, expectedClientID string) (VerifiedClaims, error) {
	var claims appleClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(idToken, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.keys.publicKey(ctx, kid)
	})
	if err != nil {
		return VerifiedClaims{}, keyError(domain.ProviderApple, err)
	}

	verified := VerifiedClaims{
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
		Email:    domain.StringPtr(claims.Email),
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := checkStandardClaims(domain.ProviderApple, verified, []string{AppleAudience}, expectedClientID, v.now()); err != nil {
		return VerifiedClaims{}, err
	}
	return verified, nil
}
