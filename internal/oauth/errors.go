package oauth

import (
	"errors"
	"fmt"

	"poppang-auth/internal/domain"
)

// Tipos de falla de proveedor. Se comparan con errors.Is contra un *Error.
var (
	ErrTokenExchangeFailed          = errors.New("token exchange failed")
	ErrInvalidIdentityToken         = errors.New("invalid identity token")
	ErrClientSecretGenerationFailed = errors.New("client secret generation failed")
	ErrProfileFetchFailed           = errors.New("profile fetch failed")
	ErrKeyFetchFailed               = errors.New("signing key fetch failed")
	ErrAuthCodeReused               = errors.New("authorization code already used")
)

// Error describe una falla de proveedor con su tipo y motivo.
// Nunca incluye material de clave ni el cuerpo crudo de la respuesta.
type Error struct {
	Kind     error
	Provider domain.Provider
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg = e.Provider.Lower() + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, provider domain.Provider, reason string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Reason: reason, Err: err}
}

func invalidToken(provider domain.Provider, reason string, err error) error {
	return newError(ErrInvalidIdentityToken, provider, reason, err)
}

func exchangeFailed(provider domain.Provider, reason string, err error) error {
	return newError(ErrTokenExchangeFailed, provider, reason, err)
}

func profileFailed(provider domain.Provider, reason string, err error) error {
	return newError(ErrProfileFetchFailed, provider, reason, err)
}

func keyFetchFailed(provider domain.Provider, err error) error {
	return newError(ErrKeyFetchFailed, provider, "jwks unavailable", err)
}

// Reason devuelve el motivo de un *Error o "" si err no lo es.
func Reason(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Reason
	}
	return ""
}

// statusError resume una respuesta no exitosa sin copiar el cuerpo.
func statusError(code int) error {
	return fmt.Errorf("unexpected status %d", code)
}
