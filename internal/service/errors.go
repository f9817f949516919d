package service

import (
	"errors"

	"poppang-auth/internal/oauth"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNicknameTaken    = errors.New("nickname already taken")
	ErrIdentityConflict = errors.New("identity registered with another provider")
	ErrInvalidInput     = errors.New("invalid input")
)

// outcomeLabel traduce un error al valor de la etiqueta outcome de las metricas.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, oauth.ErrInvalidIdentityToken):
		return "invalid_identity_token"
	case errors.Is(err, oauth.ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, oauth.ErrProfileFetchFailed):
		return "profile_fetch_failed"
	case errors.Is(err, oauth.ErrKeyFetchFailed):
		return "key_fetch_failed"
	case errors.Is(err, oauth.ErrClientSecretGenerationFailed):
		return "client_secret_failed"
	case errors.Is(err, oauth.ErrAuthCodeReused):
		return "auth_code_reused"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrNicknameTaken):
		return "nickname_taken"
	case errors.Is(err, ErrIdentityConflict):
		return "identity_conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
