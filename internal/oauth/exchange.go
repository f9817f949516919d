package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"poppang-auth/internal/domain"
)

// TokenBundle es la respuesta del endpoint de token. Solo AccessToken e IDToken
// se consumen aguas abajo.
type TokenBundle struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// ClientConfig son los datos de cliente OAuth de un proveedor.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURI     string
}

// SecretFunc produce el client_secret en cada intercambio (Apple).
type SecretFunc func() (string, error)

type exchangeClient struct {
	config oauth2.Config
	secret SecretFunc
}

// TokenExchanger intercambia codigos de autorizacion por tokens del proveedor.
type TokenExchanger struct {
	httpClient *http.Client
	clients    map[domain.Provider]exchangeClient
	logger     *zap.Logger
}

func NewTokenExchanger(httpClient *http.Client, logger *zap.Logger) *TokenExchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenExchanger{
		httpClient: httpClient,
		clients:    make(map[domain.Provider]exchangeClient),
		logger:     logger,
	}
}

// Register configura un proveedor. Si secret no es nil reemplaza a ClientSecret.
// Se llama durante el arranque, antes de servir trafico.
func (e *TokenExchanger) Register(provider domain.Provider, cfg ClientConfig, secret SecretFunc) {
	e.clients[provider] = exchangeClient{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURI,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		secret: secret,
	}
}

// Exchange hace el POST authorization_code. No reintenta: el codigo es de un solo uso.
func (e *TokenExchanger) Exchange(ctx context.Context, provider domain.Provider, code string) (TokenBundle, error) {
	client, ok := e.clients[provider]
	if !ok {
		return TokenBundle{}, exchangeFailed(provider, "provider not configured", nil)
	}
	if strings.TrimSpace(code) == "" {
		return TokenBundle{}, exchangeFailed(provider, "empty authorization code", nil)
	}

	conf := client.config
	if client.secret != nil {
		secret, err := client.secret()
		if err != nil {
			return TokenBundle{}, err
		}
		conf.ClientSecret = secret
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		e.logger.Warn("token exchange failed", zap.String("provider", provider.Lower()), zap.Error(redactExchangeError(err)))
		return TokenBundle{}, exchangeFailed(provider, "token endpoint rejected request", redactExchangeError(err))
	}

	bundle := TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		bundle.IDToken = idToken
	}

	if strings.TrimSpace(bundle.AccessToken) == "" {
		return TokenBundle{}, exchangeFailed(provider, "missing access token", nil)
	}
	if provider == domain.ProviderApple && strings.TrimSpace(bundle.IDToken) == "" {
		return TokenBundle{}, exchangeFailed(provider, "missing id token", nil)
	}
	return bundle, nil
}

// redactExchangeError deja el status y el codigo OAuth, sin el cuerpo de la respuesta.
func redactExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			return fmt.Errorf("status %d: %s", status, re.ErrorCode)
		}
		return statusError(status)
	}
	return err
}
