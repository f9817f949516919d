package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
	"poppang-auth/internal/metrics"
	"poppang-auth/internal/oauth"
	"poppang-auth/internal/repository"
)

// CodeExchanger intercambia un codigo de autorizacion por tokens del proveedor.
type CodeExchanger interface {
	Exchange(ctx context.Context, provider domain.Provider, code string) (oauth.TokenBundle, error)
}

// IdentitySource obtiene la identidad externa a partir de cada tipo de credencial.
type IdentitySource interface {
	FetchAppleIdentity(ctx context.Context, idToken string) (domain.ExternalIdentity, error)
	FetchGoogleIdentity(ctx context.Context, idToken string) (domain.ExternalIdentity, error)
	FetchGoogleUserInfo(ctx context.Context, accessToken string) (domain.ExternalIdentity, error)
	FetchKakaoUser(ctx context.Context, accessToken string) (domain.ExternalIdentity, error)
}

// AuthService orquesta los flujos de login: verificar primero, reconciliar despues.
type AuthService struct {
	logger     *zap.Logger
	exchanger  CodeExchanger
	identities IdentitySource
	reconciler *IdentityService
	users      repository.UserRepository
	codeGuard  oauth.AuthCodeGuard
	metrics    *metrics.Recorder
}

func NewAuthService(
	logger *zap.Logger,
	exchanger CodeExchanger,
	identities IdentitySource,
	reconciler *IdentityService,
	users repository.UserRepository,
	codeGuard oauth.AuthCodeGuard,
	recorder *metrics.Recorder,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:     logger,
		exchanger:  exchanger,
		identities: identities,
		reconciler: reconciler,
		users:      users,
		codeGuard:  codeGuard,
		metrics:    recorder,
	}
}

// WebLogin canjea el codigo de autorizacion del flujo web.
func (s *AuthService) WebLogin(ctx context.Context, provider domain.Provider, code string) (user domain.User, err error) {
	defer s.record(provider, metrics.FlowWeb, &err)

	identity, err := s.identityFromCode(ctx, provider, code)
	if err != nil {
		return domain.User{}, err
	}
	return s.reconcile(ctx, identity)
}

// MobileLogin acepta la credencial que entrega cada SDK nativo: auth_code para
// Apple, id_token para Google y access_token para Kakao.
func (s *AuthService) MobileLogin(ctx context.Context, provider domain.Provider, credential string) (user domain.User, err error) {
	defer s.record(provider, metrics.FlowMobile, &err)

	if strings.TrimSpace(credential) == "" {
		return domain.User{}, ErrInvalidInput
	}

	var identity domain.ExternalIdentity
	switch provider {
	case domain.ProviderApple:
		identity, err = s.identityFromCode(ctx, provider, credential)
	case domain.ProviderGoogle:
		identity, err = s.identities.FetchGoogleIdentity(ctx, credential)
	case domain.ProviderKakao:
		identity, err = s.identities.FetchKakaoUser(ctx, credential)
	default:
		return domain.User{}, ErrInvalidInput
	}
	if err != nil {
		return domain.User{}, err
	}
	return s.reconcile(ctx, identity)
}

// AutoLogin reanuda la sesion de un usuario no eliminado.
func (s *AuthService) AutoLogin(ctx context.Context, uid string) (domain.User, error) {
	user, err := s.autoLogin(ctx, uid)
	provider := user.Provider
	if err != nil {
		provider = metrics.ProviderUnresolved
	}
	s.record(provider, metrics.FlowAuto, &err)
	return user, err
}

func (s *AuthService) autoLogin(ctx context.Context, uid string) (domain.User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return domain.User{}, ErrInvalidInput
	}
	user, err := s.users.FindActiveByUID(ctx, uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) identityFromCode(ctx context.Context, provider domain.Provider, code string) (domain.ExternalIdentity, error) {
	if strings.TrimSpace(code) == "" {
		return domain.ExternalIdentity{}, ErrInvalidInput
	}
	if _, ok := domain.ParseProvider(string(provider)); !ok {
		return domain.ExternalIdentity{}, ErrInvalidInput
	}
	if s.codeGuard != nil {
		if err := s.codeGuard.Claim(ctx, provider, code); err != nil {
			return domain.ExternalIdentity{}, err
		}
	}

	bundle, err := s.exchanger.Exchange(ctx, provider, code)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}

	switch provider {
	case domain.ProviderApple:
		return s.identities.FetchAppleIdentity(ctx, bundle.IDToken)
	case domain.ProviderGoogle:
		return s.identities.FetchGoogleUserInfo(ctx, bundle.AccessToken)
	default:
		return s.identities.FetchKakaoUser(ctx, bundle.AccessToken)
	}
}

func (s *AuthService) reconcile(ctx context.Context, identity domain.ExternalIdentity) (domain.User, error) {
	user, err := s.reconciler.Reconcile(ctx, identity.ExternalID, identity.Provider, identity.Email)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) record(provider domain.Provider, flow string, errp *error) {
	outcome := outcomeLabel(*errp)
	s.metrics.Login(provider, flow, outcome)
	if *errp != nil {
		s.logger.Info("login failed",
			zap.String("provider", provider.Lower()),
			zap.String("flow", flow),
			zap.String("outcome", outcome),
			zap.String("reason", oauth.Reason(*errp)),
		)
	}
}
