package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"poppang-auth/internal/domain"
	"poppang-auth/internal/repository"
)

// IdentityService reconcilia identidades externas con usuarios internos.
type IdentityService struct {
	logger *zap.Logger
	users  repository.UserRepository
	group  singleflight.Group
}

func NewIdentityService(logger *zap.Logger, users repository.UserRepository) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		logger: logger,
		users:  users,
	}
}

// Reconcile busca el usuario por uid o lo crea con rol MEMBER. Un usuario
// existente se devuelve sin cambios, aunque el email haya cambiado.
func (s *IdentityService) Reconcile(ctx context.Context, externalID string, provider domain.Provider, email *string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("identity service not configured")
	}
	uid := strings.TrimSpace(externalID)
	if uid == "" {
		return domain.User{}, ErrInvalidInput
	}
	if _, ok := domain.ParseProvider(string(provider)); !ok {
		return domain.User{}, ErrInvalidInput
	}

	// Logins simultaneos del mismo uid comparten una sola busqueda/creacion.
	// El contexto del primer llamador no debe cancelar a los demas.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(uid, func() (any, error) {
		return s.findOrCreate(sharedCtx, uid, provider, trimPtr(email))
	})
	if err != nil {
		return domain.User{}, err
	}

	user := v.(domain.User)
	if user.Provider != provider {
		s.logger.Warn("uid registered with another provider",
			zap.String("provider", provider.Lower()),
			zap.String("stored_provider", user.Provider.Lower()),
		)
		return domain.User{}, ErrIdentityConflict
	}
	return user, nil
}

func (s *IdentityService) findOrCreate(ctx context.Context, uid string, provider domain.Provider, email *string) (domain.User, error) {
	user, err := s.users.FindByUID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	created, err := s.users.Create(ctx, domain.User{
		UID:      uid,
		Provider: provider,
		Email:    email,
		Role:     domain.RoleMember,
	})
	if errors.Is(err, repository.ErrDuplicateUID) {
		// otro proceso gano la carrera; la fila existente es la valida
		user, err = s.users.FindByUID(ctx, uid)
		if err != nil {
			return domain.User{}, fmt.Errorf("refetch user: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", zap.String("provider", provider.Lower()), zap.Int64("user_id", created.ID))
	return created, nil
}
