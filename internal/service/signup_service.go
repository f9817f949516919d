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
	"poppang-auth/internal/repository"
)

// SignupService completa el perfil de un usuario ya reconciliado.
type SignupService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	tx      repository.Transactor
	metrics *metrics.Recorder
}

func NewSignupService(
	logger *zap.Logger,
	users repository.UserRepository,
	tx repository.Transactor,
	recorder *metrics.Recorder,
) *SignupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupService{
		logger:  logger,
		users:   users,
		tx:      tx,
		metrics: recorder,
	}
}

type SignupInput struct {
	UID          string
	Provider     domain.Provider
	Nickname     string
	Email        *string
	Alerted      bool
	FCMToken     *string
	Keywords     []string
	RecommendIDs []int64
}

// CompleteSignup fija apodo, email, preferencia de alertas y token push, y
// guarda palabras clave y recomendaciones (sin repetidos ni vacios). Todo se
// escribe en una sola transaccion.
func (s *SignupService) CompleteSignup(ctx context.Context, input SignupInput) (user domain.User, err error) {
	defer func() {
		s.metrics.Signup(input.Provider, outcomeLabel(err))
	}()

	if s.users == nil || s.tx == nil {
		return domain.User{}, errors.New("signup service not configured")
	}
	uid := strings.TrimSpace(input.UID)
	nickname := strings.TrimSpace(input.Nickname)
	if uid == "" || nickname == "" {
		return domain.User{}, ErrInvalidInput
	}

	existing, err := s.users.FindByUID(ctx, uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if input.Provider != "" && existing.Provider != input.Provider {
		return domain.User{}, ErrIdentityConflict
	}

	profile := domain.SignupProfile{
		Nickname: nickname,
		Email:    trimPtr(input.Email),
		Alerted:  input.Alerted,
		FCMToken: trimPtr(input.FCMToken),
	}
	err = s.tx.InTx(ctx, func(repos repository.Repositories) error {
		updated, err := repos.Users.CompleteSignup(ctx, uid, profile)
		if err != nil {
			return err
		}
		if err := s.saveKeywords(ctx, repos.Keywords, updated.ID, input.Keywords); err != nil {
			return err
		}
		if err := s.linkRecommends(ctx, repos.Recommends, updated.ID, input.RecommendIDs); err != nil {
			return err
		}
		user = updated
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNicknameExists):
		return domain.User{}, ErrNicknameTaken
	case errors.Is(err, pgx.ErrNoRows):
		return domain.User{}, ErrUserNotFound
	case err != nil:
		return domain.User{}, fmt.Errorf("complete signup: %w", err)
	}

	s.logger.Info("signup completed", zap.String("provider", user.Provider.Lower()), zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *SignupService) saveKeywords(ctx context.Context, repo repository.KeywordRepository, userID int64, raw []string) error {
	keywords := dedupeKeywords(raw)
	if len(keywords) == 0 || repo == nil {
		return nil
	}
	if err := repo.SaveAll(ctx, userID, keywords); err != nil {
		return fmt.Errorf("save keywords: %w", err)
	}
	return nil
}

func (s *SignupService) linkRecommends(ctx context.Context, repo repository.RecommendRepository, userID int64, raw []int64) error {
	ids := dedupeIDs(raw)
	if len(ids) == 0 || repo == nil {
		return nil
	}
	recommends, err := repo.FindAllByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find recommends: %w", err)
	}
	if len(recommends) < len(ids) {
		s.logger.Warn("unknown recommend ids ignored", zap.Int("requested", len(ids)), zap.Int("found", len(recommends)))
	}
	for _, r := range recommends {
		if err := repo.Link(ctx, userID, r.ID); err != nil {
			return fmt.Errorf("link recommend: %w", err)
		}
	}
	return nil
}

func dedupeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func dedupeIDs(raw []int64) []int64 {
	seen := make(map[int64]struct{}, len(raw))
	out := make([]int64, 0, len(raw))
	for _, id := range raw {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// trimPtr recorta espacios y devuelve nil para cadenas vacias. No cambia mayusculas.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return domain.StringPtr(strings.TrimSpace(*s))
}
