package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"poppang-auth/internal/repository"
)

// UserService coordina consultas de usuarios fuera del flujo de login.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger: logger,
		users:  users,
	}
}

// IsNicknameDuplicated indica si el apodo ya esta en uso por algun usuario.
func (s *UserService) IsNicknameDuplicated(ctx context.Context, nickname string) (bool, error) {
	if s.users == nil {
		return false, errors.New("user service not configured")
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return false, ErrInvalidInput
	}
	exists, err := s.users.ExistsByNickname(ctx, nickname)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return exists, nil
}
