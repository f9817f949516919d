package http

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"poppang-auth/internal/domain"
	"poppang-auth/internal/oauth"
	"poppang-auth/internal/repository"
)

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byUID  map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byUID: make(map[string]domain.User)}
}

func (m *mockUserRepo) seed(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	if user.Role == "" {
		user.Role = domain.RoleMember
	}
	m.byUID[user.UID] = user
}

func (m *mockUserRepo) FindByUID(_ context.Context, uid string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) FindActiveByUID(ctx context.Context, uid string) (domain.User, error) {
	u, err := m.FindByUID(ctx, uid)
	if err == nil && u.Deleted {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, err
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byUID {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) ExistsByNickname(_ context.Context, nickname string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byUID {
		if domain.Deref(u.Nickname) == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUID[user.UID]; ok {
		return domain.User{}, repository.ErrDuplicateUID
	}
	m.nextID++
	user.ID = m.nextID
	m.byUID[user.UID] = user
	return user, nil
}

func (m *mockUserRepo) CompleteSignup(_ context.Context, uid string, profile domain.SignupProfile) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for other, u := range m.byUID {
		if other != uid && domain.Deref(u.Nickname) == profile.Nickname {
			return domain.User{}, repository.ErrNicknameExists
		}
	}
	u, ok := m.byUID[uid]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	nickname := profile.Nickname
	u.Nickname = &nickname
	u.Email = profile.Email
	u.Alerted = profile.Alerted
	u.FCMToken = profile.FCMToken
	m.byUID[uid] = u
	return u, nil
}

type stubExchanger struct {
	err error
}

func (s *stubExchanger) Exchange(_ context.Context, _ domain.Provider, _ string) (oauth.TokenBundle, error) {
	if s.err != nil {
		return oauth.TokenBundle{}, s.err
	}
	return oauth.TokenBundle{AccessToken: "access", IDToken: "id-token"}, nil
}

// stubIdentities devuelve como uid la credencial recibida.
type stubIdentities struct {
	err error
}

func (s *stubIdentities) identity(provider domain.Provider, credential string) (domain.ExternalIdentity, error) {
	if s.err != nil {
		return domain.ExternalIdentity{}, s.err
	}
	return domain.ExternalIdentity{Provider: provider, ExternalID: "uid-" + credential, Email: domain.StringPtr("u@example.com")}, nil
}

func (s *stubIdentities) FetchAppleIdentity(_ context.Context, idToken string) (domain.ExternalIdentity, error) {
	return s.identity(domain.ProviderApple, idToken)
}

func (s *stubIdentities) FetchGoogleIdentity(_ context.Context, idToken string) (domain.ExternalIdentity, error) {
	return s.identity(domain.ProviderGoogle, idToken)
}

func (s *stubIdentities) FetchGoogleUserInfo(_ context.Context, accessToken string) (domain.ExternalIdentity, error) {
	return s.identity(domain.ProviderGoogle, accessToken)
}

func (s *stubIdentities) FetchKakaoUser(_ context.Context, accessToken string) (domain.ExternalIdentity, error) {
	return s.identity(domain.ProviderKakao, accessToken)
}

// stubTransactor corre fn sobre el mock sin rollback; alcanza para la capa HTTP.
type stubTransactor struct {
	users *mockUserRepo
}

func (s *stubTransactor) InTx(_ context.Context, fn func(repos repository.Repositories) error) error {
	return fn(repository.Repositories{Users: s.users})
}
