package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"poppang-auth/internal/domain"
	"poppang-auth/internal/repository"
)

type mockUserRepo struct {
	mu      sync.Mutex
	nextID  int64
	byUID   map[string]domain.User
	creates int

	// beforeCreate permite simular que otro escritor inserto la fila primero.
	beforeCreate func(m *mockUserRepo, user domain.User)
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byUID: make(map[string]domain.User)}
}

func (m *mockUserRepo) seed(user domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(user)
}

func (m *mockUserRepo) insertLocked(user domain.User) domain.User {
	m.nextID++
	user.ID = m.nextID
	if user.Role == "" {
		user.Role = domain.RoleMember
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.byUID[user.UID] = user
	return user
}

func (m *mockUserRepo) get(uid string) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	return u, ok
}

func (m *mockUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUID)
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
	if err != nil {
		return domain.User{}, err
	}
	if u.Deleted {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
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
		if u.Nickname != nil && *u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	if m.beforeCreate != nil {
		m.beforeCreate(m, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, ok := m.byUID[user.UID]; ok {
		return domain.User{}, repository.ErrDuplicateUID
	}
	return m.insertLocked(user), nil
}

// CompleteSignup comprueba y escribe bajo el mismo lock, como la transaccion real.
func (m *mockUserRepo) CompleteSignup(_ context.Context, uid string, profile domain.SignupProfile) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for other, u := range m.byUID {
		if other != uid && u.Nickname != nil && *u.Nickname == profile.Nickname {
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
	u.UpdatedAt = time.Now().UTC()
	m.byUID[uid] = u
	return u, nil
}

type mockKeywordRepo struct {
	mu    sync.Mutex
	saved map[int64][]string
	err   error
}

func newMockKeywordRepo() *mockKeywordRepo {
	return &mockKeywordRepo{saved: make(map[int64][]string)}
}

func (m *mockKeywordRepo) SaveAll(_ context.Context, userID int64, keywords []string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[userID] = append(m.saved[userID], keywords...)
	return nil
}

func (m *mockKeywordRepo) list(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved[userID]...)
}

type mockRecommendRepo struct {
	mu      sync.Mutex
	catalog map[int64]domain.Recommend
	links   map[int64]map[int64]struct{}
	lookups [][]int64
	err     error
}

func newMockRecommendRepo(catalog ...domain.Recommend) *mockRecommendRepo {
	m := &mockRecommendRepo{
		catalog: make(map[int64]domain.Recommend),
		links:   make(map[int64]map[int64]struct{}),
	}
	for _, r := range catalog {
		m.catalog[r.ID] = r
	}
	return m
}

func (m *mockRecommendRepo) FindAllByIDs(_ context.Context, ids []int64) ([]domain.Recommend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, ids)
	var out []domain.Recommend
	for _, id := range ids {
		if r, ok := m.catalog[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecommendRepo) Link(_ context.Context, userID, recommendID int64) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[userID] == nil {
		m.links[userID] = make(map[int64]struct{})
	}
	m.links[userID][recommendID] = struct{}{}
	return nil
}

func (m *mockRecommendRepo) linked(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links[userID])
}

// mockTransactor restaura el estado de los mocks cuando fn falla, como un rollback.
// Serializa las transacciones para que el snapshot sea consistente.
type mockTransactor struct {
	mu         sync.Mutex
	users      *mockUserRepo
	keywords   *mockKeywordRepo
	recommends *mockRecommendRepo
}

func (m *mockTransactor) InTx(_ context.Context, fn func(repos repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := m.users.snapshot()
	keywords := m.keywords.snapshot()
	links := m.recommends.snapshot()
	if err := fn(repository.Repositories{Users: m.users, Keywords: m.keywords, Recommends: m.recommends}); err != nil {
		m.users.restore(users)
		m.keywords.restore(keywords)
		m.recommends.restore(links)
		return err
	}
	return nil
}

func (m *mockUserRepo) snapshot() map[string]domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.User, len(m.byUID))
	for k, v := range m.byUID {
		out[k] = v
	}
	return out
}

func (m *mockUserRepo) restore(byUID map[string]domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUID = byUID
}

func (m *mockKeywordRepo) snapshot() map[int64][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64][]string, len(m.saved))
	for k, v := range m.saved {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (m *mockKeywordRepo) restore(saved map[int64][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = saved
}

func (m *mockRecommendRepo) snapshot() map[int64]map[int64]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]map[int64]struct{}, len(m.links))
	for user, ids := range m.links {
		cp := make(map[int64]struct{}, len(ids))
		for id := range ids {
			cp[id] = struct{}{}
		}
		out[user] = cp
	}
	return out
}

func (m *mockRecommendRepo) restore(links map[int64]map[int64]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = links
}
