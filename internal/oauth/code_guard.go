package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
)

// AuthCodeGuard marca codigos de autorizacion como usados antes del intercambio.
type AuthCodeGuard interface {
	// Claim devuelve ErrAuthCodeReused si el codigo ya fue reclamado dentro del TTL.
	Claim(ctx context.Context, provider domain.Provider, code string) error
}

func authCodeKey(provider domain.Provider, code string) string {
	sum := sha256.Sum256([]byte(string(provider) + "|" + strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

type memoryAuthCodeGuard struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]time.Time
	now   func() time.Time
}

func NewMemoryAuthCodeGuard(ttl time.Duration) AuthCodeGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &memoryAuthCodeGuard{
		ttl:   ttl,
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (g *memoryAuthCodeGuard) Claim(_ context.Context, provider domain.Provider, code string) error {
	key := authCodeKey(provider, code)
	now := g.now().UTC()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, exp := range g.items {
		if now.After(exp) {
			delete(g.items, k)
		}
	}
	if _, ok := g.items[key]; ok {
		return newError(ErrAuthCodeReused, provider, "", nil)
	}
	g.items[key] = now.Add(g.ttl)
	return nil
}

type redisSetNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type redisAuthCodeGuard struct {
	client redisSetNXer
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisAuthCodeGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) AuthCodeGuard {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisAuthCodeGuard{
		client: client,
		ttl:    ttl,
		prefix: "auth:code:",
		logger: logger,
	}
}

// Claim falla abierto ante errores de redis: el proveedor igual rechaza codigos repetidos.
func (g *redisAuthCodeGuard) Claim(ctx context.Context, provider domain.Provider, code string) error {
	if g == nil || g.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	ok, err := g.client.SetNX(ctx, g.prefix+authCodeKey(provider, code), 1, g.ttl).Result()
	if err != nil {
		g.logger.Warn("auth code guard unavailable", zap.String("provider", provider.Lower()), zap.Error(err))
		return nil
	}
	if !ok {
		return newError(ErrAuthCodeReused, provider, "", nil)
	}
	return nil
}
