package oauth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
)

const (
	defaultRegisterTimeout      = 5 * time.Second
	defaultForceRefreshCooldown = time.Minute
)

var (
	// errKeySetUnavailable marca fallas de red o del proveedor al obtener el JWKS.
	errKeySetUnavailable = errors.New("jwks unavailable")
	errUnknownKeyID      = errors.New("unknown key id")
)

// KeySetConfig define de donde salen las claves y cada cuanto se refrescan.
// ForceRefreshCooldown limita los refrescos forzados por kid desconocido.
type KeySetConfig struct {
	JWKSURL              string
	MinRefresh           time.Duration
	MaxRefresh           time.Duration
	RegisterTimeout      time.Duration
	ForceRefreshCooldown time.Duration
}

// remoteKeySet mantiene en cache el JWKS de un proveedor.
type remoteKeySet struct {
	cfg    KeySetConfig
	cache  *jwk.Cache
	logger *zap.Logger
	now    func() time.Time

	registerMu sync.Mutex
	registered bool

	refreshMu  sync.Mutex
	lastForced time.Time
}

func newRemoteKeySet(ctx context.Context, httpClient *http.Client, cfg KeySetConfig, logger *zap.Logger) (*remoteKeySet, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if cfg.RegisterTimeout <= 0 {
		cfg.RegisterTimeout = defaultRegisterTimeout
	}
	if cfg.ForceRefreshCooldown <= 0 {
		cfg.ForceRefreshCooldown = defaultForceRefreshCooldown
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(httpClient)))
	if err != nil {
		return nil, fmt.Errorf("create jwks cache: %w", err)
	}
	return &remoteKeySet{
		cfg:    cfg,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ensureRegistered da de alta la URL una sola vez. Si la primera descarga falla
// la URL queda registrada igual y la recuperacion corre por refresco.
func (k *remoteKeySet) ensureRegistered(ctx context.Context) error {
	k.registerMu.Lock()
	defer k.registerMu.Unlock()

	if k.registered {
		return nil
	}

	opts := []jwk.RegisterOption{jwk.WithWaitReady(false)}
	if k.cfg.MinRefresh > 0 {
		opts = append(opts, jwk.WithMinInterval(k.cfg.MinRefresh))
	}
	if k.cfg.MaxRefresh > 0 {
		opts = append(opts, jwk.WithMaxInterval(k.cfg.MaxRefresh))
	}
	if err := k.cache.Register(ctx, k.cfg.JWKSURL, opts...); err != nil && !k.cache.IsRegistered(ctx, k.cfg.JWKSURL) {
		return fmt.Errorf("%w: register: %w", errKeySetUnavailable, err)
	}
	k.registered = true

	readyCtx, cancel := context.WithTimeout(ctx, k.cfg.RegisterTimeout)
	defer cancel()
	if !k.cache.Ready(readyCtx, k.cfg.JWKSURL) {
		k.logger.Warn("jwks not ready after register", zap.String("url", k.cfg.JWKSURL))
	}
	return nil
}

// publicKey devuelve la clave RSA publicada con ese kid.
func (k *remoteKeySet) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: token header missing kid", errUnknownKeyID)
	}
	if err := k.ensureRegistered(ctx); err != nil {
		return nil, err
	}

	set, err := k.cache.Lookup(ctx, k.cfg.JWKSURL)
	if err == nil {
		if key, ok := set.LookupKeyID(kid); ok {
			return exportRSA(key)
		}
	}

	// kid desconocido o JWKS sin cargar: un refresco forzado antes de fallar.
	set, err = k.forceRefresh(ctx, kid)
	if err != nil {
		return nil, err
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownKeyID, kid)
	}
	return exportRSA(key)
}

// forceRefresh descarga el JWKS como mucho una vez por ForceRefreshCooldown.
// Dentro de la ventana devuelve lo que haya en cache.
func (k *remoteKeySet) forceRefresh(ctx context.Context, kid string) (jwk.Set, error) {
	k.refreshMu.Lock()
	defer k.refreshMu.Unlock()

	now := k.now()
	if !k.lastForced.IsZero() && now.Sub(k.lastForced) < k.cfg.ForceRefreshCooldown {
		set, err := k.cache.Lookup(ctx, k.cfg.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errKeySetUnavailable, err)
		}
		return set, nil
	}
	k.lastForced = now

	k.logger.Info("jwks forced refresh", zap.String("url", k.cfg.JWKSURL), zap.String("kid", kid))
	set, err := k.cache.Refresh(ctx, k.cfg.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh: %w", errKeySetUnavailable, err)
	}
	return set, nil
}

func exportRSA(key jwk.Key) (*rsa.PublicKey, error) {
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: export key: %w", errKeySetUnavailable, err)
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", errKeySetUnavailable, raw)
	}
	return pub, nil
}

// keyError clasifica una falla de firma. Los problemas de red no son culpa del token.
func keyError(provider domain.Provider, err error) error {
	switch {
	case errors.Is(err, errKeySetUnavailable):
		return keyFetchFailed(provider, err)
	case errors.Is(err, errUnknownKeyID):
		return invalidToken(provider, "unknown signing key", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return invalidToken(provider, "malformed token", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return invalidToken(provider, "unknown signing key", err)
	default:
		return invalidToken(provider, "bad signature", err)
	}
}
