package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"poppang-auth/internal/config"
	"poppang-auth/internal/db"
	"poppang-auth/internal/domain"
	apihttp "poppang-auth/internal/http"
	"poppang-auth/internal/metrics"
	"poppang-auth/internal/oauth"
	"poppang-auth/internal/repository"
	"poppang-auth/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.WaitReady(ctx, pool, logger); err != nil {
		logger.Fatal("db not ready", zap.Error(err))
	}
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)

	codeGuard := oauth.NewMemoryAuthCodeGuard(cfg.AuthCodeTTL)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory auth code guard", zap.Error(err))
		} else {
			codeGuard = oauth.NewRedisAuthCodeGuard(redisClient, cfg.AuthCodeTTL, logger)
		}
		cancel()
	}

	httpClient := oauth.NewHTTPClient(cfg.HTTPClientTimeout)
	exchanger := oauth.NewTokenExchanger(httpClient, logger)

	var appleVerifier, googleVerifier oauth.IdentityTokenVerifier
	if cfg.Apple.Enabled() {
		keyMaterial, err := cfg.Apple.LoadPrivateKey()
		if err != nil {
			logger.Fatal("apple private key", zap.Error(err))
		}
		signer, err := oauth.NewClientAssertionSigner(cfg.Apple.TeamID, cfg.Apple.ClientID, cfg.Apple.KeyID, keyMaterial)
		if err != nil {
			logger.Fatal("apple client assertion signer", zap.Error(err))
		}
		exchanger.Register(domain.ProviderApple, oauth.ClientConfig{
			ClientID:    cfg.Apple.ClientID,
			RedirectURI: cfg.Apple.RedirectURI,
			TokenURI:    cfg.Apple.TokenURI,
		}, signer.Sign)

		v, err := oauth.NewAppleVerifier(ctx, httpClient, keySetConfig(cfg, cfg.Apple.JWKSURI), logger)
		if err != nil {
			logger.Fatal("apple verifier", zap.Error(err))
		}
		appleVerifier = v
	} else {
		logger.Warn("apple login not configured")
	}

	if cfg.Google.Enabled() {
		exchanger.Register(domain.ProviderGoogle, oauth.ClientConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURI:  cfg.Google.RedirectURI,
			TokenURI:     cfg.Google.TokenURI,
		}, nil)

		v, err := oauth.NewGoogleVerifier(ctx, httpClient, cfg.Google.Issuer, keySetConfig(cfg, cfg.Google.JWKSURI), logger)
		if err != nil {
			logger.Fatal("google verifier", zap.Error(err))
		}
		googleVerifier = v
	} else {
		logger.Warn("google login not configured")
	}

	if cfg.Kakao.Enabled() {
		exchanger.Register(domain.ProviderKakao, oauth.ClientConfig{
			ClientID:     cfg.Kakao.ClientID,
			ClientSecret: cfg.Kakao.ClientSecret,
			RedirectURI:  cfg.Kakao.RedirectURI,
			TokenURI:     cfg.Kakao.TokenURI,
		}, nil)
	} else {
		logger.Warn("kakao login not configured")
	}

	profiles := oauth.NewProfileFetcher(httpClient, oauth.ProfileFetcherConfig{
		AppleClientID:     cfg.Apple.ClientID,
		GoogleClientID:    cfg.Google.ClientID,
		GoogleUserInfoURL: cfg.Google.UserInfoURI,
		KakaoUserInfoURL:  cfg.Kakao.UserInfoURI,
	}, appleVerifier, googleVerifier)

	recorder := metrics.NewRecorder()
	identitySvc := service.NewIdentityService(logger, userRepo)
	authSvc := service.NewAuthService(logger, exchanger, profiles, identitySvc, userRepo, codeGuard, recorder)
	signupSvc := service.NewSignupService(logger, userRepo, repository.NewPgTransactor(pool), recorder)
	userSvc := service.NewUserService(logger, userRepo)

	authHandler := apihttp.NewAuthHandler(logger, authSvc, signupSvc)
	userHandler := apihttp.NewUserHandler(logger, userSvc)
	router := apihttp.NewRouter(logger, authHandler, userHandler, recorder.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func keySetConfig(cfg *config.Config, jwksURL string) oauth.KeySetConfig {
	return oauth.KeySetConfig{
		JWKSURL:              jwksURL,
		MinRefresh:           cfg.JWKSRefreshMin,
		MaxRefresh:           cfg.JWKSRefreshMax,
		ForceRefreshCooldown: cfg.JWKSForceCooldown,
	}
}
