package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string        `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv            string        `env:"APP_ENV" envDefault:"production"`
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`
	JWKSRefreshMin    time.Duration `env:"JWKS_REFRESH_MIN" envDefault:"15m"`
	JWKSRefreshMax    time.Duration `env:"JWKS_REFRESH_MAX" envDefault:"24h"`
	JWKSForceCooldown time.Duration `env:"JWKS_FORCE_REFRESH_COOLDOWN" envDefault:"1m"`
	AuthCodeTTL       time.Duration `env:"AUTH_CODE_TTL" envDefault:"10m"`

	Apple  AppleConfig  `envPrefix:"APPLE_"`
	Google GoogleConfig `envPrefix:"GOOGLE_"`
	Kakao  KakaoConfig  `envPrefix:"KAKAO_"`
}

// AppleConfig agrupa los datos de Sign in with Apple.
type AppleConfig struct {
	ClientID       string `env:"CLIENT_ID"`
	TeamID         string `env:"TEAM_ID"`
	KeyID          string `env:"KEY_ID"`
	PrivateKeyPath string `env:"PRIVATE_KEY_PATH"`
	RedirectURI    string `env:"REDIRECT_URI"`
	TokenURI       string `env:"TOKEN_URI" envDefault:"https://appleid.apple.com/auth/token"`
	JWKSURI        string `env:"JWKS_URI" envDefault:"https://appleid.apple.com/auth/keys"`
}

// GoogleConfig agrupa los datos del cliente OAuth de Google.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	TokenURI     string `env:"TOKEN_URI" envDefault:"https://oauth2.googleapis.com/token"`
	UserInfoURI  string `env:"USER_INFO_URI" envDefault:"https://www.googleapis.com/oauth2/v3/userinfo"`
	Issuer       string `env:"ISSUER" envDefault:"https://accounts.google.com"`
	JWKSURI      string `env:"JWKS_URI" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
}

// KakaoConfig agrupa los datos de la app de Kakao. ClientSecret es opcional.
type KakaoConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	TokenURI     string `env:"TOKEN_URI" envDefault:"https://kauth.kakao.com/oauth/token"`
	UserInfoURI  string `env:"USER_INFO_URI" envDefault:"https://kapi.kakao.com/v2/user/me"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWKSRefreshMin <= 0 || cfg.JWKSRefreshMax < cfg.JWKSRefreshMin {
		return nil, fmt.Errorf("invalid jwks refresh window: min=%s max=%s", cfg.JWKSRefreshMin, cfg.JWKSRefreshMax)
	}
	if cfg.JWKSForceCooldown <= 0 {
		return nil, fmt.Errorf("invalid jwks force refresh cooldown: %s", cfg.JWKSForceCooldown)
	}
	return &cfg, nil
}

// IsDevelopment indica si se usa el logger de desarrollo.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Enabled indica si hay datos suficientes para habilitar Apple.
func (c AppleConfig) Enabled() bool {
	return c.ClientID != "" && c.TeamID != "" && c.KeyID != "" && c.PrivateKeyPath != ""
}

// Enabled indica si hay datos suficientes para habilitar Google.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != ""
}

// Enabled indica si hay datos suficientes para habilitar Kakao.
func (c KakaoConfig) Enabled() bool {
	return c.ClientID != ""
}

// LoadPrivateKey lee el archivo .p8 configurado para Apple.
func (c AppleConfig) LoadPrivateKey() ([]byte, error) {
	if strings.TrimSpace(c.PrivateKeyPath) == "" {
		return nil, errors.New("apple private key path not configured")
	}
	data, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read apple private key: %w", err)
	}
	return data, nil
}
