package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"poppang-auth/internal/domain"
)

const maxProfileBody = 1 << 20

// ProfileFetcherConfig agrupa endpoints y client ids usados para obtener perfiles.
type ProfileFetcherConfig struct {
	AppleClientID     string
	GoogleClientID    string
	GoogleUserInfoURL string
	KakaoUserInfoURL  string
}

// ProfileFetcher obtiene la identidad externa a partir de la credencial de cada proveedor.
type ProfileFetcher struct {
	httpClient *http.Client
	cfg        ProfileFetcherConfig
	apple      IdentityTokenVerifier
	google     IdentityTokenVerifier
}

func NewProfileFetcher(httpClient *http.Client, cfg ProfileFetcherConfig, apple, google IdentityTokenVerifier) *ProfileFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProfileFetcher{
		httpClient: httpClient,
		cfg:        cfg,
		apple:      apple,
		google:     google,
	}
}

// FetchAppleIdentity delega en el verificador de Apple; no hay llamada de perfil.
func (f *ProfileFetcher) FetchAppleIdentity(ctx context.Context, idToken string) (domain.ExternalIdentity, error) {
	if f.apple == nil {
		return domain.ExternalIdentity{}, invalidToken(domain.ProviderApple, "provider not configured", nil)
	}
	claims, err := f.apple.Verify(ctx, idToken, f.cfg.AppleClientID)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	return claims.Identity(domain.ProviderApple), nil
}

// FetchGoogleIdentity verifica el id_token que presentan los clientes nativos.
func (f *ProfileFetcher) FetchGoogleIdentity(ctx context.Context, idToken string) (domain.ExternalIdentity, error) {
	if f.google == nil {
		return domain.ExternalIdentity{}, invalidToken(domain.ProviderGoogle, "provider not configured", nil)
	}
	claims, err := f.google.Verify(ctx, idToken, f.cfg.GoogleClientID)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	return claims.Identity(domain.ProviderGoogle), nil
}

type googleUserInfo struct {
	Sub     *string `json:"sub"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Picture string  `json:"picture"`
}

// FetchGoogleUserInfo llama a userinfo con el access token del flujo web.
func (f *ProfileFetcher) FetchGoogleUserInfo(ctx context.Context, accessToken string) (domain.ExternalIdentity, error) {
	var info googleUserInfo
	if err := f.getJSON(ctx, domain.ProviderGoogle, f.cfg.GoogleUserInfoURL, accessToken, &info); err != nil {
		return domain.ExternalIdentity{}, err
	}
	if info.Sub == nil || strings.TrimSpace(*info.Sub) == "" {
		return domain.ExternalIdentity{}, profileFailed(domain.ProviderGoogle, "missing sub", nil)
	}
	return domain.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		ExternalID: *info.Sub,
		Email:      domain.StringPtr(info.Email),
		Name:       info.Name,
		PictureURL: info.Picture,
	}, nil
}

type kakaoUser struct {
	ID int64 `json:"id"`
}

// FetchKakaoUser llama a /v2/user/me; el uid es el id numerico de la cuenta.
// El email no se extrae en este flujo.
func (f *ProfileFetcher) FetchKakaoUser(ctx context.Context, accessToken string) (domain.ExternalIdentity, error) {
	var user kakaoUser
	if err := f.getJSON(ctx, domain.ProviderKakao, f.cfg.KakaoUserInfoURL, accessToken, &user); err != nil {
		return domain.ExternalIdentity{}, err
	}
	if user.ID == 0 {
		return domain.ExternalIdentity{}, profileFailed(domain.ProviderKakao, "missing id", nil)
	}
	return domain.ExternalIdentity{
		Provider:   domain.ProviderKakao,
		ExternalID: strconv.FormatInt(user.ID, 10),
	}, nil
}

func (f *ProfileFetcher) getJSON(ctx context.Context, provider domain.Provider, url, accessToken string, dst any) error {
	if strings.TrimSpace(accessToken) == "" {
		return profileFailed(provider, "empty access token", nil)
	}
	if url == "" {
		return profileFailed(provider, "provider not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return profileFailed(provider, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return profileFailed(provider, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProfileBody))
		return profileFailed(provider, "profile endpoint rejected request", statusError(resp.StatusCode))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBody)).Decode(dst); err != nil {
		return profileFailed(provider, "decode profile", fmt.Errorf("decode: %w", err))
	}
	return nil
}
