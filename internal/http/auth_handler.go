package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poppang-auth/internal/domain"
	"poppang-auth/internal/service"
)

// AuthHandler expone login web, login movil, auto login y registro.
type AuthHandler struct {
	logger     *zap.Logger
	authServ   *service.AuthService
	signupServ *service.SignupService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, signupServ *service.SignupService) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		authServ:   authServ,
		signupServ: signupServ,
	}
}

// userResponse es la proyeccion que reciben los clientes tras login o registro.
type userResponse struct {
	UID      string          `json:"uid"`
	Provider domain.Provider `json:"provider"`
	Email    *string         `json:"email"`
	Nickname *string         `json:"nickname"`
	Role     domain.Role     `json:"role"`
	Alerted  bool            `json:"isAlerted"`
	FCMToken *string         `json:"fcmToken"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		UID:      u.UID,
		Provider: u.Provider,
		Email:    u.Email,
		Nickname: u.Nickname,
		Role:     u.Role,
		Alerted:  u.Alerted,
		FCMToken: u.FCMToken,
	}
}

// WebLogin maneja GET /api/v1/auth/{provider}/login?code=.
func (h *AuthHandler) WebLogin(provider domain.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		user, err := h.authServ.WebLogin(c.Request.Context(), provider, code)
		if err != nil {
			writeError(c, h.logger, "web login failed", err)
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

type mobileLoginRequest struct {
	AuthCode    string `json:"auth_code"`
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

func (r mobileLoginRequest) credential(provider domain.Provider) string {
	switch provider {
	case domain.ProviderApple:
		return r.AuthCode
	case domain.ProviderGoogle:
		return r.IDToken
	default:
		return r.AccessToken
	}
}

// MobileLogin maneja POST /api/v1/auth/{provider}/mobile/login.
func (h *AuthHandler) MobileLogin(provider domain.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mobileLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid mobile login request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		user, err := h.authServ.MobileLogin(c.Request.Context(), provider, req.credential(provider))
		if err != nil {
			writeError(c, h.logger, "mobile login failed", err)
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

// AutoLogin maneja POST /api/v1/auth/autoLogin.
func (h *AuthHandler) AutoLogin(c *gin.Context) {
	var req struct {
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid auto login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := h.authServ.AutoLogin(c.Request.Context(), req.UID)
	if err != nil {
		writeError(c, h.logger, "auto login failed", err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

type signupRequest struct {
	UID           string   `json:"uid" binding:"required"`
	Email         *string  `json:"email"`
	Nickname      string   `json:"nickname" binding:"required"`
	Alerted       bool     `json:"isAlerted"`
	FCMToken      *string  `json:"fcmToken"`
	KeywordList   []string `json:"keywordList"`
	RecommendList []int64  `json:"recommendList"`
}

// Signup maneja POST /api/v1/auth/{provider}/signup.
func (h *AuthHandler) Signup(provider domain.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid signup request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		user, err := h.signupServ.CompleteSignup(c.Request.Context(), service.SignupInput{
			UID:          req.UID,
			Provider:     provider,
			Nickname:     req.Nickname,
			Email:        req.Email,
			Alerted:      req.Alerted,
			FCMToken:     req.FCMToken,
			Keywords:     req.KeywordList,
			RecommendIDs: req.RecommendList,
		})
		if err != nil {
			writeError(c, h.logger, "signup failed", err)
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}
