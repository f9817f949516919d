package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poppang-auth/internal/oauth"
	"poppang-auth/internal/service"
)

type errorMapping struct {
	kind    error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{oauth.ErrInvalidIdentityToken, http.StatusUnauthorized, "invalid identity token"},
	{oauth.ErrTokenExchangeFailed, http.StatusBadGateway, "provider token exchange failed"},
	{oauth.ErrProfileFetchFailed, http.StatusBadGateway, "provider profile fetch failed"},
	{oauth.ErrKeyFetchFailed, http.StatusBadGateway, "provider signing keys unavailable"},
	{oauth.ErrClientSecretGenerationFailed, http.StatusInternalServerError, "client secret generation failed"},
	{oauth.ErrAuthCodeReused, http.StatusConflict, "authorization code already used"},
	{service.ErrUserNotFound, http.StatusNotFound, "user not found"},
	{service.ErrNicknameTaken, http.StatusConflict, "nickname already taken"},
	{service.ErrIdentityConflict, http.StatusConflict, "identity registered with another provider"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid request"},
}

// writeError responde con el status del tipo de error. El detalle solo va al log.
func writeError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			if m.status >= http.StatusInternalServerError {
				logger.Error(msg, zap.Error(err))
			} else {
				logger.Warn(msg, zap.Error(err))
			}
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}
	logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
