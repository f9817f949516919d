package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poppang-auth/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// NicknameDuplicated maneja GET /api/v1/user/nickname/duplicated?nickname=.
func (h *UserHandler) NicknameDuplicated(c *gin.Context) {
	duplicated, err := h.userServ.IsNicknameDuplicated(c.Request.Context(), c.Query("nickname"))
	if err != nil {
		writeError(c, h.logger, "nickname check failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isDuplicated": duplicated})
}
