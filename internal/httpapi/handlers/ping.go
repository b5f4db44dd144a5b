package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-relay-backend/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
