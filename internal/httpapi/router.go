package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chat-relay-backend/internal/chat"
	"chat-relay-backend/internal/common"
	"chat-relay-backend/internal/config"
	"chat-relay-backend/internal/httpapi/handlers"
	"chat-relay-backend/internal/httpapi/middleware"
)

func NewRouter(db *gorm.DB, cfg config.Config, locker chat.UserLocker, publisher chat.TurnPublisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, locker, publisher)

	r.GET("/ping", h.Ping)

	// chat relay
	r.POST("/openai", h.StreamChat)

	// model registry
	r.POST("/openai/model", h.CreateModel)
	r.GET("/openai/model", h.ListModels)
	r.GET("/openai/toggle/:model_id", h.ToggleModel)

	// message history
	r.GET("/openai/message/:session_id", h.ListMessages)

	// sessions
	r.POST("/openai/session", h.CreateSession)
	r.GET("/openai/session/:user_id", h.ListSessions)
	r.DELETE("/openai/session/:session_id", h.DeleteSession)

	return r
}
