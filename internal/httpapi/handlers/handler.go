package handlers

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"chat-relay-backend/internal/ai"
	"chat-relay-backend/internal/chat"
	"chat-relay-backend/internal/config"
)

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	ChatSvc *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, locker chat.UserLocker, publisher chat.TurnPublisher) *Handler {
	repo := chat.NewRepo(db)

	reg := ai.NewRegistry()
	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, strings.TrimSpace(model)), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, strings.TrimSpace(model)), nil
	})

	svc := chat.NewService(repo, reg, cfg.AIProvider, locker, publisher)
	return &Handler{DB: db, Cfg: cfg, ChatSvc: svc}
}
