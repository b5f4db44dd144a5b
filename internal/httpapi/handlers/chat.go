package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chat-relay-backend/internal/ai"
	"chat-relay-backend/internal/chat"
	"chat-relay-backend/internal/common"
)

type chatReq struct {
	Model       string       `json:"model" binding:"required"`
	Content     string       `json:"content" binding:"required"`
	History     []ai.Message `json:"history"`
	Role        string       `json:"role"`
	Temperature *float64     `json:"temperature"`
	MaxTokens   *int         `json:"max_tokens"`
	UserID      uint64       `json:"user_id" binding:"required"`
	SessionID   *uint64      `json:"session_id"`
}

// StreamChat handles POST /openai: resolves the session and constructs the
// provider up front, then relays provider chunks over SSE and leaves
// persistence to the service finalizer. Pre-flight failures are plain JSON
// request failures; the stream is never opened for them.
func (h *Handler) StreamChat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, fmt.Sprintf("invalid request: %v", err))
		return
	}

	temperature := 0.2
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > 2 {
		common.Fail(c, http.StatusBadRequest, 10002, "temperature must be between 0 and 2")
		return
	}

	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens <= 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "max_tokens must be positive")
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	ctx := c.Request.Context()

	// Session resolution and provider construction happen before the stream
	// is opened, so their failures are plain request failures.
	prep, err := h.ChatSvc.PrepareChat(ctx, chat.ChatRequest{
		Model:       req.Model,
		Content:     req.Content,
		History:     req.History,
		Role:        role,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "session not found")
			return
		}
		log.Printf("[StreamChat] prepare failed user_id=%d model=%q err=%v", req.UserID, req.Model, err)
		common.Fail(c, http.StatusInternalServerError, 50003, "generation failed, try again later")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx

	// avoid gin writing a JSON response later
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		// can't stream
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"type\":\"error\",\"message\":\"flusher not supported\"}\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			// last-resort: send a simple error that won't break SSE framing
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"type\":\"error\",\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		if event != "" {
			fmt.Fprintf(c.Writer, "event: %s\n", event)
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", string(b))
		flusher.Flush()
	}

	events := prep.Stream(ctx)

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case chat.EventSession:
				writeJSON("session", gin.H{
					"type": "session",
					"data": ev.Session,
				})
			case chat.EventMessage:
				writeJSON("message", gin.H{
					"type":    "message",
					"content": ev.Content,
				})
			case chat.EventError:
				writeJSON("error", gin.H{
					"type":    "error",
					"message": ev.Err,
				})
				return
			case chat.EventDone:
				writeJSON("done", gin.H{
					"type": "done",
				})
				return
			}

		case <-ticker.C:
			writeJSON("ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case <-ctx.Done():
			return
		}
	}
}

// ListMessages handles GET /openai/message/:session_id with keyset paging.
func (h *Handler) ListMessages(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("session_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid session id")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), sessionID, limit, beforeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}
