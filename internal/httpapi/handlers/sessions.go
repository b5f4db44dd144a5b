package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chat-relay-backend/internal/chat"
	"chat-relay-backend/internal/common"
)

type createSessionReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Name == "" {
		req.Name = chat.DefaultSessionName
	}

	sess := &chat.Session{
		UserID: req.UserID,
		Name:   req.Name,
		Active: req.Active,
	}
	if err := h.ChatSvc.CreateSession(c.Request.Context(), sess); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}

	common.OK(c, sess)
}

func (h *Handler) ListSessions(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid user id")
		return
	}

	ss, err := h.ChatSvc.ListSessions(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list sessions")
		return
	}
	common.OK(c, ss)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("session_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid session id")
		return
	}

	if err := h.ChatSvc.DeleteSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to delete session")
		return
	}

	common.OK(c, gin.H{
		"message":    "deleted",
		"session_id": id,
	})
}
