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

type createModelReq struct {
	Name            string `json:"name" binding:"required"`
	Model           string `json:"model" binding:"required"`
	Desc            string `json:"desc"`
	SupportsHistory bool   `json:"supports_history"`
	Image           string `json:"image"`
	Active          bool   `json:"active"`
}

func (h *Handler) CreateModel(c *gin.Context) {
	var req createModelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	m := &chat.ModelConfig{
		Name:            req.Name,
		Model:           req.Model,
		Desc:            req.Desc,
		SupportsHistory: req.SupportsHistory,
		Image:           req.Image,
		Active:          req.Active,
	}
	if err := h.ChatSvc.CreateModelConfig(c.Request.Context(), m); err != nil {
		if errors.Is(err, chat.ErrModelExists) {
			common.Fail(c, http.StatusBadRequest, 10010, "model already registered")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create model")
		return
	}

	common.OK(c, m)
}

func (h *Handler) ListModels(c *gin.Context) {
	ms, err := h.ChatSvc.ListModelConfigs(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list models")
		return
	}
	common.OK(c, ms)
}

func (h *Handler) ToggleModel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("model_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid model id")
		return
	}

	m, err := h.ChatSvc.ToggleModelActive(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40410, "model not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to toggle model")
		return
	}

	common.OK(c, m)
}
