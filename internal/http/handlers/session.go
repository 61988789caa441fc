package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agepredict-backend/internal/http/response"
	"github.com/yungbote/agepredict-backend/internal/services"
)

type SessionHandler struct {
	flow services.FlowService
}

func NewSessionHandler(flow services.FlowService) *SessionHandler {
	return &SessionHandler{flow: flow}
}

type selectionRequest struct {
	Modalities []string `json:"modalities"`
}

// POST /api/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.flow.Start(c.Request.Context(), req.Modalities)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.flow.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/sessions/:id/restart
func (h *SessionHandler) Restart(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.flow.Restart(c.Request.Context(), c.Param("id"), req.Modalities)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	view, err := h.flow.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.flow.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/sessions/:id/result
func (h *SessionHandler) Result(c *gin.Context) {
	res, err := h.flow.FinalResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
