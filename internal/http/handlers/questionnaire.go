package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agepredict-backend/internal/http/response"
	"github.com/yungbote/agepredict-backend/internal/services"
)

type QuestionnaireHandler struct {
	flow services.FlowService
}

func NewQuestionnaireHandler(flow services.FlowService) *QuestionnaireHandler {
	return &QuestionnaireHandler{flow: flow}
}

// GET /api/sessions/:id/questionnaire
func (h *QuestionnaireHandler) Current(c *gin.Context) {
	q, err := h.flow.CurrentQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"question": q})
}

type answerRequest struct {
	Option *int `json:"option"`
}

// POST /api/sessions/:id/questionnaire/answers
func (h *QuestionnaireHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Option == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("option is required"))
		return
	}
	res, err := h.flow.Answer(c.Request.Context(), c.Param("id"), *req.Option)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
