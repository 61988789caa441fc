package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agepredict-backend/internal/domain"
	"github.com/yungbote/agepredict-backend/internal/http/response"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/services"
)

const (
	defaultMaxUploadBytes = 20 << 20
	maxTextBodyBytes      = 1 << 20
)

type ModalityHandler struct {
	log            *logger.Logger
	flow           services.FlowService
	maxUploadBytes int64
}

func NewModalityHandler(log *logger.Logger, flow services.FlowService, maxUploadBytes int64) *ModalityHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ModalityHandler{
		log:            log.With("handler", "ModalityHandler"),
		flow:           flow,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload returns the handler for one upload modality.
//
// POST /api/sessions/:id/{image,iris,voice}  (multipart, field "file")
func (h *ModalityHandler) Upload(m domain.Modality) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > h.maxUploadBytes {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", errUploadTooLarge(h.maxUploadBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

		fh, err := c.FormFile("file")
		switch {
		case err == nil:
		case isTooLarge(err):
			h.log.Warn("upload rejected", "session_id", c.Param("id"), "modality", m, "limit_bytes", h.maxUploadBytes)
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", errUploadTooLarge(h.maxUploadBytes))
			return
		case errors.Is(err, http.ErrMissingFile):
			response.RespondError(c, http.StatusBadRequest, "missing_file", services.ErrMissingFile)
			return
		default:
			response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
			return
		}
		if fh.Size == 0 {
			response.RespondError(c, http.StatusBadRequest, "missing_file", services.ErrMissingFile)
			return
		}

		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
			return
		}
		defer f.Close()

		res, err := h.flow.SubmitFile(c.Request.Context(), c.Param("id"), m, fh.Filename, f)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, res)
	}
}

type textRequest struct {
	Text string `json:"text"`
}

// POST /api/sessions/:id/text
func (h *ModalityHandler) Text(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxTextBodyBytes)
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.flow.SubmitText(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func errUploadTooLarge(limit int64) error {
	return fmt.Errorf("upload exceeds %d bytes", limit)
}
