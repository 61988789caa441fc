package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/agepredict-backend/internal/domain"
	httpH "github.com/yungbote/agepredict-backend/internal/http/handlers"
	httpMW "github.com/yungbote/agepredict-backend/internal/http/middleware"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string

	// ServiceName enables otelgin spans when non-empty.
	ServiceName string

	HealthHandler        *httpH.HealthHandler
	SessionHandler       *httpH.SessionHandler
	ModalityHandler      *httpH.ModalityHandler
	QuestionnaireHandler *httpH.QuestionnaireHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Sessions
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.Start)
			api.GET("/sessions/:id", cfg.SessionHandler.Get)
			api.DELETE("/sessions/:id", cfg.SessionHandler.Delete)
			api.POST("/sessions/:id/restart", cfg.SessionHandler.Restart)
			api.POST("/sessions/:id/reset", cfg.SessionHandler.Reset)
			api.GET("/sessions/:id/result", cfg.SessionHandler.Result)
		}

		// Modalities
		if cfg.ModalityHandler != nil {
			api.POST("/sessions/:id/image", cfg.ModalityHandler.Upload(domain.ModalityImage))
			api.POST("/sessions/:id/iris", cfg.ModalityHandler.Upload(domain.ModalityIris))
			api.POST("/sessions/:id/voice", cfg.ModalityHandler.Upload(domain.ModalityVoice))
			api.POST("/sessions/:id/text", cfg.ModalityHandler.Text)
		}

		// Questionnaire
		if cfg.QuestionnaireHandler != nil {
			api.GET("/sessions/:id/questionnaire", cfg.QuestionnaireHandler.Current)
			api.POST("/sessions/:id/questionnaire/answers", cfg.QuestionnaireHandler.Answer)
		}
	}

	return r
}
