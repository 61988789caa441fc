package app

import (
	"github.com/yungbote/agepredict-backend/internal/config"
	httpserver "github.com/yungbote/agepredict-backend/internal/http"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, handlers Handlers) httpserver.RouterConfig {
	rc := httpserver.RouterConfig{
		Log:                  log,
		Metrics:              metrics,
		CORSOrigins:          cfg.HTTP.CORSOrigins,
		HealthHandler:        handlers.Health,
		SessionHandler:       handlers.Session,
		ModalityHandler:      handlers.Modality,
		QuestionnaireHandler: handlers.Questionnaire,
	}
	if cfg.OTel.Enabled {
		rc.ServiceName = cfg.OTel.ServiceName
	}
	return rc
}
