package app

import (
	"github.com/yungbote/agepredict-backend/internal/config"
	httpH "github.com/yungbote/agepredict-backend/internal/http/handlers"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/session"
)

type Handlers struct {
	Health        *httpH.HealthHandler
	Session       *httpH.SessionHandler
	Modality      *httpH.ModalityHandler
	Questionnaire *httpH.QuestionnaireHandler
}

func wireHandlers(log *logger.Logger, cfg *config.Config, services Services, registry *session.Registry) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(registry),
		Session:       httpH.NewSessionHandler(services.Flow),
		Modality:      httpH.NewModalityHandler(log, services.Flow, cfg.HTTP.MaxUploadBytes),
		Questionnaire: httpH.NewQuestionnaireHandler(services.Flow),
	}
}
