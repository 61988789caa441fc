package app

import (
	"fmt"

	"github.com/yungbote/agepredict-backend/internal/config"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/questionnaire"
	"github.com/yungbote/agepredict-backend/internal/services"
	"github.com/yungbote/agepredict-backend/internal/session"
)

type Services struct {
	Flow services.FlowService
}

func wireServices(log *logger.Logger, cfg *config.Config, clients Clients, registry *session.Registry, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	bank, err := questionnaire.LoadBank(cfg.Questionnaire.BankPath)
	if err != nil {
		return Services{}, fmt.Errorf("load question bank: %w", err)
	}

	flow, err := services.NewFlowService(log, services.FlowDeps{
		Registry:  registry,
		Predictor: clients.Inference,
		Bank:      bank,
		Events:    clients.Events,
		Metrics:   metrics,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init flow service: %w", err)
	}
	return Services{Flow: flow}, nil
}
