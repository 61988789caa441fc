package app

import (
	"context"
	"fmt"

	"github.com/yungbote/agepredict-backend/internal/clients/redis"
	"github.com/yungbote/agepredict-backend/internal/config"
	"github.com/yungbote/agepredict-backend/internal/events"
	"github.com/yungbote/agepredict-backend/internal/inference/client"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
)

type Clients struct {
	Inference *client.Client
	Events    events.Publisher
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config) (Clients, error) {
	log.Info("Wiring clients...")

	inference, err := client.New(client.Options{
		BaseURL:    cfg.Inference.BaseURL,
		APIKey:     cfg.Inference.APIKey,
		Timeout:    cfg.Inference.Timeout,
		MaxRetries: cfg.Inference.MaxRetries,
		Paths: client.Paths{
			Image: cfg.Inference.Paths.Image,
			Iris:  cfg.Inference.Paths.Iris,
			Text:  cfg.Inference.Paths.Text,
			Voice: cfg.Inference.Paths.Voice,
		},
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init inference client: %w", err)
	}

	// Redis
	pub := events.Noop()
	if cfg.Redis.Addr != "" {
		bus, err := redis.NewFlowBus(ctx, log, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis flow bus: %w", err)
		}
		pub = bus
	}

	return Clients{Inference: inference, Events: pub}, nil
}

func (c Clients) Close() error {
	if c.Events == nil {
		return nil
	}
	return c.Events.Close()
}
