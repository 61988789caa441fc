package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/agepredict-backend/internal/app"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/platform/shutdown"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}

			log, err := logger.NewWithOptions(cfg.Env, logger.Options{Level: cfg.Log.Level})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := shutdown.NotifyContext(context.Background())
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error("failed to initialize app", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil {
				log.Error("server exited", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address, overrides http.addr")
	return cmd
}
