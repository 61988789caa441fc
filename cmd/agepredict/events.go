package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/agepredict-backend/internal/clients/redis"
	"github.com/yungbote/agepredict-backend/internal/events"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/platform/shutdown"
)

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with published flow events",
	}

	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print flow events from Redis as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.Redis.Addr
			}
			if addr == "" {
				return errors.New("redis address required (--addr or redis.addr)")
			}
			channel, _ := cmd.Flags().GetString("channel")
			if channel == "" {
				channel = cfg.Redis.Channel
			}

			log, err := logger.NewWithOptions(cfg.Env, logger.Options{Level: "warn"})
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := shutdown.NotifyContext(context.Background())
			defer stop()

			bus, err := redis.NewFlowBus(ctx, log, addr, channel)
			if err != nil {
				return err
			}
			defer bus.Close()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			if err := bus.StartForwarder(ctx, func(ev events.Event) {
				mu.Lock()
				defer mu.Unlock()
				printEvent(out, ev)
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s %s\n", gray("listening on"), bold(channel), gray("("+addr+")"))
			<-ctx.Done()
			return nil
		},
	}
	tail.Flags().String("addr", "", "redis address, overrides redis.addr")
	tail.Flags().String("channel", "", "redis channel, overrides redis.channel")

	cmd.AddCommand(tail)
	return cmd
}

func printEvent(w io.Writer, ev events.Event) {
	typ := string(ev.Type)
	switch ev.Type {
	case events.SessionStarted:
		typ = cyan(typ)
	case events.ModalityCompleted:
		typ = green(typ)
	case events.SessionFinished:
		typ = bold(green(typ))
	case events.SessionReset:
		typ = yellow(typ)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", gray(ev.At.Local().Format(time.TimeOnly)), typ, ev.SessionID)
	if len(ev.Modalities) > 0 {
		fmt.Fprintf(&b, " modalities=%s", strings.Join(ev.Modalities, ","))
	}
	if ev.Modality != "" {
		fmt.Fprintf(&b, " modality=%s", ev.Modality)
	}
	if ev.Label != "" {
		fmt.Fprintf(&b, " label=%s", ev.Label)
	}
	if ev.Next != "" {
		fmt.Fprintf(&b, " next=%s", ev.Next)
	}
	fmt.Fprintln(w, b.String())
}
