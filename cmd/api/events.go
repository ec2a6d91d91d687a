package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail order change events",
	Long:  `Subscribes to the configured Redis channel and logs every order event until interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := newBroker(ctx)
		if err != nil {
			return err
		}
		defer broker.Close()

		messages, err := broker.Subscribe(ctx, cfg.Redis.Channel)
		if err != nil {
			return err
		}

		appLogger.Info().Str("channel", cfg.Redis.Channel).Msg("listening for order events")
		for msg := range messages {
			appLogger.Info().RawJSON("event", msg).Msg("order event")
		}
		return nil
	},
}
