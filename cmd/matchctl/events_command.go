package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"guidinghand/internal/platform/kafka/consumer"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var (
		group     string
		eventType string
		fromStart bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail match events from Kafka",
		Long: "Print match.created, match.notified and notification.dead_lettered events " +
			"as JSON lines until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is not set")
			}
			c, err := consumer.New(consumer.Config{
				Brokers:   cfg.Kafka.Brokers,
				GroupID:   group,
				Topics:    []string{cfg.Kafka.Topic},
				FromStart: fromStart,
			}, ctx.logger)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Run(cmd.Context(), func(_ context.Context, msg *consumer.Message) error {
				return printEvent(ctx, msg, eventType)
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "matchctl", "Consumer group id")
	cmd.Flags().StringVar(&eventType, "type", "", "Only print events of this type")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Read the topic from the earliest offset")
	return cmd
}

func printEvent(ctx *commandContext, msg *consumer.Message, eventType string) error {
	if eventType != "" && msg.Headers["event_type"] != eventType {
		return nil
	}
	_, err := fmt.Fprintf(ctx.out, "%s\n", msg.Value)
	return err
}
