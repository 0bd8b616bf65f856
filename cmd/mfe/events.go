package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"MicroFrontend-Portal/internal/events"
)

func newEventsCommand(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with plugin load events",
	}
	cmd.AddCommand(newEventsTailCommand(load))
	return cmd
}

func newEventsTailCommand(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print plugin load events from the configured bus as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Events.Driver == "memory" {
				return errors.New("memory 事件总线只在进程内可见，tail 需要 redis 或 rabbitmq 驱动")
			}
			ctx := cmd.Context()
			bus, err := openBus(ctx, cfg)
			if err != nil {
				return err
			}
			defer bus.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			err = bus.Consume(ctx, func(_ context.Context, ev events.Event) error {
				return enc.Encode(ev)
			})
			return ignoreCanceled(err)
		},
	}
}
