package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/foundry/internal/events"
	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [topic]",
	Short: "Stream record change events from NATS",
	Long: `Stream record change events from NATS.

The topic defaults to every record event (foundry.>). --resource narrows it to
one resource, e.g. --resource talents watches foundry.talents.*.`,
	GroupID:           "reference",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		resource, _ := cmd.Flags().GetString("resource")
		if natsURL == "" {
			return fmt.Errorf("no NATS URL; pass --nats or set FOUNDRY_NATS_URL")
		}

		topic := events.TopicAll
		switch {
		case len(args) == 1:
			topic = args[0]
		case resource != "":
			res, ok := model.Lookup(resource)
			if !ok {
				return fmt.Errorf("unknown resource %q", resource)
			}
			topic = events.ResourcePattern(res)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sub, err := dialEvents(natsURL)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderMuted("watching "+topic))
		out := cmd.OutOrStdout()
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Fprintln(out, strings.TrimSpace(string(data)))
					continue
				}
				fmt.Fprintln(out, describeEvent(data))
			}
		}
	},
}

func dialEvents(url string) (events.Subscriber, error) {
	return events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
}

// describeEvent renders a record event payload as one line.
func describeEvent(data []byte) string {
	ev, err := model.ParseRecord(data)
	if err != nil {
		return ui.RenderError("unreadable event: ") + strings.TrimSpace(string(data))
	}
	resource := ev.Get("resource").Text()
	id := ev.Get("id").Text()
	if !ev.Has("record") {
		return fmt.Sprintf("%s #%s %s", ui.RenderAccent(resource), id, ui.RenderMuted("deleted"))
	}
	rec := ev.Get("record").Record()
	label := rec.Get("name").Text()
	if label == "" {
		label = rec.Get("title").Text()
	}
	return strings.TrimSpace(fmt.Sprintf("%s #%s %s", ui.RenderAccent(resource), id, label))
}

func init() {
	watchCmd.Flags().String("nats", defaultNATSURL(), "NATS server URL")
	watchCmd.Flags().String("resource", "", "only watch events for this resource")
}
