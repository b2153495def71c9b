package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baznta/legal-intel-dashboard/internal/config"
	"github.com/baznta/legal-intel-dashboard/internal/hermes"
)

var eventsSubject string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print pipeline events as they are published",
	Long: `Follow the document pipeline on NATS and print one JSON line per event,
as {"subject": ..., "data": ...}. Unlike serve, this is a plain subscription:
every running copy sees every event.

Examples:
  # Everything
  legalintel events

  # Only failures
  legalintel events --subject legalintel.document.extraction_failed`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSubject, "subject", hermes.SubjectAll, "subject to follow, wildcards allowed")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(os.Stderr, cfg.LogLevel)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer client.Close()

	if err := subscribeEvents(client, eventsSubject, cmd.OutOrStdout(), logger); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

type subscriber interface {
	Subscribe(subject string, handler func(subject string, data []byte)) error
}

// eventLine is one line of events output.
type eventLine struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

func subscribeEvents(sub subscriber, subject string, w io.Writer, logger *slog.Logger) error {
	enc := json.NewEncoder(w)
	err := sub.Subscribe(subject, func(msgSubject string, data []byte) {
		line := eventLine{Subject: msgSubject, Data: data}
		if !json.Valid(data) {
			line.Data, _ = json.Marshal(string(data))
		}
		if err := enc.Encode(line); err != nil {
			logger.Warn("failed to write event", "subject", msgSubject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("follow %s: %w", subject, err)
	}
	return nil
}
