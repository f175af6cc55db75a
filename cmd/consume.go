package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// stepLogger applies a step increment to a user and the user's group.
type stepLogger interface {
	LogSteps(ctx context.Context, userID string, delta int) error
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer that applies step-ingestion messages",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setUp()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open the entity store")
		}
		defer store.Close()

		notifier, err := openNotifier(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event publisher")
		}
		defer notifier.Close()

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(cfg.Pulsar.URL, cfg.Pulsar.TopicConsumer, cfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		coordinator := services.NewCoordinator(store, notifier)

		// Consume messages
		for {
			log.Debug().Msg("Waiting for messages...")
			msg, err := consumer.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					log.Info().Msg("consumer stopped")
					return
				}
				log.Error().Err(err).Msg("Error receiving message")
				continue
			}

			if handleStepsMessage(ctx, coordinator, msg.Payload()) {
				if err := consumer.Ack(msg); err != nil {
					log.Error().Err(err).Str("message_id", msg.ID().String()).Msg("Failed to acknowledge message")
				}
			} else {
				consumer.Nack(msg)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

// handleStepsMessage applies one step-ingestion payload and reports whether the message is
// done with. Malformed payloads and unknown users are dropped since redelivery cannot fix
// them; any other failure is retried.
func handleStepsMessage(ctx context.Context, steps stepLogger, payload []byte) bool {
	userID, delta, err := events.DecodeStepsMessage(payload)
	if err != nil {
		log.Warn().Err(err).Str("payload", string(payload)).Msg("dropping malformed steps message")
		return true
	}

	logger := log.With().Str("user_id", userID).Int("steps", delta).Logger()

	err = steps.LogSteps(ctx, userID, delta)
	switch {
	case err == nil:
		logger.Debug().Msg("steps message applied")
		return true
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
		logger.Warn().Err(err).Msg("dropping steps message")
		return true
	case errors.Is(err, context.Canceled):
		return false
	default:
		logger.Error().Err(err).Msg("failed to apply steps message, it will be redelivered")
		return false
	}
}
