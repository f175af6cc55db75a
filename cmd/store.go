package cmd

import (
	"context"
	"fmt"

	"github.com/mooover/mooover-services/db"
	"github.com/mooover/mooover-services/db/memstore"
	"github.com/mooover/mooover-services/internal/appconfig"
	awsclient "github.com/mooover/mooover-services/internal/aws"
	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/rs/zerolog/log"
)

// openStore returns the entity store selected by database.driver.
func openStore(ctx context.Context, cfg *appconfig.Config) (services.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("using the in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
	return openPostgres(ctx, cfg)
}

// openPostgres connects to PostgreSQL. When database.passwordSecret is set the password is
// read from AWS Secrets Manager and injected into the connection string.
func openPostgres(ctx context.Context, cfg *appconfig.Config) (*db.StepsDB, error) {
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("database driver %q does not support this command", cfg.Database.Driver)
	}

	source := cfg.Database.Source
	if cfg.Database.PasswordSecret != "" {
		awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		password, err := awsclient.DatabasePassword(ctx, awsclient.NewSecretsManagerClient(awsCfg), cfg.Database.PasswordSecret)
		if err != nil {
			return nil, err
		}
		if source, err = awsclient.WithPassword(source, password); err != nil {
			return nil, err
		}
	}

	return db.NewStepsDB(source, &log.Logger)
}

// openNotifier connects the domain event publisher, or drops events when no broker is set.
func openNotifier(cfg *appconfig.Config) (events.Notifier, error) {
	if cfg.Pulsar.URL == "" {
		log.Info().Msg("pulsar url not set, domain events are not published")
		return events.NopNotifier{}, nil
	}
	if cfg.Pulsar.TopicProducer == "" {
		return nil, fmt.Errorf("pulsar.topicProducer is required when pulsar.url is set")
	}
	return events.NewEventPublisher(cfg.Pulsar.URL, cfg.Pulsar.TopicProducer)
}
