package cmd

import (
	"context"
	"errors"

	"github.com/mooover/mooover-services/internal/appconfig"
	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/scheduler"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	resetDaily  bool
	resetWeekly bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the daily or weekly step counters of every user and group",
	Long:  `Runs the scheduled counter resets once, for use from an external job runner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetDaily && !resetWeekly {
			return errors.New("one of --daily or --weekly is required")
		}

		cfg := setUp()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

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

		sched, err := newScheduler(cfg, store, notifier)
		if err != nil {
			return err
		}

		var periods []scheduler.Period
		if resetDaily {
			periods = append(periods, scheduler.Daily)
		}
		if resetWeekly {
			periods = append(periods, scheduler.Weekly)
		}

		for _, period := range periods {
			res, err := sched.RunNow(ctx, period)
			if err != nil {
				log.Error().Err(err).Str("period", string(period)).Msg("Failed to reset step counters")
				return err
			}
			log.Info().Str("period", string(period)).Int64("users", res.Users).Int64("groups", res.Groups).
				Msg("Step counters reset")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetDaily, "daily", false, "reset today_steps")
	resetCmd.Flags().BoolVar(&resetWeekly, "weekly", false, "reset this_week_steps")
}

// newScheduler builds the reset scheduler from the scheduler section of cfg.
func newScheduler(cfg *appconfig.Config, store services.Store, notifier events.Notifier) (*scheduler.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return scheduler.New(store, notifier, scheduler.Config{
		Location: loc,
		Daily:    cfg.Scheduler.Daily,
		Weekly:   cfg.Scheduler.Weekly,
		Timeout:  cfg.Scheduler.Timeout,
	}, &log.Logger)
}
