package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	firebase "firebase.google.com/go/v4"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/mansoorceksport/liftlog/internal/server"
	"github.com/mansoorceksport/liftlog/internal/service"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand works against
type env struct {
	cfg        *config.Config
	aggregator *service.MetricsAggregator
	progress   *service.ProgressService
	close      func()
}

func newRootCmd() *cobra.Command {
	var userID string
	var asJSON bool

	root := &cobra.Command{
		Use:           "progressctl",
		Short:         "Inspect and maintain a lifter's progress data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&userID, "user", "", "user id (required)")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = root.MarkPersistentFlagRequired("user")

	root.AddCommand(newRecordsCmd(&userID, &asJSON))
	root.AddCommand(newFrequencyCmd(&userID, &asJSON))
	root.AddCommand(newEnsureWeekCmd(&userID))
	root.AddCommand(newFlushCacheCmd(&userID))
	return root
}

func loadEnv(ctx context.Context) (*env, error) {
	// The CLI never serves requests, so auth settings are irrelevant
	if os.Getenv("AUTH_MODE") == "" {
		_ = os.Setenv("AUTH_MODE", config.AuthDev)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var firebaseApp *firebase.App
	if cfg.Store.Driver == config.StoreFirestore {
		firebaseApp, err = middleware.InitFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.PrivateKey, cfg.Firebase.ClientEmail)
		if err != nil {
			return nil, fmt.Errorf("init firebase: %w", err)
		}
	}

	store, closer, err := server.OpenStore(ctx, cfg, firebaseApp)
	if err != nil {
		return nil, err
	}

	clock := domain.SystemClock{Location: cfg.Location}
	history := repository.NewDocumentSessionHistory(store)
	aggregator := service.NewMetricsAggregator(store, clock, cfg.Goals)
	return &env{
		cfg:        cfg,
		aggregator: aggregator,
		progress:   service.NewProgressService(history, aggregator, nil, clock),
		close:      closer,
	}, nil
}

func newRecordsCmd(userID *string, asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Recompute personal records from stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			prs, err := e.progress.PersonalRecords(ctx, *userID)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), prs)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "EXERCISE\tMAX WEIGHT\tMAX VOLUME\tMAX REPS\tSESSIONS")
			for _, pr := range prs {
				_, _ = fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%d\t%d\n",
					pr.ExerciseName, pr.MaxWeight, pr.MaxVolume, pr.MaxReps, pr.TotalSessions)
			}
			return w.Flush()
		},
	}
}

func newFrequencyCmd(userID *string, asJSON *bool) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "frequency",
		Short: "Count sessions per day over a trailing window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			buckets, err := e.progress.Frequency(ctx, *userID, days)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), buckets)
			}
			for _, b := range buckets {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", b.Date, b.Weekday, b.Count)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", service.DefaultFrequencyWindowDays, "window length in days")
	return cmd
}

func newEnsureWeekCmd(userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-week",
		Short: "Reset weekly totals if the user has crossed into a new week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			today := domain.SystemClock{Location: e.cfg.Location}.Now()
			reset, err := e.aggregator.EnsureCurrentWeek(ctx, *userID, today)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "week %s reset=%t\n", service.WeekIdentifier(today), reset)
			return nil
		},
	}
}

func newFlushCacheCmd(userID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop cached history and personal records so they are rebuilt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			client, err := server.OpenRedis(ctx, e.cfg)
			if err != nil {
				return err
			}
			if client == nil {
				return fmt.Errorf("REDIS_ADDR is not set")
			}
			defer client.Close()

			if err := repository.NewRedisCacheRepository(client).InvalidateUserProgress(ctx, *userID); err != nil {
				return err
			}
			log.WithField("user_id", *userID).Info("progress cache flushed")
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
