// The odb command runs an in-memory observing database and demonstrates its
// event stream: it seeds random entities, links them, and prints every change
// notification as it happens.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-odb/odb"
	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
	"github.com/go-odb/odb/olog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	vip := odb.DefaultViper()
	vip.SetEnvPrefix("ODB")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	root := &cobra.Command{ //nolint:exhaustruct
		Use:           "odb",
		Short:         "In-memory observing database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = vip.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(seedCmd(vip))
	root.AddCommand(versionCmd())

	return root
}

func seedCmd(vip *viper.Viper) *cobra.Command {
	var programs, targets int

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "seed",
		Short: "Seed random entities and stream their change events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := odb.LoadConfig(vip)
			if err != nil {
				return err
			}

			logger := newLogger(conf)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, logger, conf, programs, targets)
		},
	}

	cmd.Flags().IntVar(&programs, "programs", 3, "number of programs to seed")
	cmd.Flags().IntVar(&targets, "targets", 5, "number of targets to seed")

	return cmd
}

func newLogger(conf odb.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	if conf.Environment == odb.LocalEnv && conf.Log.Format != "json" {
		return olog.NewDevelopment(os.Stderr)
	}

	return olog.NewWithHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{ //nolint:exhaustruct
		Level: level,
	}))
}

func run(ctx context.Context, logger *slog.Logger, conf odb.Config, programs, targets int) error {
	store := odb.New(
		odb.WithLogger(logger),
		odb.WithBusBuffer(conf.Bus.Buffer),
	)

	sub, cancel := store.Bus.Subscribe()
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for {
			select {
			case env, ok := <-sub:
				if !ok {
					return nil
				}

				logger.InfoContext(gctx, "change",
					slog.Uint64("sequence", env.Sequence()),
					slog.String("entity", env.Entity()),
					slog.String("type", env.Type().String()),
				)
			case <-gctx.Done():
				return nil
			}
		}
	})

	group.Go(func() error {
		defer cancel() // closing the queue ends the watcher

		if err := seed(gctx, store, programs, targets); err != nil {
			return err
		}

		<-gctx.Done()

		return store.Bus.Shutdown(context.WithoutCancel(gctx))
	})

	err := group.Wait()
	if err != nil && ctx.Err() != nil {
		return nil // a signal ended the run, not a failure
	}

	return err
}

func seed(ctx context.Context, store *odb.ODB, programs, targets int) error {
	tids := make([]oid.Target, 0, targets)

	for i := 0; i < targets; i++ {
		target, err := store.CreateTarget(ctx, gofakeit.Noun(), model.Sidereal{ //nolint:exhaustruct
			RA:  gofakeit.Float64Range(0, 360),
			Dec: gofakeit.Float64Range(-90, 90),
		})
		if err != nil {
			return err
		}

		tids = append(tids, target.ID)
	}

	asterism, err := store.CreateAsterism(ctx, gofakeit.Noun())
	if err != nil {
		return err
	}

	if err := store.ShareTargetsWithAsterism(ctx, asterism.ID, tids...); err != nil {
		return err
	}

	for i := 0; i < programs; i++ {
		program, err := store.CreateProgram(ctx, gofakeit.Sentence(3))
		if err != nil {
			return err
		}

		if _, err := store.CreateObservation(ctx, program.ID, gofakeit.Sentence(2)); err != nil {
			return err
		}

		if err := store.ShareTargetsWithProgram(ctx, program.ID, tids[0]); err != nil {
			return err
		}
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct
		Use:                   "version",
		Short:                 "Print odb version",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, _ []string) {
			version := "@latest"

			if info, ok := debug.ReadBuildInfo(); ok {
				for _, setting := range info.Settings {
					if setting.Key == "vcs.revision" && setting.Value != "" {
						version = setting.Value
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "odb version: %s\n", version)
		},
	}
}
