/*
Gridmdp solves a small deterministic grid world three ways (value iteration, policy
iteration, and tabular Q-learning) for several discount factors, and prints the value
functions, the policies, and a table comparing the methods. It is an offline batch run:
everything is computed first and only then printed.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gridmdp/cell_views"
	"gridmdp/experiment"
	"gridmdp/reinforcement"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	seed       uint64
	logLevel   string
	colors     bool
)

var rootCmd = &cobra.Command{
	Use:   "gridmdp",
	Short: "Solve a deterministic grid MDP with value iteration, policy iteration and Q-learning",
	Long: `Runs value iteration, policy iteration and epsilon-greedy Q-learning on a small
grid world for each configured discount factor, then prints value grids, policy grids
and a summary table. No arguments are required; without a config file the classic
3x4 grid and discount factors 0.9, 0.5 and 0.1 are used.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "./config.yaml", "Experiment config; built-in defaults are used if it does not exist")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed, overriding the config")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overriding the config")
	rootCmd.Flags().BoolVar(&colors, "color", true, "Colorize the printed grids")
}

func loadConfig(path string) (*reinforcement.TrainingConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return reinforcement.Default(), nil
	}
	return reinforcement.FromYaml(path)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger(), nil
}

func runApp(cmd *cobra.Command) (err error) {
	var cfg *reinforcement.TrainingConfig
	if cfg, err = loadConfig(configPath); err != nil {
		return
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err = cfg.Validate(); err != nil {
		return
	}

	var logger zerolog.Logger
	if logger, err = newLogger(cfg.LogLevel); err != nil {
		return
	}

	gw, err := cfg.GridWorld()
	if err != nil {
		return
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(appCtx)
	if err != nil {
		return
	}
	defer trainingCancel()

	logger.Info().
		Floats64("gammas", cfg.Gammas).
		Uint64("seed", cfg.Seed).
		Str("config", configPath).
		Msg("starting experiment")

	// A deadline still yields a report of the runs that completed.
	runs, err := experiment.NewRunner(gw, cfg, logger).Run(trainingCtx)
	experiment.Report(cell_views.NewPrinter(os.Stdout, colors), gw, cfg, runs)
	return
}

// The exit code is always zero; errors are printed.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
