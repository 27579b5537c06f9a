package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/runner"
)

// NewRootCmd — signal-bot без подкоманды запускает сервис.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signal-bot",
		Short: "Futures signal bot: CCI/EMA/OI/LSR/volume delta alerts to Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run listeners, the periodic check cycle and the health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService()
		},
	}
}

func runService() error {
	app := serviceApp()
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single check cycle and print alerts to stdout",
		Long: `Starts trade listeners, waits for the volume delta window to close,
runs exactly one evaluation cycle and prints the alerts. Nothing is sent to Telegram.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			warmup, _ := cmd.Flags().GetDuration("warmup")
			symbols, _ := cmd.Flags().GetStringSlice("symbols")
			return runCheck(cmd, warmup, symbols)
		},
	}

	cmd.Flags().Duration("warmup", 65*time.Second, "Wait before the cycle so the first delta window can close")
	cmd.Flags().StringSlice("symbols", nil, "Override PARES_MONITORADOS, e.g. --symbols BTCUSDT,ETHUSDT")

	return cmd
}

func runCheck(cmd *cobra.Command, warmup time.Duration, symbols []string) error {
	if err := os.Setenv("NOTIFIER", config.NotifierStdout); err != nil {
		return err
	}
	if len(symbols) > 0 {
		if err := os.Setenv("PARES_MONITORADOS", strings.Join(symbols, ",")); err != nil {
			return err
		}
	}

	var r *runner.Runner
	app := checkApp(&r)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return errors.Wrap(err, "start")
	}
	defer func() { _ = app.Stop(context.Background()) }()

	fmt.Fprintf(cmd.OutOrStdout(), "warming up for %s...\n", warmup)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(warmup):
	}

	alerts := r.CheckSignals(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "%d alert(s)\n", len(alerts))
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			dump, err := cfg.Dump()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), dump)
			return nil
		},
	}
}
