package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"negma/internal/app"
	"negma/internal/negma"
	"negma/internal/ui"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	printer = ui.NewStdPrinter()
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printer.Error(err)
		if hint := hintFor(err); hint != "" {
			printer.Hint("%s", hint)
		}
		os.Exit(negma.ExitCode(err))
	}
}

// hintFor suggests a next step for errors the operator can act on.
func hintFor(err error) string {
	var privErr *negma.InsufficientPrivilegeError
	var usage *negma.UsageError
	switch {
	case errors.As(err, &privErr):
		return fmt.Sprintf("run it as root: sudo negma %s", privErr.Action)
	case errors.Is(err, negma.ErrEmptyListing):
		return "the generation listing format was not recognized; run with --verbose for the skipped lines"
	case errors.Is(err, negma.ErrNoFormatter):
		return "set formatter in the config with 'negma edit-cfg'"
	case errors.As(err, &usage):
		return "run 'negma --help' for usage"
	}
	return ""
}

// usageArgs wraps a cobra argument validator so its errors map to the usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &negma.UsageError{Err: err}
		}
		return nil
	}
}

// requireSubcommand is the RunE of group commands such as "nix" and "home".
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if err := cmd.Help(); err != nil {
			return err
		}
		return negma.NewUsageError("missing subcommand for '%s'", cmd.CommandPath())
	}
	return negma.NewUsageError("unknown %s subcommand '%s'", cmd.Name(), args[0])
}

// withApp creates a NegmaApp for operation, runs the auto-GC check when
// autoGC is set and then fn. needsRoot marks actions that will be refused
// without privilege; they skip auto-GC so a refused action has no side effects.
func withApp(cmd *cobra.Command, operation string, autoGC, needsRoot bool, fn func(context.Context, *app.NegmaApp) error) error {
	a, err := app.NewNegmaApp(operation, verbose)
	if err != nil {
		return fmt.Errorf("initializing negma: %w", err)
	}
	defer a.Close()

	if warnings := a.ConfigWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			printer.Warn("%s: %s", a.ConfigPath(), w)
		}
		printer.Hint("fix the values with 'negma edit-cfg'; defaults are used meanwhile")
	}

	ctx := cmd.Context()
	if autoGC && (!needsRoot || a.IsPrivileged()) {
		runAutoGC(ctx, a)
	}
	return fn(ctx, a)
}

// runAutoGC reports the outcome of the automatic GC check. A failed automatic
// collection does not stop the requested action.
func runAutoGC(ctx context.Context, a *app.NegmaApp) {
	res, err := a.MaybeAutoGC(ctx)
	switch {
	case err != nil:
		printer.Warn("auto GC failed: %v", err)
	case res.Warning != nil:
		printer.Warn("auto GC skipped: %v", res.Warning)
		printer.Hint("remove the marker file to reset the auto GC timer")
	case res.Ran:
		printer.Success("Auto GC finished; next run in %d days", a.Config().AutoGCDays)
	}
}

var rootCmd = &cobra.Command{
	Use:   "negma",
	Short: "A clean, practical NixOS & Home Manager CLI helper",
	Long: `negma wraps nixos-rebuild, nix-env, nix-collect-garbage and home-manager
behind one interface and collects garbage automatically every auto_gc_days days.

NixOS subcommands other than list-generations require root.`,
	Example: `  negma home make
  negma home rollback
  sudo negma nix rollback 41
  negma edit-cfg`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return negma.NewUsageError("unknown command '%s'", args[0])
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// edit-cfg command
var editCfgCmd = &cobra.Command{
	Use:   "edit-cfg",
	Short: "Edit negma's own configuration",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "edit-cfg", true, false, func(ctx context.Context, a *app.NegmaApp) error {
			printer.InfoDetail("Editing", a.ConfigPath())
			warnings, err := a.EditConfig(ctx)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				printer.Warn("%s: %s", a.ConfigPath(), w)
			}
			return nil
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded negma operations",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "history", false, false, func(_ context.Context, a *app.NegmaApp) error {
			ops, err := a.GetHistory(limit)
			if err != nil {
				return err
			}

			if len(ops) == 0 {
				printer.Line("No operations recorded.")
				return nil
			}

			for _, op := range ops {
				duration := ""
				if op.FinishedAt.Valid {
					d := op.FinishedAt.Time.Sub(op.StartedAt)
					duration = d.Truncate(time.Millisecond).String()
				}
				printer.Line("#%d  %-20s  %s  %-8s  exit=%d  %s",
					op.ID,
					op.Operation,
					op.StartedAt.Local().Format("2006-01-02 15:04:05"),
					op.Status,
					op.ExitCode,
					printer.Muted(duration),
				)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also write debug logs to stderr")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &negma.UsageError{Err: err}
	})

	rootCmd.AddCommand(newNixCmd())
	rootCmd.AddCommand(newHomeCmd())
	rootCmd.AddCommand(editCfgCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of operations to show")
}
