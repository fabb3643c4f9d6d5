package main

import (
	"context"
	"strconv"

	"negma/internal/app"
	"negma/internal/negma"

	"github.com/spf13/cobra"
)

// verb is one profile subcommand shared by "nix" and "home".
type verb struct {
	use     string
	short   string
	args    cobra.PositionalArgs
	autoGC  bool
	mutates bool
	run     func(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, args []string) error
}

var profileVerbs = []verb{
	{use: "make", short: "Rebuild and switch to the configuration", autoGC: true, mutates: true, run: runMake},
	{use: "gc", short: "Collect garbage and reset the auto GC timer", mutates: true, run: runGC},
	{use: "list-generations", short: "List generations, marking the current one", autoGC: true, run: runList},
	{use: "rollback [generation]", short: "Switch to a generation, by default the one before the current", args: cobra.MaximumNArgs(1), autoGC: true, mutates: true, run: runRollback},
	{use: "clean", short: "Delete old generations, keeping the current one", autoGC: true, mutates: true, run: runClean},
	{use: "edit", short: "Edit the Nix configuration file", autoGC: true, mutates: true, run: runEdit},
	{use: "fmt", short: "Format the Nix configuration file", autoGC: true, mutates: true, run: runFormat},
}

func newNixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nix",
		Short: "Manage the NixOS system profile (requires root)",
		RunE:  requireSubcommand,
	}
	addVerbs(cmd, negma.SystemProfileKind)
	return cmd
}

func newHomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Manage the Home Manager profile",
		RunE:  requireSubcommand,
	}
	addVerbs(cmd, negma.HomeProfileKind)
	cmd.AddCommand(newBackupCmd())
	return cmd
}

func addVerbs(parent *cobra.Command, kind negma.ProfileKind) {
	for _, v := range profileVerbs {
		args := v.args
		if args == nil {
			args = cobra.NoArgs
		}
		sub := &cobra.Command{
			Use:   v.use,
			Short: v.short,
			Args:  usageArgs(args),
		}
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			operation := kind.String() + " " + cmd.Name()
			needsRoot := v.mutates && kind == negma.SystemProfileKind
			return withApp(cmd, operation, v.autoGC, needsRoot, func(ctx context.Context, a *app.NegmaApp) error {
				return v.run(ctx, a, kind, args)
			})
		}
		parent.AddCommand(sub)
	}
}

func runMake(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	if kind == negma.SystemProfileKind {
		printer.Info("Rebuilding NixOS and switching...")
	} else {
		printer.Info("Applying home-manager switch...")
	}
	if err := a.Make(ctx, kind); err != nil {
		return err
	}
	printer.Success("Switched to the new configuration")
	return nil
}

func runGC(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	printer.Info("Collecting garbage...")
	if err := a.GC(ctx, kind); err != nil {
		return err
	}
	printer.Success("Garbage collected")
	return nil
}

func runList(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	listing, err := a.ListGenerations(ctx, kind)
	if listing != nil {
		for _, w := range listing.Warnings {
			printer.Warn("skipped listing %s", w)
		}
	}
	if err != nil {
		return err
	}

	if len(listing.Generations) == 0 {
		printer.Line("No generations found.")
		return nil
	}

	printer.Header("Generations (" + kind.String() + ")")
	for _, g := range listing.Generations {
		line := strconv.Itoa(g.ID)
		stamp := g.CreatedAt.Format("2006-01-02 15:04")
		if g.Current {
			printer.Line("* %6s  %s  %s", line, stamp, printer.Highlight("current"))
			continue
		}
		printer.Line("  %6s  %s", line, printer.Muted(stamp))
	}
	return nil
}

func runRollback(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, args []string) error {
	requested, err := parseGenerationID(args)
	if err != nil {
		return err
	}

	if requested != nil {
		printer.Info("Rolling back %s to generation %d...", kind, *requested)
	} else {
		printer.Info("Rolling back %s to the previous generation...", kind)
	}

	target, err := a.Rollback(ctx, kind, requested)
	if err != nil {
		return err
	}
	printer.Success("Now at generation %d", target.Generation.ID)
	return nil
}

// parseGenerationID returns the optional generation argument.
func parseGenerationID(args []string) (*int, error) {
	if len(args) == 0 {
		return nil, nil
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 0 {
		return nil, negma.NewUsageError("invalid generation id '%s'", args[0])
	}
	return &id, nil
}

func runClean(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	if kind == negma.SystemProfileKind {
		printer.Info("Deleting old system generations, keeping the current one...")
	} else {
		printer.Info("Expiring old home-manager generations, keeping the current one...")
	}
	return a.Clean(ctx, kind)
}

func runEdit(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	printer.InfoDetail("Editing", a.ConfigFile(kind))
	return a.Edit(ctx, kind)
}

func runFormat(ctx context.Context, a *app.NegmaApp, kind negma.ProfileKind, _ []string) error {
	printer.InfoDetail("Formatting", a.ConfigFile(kind))
	return a.Format(ctx, kind)
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the Home Manager file into the backup directory",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")
			if list {
				return withApp(cmd, "home backup --list", false, false, func(_ context.Context, a *app.NegmaApp) error {
					return listBackups(a)
				})
			}
			return withApp(cmd, "home backup", true, false, func(_ context.Context, a *app.NegmaApp) error {
				entry, err := a.Backup()
				if err != nil {
					return err
				}
				printer.InfoDetail("Backup created:", entry.Path)
				return nil
			})
		},
	}
	cmd.Flags().BoolP("list", "l", false, "List recorded backups instead of creating one")
	return cmd
}

func listBackups(a *app.NegmaApp) error {
	entries, err := a.ListBackups()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printer.Line("No backups recorded.")
		return nil
	}
	for _, e := range entries {
		printer.Line("%s  %8d  %s", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Size, printer.Muted(e.Path))
	}
	return nil
}
