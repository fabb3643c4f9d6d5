package negma

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// NegmaService is the orchestration layer between the CLI and the external
// Nix toolchain. Each method performs one operator action: privilege gate,
// generation logic, external execution and history recording.
type NegmaService struct {
	executor  Executor
	editor    Editor
	privilege PrivilegeChecker
	history   History
	backups   BackupStore
	scheduler *AutoGCScheduler
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewNegmaService creates a new NegmaService with the provided dependencies.
func NewNegmaService(executor Executor, editor Editor, privilege PrivilegeChecker, history History, backups BackupStore, marker MarkerStore, logger Logger, clock Clock, idgen IDGenerator) *NegmaService {
	return &NegmaService{
		executor:  executor,
		editor:    editor,
		privilege: privilege,
		history:   history,
		backups:   backups,
		scheduler: NewAutoGCScheduler(marker, logger),
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// AutoGCResult describes what the automatic GC check did.
type AutoGCResult struct {
	Ran bool
	// Warning is set when the check could not decide and GC was skipped.
	Warning error
}

// IsPrivileged reports whether root-only actions are allowed.
func (s *NegmaService) IsPrivileged() bool {
	return s.privilege.IsPrivileged()
}

// Make rebuilds and switches the profile.
func (s *NegmaService) Make(ctx context.Context, p Profile) error {
	action := actionName(p, "make")
	if err := s.requirePrivilege(p, action); err != nil {
		return err
	}
	return s.track(action, p.Kind().String(), "", func() error {
		_, err := s.run(ctx, action, p.BuildCommand(), RunOptions{})
		return err
	})
}

// GC collects garbage and resets the auto-GC timer.
func (s *NegmaService) GC(ctx context.Context, p Profile) error {
	action := actionName(p, "gc")
	if err := s.requirePrivilege(p, action); err != nil {
		return err
	}
	return s.track(action, p.Kind().String(), "", func() error {
		return s.collect(ctx, action, p)
	})
}

// AutoGC runs garbage collection if the configured threshold has elapsed since
// the last recorded run. A threshold of 0 disables it.
func (s *NegmaService) AutoGC(ctx context.Context, p Profile, thresholdDays int) (AutoGCResult, error) {
	due, warn := s.scheduler.ShouldRunAutoGC(thresholdDays, s.clock.Now())
	if warn != nil {
		return AutoGCResult{Warning: warn}, nil
	}
	if !due {
		return AutoGCResult{}, nil
	}

	action := "auto gc"
	if err := s.requirePrivilege(p, action); err != nil {
		return AutoGCResult{}, err
	}

	s.logger.Info("auto gc due", "threshold_days", thresholdDays, "profile", p.Kind().String())
	err := s.track(action, p.Kind().String(), "threshold_days="+strconv.Itoa(thresholdDays), func() error {
		return s.collect(ctx, action, p)
	})
	if err != nil {
		return AutoGCResult{}, err
	}
	return AutoGCResult{Ran: true}, nil
}

// collect runs the profile's GC command and records the run on success.
func (s *NegmaService) collect(ctx context.Context, action string, p Profile) error {
	if _, err := s.run(ctx, action, p.GCCommand(), RunOptions{}); err != nil {
		return err
	}
	return s.scheduler.RecordRun(s.clock.Now())
}

// ListGenerations fetches and parses the profile's generation listing.
// Parse warnings are logged and returned on the listing.
func (s *NegmaService) ListGenerations(ctx context.Context, p Profile) (*Listing, error) {
	action := actionName(p, "list-generations")
	res, err := s.run(ctx, action, p.ListCommand(), RunOptions{Capture: true})
	if err != nil {
		return nil, err
	}

	listing, err := ParseGenerations(res.Stdout, p.Kind())
	if listing != nil {
		for _, w := range listing.Warnings {
			s.logger.Warn("listing line skipped", "action", action, "line", w.Line, "text", w.Text, "error", w.Err)
		}
	}
	if err != nil {
		return listing, fmt.Errorf("%s: %w", action, err)
	}
	return listing, nil
}

// Rollback switches the profile to the requested generation, or to the one
// preceding the current generation when requested is nil. The target is
// validated against a fresh listing before anything is changed.
func (s *NegmaService) Rollback(ctx context.Context, p Profile, requested *int) (RollbackTarget, error) {
	action := actionName(p, "rollback")
	if err := s.requirePrivilege(p, action); err != nil {
		return RollbackTarget{}, err
	}

	listing, err := s.ListGenerations(ctx, p)
	if err != nil {
		return RollbackTarget{}, err
	}

	target, err := ResolveRollback(listing.Generations, requested)
	if err != nil {
		return RollbackTarget{}, fmt.Errorf("%s: %w", action, err)
	}

	cmd, err := p.RollbackCommand(target.Generation)
	if err != nil {
		return RollbackTarget{}, fmt.Errorf("%s: %w", action, err)
	}

	err = s.track(action, p.Kind().String(), strconv.Itoa(target.Generation.ID), func() error {
		_, err := s.run(ctx, action, cmd, RunOptions{})
		return err
	})
	if err != nil {
		return RollbackTarget{}, err
	}

	s.logger.Info("rolled back", "profile", p.Kind().String(), "generation", target.Generation.ID, "explicit", target.Explicit)
	return target, nil
}

// Clean deletes old generations of the profile.
func (s *NegmaService) Clean(ctx context.Context, p Profile) error {
	action := actionName(p, "clean")
	if err := s.requirePrivilege(p, action); err != nil {
		return err
	}
	return s.track(action, p.Kind().String(), "", func() error {
		_, err := s.run(ctx, action, p.CleanCommand(), RunOptions{})
		return err
	})
}

// EditFile opens path in the editor and, when autoFormat is set and a
// formatter is configured, formats it afterwards.
func (s *NegmaService) EditFile(ctx context.Context, p Profile, path, formatter string, autoFormat bool) error {
	action := actionName(p, "edit")
	if err := s.requirePrivilege(p, action); err != nil {
		return err
	}

	if err := s.editor.Edit(ctx, path); err != nil {
		return fmt.Errorf("editing %s: %w", path, err)
	}
	s.logger.Info("file edited", "path", path)

	if !autoFormat || formatter == "" {
		return nil
	}
	return s.FormatFile(ctx, p, path, formatter)
}

// EditConfig opens negma's own config file in the editor. After a clean
// editor exit, afterEdit runs; it decides whether to normalize the file.
func (s *NegmaService) EditConfig(ctx context.Context, path string, afterEdit func() error) error {
	return s.track("edit-cfg", "", path, func() error {
		if err := s.editor.Edit(ctx, path); err != nil {
			return fmt.Errorf("editing %s: %w", path, err)
		}
		s.logger.Info("config edited", "path", path)
		if afterEdit == nil {
			return nil
		}
		return afterEdit()
	})
}

// ErrNoFormatter is returned when formatting is requested without a configured formatter.
var ErrNoFormatter = errors.New("no formatter configured")

// FormatFile runs the configured formatter on path.
func (s *NegmaService) FormatFile(ctx context.Context, p Profile, path, formatter string) error {
	action := actionName(p, "fmt")
	if err := s.requirePrivilege(p, action); err != nil {
		return err
	}
	if formatter == "" {
		return &UsageError{Err: ErrNoFormatter}
	}
	_, err := s.run(ctx, action, Command{Name: formatter, Args: []string{path}}, RunOptions{})
	return err
}

func (s *NegmaService) requirePrivilege(p Profile, action string) error {
	if p.RequiresPrivilege() && !s.privilege.IsPrivileged() {
		s.logger.Warn("privilege check failed", "action", action)
		return &InsufficientPrivilegeError{Action: action}
	}
	return nil
}

// run executes cmd and converts a nonzero exit into an *ExternalCommandError.
func (s *NegmaService) run(ctx context.Context, action string, cmd Command, opts RunOptions) (Result, error) {
	s.logger.Info("running command", "action", action, "command", cmd.String())

	res, err := s.executor.Run(ctx, cmd, opts)
	if err != nil {
		s.logger.Error("command did not start", "action", action, "command", cmd.Name, "error", err)
		return res, fmt.Errorf("%s: starting %s: %w", action, cmd.Name, err)
	}
	if res.ExitCode != 0 {
		s.logger.Error("command failed", "action", action, "exit_code", res.ExitCode)
		return res, &ExternalCommandError{Action: action, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

func actionName(p Profile, verb string) string {
	return p.Kind().String() + " " + verb
}
