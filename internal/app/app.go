package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"negma/internal/backup"
	"negma/internal/config"
	"negma/internal/database"
	"negma/internal/marker"
	"negma/internal/negma"
	"negma/internal/runner"
)

// NegmaApp is the application layer between the CLI and NegmaService.
// It loads the config, constructs all dependencies, exposes operations by
// profile kind and manages the history database and log file on Close.
type NegmaApp struct {
	paths     map[string]string
	cfg       *config.Config
	defaults  *config.Config
	warnings  []config.Warning
	history   *database.SQLiteHistory
	service   *negma.NegmaService
	logger    *slog.Logger
	logCloser io.Closer
}

// overrides replaces OS collaborators; nil fields use the real implementations.
type overrides struct {
	executor  negma.Executor
	editor    negma.Editor
	privilege negma.PrivilegeChecker
}

// NewNegmaApp creates a fully wired NegmaApp. operation names the CLI command
// being run (e.g. "nix make"). The caller must call Close when done.
func NewNegmaApp(operation string, verbose bool) (*NegmaApp, error) {
	paths, err := GetDefaults()
	if err != nil {
		return nil, err
	}
	return newNegmaApp(paths, operation, verbose, overrides{})
}

func newNegmaApp(paths map[string]string, operation string, verbose bool, o overrides) (*NegmaApp, error) {
	logger, logCloser, err := newLogger(paths["log_dir"], uuid.NewString(), verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	homeDir := paths["home_dir"]
	defaults := config.Defaults(homeDir, paths["root_dir"])
	cfg, warnings, err := config.EnsureDefaults(paths["config_path"], defaults)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("loading config: %w", err)
	}
	expandPaths(cfg, homeDir)

	for _, w := range warnings {
		logger.Warn("config value ignored", "line", w.Line, "key", w.Key, "value", w.Value, "error", w.Err)
	}

	history, err := database.NewSQLiteHistory(paths["history_path"])
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	var executor negma.Executor = runner.NewOSExecutor()
	if o.executor != nil {
		executor = o.executor
	}
	var editor negma.Editor = runner.NewOSEditor(runner.ResolveEditor(cfg.Editor, os.Getenv))
	if o.editor != nil {
		editor = o.editor
	}
	var privilege negma.PrivilegeChecker = runner.RootChecker{}
	if o.privilege != nil {
		privilege = o.privilege
	}

	svc := negma.NewNegmaService(
		executor,
		editor,
		privilege,
		history,
		backup.NewFileStore(cfg.BackupDir),
		marker.NewFileMarkerStore(paths["marker_path"]),
		&slogAdapter{l: logger},
		negma.RealClock{},
		negma.UUIDGenerator{},
	)

	logger.Info("invocation started", "operation", operation, "config", paths["config_path"], "privileged", privilege.IsPrivileged())

	return &NegmaApp{
		paths:     paths,
		cfg:       cfg,
		defaults:  defaults,
		warnings:  warnings,
		history:   history,
		service:   svc,
		logger:    logger,
		logCloser: logCloser,
	}, nil
}

func expandPaths(cfg *config.Config, homeDir string) {
	cfg.HomeFile = config.ExpandHome(cfg.HomeFile, homeDir)
	cfg.BackupDir = config.ExpandHome(cfg.BackupDir, homeDir)
	cfg.SystemConfig = config.ExpandHome(cfg.SystemConfig, homeDir)
}

// Config returns the loaded configuration.
func (a *NegmaApp) Config() *config.Config { return a.cfg }

// ConfigPath returns the path of the config file.
func (a *NegmaApp) ConfigPath() string { return a.paths["config_path"] }

// ConfigWarnings returns the values ignored while loading the config.
func (a *NegmaApp) ConfigWarnings() []config.Warning { return a.warnings }

// Profile returns the profile for kind, configured from the loaded config.
func (a *NegmaApp) Profile(kind negma.ProfileKind) negma.Profile {
	if kind == negma.SystemProfileKind {
		return negma.SystemProfile{Flake: a.cfg.SystemFlake}
	}
	return negma.HomeProfile{}
}

// ConfigFile returns the Nix configuration file edited for kind.
func (a *NegmaApp) ConfigFile(kind negma.ProfileKind) string {
	if kind == negma.SystemProfileKind {
		return a.cfg.SystemConfig
	}
	return a.cfg.HomeFile
}

// MaybeAutoGC collects garbage when the configured interval has elapsed. It
// collects for the system when running as root and for the user otherwise.
func (a *NegmaApp) MaybeAutoGC(ctx context.Context) (negma.AutoGCResult, error) {
	kind := negma.HomeProfileKind
	if a.service.IsPrivileged() {
		kind = negma.SystemProfileKind
	}
	return a.service.AutoGC(ctx, a.Profile(kind), a.cfg.AutoGCDays)
}

func (a *NegmaApp) Make(ctx context.Context, kind negma.ProfileKind) error {
	return a.service.Make(ctx, a.Profile(kind))
}

func (a *NegmaApp) GC(ctx context.Context, kind negma.ProfileKind) error {
	return a.service.GC(ctx, a.Profile(kind))
}

func (a *NegmaApp) Clean(ctx context.Context, kind negma.ProfileKind) error {
	return a.service.Clean(ctx, a.Profile(kind))
}

func (a *NegmaApp) ListGenerations(ctx context.Context, kind negma.ProfileKind) (*negma.Listing, error) {
	return a.service.ListGenerations(ctx, a.Profile(kind))
}

// Rollback switches kind to the requested generation, or to the previous one when requested is nil.
func (a *NegmaApp) Rollback(ctx context.Context, kind negma.ProfileKind, requested *int) (negma.RollbackTarget, error) {
	return a.service.Rollback(ctx, a.Profile(kind), requested)
}

// Edit opens the profile's Nix configuration file and formats it afterwards
// when auto_format is on.
func (a *NegmaApp) Edit(ctx context.Context, kind negma.ProfileKind) error {
	return a.service.EditFile(ctx, a.Profile(kind), a.ConfigFile(kind), a.cfg.Formatter, a.cfg.AutoFormat)
}

// Format runs the configured formatter on the profile's Nix configuration file.
func (a *NegmaApp) Format(ctx context.Context, kind negma.ProfileKind) error {
	return a.service.FormatFile(ctx, a.Profile(kind), a.ConfigFile(kind), a.cfg.Formatter)
}

// EditConfig opens negma's config file in the editor. The file is re-read
// afterwards; only when the edited file still has auto_format on is it
// rewritten in canonical form. Warnings describe values the edit made invalid.
func (a *NegmaApp) EditConfig(ctx context.Context) ([]config.Warning, error) {
	path := a.ConfigPath()
	var warnings []config.Warning

	err := a.service.EditConfig(ctx, path, func() error {
		cfg, w, err := config.Load(path, a.defaults)
		if err != nil {
			return fmt.Errorf("reloading config: %w", err)
		}
		warnings = w
		if !cfg.AutoFormat {
			a.logger.Debug("auto format off, config left as edited", "path", path)
			return nil
		}
		return config.Format(path)
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// Backup copies the Home Manager configuration file into the backup directory.
func (a *NegmaApp) Backup() (*negma.BackupEntry, error) {
	return a.service.BackupFile(a.cfg.HomeFile)
}

func (a *NegmaApp) ListBackups() ([]negma.BackupEntry, error) {
	return a.service.ListBackups()
}

// GetHistory returns the most recent recorded operations.
func (a *NegmaApp) GetHistory(limit int) ([]*negma.Operation, error) {
	return a.service.GetHistory(limit)
}

// Close closes the history database and the log file.
func (a *NegmaApp) Close() error {
	var firstErr error

	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history database: %w", err)
	}

	a.logger.Info("invocation finished")
	if err := a.logCloser.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing log file: %w", err)
	}

	return firstErr
}

// IsPrivileged reports whether root-only actions are allowed.
func (a *NegmaApp) IsPrivileged() bool {
	return a.service.IsPrivileged()
}
