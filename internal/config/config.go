package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the config file name inside the config root.
const FileName = "config.cfg"

// MaxAutoGCDays is the largest auto_gc_days whose span in seconds fits an int64.
const MaxAutoGCDays = math.MaxInt64 / (24 * 60 * 60)

// Recognized keys.
const (
	KeyAutoGCDays   = "auto_gc_days"
	KeyAutoFormat   = "auto_format"
	KeyHomeFile     = "home_file"
	KeyBackupDir    = "backup_dir"
	KeyEditor       = "editor"
	KeyFormatter    = "formatter"
	KeySystemConfig = "system_config"
	KeySystemFlake  = "system_flake"
)

// Config represents the typed settings of negma.
type Config struct {
	AutoGCDays   int    // days between automatic GC runs; 0 disables
	AutoFormat   bool   // format files after editing them
	HomeFile     string // Home Manager configuration file
	BackupDir    string // where `home backup` stores copies
	Editor       string // editor command; empty falls back to $VISUAL, $EDITOR
	Formatter    string // Nix formatter command; empty means none
	SystemConfig string // NixOS configuration file
	SystemFlake  string // flake URI passed to nixos-rebuild; empty means none
}

// Warning reports a known key whose value could not be used. The field keeps
// its default (or an earlier valid value) and loading continues.
type Warning struct {
	Line  int // 1-based
	Key   string
	Value string
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: invalid %s value %q: %v", w.Line, w.Key, w.Value, w.Err)
}

// Defaults returns the default Config for a user whose home directory is
// homeDir and whose negma config root is rootDir.
func Defaults(homeDir, rootDir string) *Config {
	return &Config{
		AutoGCDays:   14,
		AutoFormat:   true,
		HomeFile:     filepath.Join(homeDir, ".config", "home-manager", "home.nix"),
		BackupDir:    filepath.Join(rootDir, "backups"),
		Editor:       "nano",
		SystemConfig: "/etc/nixos/configuration.nix",
	}
}

type field struct {
	key     string
	comment []string
	get     func(*Config) string
	set     func(*Config, string) error
}

var header = []string{
	"# negma configuration",
	"#",
	"# Each setting is a `key = value` line. Lines starting with # are comments.",
	"# Unknown keys are left untouched.",
}

var (
	errNotInteger = errors.New("must be a non-negative integer")
	errTooLarge   = fmt.Errorf("must be at most %d", int64(MaxAutoGCDays))
	errNotBool    = errors.New("must be true or false")
	errEmptyPath  = errors.New("must not be empty")
)

// fields lists the recognized keys in document order.
var fields = []field{
	{
		key: KeyAutoGCDays,
		comment: []string{
			"# Days between automatic garbage collections. 0 disables auto GC.",
		},
		get: func(c *Config) string { return strconv.Itoa(c.AutoGCDays) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return errNotInteger
			}
			if int64(n) > MaxAutoGCDays {
				return errTooLarge
			}
			c.AutoGCDays = n
			return nil
		},
	},
	{
		key: KeyAutoFormat,
		comment: []string{
			"# Format files after editing them (true / false).",
			"# For edit-cfg this rewrites config.cfg in canonical form.",
		},
		get: func(c *Config) string { return strconv.FormatBool(c.AutoFormat) },
		set: func(c *Config, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			c.AutoFormat = b
			return nil
		},
	},
	{
		key:     KeyHomeFile,
		comment: []string{"# Home Manager configuration file edited by `home edit`."},
		get:     func(c *Config) string { return c.HomeFile },
		set:     pathSetter(func(c *Config) *string { return &c.HomeFile }),
	},
	{
		key:     KeyBackupDir,
		comment: []string{"# Directory where `home backup` stores copies of the home file."},
		get:     func(c *Config) string { return c.BackupDir },
		set:     pathSetter(func(c *Config) *string { return &c.BackupDir }),
	},
	{
		key:     KeyEditor,
		comment: []string{"# Editor command. Leave empty to use $VISUAL or $EDITOR."},
		get:     func(c *Config) string { return c.Editor },
		set:     func(c *Config, v string) error { c.Editor = v; return nil },
	},
	{
		key:     KeyFormatter,
		comment: []string{"# Nix formatter run after edits, e.g. alejandra or nixfmt. Empty disables."},
		get:     func(c *Config) string { return c.Formatter },
		set:     func(c *Config, v string) error { c.Formatter = v; return nil },
	},
	{
		key:     KeySystemConfig,
		comment: []string{"# NixOS configuration file edited by `nix edit`."},
		get:     func(c *Config) string { return c.SystemConfig },
		set:     pathSetter(func(c *Config) *string { return &c.SystemConfig }),
	},
	{
		key:     KeySystemFlake,
		comment: []string{"# Flake URI passed to nixos-rebuild --flake. Empty uses channels."},
		get:     func(c *Config) string { return c.SystemFlake },
		set:     func(c *Config, v string) error { c.SystemFlake = v; return nil },
	},
}

func fieldFor(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

func pathSetter(target func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		if v == "" {
			return errEmptyPath
		}
		*target(c) = v
		return nil
	}
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, errNotBool
}

// canonicalValue returns the normalized value of a known key, or false if the value is invalid.
func canonicalValue(f field, value string) (string, bool) {
	var scratch Config
	if err := f.set(&scratch, value); err != nil {
		return "", false
	}
	return f.get(&scratch), true
}

// Decode builds a Config from doc on top of defaults. The last valid line for
// a key wins; invalid values produce warnings and are otherwise ignored.
func Decode(doc *Document, defaults *Config) (*Config, []Warning) {
	cfg := *defaults
	var warnings []Warning
	for i, l := range doc.Lines {
		f, ok := fieldFor(l.Key)
		if !ok {
			continue
		}
		if err := f.set(&cfg, l.Value); err != nil {
			warnings = append(warnings, Warning{Line: i + 1, Key: l.Key, Value: l.Value, Err: err})
		}
	}
	return &cfg, warnings
}

// Apply writes cfg into doc. Lines already holding the same value are left
// untouched; the last valid line of a key is rewritten when its value
// changed. A key with only invalid lines keeps them while cfg holds the
// default, otherwise its last line is rewritten. Missing keys are appended.
func Apply(doc *Document, cfg, defaults *Config) {
	for _, f := range fields {
		want := f.get(cfg)

		idx, invalid := -1, -1
		for i, l := range doc.Lines {
			if l.Key != f.key {
				continue
			}
			if _, ok := canonicalValue(f, l.Value); ok {
				idx = i
			} else {
				invalid = i
			}
		}

		if idx < 0 {
			switch {
			case invalid < 0:
				doc.appendBlock(append(append([]string{}, f.comment...), kvRaw(f.key, want))...)
			case want != f.get(defaults):
				doc.Lines[invalid] = kvLine(f.key, want)
			}
			continue
		}
		if have, _ := canonicalValue(f, doc.Lines[idx].Value); have != want {
			doc.Lines[idx] = kvLine(f.key, want)
		}
	}
}

// Canonicalize normalizes doc in place: valid known-key lines become
// `key = value`, trailing whitespace is trimmed, runs of blank lines collapse
// to one and leading/trailing blank lines are dropped. Comments and unknown
// lines keep their text and position; typed values never change.
func Canonicalize(doc *Document) {
	out := make([]Line, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		if l.IsBlank() {
			if len(out) == 0 || out[len(out)-1].IsBlank() {
				continue
			}
			out = append(out, Line{})
			continue
		}
		if f, ok := fieldFor(l.Key); ok {
			if v, valid := canonicalValue(f, l.Value); valid {
				out = append(out, kvLine(f.key, v))
				continue
			}
		}
		if l.IsComment() {
			out = append(out, Line{Raw: strings.TrimRight(l.Raw, " \t")})
			continue
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[len(out)-1].IsBlank() {
		out = out[:len(out)-1]
	}
	doc.Lines = out
}

// defaultDocument returns the self-documenting config written on first run.
func defaultDocument(defaults *Config) *Document {
	doc := &Document{}
	doc.appendBlock(header...)
	Apply(doc, defaults, defaults)
	return doc
}

// Load reads the config file at path. Missing keys take their defaults.
func Load(path string, defaults *Config) (*Config, []Warning, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, warnings := Decode(doc, defaults)
	return cfg, warnings, nil
}

// EnsureDefaults loads the config at path, creating it from defaults if it
// does not exist and appending any missing keys with their comments. The file
// is only written when its content changes, so a second call is a no-op.
func EnsureDefaults(path string, defaults *Config) (*Config, []Warning, error) {
	original, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var doc *Document
	if err != nil {
		doc = defaultDocument(defaults)
	} else {
		doc = parseBytes(original)
		for _, f := range fields {
			if !doc.HasKey(f.key) {
				doc.appendBlock(append(append([]string{}, f.comment...), kvRaw(f.key, f.get(defaults)))...)
			}
		}
	}

	if rendered := doc.Bytes(); err != nil || !bytes.Equal(rendered, original) {
		if err := writeToFile(path, rendered); err != nil {
			return nil, nil, fmt.Errorf("writing defaults: %w", err)
		}
	}

	cfg, warnings := Decode(doc, defaults)
	return cfg, warnings, nil
}

// Save writes cfg to path, preserving comments, unknown keys and the layout
// of unchanged lines. defaults are the values Load falls back to.
func Save(path string, cfg, defaults *Config) error {
	doc, err := readDocument(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		doc = &Document{}
		doc.appendBlock(header...)
	}

	before := doc.Bytes()
	Apply(doc, cfg, defaults)
	after := doc.Bytes()
	if bytes.Equal(before, after) {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
	}

	if err := writeToFile(path, after); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Format rewrites the config file at path in canonical form. The file is
// left untouched when it is already canonical.
func Format(path string) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	doc := parseBytes(original)
	Canonicalize(doc)
	rendered := doc.Bytes()
	if bytes.Equal(rendered, original) {
		return nil
	}

	if err := writeToFile(path, rendered); err != nil {
		return fmt.Errorf("formatting config: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading ~ in path with homeDir.
func ExpandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return parseBytes(data), nil
}

// writeToFile writes data to path, creating the directory if needed.
func writeToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
