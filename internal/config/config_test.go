package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDefaults() *Config {
	return Defaults("/home/alice", "/home/alice/.config/negma")
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}

func TestDefaults(t *testing.T) {
	cfg := testDefaults()

	if cfg.AutoGCDays != 14 {
		t.Errorf("AutoGCDays = %d, want 14", cfg.AutoGCDays)
	}
	if !cfg.AutoFormat {
		t.Error("AutoFormat = false, want true")
	}
	if cfg.HomeFile != "/home/alice/.config/home-manager/home.nix" {
		t.Errorf("HomeFile = %q", cfg.HomeFile)
	}
	if cfg.BackupDir != "/home/alice/.config/negma/backups" {
		t.Errorf("BackupDir = %q", cfg.BackupDir)
	}
	if cfg.SystemConfig != "/etc/nixos/configuration.nix" {
		t.Errorf("SystemConfig = %q", cfg.SystemConfig)
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads known keys and ignores unknown ones", func(t *testing.T) {
		path := writeFixture(t, strings.Join([]string{
			"# my settings",
			"auto_gc_days = 7",
			"AUTO_FORMAT=false",
			"home_file = /tmp/home.nix",
			"colour = purple",
			"this line is nonsense",
			"",
		}, "\n"))

		cfg, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none", warnings)
		}
		if cfg.AutoGCDays != 7 {
			t.Errorf("AutoGCDays = %d, want 7", cfg.AutoGCDays)
		}
		if cfg.AutoFormat {
			t.Error("AutoFormat = true, want false")
		}
		if cfg.HomeFile != "/tmp/home.nix" {
			t.Errorf("HomeFile = %q, want /tmp/home.nix", cfg.HomeFile)
		}
		if cfg.BackupDir != testDefaults().BackupDir {
			t.Errorf("BackupDir = %q, want default", cfg.BackupDir)
		}
	})

	t.Run("invalid value falls back to default with a warning", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days = soon\nauto_format = maybe\neditor = vim\n")

		cfg, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 2 {
			t.Fatalf("len(warnings) = %d, want 2", len(warnings))
		}
		if warnings[0].Key != KeyAutoGCDays || warnings[0].Line != 1 {
			t.Errorf("warnings[0] = %+v, want auto_gc_days at line 1", warnings[0])
		}
		if cfg.AutoGCDays != 14 {
			t.Errorf("AutoGCDays = %d, want default 14", cfg.AutoGCDays)
		}
		if !cfg.AutoFormat {
			t.Error("AutoFormat = false, want default true")
		}
		if cfg.Editor != "vim" {
			t.Errorf("Editor = %q, want vim (rest of file must still load)", cfg.Editor)
		}
	})

	t.Run("threshold beyond the int64 range is rejected", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days = 9223372036854775807\n")
		cfg, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1", len(warnings))
		}
		if cfg.AutoGCDays != 14 {
			t.Errorf("AutoGCDays = %d, want 14", cfg.AutoGCDays)
		}
	})

	t.Run("negative threshold is rejected", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days = -3\n")
		cfg, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Fatalf("len(warnings) = %d, want 1", len(warnings))
		}
		if cfg.AutoGCDays != 14 {
			t.Errorf("AutoGCDays = %d, want 14", cfg.AutoGCDays)
		}
	})

	t.Run("last valid duplicate wins", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days = 3\nauto_gc_days = 9\nauto_gc_days = x\n")
		cfg, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.AutoGCDays != 9 {
			t.Errorf("AutoGCDays = %d, want 9", cfg.AutoGCDays)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, _, err := Load("/nonexistent/path/config.cfg", testDefaults())
		if err == nil {
			t.Fatal("Load() expected error for missing file")
		}
	})
}

func TestEnsureDefaults(t *testing.T) {
	t.Run("creates a documented file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "negma", FileName)

		cfg, warnings, err := EnsureDefaults(path, testDefaults())
		if err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none", warnings)
		}
		if *cfg != *testDefaults() {
			t.Errorf("cfg = %+v, want defaults", *cfg)
		}

		content := string(readFile(t, path))
		for _, want := range []string{"# negma configuration", "auto_gc_days = 14", "auto_format = true", "# Days between automatic"} {
			if !strings.Contains(content, want) {
				t.Errorf("config file missing %q:\n%s", want, content)
			}
		}
	})

	t.Run("second call leaves bytes identical", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)

		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("first EnsureDefaults() error = %v", err)
		}
		first := readFile(t, path)

		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("second EnsureDefaults() error = %v", err)
		}
		second := readFile(t, path)

		if !bytes.Equal(first, second) {
			t.Errorf("EnsureDefaults() not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
		}
	})

	t.Run("appends missing keys and keeps existing lines", func(t *testing.T) {
		original := "# hand written\nauto_gc_days   =   3\nmystery = 1\n"
		path := writeFixture(t, original)

		cfg, _, err := EnsureDefaults(path, testDefaults())
		if err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		if cfg.AutoGCDays != 3 {
			t.Errorf("AutoGCDays = %d, want 3", cfg.AutoGCDays)
		}

		content := string(readFile(t, path))
		if !strings.HasPrefix(content, original) {
			t.Errorf("existing lines were modified:\n%s", content)
		}
		if !strings.Contains(content, "backup_dir = /home/alice/.config/negma/backups") {
			t.Errorf("missing backup_dir default:\n%s", content)
		}

		first := readFile(t, path)
		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("second EnsureDefaults() error = %v", err)
		}
		if !bytes.Equal(first, readFile(t, path)) {
			t.Error("second EnsureDefaults() changed the file")
		}
	})

	t.Run("invalid line is not duplicated", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days = often\n")

		_, warnings, err := EnsureDefaults(path, testDefaults())
		if err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Errorf("len(warnings) = %d, want 1", len(warnings))
		}
		if n := strings.Count(string(readFile(t, path)), "auto_gc_days"); n != 1 {
			t.Errorf("auto_gc_days appears %d times, want 1", n)
		}
	})
}

func TestSave(t *testing.T) {
	t.Run("is a no-op on a canonical file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		before := readFile(t, path)

		cfg, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := Save(path, cfg, testDefaults()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if !bytes.Equal(before, readFile(t, path)) {
			t.Errorf("Save(Load(f)) changed the file:\n%s", readFile(t, path))
		}
	})

	t.Run("keeps an invalid line when the value is the default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		content := strings.Replace(string(readFile(t, path)), "auto_gc_days = 14", "auto_gc_days = weekly", 1)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if err := Format(path); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		before := readFile(t, path)

		cfg, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 1 {
			t.Errorf("warnings = %v, want 1", warnings)
		}
		if err := Save(path, cfg, testDefaults()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if !bytes.Equal(before, readFile(t, path)) {
			t.Errorf("Save(Load(f)) changed the file:\n%s", readFile(t, path))
		}
	})

	t.Run("rewrites an invalid line in place", func(t *testing.T) {
		path := writeFixture(t, "# keep me\nauto_gc_days = weekly\n")

		cfg, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		cfg.AutoGCDays = 7
		if err := Save(path, cfg, testDefaults()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		content := string(readFile(t, path))
		if !strings.HasPrefix(content, "# keep me\nauto_gc_days = 7\n") {
			t.Errorf("invalid line not rewritten in place:\n%s", content)
		}
		if strings.Count(content, "auto_gc_days") != 1 {
			t.Errorf("auto_gc_days appears more than once:\n%s", content)
		}
	})

	t.Run("rewrites only changed values", func(t *testing.T) {
		path := writeFixture(t, "# keep me\nauto_gc_days=3\neditor  =  vim\nunknown = yes\n")

		cfg, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		cfg.AutoGCDays = 30
		if err := Save(path, cfg, testDefaults()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		content := string(readFile(t, path))
		for _, want := range []string{"# keep me\n", "auto_gc_days = 30\n", "editor  =  vim\n", "unknown = yes\n"} {
			if !strings.Contains(content, want) {
				t.Errorf("saved file missing %q:\n%s", want, content)
			}
		}

		got, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.AutoGCDays != 30 {
			t.Errorf("AutoGCDays = %d, want 30", got.AutoGCDays)
		}
	})

	t.Run("creates the file when missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", FileName)
		cfg := testDefaults()
		cfg.Formatter = "alejandra"

		if err := Save(path, cfg, testDefaults()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, warnings, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v", warnings)
		}
		if *got != *cfg {
			t.Errorf("Load() = %+v, want %+v", *got, *cfg)
		}
	})
}

func TestFormat(t *testing.T) {
	t.Run("normalizes spacing and keeps comments and unknown lines", func(t *testing.T) {
		path := writeFixture(t, "\n\n# header   \nAUTO_GC_DAYS=07\n\n\n\nauto_format =  YES\nwhatever stays   \nauto_gc_days = bad\n\n")

		if err := Format(path); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		want := "# header\nauto_gc_days = 7\n\nauto_format = true\nwhatever stays   \nauto_gc_days = bad\n"
		if got := string(readFile(t, path)); got != want {
			t.Errorf("Format() result =\n%q\nwant:\n%q", got, want)
		}
	})

	t.Run("does not change typed values", func(t *testing.T) {
		path := writeFixture(t, "auto_gc_days=5\nauto_format=off\nhome_file=/x/home.nix\n")
		before, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if err := Format(path); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		after, _, err := Load(path, testDefaults())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if *before != *after {
			t.Errorf("Format() changed values: before %+v, after %+v", *before, *after)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		path := writeFixture(t, "editor=vi   \n\n\n# c\nformatter =\n")
		if err := Format(path); err != nil {
			t.Fatalf("first Format() error = %v", err)
		}
		first := readFile(t, path)
		if err := Format(path); err != nil {
			t.Fatalf("second Format() error = %v", err)
		}
		if !bytes.Equal(first, readFile(t, path)) {
			t.Errorf("Format() not idempotent:\n%s", readFile(t, path))
		}
	})

	t.Run("default file is already canonical", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		if _, _, err := EnsureDefaults(path, testDefaults()); err != nil {
			t.Fatalf("EnsureDefaults() error = %v", err)
		}
		before := readFile(t, path)
		if err := Format(path); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !bytes.Equal(before, readFile(t, path)) {
			t.Errorf("Format() changed the default file:\n%s", readFile(t, path))
		}
	})
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "~", want: "/home/alice"},
		{in: "~/nix/home.nix", want: "/home/alice/nix/home.nix"},
		{in: "/etc/nixos", want: "/etc/nixos"},
		{in: "~bob/file", want: "~bob/file"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in, "/home/alice"); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
