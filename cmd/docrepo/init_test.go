package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/docrepo/internal/config"
)

// runInit executes the init command with args and returns its output.
func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "output", shorthand: "o", defValue: config.DefaultConfigFile},
		{name: "force", shorthand: "f", defValue: "false"},
	}
	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.name)
		if flag == nil {
			t.Errorf("expected %s flag", tt.name)
			continue
		}
		if flag.Shorthand != tt.shorthand || flag.DefValue != tt.defValue {
			t.Errorf("%s: got shorthand %q default %q", tt.name, flag.Shorthand, flag.DefValue)
		}
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes a site file that loads", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".docrepo")
		out, err := runInit(t, "-o", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created site file: "+path) {
			t.Errorf("unexpected output: %q", out)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("site file not written: %v", err)
		}
		if info.Mode().Perm()&0o077 != 0 {
			t.Errorf("site file is readable by others: %v", info.Mode().Perm())
		}

		cf, err := config.LoadConfigFile(path)
		if err != nil {
			t.Fatalf("generated file does not load: %v", err)
		}
		if len(cf.Defaults.IgnorePatterns) == 0 {
			t.Error("expected default ignore patterns in the template")
		}
		if len(cf.Sites) != 0 {
			t.Errorf("expected only commented site examples, got %v", cf.Sites)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			force     bool
			wantErr   bool
			wantKeeps bool
		}{
			{name: "kept without force", wantErr: true, wantKeeps: true},
			{name: "replaced with force", force: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				path := filepath.Join(t.TempDir(), ".docrepo")
				if err := os.WriteFile(path, []byte("existing"), 0600); err != nil {
					t.Fatalf("failed to create test file: %v", err)
				}

				args := []string{"-o", path}
				if tt.force {
					args = append(args, "-f")
				}
				_, err := runInit(t, args...)
				if (err != nil) != tt.wantErr {
					t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
				}
				if err != nil && !strings.Contains(err.Error(), "already exists") {
					t.Errorf("expected 'already exists' error, got %v", err)
				}

				content, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("failed to read file: %v", err)
				}
				if kept := string(content) == "existing"; kept != tt.wantKeeps {
					t.Errorf("file kept = %v, want %v", kept, tt.wantKeeps)
				}
			})
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "sites.yaml")
		if _, err := runInit(t, "-o", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file to be created: %v", err)
		}
	})
}
