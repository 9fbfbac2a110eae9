package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("SCOUT_TEST_TOKEN", "from-env")

	tests := []struct {
		name   string
		source Source
		expect string
	}{
		{name: "file wins", source: Source{File: file, Value: "inline", Env: "SCOUT_TEST_TOKEN"}, expect: "from-file"},
		{name: "inline beats env", source: Source{Value: " inline ", Env: "SCOUT_TEST_TOKEN"}, expect: "inline"},
		{name: "env fallback", source: Source{Env: "SCOUT_TEST_TOKEN"}, expect: "from-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.source)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	if _, err := Load(Source{Name: "token", File: empty}); err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected hard error for empty file, got %v", err)
	}
	if _, err := Load(Source{Name: "token", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(Source{Name: "token", Env: "SCOUT_TEST_UNSET_VARIABLE"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "rapidapi key"})
	if err != nil || got != "" {
		t.Fatalf("expected empty optional secret, got %q %v", got, err)
	}

	if _, err := Optional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected file errors to surface")
	}
}
