package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("PF_RECONCILER_TEST_KEY", " from-env ")
	t.Setenv("PF_RECONCILER_TEST_EMPTY", "")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{Name: "api key", File: keyFile, Value: "inline", Env: "PF_RECONCILER_TEST_KEY"}, want: "from-file"},
		{name: "value before env", src: Source{Value: " inline ", Env: "PF_RECONCILER_TEST_KEY"}, want: "inline"},
		{name: "env fallback", src: Source{Env: "PF_RECONCILER_TEST_KEY"}, want: "from-env"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "missing")}, wantErr: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile, Env: "PF_RECONCILER_TEST_KEY"}, wantErr: "is empty"},
		{name: "empty env", src: Source{Name: "api key", Env: "PF_RECONCILER_TEST_EMPTY"}, wantErr: "PF_RECONCILER_TEST_EMPTY is empty"},
		{name: "nothing configured", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
