package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/printomat/pkg/config"
)

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"default", "", filepath.Join(home, ".cache", appName)},
		{"xdg", "/tmp/custom-cache", filepath.Join("/tmp/custom-cache", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			got, err := cacheDir()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreviewCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	cfg := config.Default()

	got, err := previewCacheDir(cfg)
	if err != nil || got != filepath.Join("/tmp/xdg", appName) {
		t.Errorf("previewCacheDir() = %q, %v", got, err)
	}

	cfg.Preview.CacheDir = "/var/cache/kiosk"
	if got, _ := previewCacheDir(cfg); got != "/var/cache/kiosk" {
		t.Errorf("previewCacheDir() = %q, want the configured dir", got)
	}
}
