package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/kinship/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:8080" {
		t.Errorf("address = %q", got)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFamilyConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Family.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty family path should fail")
	}
}

func TestIndexConfig_PathOnlyRequiredWhenEnabled(t *testing.T) {
	cfg := IndexConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled index without path should pass: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled index without path should fail")
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("KINSHIP_TEST_FILE", "/data/tree.csv")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
family:
  path: ${KINSHIP_TEST_FILE}
index:
  enabled: false
events:
  graph_throttle: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Family.Path != "/data/tree.csv" {
		t.Errorf("family path = %q", cfg.Family.Path)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.HTTP.Host != "127.0.0.1" {
		t.Errorf("http = %+v", cfg.App.HTTP)
	}
	if cfg.Index.Enabled {
		t.Error("index should be disabled")
	}
	if cfg.Events.GraphThrottle != 5*time.Second {
		t.Errorf("graph throttle = %v", cfg.Events.GraphThrottle)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}
