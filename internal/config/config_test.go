package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads workflows and overlays defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
provider:
  apiKey: test-key
  baseUrl: https://provider.example
workflows:
  style-transfer:
    workflowId: "1902340923"
    defaultParams:
      strength: 0.8
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
		}
		if cfg.RateLimit.WindowSeconds != 120 || cfg.RateLimit.MaxRequests != 10 {
			t.Errorf("Expected default rate limit 10/120s, got %d/%ds",
				cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)
		}

		wf, ok := cfg.Workflows["style-transfer"]
		if !ok {
			t.Fatal("Expected style-transfer workflow to be present")
		}
		if wf.WorkflowID != "1902340923" {
			t.Errorf("Expected workflowId 1902340923, got %s", wf.WorkflowID)
		}
		if wf.DefaultParams["strength"] != 0.8 {
			t.Errorf("Expected default strength 0.8, got %v", wf.DefaultParams["strength"])
		}
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "provider: [not a mapping")
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for malformed yaml")
		}
	})

	t.Run("rejects missing api key", func(t *testing.T) {
		path := writeConfigFile(t, `
workflows:
  x:
    workflowId: "1"
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error when provider.apiKey is missing")
		}
	})

	t.Run("rejects empty workflow map", func(t *testing.T) {
		path := writeConfigFile(t, `
provider:
  apiKey: test-key
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error when no workflows are configured")
		}
	})

	t.Run("rejects workflow without id", func(t *testing.T) {
		path := writeConfigFile(t, `
provider:
  apiKey: test-key
workflows:
  broken:
    defaultParams:
      a: 1
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for workflow missing workflowId")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing config file")
		}
	})
}
