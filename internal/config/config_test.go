package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "sme.reembed" {
		t.Fatalf("NATSSubject = %q", cfg.NATSSubject)
	}
	if cfg.AskBeam != 3 || cfg.AskCitationsMax != 6 || cfg.AskChunkTextMax != 800 {
		t.Fatalf("ask defaults wrong: %+v", cfg)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("ASK_BEAM", "4")
	t.Setenv("EMBEDDING_BACKEND", "openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AskBeam != 4 {
		t.Fatalf("AskBeam = %d", cfg.AskBeam)
	}
	if cfg.EmbeddingBackend != "openai" {
		t.Fatalf("EmbeddingBackend = %q", cfg.EmbeddingBackend)
	}
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("ASK_BEAM", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AskBeam != 3 {
		t.Fatalf("malformed env must fall back to default, got %d", cfg.AskBeam)
	}
}

func TestLoadOverlaysYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sme.yaml")
	body := "api_port: \"9999\"\nask_beam: 2\nrate_limit_rps: 25\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SME_CONFIG_FILE", path)
	t.Setenv("API_PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("file must win over env, got %q", cfg.APIPort)
	}
	if cfg.AskBeam != 2 {
		t.Fatalf("AskBeam = %d", cfg.AskBeam)
	}
	if cfg.RateLimitRPS != 25 {
		t.Fatalf("RateLimitRPS = %f", cfg.RateLimitRPS)
	}
	// Keys absent from the file keep their env/default values.
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Fatalf("NATSURL = %q", cfg.NATSURL)
	}
}

func TestLoadFailsOnMissingConfigFile(t *testing.T) {
	t.Setenv("SME_CONFIG_FILE", "/nonexistent/sme.yaml")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
