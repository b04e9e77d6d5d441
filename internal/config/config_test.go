package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRead_Defaults(t *testing.T) {
	t.Setenv("MEDIAJOBS_ANALYSIS_BUCKET", "media")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.ProjectName != "video-analysis-project" {
		t.Errorf("unexpected project %q", cfg.Analysis.ProjectName)
	}
	if cfg.Analysis.PollInterval != 10*time.Second {
		t.Errorf("unexpected analysis interval %s", cfg.Analysis.PollInterval)
	}
	if cfg.Generation.PollInterval != 30*time.Second {
		t.Errorf("unexpected generation interval %s", cfg.Generation.PollInterval)
	}
	if cfg.Generation.ModelID != "amazon.nova-reel-v1:0" {
		t.Errorf("unexpected model %q", cfg.Generation.ModelID)
	}
	if cfg.Analysis.ProfileParam != DefaultProfileParam {
		t.Errorf("unexpected profile param %q", cfg.Analysis.ProfileParam)
	}
	if !cfg.Tagging {
		t.Error("expected tagging on by default")
	}

	in, err := cfg.Analysis.InputLocation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.URI() != "s3://media/input/" {
		t.Errorf("unexpected input location %s", in.URI())
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "MEDIAJOBS_GENERATION_BUCKET=videos\nMEDIAJOBS_GENERATION_PREFIX=reel\nMEDIAJOBS_CONCURRENCY=0\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"MEDIAJOBS_GENERATION_BUCKET", "MEDIAJOBS_GENERATION_PREFIX", "MEDIAJOBS_CONCURRENCY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := cfg.Generation.OutputLocation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.URI() != "s3://videos/reel/" {
		t.Errorf("unexpected output location %s", out.URI())
	}
	if cfg.Concurrency != 1 {
		t.Errorf("expected concurrency clamped to 1, got %d", cfg.Concurrency)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocations_RequireBucket(t *testing.T) {
	var cfg Config
	if _, err := cfg.Analysis.OutputLocation(); err == nil {
		t.Error("expected error without analysis bucket")
	}
	if _, err := cfg.Generation.OutputLocation(); err == nil {
		t.Error("expected error without generation bucket")
	}
}
