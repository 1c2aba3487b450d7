package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" || cfg.AI.Provider != "anthropic" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxnote.yaml")
	data := `
server:
  port: "9090"
db_path: /tmp/test.db
ai:
  provider: gemini
  api_key: file-key
storage:
  prefer_local: true
  local_dir: /tmp/notes
  s3:
    bucket: my-bucket
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" || cfg.DBPath != "/tmp/test.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.APIKey != "file-key" {
		t.Errorf("ai section not applied: %+v", cfg.AI)
	}

	sc := cfg.StorageConfig()
	if !sc.PreferLocal || sc.LocalDir != "/tmp/notes" || sc.Bucket != "my-bucket" {
		t.Errorf("storage mapping wrong: %+v", sc)
	}
}

func TestEnvOverridesProviderKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxnote.yaml")
	if err := os.WriteFile(path, []byte("ai:\n  provider: openai\n  api_key: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "wrong-provider")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.APIKey != "from-env" {
		t.Errorf("provider key env override not applied: %q", cfg.AI.APIKey)
	}
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("AWS_S3_BUCKET", "env-bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "ak")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "sk")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Deepgram.APIKey != "dg-key" {
		t.Errorf("deepgram env not applied: %+v", cfg.Deepgram)
	}
	if !cfg.StorageConfig().RemoteConfigured() {
		t.Errorf("aws env not applied: %+v", cfg.Storage)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxnote.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
