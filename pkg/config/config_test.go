package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "provgraph.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if cfg.Store.Backend != BackendMemory || !cfg.Versioning.Transitive || cfg.Persistence.StoreTimeout != 10*time.Second {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
store:
  backend: postgres
  uri: postgres://db.internal:5432/provenance
  maxConns: 10
persistence:
  storeTimeout: 2s
log:
  level: debug
versioning:
  studyScope: true
  transitive: false
import:
  workers: 4
snapshot:
  bucket: backups
  endpoint: http://minio:9000
  usePathStyle: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Backend != BackendPostgres || cfg.Store.MaxConns != 10 {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Persistence.StoreTimeout != 2*time.Second {
		t.Errorf("StoreTimeout = %v, want 2s", cfg.Persistence.StoreTimeout)
	}
	if !cfg.Versioning.StudyScope || cfg.Versioning.Transitive {
		t.Errorf("Unexpected versioning config: %+v", cfg.Versioning)
	}
	if cfg.Snapshot.Bucket != "backups" || !cfg.Snapshot.UsePathStyle || cfg.Snapshot.Prefix != "provgraph" {
		t.Errorf("Unexpected snapshot config: %+v", cfg.Snapshot)
	}
	if opts := cfg.Store.PGOptions(); opts.URI != cfg.Store.URI || opts.MaxConns != 10 {
		t.Errorf("Unexpected pg options: %+v", opts)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "store:\n  backnd: memory\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected an error for a misspelled key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatalf("Empty file should give defaults: %v", err)
	}
	if cfg.Import.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Import.Workers)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"DB_URI":                    "postgres://localhost/prov",
		"DB_USER":                   "neo",
		"DB_PASSWORD":               "secret",
		"PROVGRAPH_STORE":           "postgres",
		"PROVGRAPH_STORE_TIMEOUT":   "500ms",
		"PROVGRAPH_IMPORT_WORKERS":  "2",
		"PROVGRAPH_TRANSITIVE":      "false",
		"PROVGRAPH_SNAPSHOT_BUCKET": "b",
		"PROVGRAPH_LOG_LEVEL":       "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Store.URI != "postgres://localhost/prov" || cfg.Store.User != "neo" || cfg.Store.Password != "secret" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Persistence.StoreTimeout != 500*time.Millisecond || cfg.Import.Workers != 2 || cfg.Versioning.Transitive {
		t.Errorf("Unexpected overrides: %+v", cfg)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Empty variables should not override, got level %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Overridden config should validate: %v", err)
	}
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"PROVGRAPH_STORE_TIMEOUT":  "soon",
		"PROVGRAPH_IMPORT_WORKERS": "many",
		"PROVGRAPH_STUDY_SCOPE":    "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := Default().ApplyEnv(env(map[string]string{key: value}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("Expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = BackendPostgres
	cfg.Log.Level = "verbose"
	cfg.Import.Workers = 0
	cfg.Persistence.StoreTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, want := range []string{"store.uri", "log.level", "import.workers", "persistence.storeTimeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error should mention %s: %v", want, err)
		}
	}
}

func TestValidateSnapshotKeysComeInPairs(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.AccessKeyID = "minio"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "snapshot.secretAccessKey") {
		t.Errorf("Expected a missing secret key error, got %v", err)
	}

	cfg.Snapshot.SecretAccessKey = "minio123"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
