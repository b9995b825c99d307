package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// no config.yaml in a fresh temp dir
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "images.csv", cfg.Catalog.Path)
	assert.Equal(t, "csv", cfg.Labels.Driver)
	assert.Equal(t, "labels.csv", cfg.Labels.Path)
	assert.Equal(t, "dir", cfg.Blob.Backend)
	assert.Empty(t, cfg.Export.Destination)
	assert.Empty(t, cfg.Blob.CredentialsJSON)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.False(t, cfg.Export.IncludeRaw)
	assert.Empty(t, cfg.Auth.Username)
	assert.Equal(t, 5, cfg.Auth.LoginBurst)
	assert.Equal(t, 2*time.Second, cfg.Auth.LoginInterval())
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL())
	assert.Equal(t, 10*time.Minute, cfg.Image.CacheTTL())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
labels:
  driver: sqlite
  path: labels.db
blob:
  backend: drive
  credentials_file: sa.json
export:
  destination: 1AbCfolder
  format: xlsx
  include_raw: true
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Labels.Driver)
	assert.Equal(t, "labels.db", cfg.Labels.Path)
	assert.Equal(t, "drive", cfg.Blob.Backend)
	assert.Equal(t, "sa.json", cfg.Blob.CredentialsFile)
	assert.Equal(t, "1AbCfolder", cfg.Export.Destination)
	assert.Equal(t, "xlsx", cfg.Export.Format)
	assert.True(t, cfg.Export.IncludeRaw)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 8888, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0644))
	t.Setenv("WOUNDLABEL_SERVER_PORT", "7070")
	t.Setenv("WOUNDLABEL_AUTH_USERNAME", "rater")
	t.Setenv("WOUNDLABEL_AUTH_PASSWORD_HASH", "$2a$10$hash")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "rater", cfg.Auth.Username)
	assert.Equal(t, "$2a$10$hash", cfg.Auth.PasswordHash)
}

func TestLoadCredentialsJSONFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WOUNDLABEL_BLOB_CREDENTIALS_JSON", `{"type":"service_account"}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, cfg.Blob.CredentialsJSON)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		destination string
		want        string
		wantErr     bool
	}{
		{name: "dir falls back to default", backend: "dir", want: DefaultExportDir},
		{name: "empty backend is dir", want: DefaultExportDir},
		{name: "dir keeps explicit destination", backend: "dir", destination: "out", want: "out"},
		{name: "drive with folder id", backend: "drive", destination: "1AbCfolder", want: "1AbCfolder"},
		{name: "drive without destination", backend: "drive", wantErr: true},
		{name: "unknown backend", backend: "s3", destination: "bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Blob:   BlobConfig{Backend: tt.backend},
				Export: ExportConfig{Destination: tt.destination},
			}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Export.Destination)
		})
	}
}

func TestValidateDriveDefaultsFromLoad(t *testing.T) {
	chdirTemp(t)
	t.Setenv("WOUNDLABEL_BLOB_BACKEND", "drive")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "export.destination")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		level    slog.Level
		wantErr  bool
		contains string
	}{
		{name: "text", format: "text", level: slog.LevelInfo, contains: "msg=hello"},
		{name: "default is text", format: "", level: slog.LevelInfo, contains: "msg=hello"},
		{name: "json", format: "json", level: slog.LevelInfo, contains: `"msg":"hello"`},
		{name: "filtered by level", format: "text", level: slog.LevelError},
		{name: "unknown format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.format, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger.Info("hello", "image", "A")
			if tt.contains == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "debug", Format: "json"})
	assert.NoError(t, err)

	_, err = NewLogger(LogConfig{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "woundlabel.log")

	logger, err := NewLogger(LogConfig{Level: "info", Format: "text", File: path})
	require.NoError(t, err)
	logger.Info("label appended", "image", "A")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "label appended")
}
