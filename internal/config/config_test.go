package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		setupFile   func(t *testing.T) string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "csv", cfg.Export.Format)
				assert.Equal(t, []string{"wc-completed"}, cfg.Export.OrderStatus)
				assert.Equal(t, 100, cfg.Export.BatchSize)
				assert.Equal(t, 5, cfg.Export.PreviewBatchSize)
				assert.True(t, cfg.Export.UseBOM)
				assert.Equal(t, time.Hour, cfg.Export.DownloadTTL)
			},
		},
		{
			name: "environment variables override defaults",
			setupEnv: func(t *testing.T) {
				t.Setenv("WEXPORT_SERVER_PORT", "9090")
				t.Setenv("WEXPORT_LOGGING_LEVEL", "debug")
				t.Setenv("WEXPORT_EXPORT_BATCH_SIZE", "250")
				t.Setenv("WEXPORT_SECURITY_API_TOKENS", "abc:1,def:2")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 250, cfg.Export.BatchSize)
				assert.Equal(t, []string{"abc:1", "def:2"}, cfg.Security.APITokens)
				// untouched values keep their defaults
				assert.Equal(t, "|", cfg.Export.MultiTermSeparator)
			},
		},
		{
			name: "file values are overridden by env",
			setupFile: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "config.yaml")
				content := "server:\n  port: 7070\nexport:\n  format: xlsx\n  delimiter: \";\"\n"
				require.NoError(t, os.WriteFile(path, []byte(content), 0644))
				return path
			},
			setupEnv: func(t *testing.T) {
				t.Setenv("WEXPORT_SERVER_PORT", "7171")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7171, cfg.Server.Port)
				assert.Equal(t, "xlsx", cfg.Export.Format)
				assert.Equal(t, ";", cfg.Export.Delimiter)
				assert.True(t, cfg.Export.IncludeHeaders)
			},
		},
		{
			name: "invalid port",
			setupEnv: func(t *testing.T) {
				t.Setenv("WEXPORT_SERVER_PORT", "70000")
			},
			wantErr: true,
		},
		{
			name: "malformed api token",
			setupEnv: func(t *testing.T) {
				t.Setenv("WEXPORT_SECURITY_API_TOKENS", "missing-user-id")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run from an empty directory so no stray config.yaml is picked up
			wd, err := os.Getwd()
			require.NoError(t, err)
			require.NoError(t, os.Chdir(t.TempDir()))
			defer os.Chdir(wd)

			t.Setenv(ConfigFileEnv, "")
			if tt.setupFile != nil {
				t.Setenv(ConfigFileEnv, tt.setupFile(t))
			}
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestSecurityConfigTokens(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    map[string]int64
		wantErr bool
	}{
		{name: "empty", entries: nil, want: map[string]int64{}},
		{name: "pairs", entries: []string{"a:1", " b:42 "}, want: map[string]int64{"a": 1, "b": 42}},
		{name: "no separator", entries: []string{"a"}, wantErr: true},
		{name: "non numeric id", entries: []string{"a:x"}, wantErr: true},
		{name: "zero id", entries: []string{"a:0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SecurityConfig{APITokens: tt.entries}.Tokens()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRepairsExportDefaults(t *testing.T) {
	cfg := Default()
	cfg.Export.BatchSize = 0
	cfg.Export.PreviewBatchSize = -1
	cfg.Export.OrderStatus = nil
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.validate())
	assert.Equal(t, DefaultBatchSize, cfg.Export.BatchSize)
	assert.Equal(t, PreviewBatchSize, cfg.Export.PreviewBatchSize)
	assert.Equal(t, []string{DefaultOrderStatus}, cfg.Export.OrderStatus)
	assert.Equal(t, "json", cfg.Logging.Format)
}
