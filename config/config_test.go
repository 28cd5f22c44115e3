package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/scoped/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	s := config.Default()
	assert.True(t, s.Validation.ImplicitOverride)
	assert.True(t, s.Validation.NothingOverridden)
	assert.True(t, s.Validation.NothingDecorated)
	assert.True(t, s.Lock)
	assert.False(t, s.SkipValidation)
	assert.False(t, s.Logging)
	assert.Equal(t, "info", s.Log.Level)
	require.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		wantErr bool
	}{
		{"defaults", func(*config.Settings) {}, false},
		{"bad log level ignored while logging is off", func(s *config.Settings) { s.Log.Level = "loud" }, false},
		{"bad log level", func(s *config.Settings) { s.Logging = true; s.Log.Level = "loud" }, true},
		{"padded start scope", func(s *config.Settings) { s.StartScope = " APP" }, true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := config.Default()
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	s, err := config.Load(config.WithEnvPrefix("SCOPED_TEST_NONE"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), s)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "scoped.yml", `
validation:
  implicit_override: false
skip_validation: true
lock: false
start_scope: REQUEST
logging: true
log:
  level: debug
  format: json
`)
	s, err := config.Load(config.WithFile(path), config.WithEnvPrefix("SCOPED_TEST_FILE"))
	require.NoError(t, err)
	assert.False(t, s.Validation.ImplicitOverride)
	assert.True(t, s.Validation.NothingOverridden)
	assert.True(t, s.SkipValidation)
	assert.False(t, s.Lock)
	assert.Equal(t, "REQUEST", s.StartScope)
	assert.True(t, s.Logging)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, "stdout", s.Log.Output)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "scoped.yml", "lock: true\nlog:\n  level: debug\n")
	t.Setenv("SCOPED_TEST_ENV_LOCK", "false")
	t.Setenv("SCOPED_TEST_ENV_LOG_LEVEL", "warn")
	t.Setenv("SCOPED_TEST_ENV_VALIDATION_NOTHING_DECORATED", "false")

	s, err := config.Load(config.WithFile(path), config.WithEnvPrefix("SCOPED_TEST_ENV"))
	require.NoError(t, err)
	assert.False(t, s.Lock)
	assert.Equal(t, "warn", s.Log.Level)
	assert.False(t, s.Validation.NothingDecorated)
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeFile(t, ".env", "SCOPED_TEST_DOTENV_START_SCOPE=ACTION\nSCOPED_TEST_DOTENV_SKIP_VALIDATION=true\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("SCOPED_TEST_DOTENV_START_SCOPE")
		_ = os.Unsetenv("SCOPED_TEST_DOTENV_SKIP_VALIDATION")
	})

	s, err := config.Load(config.WithEnvFile(path), config.WithEnvPrefix("SCOPED_TEST_DOTENV"))
	require.NoError(t, err)
	assert.Equal(t, "ACTION", s.StartScope)
	assert.True(t, s.SkipValidation)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.WithFile(filepath.Join(t.TempDir(), "missing.yml")))
	require.Error(t, err)

	_, err = config.Load(config.WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.Error(t, err)

	bad := writeFile(t, "bad.yml", "logging: true\nlog:\n  level: loud\n")
	_, err = config.Load(config.WithFile(bad), config.WithEnvPrefix("SCOPED_TEST_BAD"))
	require.Error(t, err)
}
