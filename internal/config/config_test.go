package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/McRaeAlex/execas/internal/cmdcommon"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func testLoader() *Loader {
	return NewLoaderWithTrustedUID(os.Getuid())
}

func TestLoad_MissingOptionalFileYieldsDefaults(t *testing.T) {
	cfg, err := testLoader().Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)

	assert.Equal(t, cmdcommon.DefaultPolicyPath, cfg.PolicyPath)
	assert.Equal(t, cmdcommon.DefaultCredentialPath, cfg.CredentialPath)
	assert.Equal(t, "password: ", cfg.Prompt)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.PromptTimeout())
}

func TestLoad_MissingRequiredFileFails(t *testing.T) {
	_, err := testLoader().Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	assert.Error(t, err)
}

func TestLoad_Normal(t *testing.T) {
	path := writeConfig(t, `
policy_path = "/srv/execas/policy"
credential_path = "/srv/execas/credentials"
prompt = "secret: "
prompt_timeout_seconds = 30
log_level = "debug"
`, 0o644)

	cfg, err := testLoader().Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/srv/execas/policy", cfg.PolicyPath)
	assert.Equal(t, "/srv/execas/credentials", cfg.CredentialPath)
	assert.Equal(t, "secret: ", cfg.Prompt)
	assert.Equal(t, 30*time.Second, cfg.PromptTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `log_level = "warn"`, 0o644)

	cfg, err := testLoader().Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, cmdcommon.DefaultPolicyPath, cfg.PolicyPath)
}

func TestLoad_RejectsGroupWritableFile(t *testing.T) {
	path := writeConfig(t, `log_level = "info"`, 0o664)

	_, err := testLoader().Load(path, true)
	assert.ErrorIs(t, err, ErrUntrustedConfig)
}

func TestLoad_RejectsWrongOwner(t *testing.T) {
	path := writeConfig(t, `log_level = "info"`, 0o644)

	_, err := NewLoaderWithTrustedUID(os.Getuid() + 1).Load(path, true)
	assert.ErrorIs(t, err, ErrUntrustedConfig)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `polcy_path = "/typo"`, 0o600)

	_, err := testLoader().Load(path, true)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty policy path", `policy_path = ""`},
		{"empty credential path", `credential_path = ""`},
		{"negative timeout", `prompt_timeout_seconds = -1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content, 0o600)
			_, err := testLoader().Load(path, true)
			assert.Error(t, err)
		})
	}
}
