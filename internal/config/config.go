// Package config loads the broker's optional TOML configuration. The
// config file steers the policy and credential paths, so it receives the
// same ownership and permission trust checks as the policy itself: a
// config writable by an unprivileged user could redirect the broker to an
// attacker-controlled policy.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/McRaeAlex/execas/internal/cmdcommon"
	"github.com/McRaeAlex/execas/internal/safefileio"
)

// writableByOthers masks the group- and world-write permission bits.
const writableByOthers = 0o022

// ErrUntrustedConfig indicates the config file failed the ownership or
// permission checks.
var ErrUntrustedConfig = errors.New("config file is not trusted")

// Config is the broker's runtime configuration.
type Config struct {
	// PolicyPath is the authorization policy file.
	PolicyPath string `toml:"policy_path"`
	// CredentialPath is the credential store file.
	CredentialPath string `toml:"credential_path"`
	// Prompt is the text written to the terminal before reading the secret.
	Prompt string `toml:"prompt"`
	// PromptTimeoutSeconds bounds the interactive prompt; zero waits
	// indefinitely. Expiry denies, it never relaxes a check.
	PromptTimeoutSeconds int `toml:"prompt_timeout_seconds"`
	// LogLevel is the admin-channel log level.
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PolicyPath:     cmdcommon.DefaultPolicyPath,
		CredentialPath: cmdcommon.DefaultCredentialPath,
		Prompt:         "password: ",
		LogLevel:       "info",
	}
}

// PromptTimeout returns the prompt timeout as a duration.
func (c *Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSeconds) * time.Second
}

// Loader reads and trust-checks config files.
type Loader struct {
	trustedUID int
}

// NewLoader returns a loader requiring config files to be owned by root.
func NewLoader() *Loader {
	return NewLoaderWithTrustedUID(0)
}

// NewLoaderWithTrustedUID returns a loader with a non-default trusted
// authority uid. Used by tests, which cannot create root-owned fixtures.
func NewLoaderWithTrustedUID(uid int) *Loader {
	return &Loader{trustedUID: uid}
}

// Load reads the config at path, falling back to defaults when required is
// false and the file does not exist. An existing file must pass the trust
// check and parse cleanly; a half-read config is never used.
func (l *Loader) Load(path string, required bool) (*Config, error) {
	content, info, err := safefileio.SafeReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := l.checkTrust(path, info); err != nil {
		return nil, err
	}

	cfg := Default()
	decoder := toml.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (l *Loader) checkTrust(path string, info os.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: %s: ownership information unavailable", ErrUntrustedConfig, path)
	}
	if int(stat.Uid) != l.trustedUID {
		return fmt.Errorf("%w: %s: owned by uid %d, expected %d", ErrUntrustedConfig, path, stat.Uid, l.trustedUID)
	}
	if perm := info.Mode().Perm(); perm&writableByOthers != 0 {
		return fmt.Errorf("%w: %s: mode %04o is group or world writable", ErrUntrustedConfig, path, perm)
	}
	return nil
}

func (c *Config) validate() error {
	if c.PolicyPath == "" {
		return fmt.Errorf("policy_path must not be empty")
	}
	if c.CredentialPath == "" {
		return fmt.Errorf("credential_path must not be empty")
	}
	if c.PromptTimeoutSeconds < 0 {
		return fmt.Errorf("prompt_timeout_seconds must not be negative")
	}
	return nil
}
