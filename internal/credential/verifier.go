package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/McRaeAlex/execas/internal/identity"
	"github.com/McRaeAlex/execas/internal/secret"
	"github.com/McRaeAlex/execas/internal/terminal"
)

// DefaultPrompt is the fixed prompt string written to the terminal.
const DefaultPrompt = "password: "

// StoredCredentials looks up the comparison target for an identity. It
// never exposes secret material, only hashes.
type StoredCredentials interface {
	LookupHash(name string) ([]byte, error)
}

// Verifier re-authenticates the invoking user. The Verify signature only
// accepts the real identity: there is no way to hand it the effective
// (elevated) identity by construction, because the broker resolves the two
// into separate fields before verification starts.
type Verifier struct {
	store   StoredCredentials
	channel terminal.Channel
	prompt  string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPrompt overrides the prompt string.
func WithPrompt(prompt string) Option {
	return func(v *Verifier) {
		if prompt != "" {
			v.prompt = prompt
		}
	}
}

// WithTimeout bounds the interactive prompt. Zero means wait indefinitely,
// which is the default: a user thinking at the prompt is expected behavior.
func WithTimeout(timeout time.Duration) Option {
	return func(v *Verifier) { v.timeout = timeout }
}

// NewVerifier creates a verifier that prompts on channel and compares
// against store.
func NewVerifier(store StoredCredentials, channel terminal.Channel, logger *slog.Logger, opts ...Option) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{
		store:   store,
		channel: channel,
		prompt:  DefaultPrompt,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify prompts the real user for their secret and compares it against
// their stored credential. The secret lives in a locked buffer that is
// zeroed before Verify returns, on success and on every failure path. The
// bcrypt comparison takes the same time whether the first or the last byte
// of the secret differs.
func (v *Verifier) Verify(ctx context.Context, real *identity.User) error {
	if real == nil {
		return fmt.Errorf("no real identity to verify")
	}
	if !v.channel.IsInteractive() {
		v.logger.Warn("credential prompt refused", "reason", "non-interactive channel", "principal", real.Name)
		return ErrNonInteractive
	}

	buffer, err := v.readSecret(ctx)
	if err != nil {
		return err
	}
	defer buffer.Close()

	hash, err := v.store.LookupHash(real.Name)
	if err != nil {
		if errors.Is(err, ErrNoCredentialRecord) {
			v.logger.Warn("authentication failed", "reason", "no credential record", "principal", real.Name)
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, buffer.Bytes()); err != nil {
		v.logger.Warn("authentication failed", "reason", "mismatch", "principal", real.Name)
		return fmt.Errorf("%w: %s", ErrMismatch, real.Name)
	}

	v.logger.Info("authentication succeeded", "principal", real.Name)
	return nil
}

type readResult struct {
	line []byte
	err  error
}

// readSecret reads the secret into a locked buffer, honoring the optional
// prompt timeout and context cancellation. An abandoned read is drained in
// the background so late input is still zeroed.
func (v *Verifier) readSecret(ctx context.Context) (*secret.Buffer, error) {
	results := make(chan readResult, 1)
	go func() {
		line, err := v.channel.ReadSecret(v.prompt)
		results <- readResult{line: line, err: err}
	}()

	var expired <-chan time.Time
	if v.timeout > 0 {
		timer := time.NewTimer(v.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case result := <-results:
		if result.err != nil {
			return nil, fmt.Errorf("reading credential: %w", result.err)
		}
		if len(result.line) == 0 {
			// An empty secret can never match a bcrypt record; deny without
			// allocating a buffer.
			return nil, ErrMismatch
		}
		return secret.NewFromBytes(result.line)
	case <-expired:
		go drain(results)
		return nil, ErrPromptTimeout
	case <-ctx.Done():
		go drain(results)
		return nil, fmt.Errorf("credential prompt canceled: %w", ctx.Err())
	}
}

func drain(results chan readResult) {
	if result := <-results; result.line != nil {
		secret.Zero(result.line)
	}
}
