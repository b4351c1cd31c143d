// Package credential verifies the invoking user's secret against the
// broker's credential store. The store holds bcrypt hashes, never secrets;
// verification is constant-time with respect to the supplied secret, and
// secret material lives only in a locked buffer that is wiped on every
// exit path.
package credential

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"github.com/McRaeAlex/execas/internal/safefileio"
	"github.com/McRaeAlex/execas/internal/secret"
)

// storeFileMode is the required mode of the credential store: readable and
// writable by the trusted authority only. The store holds password hashes,
// so even read access by others is rejected.
const storeFileMode os.FileMode = 0o600

// Store is a handle to the broker's credential records. It exposes stored
// hashes for comparison, never secret material.
type Store struct {
	path       string
	trustedUID int
	logger     *slog.Logger
}

// NewStore returns a store handle requiring the backing file to be owned by
// root with mode 0600.
func NewStore(path string, logger *slog.Logger) *Store {
	return NewStoreWithTrustedUID(path, 0, logger)
}

// NewStoreWithTrustedUID returns a store with a non-default trusted
// authority uid. Used by tests, which cannot create root-owned fixtures.
func NewStoreWithTrustedUID(path string, uid int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, trustedUID: uid, logger: logger}
}

// LookupHash returns the stored bcrypt hash for the named identity, or
// ErrNoCredentialRecord if the identity is not enrolled.
func (s *Store) LookupHash(name string) ([]byte, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	hash, ok := records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCredentialRecord, name)
	}
	return []byte(hash), nil
}

// Validate reads and trust-checks the store without exposing any records.
// Used by the broker's validate mode.
func (s *Store) Validate() error {
	_, err := s.load()
	return err
}

// load reads and trust-checks the store file. The ownership and permission
// checks run against the descriptor the content was read from.
func (s *Store) load() (map[string]string, error) {
	content, info, err := safefileio.SafeReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading credential store %s: %w", s.path, err)
	}

	if err := s.checkTrust(info); err != nil {
		return nil, err
	}

	return parseStore(s.path, content)
}

func (s *Store) checkTrust(info os.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: %s: ownership information unavailable", ErrUntrustedStore, s.path)
	}
	if int(stat.Uid) != s.trustedUID {
		s.logger.Warn("credential store has wrong owner",
			"path", s.path,
			"owner_uid", stat.Uid,
			"trusted_uid", s.trustedUID)
		return fmt.Errorf("%w: %s: owned by uid %d, expected %d", ErrUntrustedStore, s.path, stat.Uid, s.trustedUID)
	}
	if perm := info.Mode().Perm(); perm&^storeFileMode != 0 {
		s.logger.Warn("credential store has loose permissions",
			"path", s.path,
			"permissions", fmt.Sprintf("%04o", perm))
		return fmt.Errorf("%w: %s: mode %04o, maximum allowed %04o", ErrUntrustedStore, s.path, perm, storeFileMode)
	}
	return nil
}

// parseStore parses `name:bcrypt-hash` lines. A malformed line fails the
// whole load.
func parseStore(path string, content []byte) (map[string]string, error) {
	records := make(map[string]string)

	for number, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, hash, found := strings.Cut(line, ":")
		if !found || name == "" || hash == "" {
			return nil, fmt.Errorf("%w: %s:%d", ErrMalformedStore, path, number+1)
		}
		if !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("%w: %s:%d: not a bcrypt hash", ErrMalformedStore, path, number+1)
		}
		records[name] = hash
	}

	return records, nil
}

// Enroll creates or replaces the credential record for name. The supplied
// secret is consumed: it is hashed and then zeroed in place. Enrollment
// runs the same trust check as verification when the store already exists;
// a new store is created with the required mode.
func (s *Store) Enroll(name string, newSecret []byte) error {
	defer secret.Zero(newSecret)

	if name == "" || strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("%w: invalid principal name %q", ErrMalformedStore, name)
	}
	if len(newSecret) == 0 {
		return fmt.Errorf("refusing to enroll an empty secret")
	}

	records := make(map[string]string)
	if _, err := os.Lstat(s.path); err == nil {
		existing, err := s.load()
		if err != nil {
			return err
		}
		records = existing
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking credential store %s: %w", s.path, err)
	}

	hash, err := bcrypt.GenerateFromPassword(newSecret, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing credential: %w", err)
	}
	records[name] = string(hash)

	var builder strings.Builder
	for recordName, recordHash := range records {
		fmt.Fprintf(&builder, "%s:%s\n", recordName, recordHash)
	}

	if err := safefileio.SafeWriteFile(s.path, []byte(builder.String()), storeFileMode); err != nil {
		return fmt.Errorf("writing credential store %s: %w", s.path, err)
	}

	s.logger.Info("credential enrolled", "principal", name, "path", s.path)
	return nil
}
