package policy

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/McRaeAlex/execas/internal/safefileio"
)

// writableByOthers masks the group- and world-write permission bits.
const writableByOthers = 0o022

// Loader reads and trust-checks policy documents.
type Loader struct {
	trustedUID int
	logger     *slog.Logger
}

// NewLoader returns a loader that requires policy sources to be owned by
// root and writable by no one else.
func NewLoader(logger *slog.Logger) *Loader {
	return NewLoaderWithTrustedUID(0, logger)
}

// NewLoaderWithTrustedUID returns a loader with a non-default trusted
// authority uid. Used by tests, which cannot create root-owned fixtures.
func NewLoaderWithTrustedUID(uid int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{trustedUID: uid, logger: logger}
}

// Load reads, trust-checks, and parses the policy source at path. The
// ownership and permission checks run on the same open descriptor the
// content is read from, so the checked file is the parsed file. Trust
// failures are reported before parse failures: content from an untrusted
// source is never interpreted at all.
func (l *Loader) Load(path string) (*Document, error) {
	content, info, err := safefileio.SafeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}

	if err := l.checkTrust(path, info); err != nil {
		return nil, err
	}

	doc, err := Parse(path, content)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("policy loaded",
		"path", path,
		"entries", doc.Len(),
		"owner_uid", l.trustedUID)
	return doc, nil
}

// checkTrust verifies the policy source is owned by the trusted authority
// and not writable by any other identity.
func (l *Loader) checkTrust(path string, info os.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return &TrustError{Path: path, Reason: "ownership information unavailable"}
	}

	if int(stat.Uid) != l.trustedUID {
		l.logger.Warn("policy source has wrong owner",
			"path", path,
			"owner_uid", stat.Uid,
			"trusted_uid", l.trustedUID)
		return &TrustError{
			Path:   path,
			Reason: fmt.Sprintf("owned by uid %d, expected %d", stat.Uid, l.trustedUID),
		}
	}

	if perm := info.Mode().Perm(); perm&writableByOthers != 0 {
		l.logger.Warn("policy source is group or world writable",
			"path", path,
			"permissions", fmt.Sprintf("%04o", perm))
		return &TrustError{
			Path:   path,
			Reason: fmt.Sprintf("mode %04o is group or world writable", perm),
		}
	}

	return nil
}
