// Package safefileio provides secure file reading for trust-sensitive
// sources such as the policy and credential files, with protection against
// symlink attacks and TOCTOU race conditions: files are opened with
// O_NOFOLLOW and all property checks run against the open descriptor, never
// against the path.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the path or one of its components is a
	// symbolic link, which is not allowed for trusted sources.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file exceeds the read size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNotRegularFile indicates the path is not a regular file (device,
	// pipe, directory, socket).
	ErrNotRegularFile = errors.New("not a regular file")
)
