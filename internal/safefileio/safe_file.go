package safefileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// MaxFileSize is the maximum allowed file size for SafeReadFile (1 MB).
// Policy and credential files are small line-oriented text; anything larger
// is a configuration mistake or an attack.
const MaxFileSize = 1 * 1024 * 1024

// SafeReadFile reads a trusted-source file and returns its content together
// with the FileInfo obtained by fstat on the open descriptor. Callers use
// the returned FileInfo for ownership and permission checks; because it
// comes from the same descriptor the content was read from, there is no
// window in which the checked file and the read file can differ.
func SafeReadFile(filePath string) ([]byte, os.FileInfo, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// #nosec G304 - absPath is cleaned above and opened with O_NOFOLLOW
	file, err := os.OpenFile(absPath, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if isNoFollowError(err) {
			return nil, nil, ErrIsSymlink
		}
		return nil, nil, err
	}
	defer file.Close()

	if err := verifyPathComponents(absPath); err != nil {
		return nil, nil, err
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotRegularFile, absPath)
	}
	if fileInfo.Size() > MaxFileSize {
		return nil, nil, ErrFileTooLarge
	}

	content, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", absPath, err)
	}
	if int64(len(content)) > MaxFileSize {
		return nil, nil, ErrFileTooLarge
	}

	return content, fileInfo, nil
}

// SafeWriteFile writes content to a file, creating it with the given
// permissions if absent. The open uses O_NOFOLLOW and the regular-file
// check runs on the descriptor, mirroring SafeReadFile.
func SafeWriteFile(filePath string, content []byte, perm os.FileMode) (err error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// #nosec G304 - absPath is cleaned above and opened with O_NOFOLLOW
	file, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|syscall.O_NOFOLLOW, perm)
	if err != nil {
		if isNoFollowError(err) {
			return ErrIsSymlink
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
	}()

	if err := verifyPathComponents(absPath); err != nil {
		return err
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", absPath, err)
	}
	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, absPath)
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", absPath, err)
	}
	if _, err := file.Write(content); err != nil {
		return fmt.Errorf("failed to write to %s: %w", absPath, err)
	}
	return nil
}

// verifyPathComponents checks if any directory component of the path is a
// symlink. This is called after opening the file, so a racing rename cannot
// swap a checked component for a link the open already followed.
func verifyPathComponents(absPath string) error {
	dir, err := filepath.Abs(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	for current := dir; ; {
		parent := filepath.Dir(current)
		if parent == current {
			break // reached root
		}

		fi, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}

		current = parent
	}
	return nil
}
