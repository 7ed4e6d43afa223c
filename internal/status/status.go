// Package status reports filesystem metadata for a downloaded artifact.
package status

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"syscall"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultPath is where the download step leaves the dataset.
const DefaultPath = "/tmp/covid-data.csv"

// Banner is the first line of every report.
const Banner = "Checking the downloaded file!"

// FileStatus holds the metadata read from a single stat call.
// The zero value is what a failed query reports.
type FileStatus struct {
	Size    int64 // bytes
	ModTime int64 // seconds since the Unix epoch
}

// Checker queries file metadata through an afero filesystem.
type Checker struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewChecker creates a checker backed by the given filesystem.
func NewChecker(fsys afero.Fs) *Checker {
	return &Checker{
		fs:     fsys,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug and warning messages.
func (c *Checker) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Check stats path. On failure the returned FileStatus is zeroed.
func (c *Checker) Check(path string) (FileStatus, error) {
	c.logger.Debug("checking file", zap.String("path", path))

	info, err := c.fs.Stat(path)
	if err != nil {
		return FileStatus{}, fmt.Errorf("stat %s: %w", path, err)
	}

	st := FileStatus{
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}
	c.logger.Debug("file found",
		zap.String("path", path),
		zap.Int64("size", st.Size),
		zap.Int64("mtime", st.ModTime))
	return st, nil
}

// Report writes the banner, checks path and writes the status line.
// The status line is written even when the check fails, carrying zeroes.
// It returns the process exit code for the check and any write error.
func (c *Checker) Report(w io.Writer, path string) (int, error) {
	if _, err := fmt.Fprintln(w, Banner); err != nil {
		return ExitCode(err), fmt.Errorf("write banner: %w", err)
	}

	st, checkErr := c.Check(path)

	if err := WriteStatusLine(w, path, st); err != nil {
		return ExitCode(err), fmt.Errorf("write status: %w", err)
	}

	code := ExitCode(checkErr)
	if checkErr != nil {
		c.logger.Warn("metadata query failed",
			zap.String("path", path),
			zap.Int("exit_code", code),
			zap.Error(checkErr))
	}
	return code, nil
}

// WriteStatusLine writes the attribute line for path. The trailing space
// before the newline is part of the format consumers expect.
func WriteStatusLine(w io.Writer, path string, st FileStatus) error {
	_, err := fmt.Fprintf(w, "%s file attributes : size: %d bytes, last modified: %d \n",
		path, st.Size, st.ModTime)
	return err
}

// ExitCode maps a check error to a process exit code: 0 for nil, the OS
// errno when one is present, and 1 otherwise. Codes stay within 1..255.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	code := 1
	var errno syscall.Errno
	switch {
	case errors.As(err, &errno):
		code = int(errno)
	case errors.Is(err, fs.ErrNotExist):
		code = int(syscall.ENOENT)
	case errors.Is(err, fs.ErrPermission):
		code = int(syscall.EACCES)
	}

	if code <= 0 || code > 255 {
		return 1
	}
	return code
}
