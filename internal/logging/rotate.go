package logging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const megabyte = 1024 * 1024

// RotatingFileWriter is a size-rotated log file. When a write would push the
// current file past its limit, the file is renamed to <path>.1, older backups
// shift up by one, and backups beyond the retention count are removed.
//
// Safe for concurrent use.
type RotatingFileWriter struct {
	mu      sync.Mutex
	path    string
	limit   int64
	backups int
	size    int64
	file    *os.File
}

// NewRotatingFileWriter opens (appending) or creates path. maxSizeMB is
// clamped to at least 1 and maxBackups to at least 0, where 0 truncates on
// rotation.
func NewRotatingFileWriter(path string, maxSizeMB, maxBackups int) (*RotatingFileWriter, error) {
	return newRotatingFileWriter(path, int64(max(maxSizeMB, 1))*megabyte, max(maxBackups, 0))
}

func newRotatingFileWriter(path string, limit int64, backups int) (*RotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: mkdir %s: %w", dir, err)
		}
	}
	w := &RotatingFileWriter{path: path, limit: limit, backups: backups}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open %s: %w", w.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("logging: stat %s: %w", w.path, err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write appends p, rotating first if p would not fit. A record is never split
// across files; one larger than the limit lands alone in a fresh file.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("logging: rotate: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file. Further writes fail with os.ErrClosed.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate must be called with w.mu held. The current file is reopened even
// when shifting backups fails, so a failed rotation does not stop logging.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	var errs []error
	keep := func(err error) {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	// highest first, so nothing is overwritten
	existing := w.existingBackups()
	for _, n := range slices.Backward(existing) {
		if n >= w.backups {
			keep(os.Remove(w.backupPath(n)))
		} else {
			keep(os.Rename(w.backupPath(n), w.backupPath(n+1)))
		}
	}
	if w.backups > 0 {
		keep(os.Rename(w.path, w.backupPath(1)))
	} else {
		keep(os.Remove(w.path))
	}
	errs = append(errs, w.open())
	return errors.Join(errs...)
}

func (w *RotatingFileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// existingBackups lists the backup numbers present on disk, ascending.
func (w *RotatingFileWriter) existingBackups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n >= 1 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)
