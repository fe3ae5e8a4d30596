package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// rotatedSuffix is the timestamp layout appended to rotated files
const rotatedSuffix = "20060102-150405.000"

// RotatingWriter appends to a log file shared by successive runs and
// rotates it once it grows past maxSize.
type RotatingWriter struct {
	mu       sync.Mutex
	filename string
	maxSize  int64 // bytes, 0 disables rotation
	maxAge   int   // days, 0 keeps rotated files forever
	compress bool
	file     *os.File
	size     int64
}

// NewRotatingWriter opens filename for appending and prunes expired rotations
func NewRotatingWriter(filename string, maxSizeMB int, maxAge int, compress bool) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{
		filename: filename,
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		maxAge:   maxAge,
		compress: compress,
	}
	if err := w.open(); err != nil {
		return nil, err
	}

	w.prune(time.Now())
	return w, nil
}

// Write writes data to the log file, rotating first if it would overflow
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.maxSize > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(time.Now()); err != nil {
			return 0, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current log file
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	return nil
}

// rotate moves the current file aside and starts a fresh one
func (w *RotatingWriter) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	rotated := w.filename + "." + now.Format(rotatedSuffix)
	if err := os.Rename(w.filename, rotated); err != nil {
		return err
	}

	if w.compress {
		if err := compressFile(rotated); err != nil {
			return err
		}
	}

	return w.open()
}

// compressFile gzips path into path.gz and removes the original
func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	gzw := gzip.NewWriter(dst)
	if _, err := io.Copy(gzw, src); err != nil {
		gzw.Close()
		dst.Close()
		return err
	}
	if err := gzw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// prune removes rotated files older than maxAge days
func (w *RotatingWriter) prune(now time.Time) {
	if w.maxAge <= 0 {
		return
	}

	matches, err := filepath.Glob(w.filename + ".*")
	if err != nil {
		return
	}

	cutoff := now.AddDate(0, 0, -w.maxAge)
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(path, w.filename+"."), ".gz")
		rotatedAt, err := time.ParseInLocation(rotatedSuffix, stamp, time.Local)
		if err != nil {
			continue
		}
		if rotatedAt.Before(cutoff) {
			os.Remove(path)
		}
	}
}
