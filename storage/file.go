package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"order-events/clock"
	"order-events/domain"
)

const (
	filePrefix    = "orders-"
	fileSuffix    = ".json"
	fileStampTime = "2006-01-02-15:04:05.000000"
)

// ErrNotDirectory reports an output path that is missing or not a directory.
var ErrNotDirectory = errors.New("not a directory")

var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

// CheckDirectory verifies that dir exists and is a directory.
func CheckDirectory(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// FileWriter writes each batch to a new line-delimited JSON file.
type FileWriter struct {
	dir   string
	clock clock.Clock
}

// NewFileWriter creates a writer placing files in dir, named after c's time.
func NewFileWriter(dir string, c clock.Clock) *FileWriter {
	if c == nil {
		c = clock.NewSystem()
	}
	return &FileWriter{dir: dir, clock: c}
}

// FileName returns the batch file name for the given instant.
func FileName(stamp string) string {
	return filePrefix + stampReplacer.Replace(stamp) + fileSuffix
}

// WriteBatch creates a file holding one event per line and returns its path.
// An existing file with the same name is overwritten.
func (w *FileWriter) WriteBatch(ctx context.Context, events []domain.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, FileName(w.clock.Now().Format(fileStampTime)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	for _, ev := range events {
		line, err := encodeEvent(ev)
		if err != nil {
			f.Close()
			return "", err
		}
		if _, err := bw.Write(line); err != nil {
			f.Close()
			return "", err
		}
		if err := bw.WriteByte('\n'); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ReadBatchFile loads the events of a file produced by WriteBatch, in line order.
func ReadBatchFile(path string) ([]domain.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events := make([]domain.Event, 0)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		ev, err := decodeEvent(sc.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// ListBatchFiles returns the batch files in dir sorted by name, which is
// creation order for files written by a single run.
func ListBatchFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
