package mcpserver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/apresai/dialoguegen/internal/record"
)

// ErrOutsideOutputDir is returned when a requested directory would leave the
// server's output directory.
var ErrOutsideOutputDir = errors.New("output_dir must be inside the output directory")

// Storage writes dialogue records under a base output directory.
type Storage struct {
	writer     *record.Writer
	baseDir    string
	timeLayout string
	now        func() time.Time
}

// NewStorage creates a record storage rooted at baseDir.
func NewStorage(writer *record.Writer, baseDir, timeLayout string) *Storage {
	return &Storage{writer: writer, baseDir: baseDir, timeLayout: timeLayout, now: time.Now}
}

// Save writes a record and returns its path. dir is relative to the base
// directory; empty means the base directory itself.
func (s *Storage) Save(character, text, dir string) (string, error) {
	target, err := s.resolve(dir)
	if err != nil {
		return "", err
	}
	return s.writer.Save(character, text, record.Timestamp(s.now(), s.timeLayout), target)
}

func (s *Storage) resolve(dir string) (string, error) {
	if dir == "" {
		return s.baseDir, nil
	}
	if filepath.IsAbs(dir) || filepath.VolumeName(dir) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrOutsideOutputDir, dir)
	}
	target := filepath.Join(s.baseDir, dir)
	rel, err := filepath.Rel(s.baseDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideOutputDir, dir)
	}
	return target, nil
}
