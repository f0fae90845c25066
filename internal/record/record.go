// Package record persists generated dialogue as small JSON files.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/apresai/dialoguegen/internal/random"
)

// DateLayout renders dateCreated like a US locale date-time string.
const DateLayout = "1/2/2006 3:04:05 PM"

const (
	filePrefix         = "Dialogue_"
	fileExt            = ".json"
	suffixMin          = 1000
	suffixMax          = 9999
	defaultMaxAttempts = 10
)

var (
	ErrEmptyName        = errors.New("character name is empty")
	ErrEmptyText        = errors.New("dialogue text is empty")
	ErrUnknownCharacter = errors.New("unknown character")
)

// DialogueRecord is the persisted unit of output.
type DialogueRecord struct {
	CharacterName string `json:"characterName"`
	DialogueText  string `json:"dialogueText"`
	DateCreated   string `json:"dateCreated"`
}

// WriteError reports a failed write of a record file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write dialogue to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// CharacterChecker reports whether a character name is known.
type CharacterChecker interface {
	Has(name string) bool
}

// Writer saves records with generated, collision-checked filenames.
type Writer struct {
	known       CharacterChecker
	maxAttempts int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Writer.
type Option func(*Writer)

// WithSeed seeds the filename suffix source. Zero draws a random seed.
func WithSeed(seed int64) Option {
	return func(w *Writer) {
		w.rng = random.NewRand(seed)
	}
}

// WithKnownCharacters rejects names the checker does not know.
func WithKnownCharacters(c CharacterChecker) Option {
	return func(w *Writer) {
		w.known = c
	}
}

// WithMaxAttempts bounds how many suffixes are tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// NewWriter creates a Writer.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = random.NewRand(0)
	}
	return w
}

// Timestamp formats t for dateCreated. An empty layout uses DateLayout.
func Timestamp(t time.Time, layout string) string {
	if layout == "" {
		layout = DateLayout
	}
	return t.Format(layout)
}

// SanitizeName strips whitespace and path separators from a character name.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return -1
		}
		return r
	}, name)
}

// FileName builds "Dialogue_<name><suffix>.json".
func FileName(characterName string, suffix int) string {
	return fmt.Sprintf("%s%s%d%s", filePrefix, SanitizeName(characterName), suffix, fileExt)
}

// Save writes a record for characterName into dir and returns the file path.
// Existing files are never overwritten: a taken name draws a new suffix.
func (w *Writer) Save(characterName, text, timestamp, dir string) (string, error) {
	rec, err := w.validate(characterName, text)
	if err != nil {
		return "", err
	}
	rec.DateCreated = timestamp

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dialogue record: %w", err)
	}

	var path string
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		path = filepath.Join(dir, FileName(characterName, w.suffix()))
		err = writeExclusive(path, data)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", &WriteError{Path: path, Err: err}
		}
	}
	return "", &WriteError{Path: path, Err: fmt.Errorf("no free filename after %d attempts: %w", w.maxAttempts, err)}
}

func (w *Writer) validate(characterName, text string) (DialogueRecord, error) {
	if strings.TrimSpace(characterName) == "" {
		return DialogueRecord{}, ErrEmptyName
	}
	if strings.TrimSpace(text) == "" {
		return DialogueRecord{}, ErrEmptyText
	}
	if SanitizeName(characterName) == "" {
		return DialogueRecord{}, ErrEmptyName
	}
	if w.known != nil && !w.known.Has(characterName) {
		return DialogueRecord{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, characterName)
	}
	return DialogueRecord{CharacterName: characterName, DialogueText: text}, nil
}

func (w *Writer) suffix() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return suffixMin + w.rng.Intn(suffixMax-suffixMin+1)
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
