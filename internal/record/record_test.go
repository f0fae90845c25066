package record

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type names map[string]bool

func (n names) Has(name string) bool { return n[name] }

var cityGuardFile = regexp.MustCompile(`^Dialogue_CityGuard\d{4}\.json$`)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WithSeed(1))

	path, err := w.Save("City Guard", "[City Guard]: Halt!", "2024-01-01", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, cityGuardFile, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]any{
		"characterName": "City Guard",
		"dialogueText":  "[City Guard]: Halt!",
		"dateCreated":   "2024-01-01",
	}, fields)

	// pretty-printed, two-space indent
	assert.Contains(t, string(data), "\n  \"characterName\": \"City Guard\"")
}

func TestSaveValidation(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WithKnownCharacters(names{"City Guard": true}))

	_, err := w.Save("", "text", "now", dir)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = w.Save("   ", "text", "now", dir)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = w.Save("City Guard", "  \n", "now", dir)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = w.Save("Dragon", "Roar.", "now", dir)
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveMissingDir(t *testing.T) {
	w := NewWriter()
	_, err := w.Save("City Guard", "Halt!", "now", filepath.Join(t.TempDir(), "missing"))

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, werr.Path, "Dialogue_CityGuard")
}

func TestSaveNeverOverwrites(t *testing.T) {
	dir := t.TempDir()

	// same seed as the writer, so we know its first suffix
	first := suffixMin + rand.New(rand.NewSource(77)).Intn(suffixMax-suffixMin+1)
	taken := filepath.Join(dir, FileName("City Guard", first))
	require.NoError(t, os.WriteFile(taken, []byte("keep"), 0644))

	w := NewWriter(WithSeed(77))
	path, err := w.Save("City Guard", "Halt!", "now", dir)
	require.NoError(t, err)
	assert.NotEqual(t, taken, path)

	data, err := os.ReadFile(taken)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestSaveGivesUpAfterMaxAttempts(t *testing.T) {
	dir := t.TempDir()

	first := suffixMin + rand.New(rand.NewSource(5)).Intn(suffixMax-suffixMin+1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("City Guard", first)), []byte("keep"), 0644))

	w := NewWriter(WithSeed(5), WithMaxAttempts(1))
	_, err := w.Save("City Guard", "Halt!", "now", dir)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestSaveManyUniqueFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(WithSeed(11), WithMaxAttempts(64))

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		path, err := w.Save("City Guard", "Halt!", "now", dir)
		require.NoError(t, err)
		require.False(t, seen[path], "duplicate %s", path)
		seen[path] = true
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1000)
}

func TestSuffixRange(t *testing.T) {
	w := NewWriter(WithSeed(3))
	for i := 0; i < 5000; i++ {
		s := w.suffix()
		require.GreaterOrEqual(t, s, 1000)
		require.LessOrEqual(t, s, 9999)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Dialogue_CityGuard1234.json", FileName("City Guard", 1234))
	assert.Equal(t, "Dialogue_MysteriousWizard9999.json", FileName("Mysterious  Wizard", 9999))
	assert.Equal(t, "Dialogue_....etcpasswd1000.json", FileName("../../etc/passwd", 1000))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "1/2/2024 3:04:05 PM", Timestamp(ts, ""))
	assert.Equal(t, "2024-01-02", Timestamp(ts, "2006-01-02"))
}

func TestWriteErrorMessage(t *testing.T) {
	err := &WriteError{Path: "/x/Dialogue_A1000.json", Err: os.ErrPermission}
	assert.Equal(t, "write dialogue to /x/Dialogue_A1000.json: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}
