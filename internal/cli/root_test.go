package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/dialoguegen/internal/record"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagCharacter, flagInput, flagOutputDir, flagTimestamp = "", "", "", ""
	flagProfiles, flagLogLevel, flagLogFile = "", "", ""
	flagSave, flagVerbose = false, false
	flagSeed = 0

	t.Setenv("DIALOGUEGEN_DELAY", "0s")
	t.Setenv("DIALOGUEGEN_SEED", "1")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dialoguegen dev\n", out)
}

func TestCharactersCommand(t *testing.T) {
	out, err := execute(t, "characters")
	require.NoError(t, err)
	for _, id := range []string{"Village Elder", "City Guard", "Mysterious Wizard", "Wretched Beggar", "Tavern Keeper", "Goblin Scout"} {
		assert.Contains(t, out, id)
	}
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "generate", "-c", "Tavern Keeper", "-i", "A pint, please", "--save", "-o", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "[Tavern Keeper]: "))
	assert.Regexp(t, `Dialogue_TavernKeeper\d{4}\.json$`, lines[1])

	data, err := os.ReadFile(lines[1])
	require.NoError(t, err)
	var rec record.DialogueRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, lines[0], rec.DialogueText)
}

func TestGenerateUnknownCharacter(t *testing.T) {
	out, err := execute(t, "generate", "-c", "Dragon")
	require.NoError(t, err)
	assert.Equal(t, "Error: Database connection failed.\n", out)
}

func TestSaveCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "save", "-c", "City Guard", "-o", dir, "--timestamp", "1/1/2024 9:00:00 AM", "Halt!", "Who", "goes", "there?")
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec record.DialogueRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, record.DialogueRecord{
		CharacterName: "City Guard",
		DialogueText:  "Halt! Who goes there?",
		DateCreated:   "1/1/2024 9:00:00 AM",
	}, rec)
}

func TestSaveCommandErrors(t *testing.T) {
	_, err := execute(t, "save", "-c", "Dragon", "-o", t.TempDir(), "Roar.")
	assert.ErrorIs(t, err, record.ErrUnknownCharacter)

	_, err = execute(t, "save", "-c", "City Guard", "-o", filepath.Join(t.TempDir(), "missing"), "Halt!")
	var werr *record.WriteError
	assert.ErrorAs(t, err, &werr)
}

func TestProfilesFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("characters:\n  - id: Bard\n    lines:\n      - \"La la la.\"\n"), 0644))

	out, err := execute(t, "generate", "--profiles", path, "-c", "Bard")
	require.NoError(t, err)
	assert.Equal(t, "[Bard]: La la la.\n", out)
}

func TestLogWriterDiscardsForEditor(t *testing.T) {
	flagLogFile = ""
	d := &deps{}

	w, err := d.logWriter(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, io.Discard, w)

	var errBuf bytes.Buffer
	generateCmd.SetErr(&errBuf)
	t.Cleanup(func() { generateCmd.SetErr(nil) })
	w, err = d.logWriter(generateCmd)
	require.NoError(t, err)
	assert.Equal(t, &errBuf, w)

	flagLogFile = filepath.Join(t.TempDir(), "editor.log")
	t.Cleanup(func() { flagLogFile = "" })
	w, err = d.logWriter(rootCmd)
	require.NoError(t, err)
	require.NotNil(t, d.logFile)
	assert.Equal(t, d.logFile, w)
	require.NoError(t, d.logFile.Close())
}

func TestTeardownRunsAfterFailedCommand(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	_, err := execute(t, "save", "--log-file", logPath, "-c", "Dragon", "-o", t.TempDir(), "Roar.")
	require.Error(t, err)
	// teardown cleared the deps after closing the log file
	assert.Nil(t, app)
	_, err = os.Stat(logPath)
	assert.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
