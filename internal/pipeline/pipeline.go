package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/progress"
	"github.com/apresai/dialoguegen/internal/record"
)

type Options struct {
	Character  string
	Input      string // player prompt; shown in logs only
	Save       bool
	OutputDir  string
	Timestamp  time.Time
	TimeLayout string
	OnProgress progress.Callback
	Logger     *slog.Logger
}

type Output struct {
	GenerationID string
	Text         string
	File         string // empty unless a record was written
}

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run generates a line for opts.Character and, when asked, saves it.
func Run(ctx context.Context, gen *dialogue.Generator, w *record.Writer, opts Options) (*Output, error) {
	start := time.Now()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	onProgress := opts.OnProgress
	if onProgress == nil {
		onProgress = progress.NopCallback
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log.InfoContext(ctx, "Generating dialogue", "character", opts.Character, "input", opts.Input)
	res, err := gen.Generate(ctx, opts.Character)
	if err != nil {
		e := &PipelineError{Stage: string(progress.StageGenerate), Message: "failed to generate dialogue", Err: err}
		onProgress(progress.Event{Stage: progress.StageGenerate, Message: e.Message, Error: e})
		return nil, e
	}
	out := &Output{GenerationID: res.ID, Text: res.Text}

	if opts.Save && res.Text != "" {
		saving := progress.NewEvent(progress.StageSave, "Saving dialogue...", 1, start)
		saving.Character = opts.Character
		onProgress(saving)

		ts := opts.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		path, err := w.Save(opts.Character, res.Text, record.Timestamp(ts, opts.TimeLayout), opts.OutputDir)
		if err != nil {
			e := &PipelineError{Stage: string(progress.StageSave), Message: "failed to save dialogue", Err: err}
			onProgress(progress.Event{Stage: progress.StageSave, Message: e.Message, Error: e})
			return out, e
		}
		out.File = path
		log.InfoContext(ctx, "Dialogue saved", "generation_id", res.ID, "path", path)
	}

	done := progress.NewEvent(progress.StageComplete, "Dialogue generated", 1, start)
	done.Character = opts.Character
	done.OutputFile = out.File
	onProgress(done)
	return out, nil
}
