package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/dialoguegen/internal/progress"
)

// DefaultDelay is how long a generation pretends to wait for the model.
const DefaultDelay = time.Second

const tickInterval = 100 * time.Millisecond

// ErrBusy is returned by Start while a generation is already running.
var ErrBusy = errors.New("generation already in progress")

var tracer = otel.Tracer("dialoguegen/dialogue")

// State is the generator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateGenerating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	default:
		return "unknown"
	}
}

// Result is the outcome of one generation.
type Result struct {
	ID          string
	CharacterID string
	Text        string
	Elapsed     time.Duration
	// Err is set when the wait was cancelled; Text is empty then.
	Err error
}

// Generator runs the simulated generation: Idle -> Generating -> Idle.
type Generator struct {
	picker     *Picker
	delay      time.Duration
	log        *slog.Logger
	onProgress progress.Callback

	mu    sync.Mutex
	state State
}

// Option configures a Generator.
type Option func(*Generator)

// WithDelay sets the artificial delay. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d < 0 {
			d = 0
		}
		g.delay = d
	}
}

// WithLogger sets the logger used for generation events.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithProgress sets a callback that receives ticks while the delay elapses.
func WithProgress(cb progress.Callback) Option {
	return func(g *Generator) {
		if cb != nil {
			g.onProgress = cb
		}
	}
}

// NewGenerator wraps picker with the delay and state machine.
func NewGenerator(picker *Picker, opts ...Option) *Generator {
	g := &Generator{
		picker:     picker,
		delay:      DefaultDelay,
		log:        slog.New(slog.DiscardHandler),
		onProgress: progress.NopCallback,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Picker returns the underlying picker.
func (g *Generator) Picker() *Picker {
	return g.picker
}

// State returns the current state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Start begins a generation for characterID. The returned channel receives
// exactly one Result; the generator is Idle again by the time it arrives.
func (g *Generator) Start(ctx context.Context, characterID string) (<-chan Result, error) {
	g.mu.Lock()
	if g.state == StateGenerating {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.state = StateGenerating
	g.mu.Unlock()

	id := ulid.Make().String()
	ctx, span := tracer.Start(ctx, "dialogue.generate", trace.WithAttributes(
		attribute.String("generation_id", id),
		attribute.String("character", characterID),
		attribute.Int64("delay_ms", g.delay.Milliseconds()),
	))
	g.log.InfoContext(ctx, "Generation started", "generation_id", id, "character", characterID)

	ch := make(chan Result, 1)
	go g.run(ctx, span, id, characterID, ch)
	return ch, nil
}

// Generate runs a generation and waits for its result.
func (g *Generator) Generate(ctx context.Context, characterID string) (Result, error) {
	ch, err := g.Start(ctx, characterID)
	if err != nil {
		return Result{}, err
	}
	res := <-ch
	return res, res.Err
}

func (g *Generator) run(ctx context.Context, span trace.Span, id, characterID string, ch chan<- Result) {
	defer span.End()

	start := time.Now()
	res := Result{ID: id, CharacterID: characterID}

	if err := g.wait(ctx, start, characterID); err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation cancelled")
		g.log.WarnContext(ctx, "Generation cancelled", "generation_id", id, "error", err)
	} else {
		res.Text = g.picker.Pick(characterID)
		if res.Text == ErrorLine {
			span.SetAttributes(attribute.Bool("lookup_miss", true))
			g.log.WarnContext(ctx, "Unknown character", "generation_id", id, "character", characterID)
		}
		g.emit(characterID, "Dialogue generated", 1, start)
	}
	res.Elapsed = time.Since(start)

	g.mu.Lock()
	g.state = StateIdle
	g.mu.Unlock()

	g.log.InfoContext(ctx, "Generation finished",
		"generation_id", id,
		"elapsed", res.Elapsed.Round(time.Millisecond).String(),
	)
	ch <- res
}

func (g *Generator) wait(ctx context.Context, start time.Time, characterID string) error {
	msg := fmt.Sprintf("Generating dialogue for %s...", characterID)
	g.emit(characterID, msg, 0, start)

	if g.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			pct := float64(time.Since(start)) / float64(g.delay)
			if pct > 1 {
				pct = 1
			}
			g.emit(characterID, msg, pct, start)
		}
	}
}

func (g *Generator) emit(characterID, msg string, pct float64, start time.Time) {
	e := progress.NewEvent(progress.StageGenerate, msg, pct, start)
	e.Character = characterID
	g.onProgress(e)
}
