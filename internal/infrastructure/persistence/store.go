package persistence

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// Options selects the decorators applied by Decorate.
type Options struct {
	Backend        string
	CallTimeout    time.Duration
	CircuitBreaker *CircuitBreakerConfig
	Logger         *zap.Logger
	Metrics        *observability.Collector
	Tracer         trace.Tracer
}

// Interceptors builds the chain for opts.
// Order, outermost first: tracing, metrics, logging, circuit breaker, timeout.
func Interceptors(opts Options) Interceptor {
	var chain []Interceptor
	if opts.Tracer != nil {
		chain = append(chain, Tracing(opts.Tracer, opts.Backend))
	}
	if opts.Metrics != nil {
		chain = append(chain, Metrics(opts.Metrics, opts.Backend))
	}
	if opts.Logger != nil {
		chain = append(chain, Logging(opts.Logger, opts.Backend))
	}
	if opts.CircuitBreaker != nil {
		logger := opts.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		chain = append(chain, CircuitBreaker(*opts.CircuitBreaker, logger, opts.Metrics))
	}
	chain = append(chain, Timeout(opts.CallTimeout))
	return Chain(chain...)
}

// Decorate wraps a note store with the configured decorators.
func Decorate(inner repository.NoteStore, opts Options) repository.NoteStore {
	return &decoratedNotes{inner: inner, intercept: Interceptors(opts)}
}

// DecorateProfiles wraps a profile store with the configured decorators.
func DecorateProfiles(inner repository.ProfileStore, opts Options) repository.ProfileStore {
	return &decoratedProfiles{inner: inner, intercept: Interceptors(opts)}
}

type decoratedNotes struct {
	inner     repository.NoteStore
	intercept Interceptor
}

func (d *decoratedNotes) List(ctx context.Context, userID string) ([]note.Note, error) {
	var out []note.Note
	err := d.intercept(ctx, Operation{Name: "List", UserID: userID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.List(ctx, userID)
		return err
	})
	return out, err
}

func (d *decoratedNotes) Create(ctx context.Context, n note.Note) (note.Note, error) {
	var out note.Note
	err := d.intercept(ctx, Operation{Name: "Create", NoteID: n.ID, UserID: n.UserID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.Create(ctx, n)
		return err
	})
	return out, err
}

func (d *decoratedNotes) Update(ctx context.Context, n note.Note) (note.Note, error) {
	var out note.Note
	err := d.intercept(ctx, Operation{Name: "Update", NoteID: n.ID, UserID: n.UserID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.Update(ctx, n)
		return err
	})
	return out, err
}

func (d *decoratedNotes) Delete(ctx context.Context, noteID, userID string) (string, error) {
	var out string
	err := d.intercept(ctx, Operation{Name: "Delete", NoteID: noteID, UserID: userID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.Delete(ctx, noteID, userID)
		return err
	})
	return out, err
}

func (d *decoratedNotes) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	var out note.Note
	err := d.intercept(ctx, Operation{Name: "UpdateSummary", NoteID: n.ID, UserID: n.UserID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.UpdateSummary(ctx, n)
		return err
	})
	return out, err
}

type decoratedProfiles struct {
	inner     repository.ProfileStore
	intercept Interceptor
}

func (d *decoratedProfiles) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	var out note.Profile
	err := d.intercept(ctx, Operation{Name: "GetProfile", UserID: userID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.GetProfile(ctx, userID)
		return err
	})
	return out, err
}

func (d *decoratedProfiles) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	var out note.Profile
	err := d.intercept(ctx, Operation{Name: "CreateProfile", UserID: p.ID}, func(ctx context.Context) error {
		var err error
		out, err = d.inner.CreateProfile(ctx, p)
		return err
	})
	return out, err
}
