package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
)

// EmptyContentSummary is returned for blank content without calling the model.
const EmptyContentSummary = "There is no content to summarize."

// Messages shown by the display form.
const (
	MessageKeyMissing = "Unable to generate summary: API key is missing."
	MessageNoSummary  = "Unable to generate summary."
	MessageFailed     = "An error occurred while generating the summary."
)

const (
	// chunkLimit caps the characters sent in one summarize-all request.
	chunkLimit = 12000
	// excerptWords is the length of the offline summarize-all excerpt.
	excerptWords     = 50
	summarizeWorkers = 3
)

// Options configures Service.
type Options struct {
	SummariesPerMinute int
	Logger             *zap.Logger
	Metrics            *observability.Collector
}

// Service summarizes note content. Summarize raises typed errors and is the
// form used by mutations; SummarizeForDisplay and SummarizeNotes never fail
// and return text meant to be shown as is.
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	disabled atomic.Bool
	logger   *zap.Logger
	metrics  *observability.Collector
}

// NewService creates a Service around provider.
func NewService(provider Provider, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		limiter:  rate.NewLimiter(perMinute(opts.SummariesPerMinute), burst(opts.SummariesPerMinute)),
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// IsAvailable reports whether summaries can be generated right now.
func (s *Service) IsAvailable() bool {
	return !s.disabled.Load() && s.provider != nil && s.provider.IsAvailable()
}

// SetRate changes the summaries-per-minute budget. Zero or less removes it.
func (s *Service) SetRate(summariesPerMinute int) {
	s.limiter.SetLimit(perMinute(summariesPerMinute))
	s.limiter.SetBurst(burst(summariesPerMinute))
}

// SetEnabled turns summarization on or off.
func (s *Service) SetEnabled(enabled bool) {
	s.disabled.Store(!enabled)
}

// Summarize returns a summary of content. Blank content short-circuits to
// EmptyContentSummary.
func (s *Service) Summarize(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return EmptyContentSummary, nil
	}
	if s.disabled.Load() {
		return "", apperrors.Summarization(apperrors.CodeSummaryNotAllowed, "summaries are turned off").
			WithOperation("Summarize").
			WithRetryable(false).
			Build()
	}
	if s.provider == nil || !s.provider.IsAvailable() {
		return "", apperrors.Summarization(apperrors.CodeProviderMissing, "API key is missing").
			WithOperation("Summarize").
			WithRetryable(false).
			Build()
	}

	start := time.Now()
	text, err := s.complete(ctx, content)
	s.metrics.ObserveSummary(err, time.Since(start))
	if err != nil {
		s.logger.Warn("Summary generation failed", zap.Error(err), zap.Int("contentLength", len(content)))
		return "", err
	}
	return text, nil
}

func (s *Service) complete(ctx context.Context, content string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", apperrors.Summarization(apperrors.CodeTimeout, "the summary request could not be scheduled in time").
			WithOperation("Summarize").
			WithCause(err).
			Build()
	}

	text, err := s.provider.Complete(ctx, SummaryRequest(content))
	if err != nil {
		if apperrors.Kind(err) == "" {
			return "", providerError(err)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.Summarization(apperrors.CodeSummaryEmpty, "the model returned an empty summary").
			WithOperation("Summarize").
			Build()
	}
	return text, nil
}

// SummarizeForDisplay is Summarize for callers that only show the result.
// Failures come back as a readable message.
func (s *Service) SummarizeForDisplay(ctx context.Context, content string) string {
	text, err := s.Summarize(ctx, content)
	if err == nil {
		return text
	}
	return DisplayMessage(err)
}

// DisplayMessage turns a summarization failure into the text shown in place
// of a summary.
func DisplayMessage(err error) string {
	var unifiedErr *apperrors.UnifiedError
	if apperrors.As(err, &unifiedErr) {
		switch unifiedErr.Code {
		case apperrors.CodeProviderMissing:
			return MessageKeyMissing
		case apperrors.CodeSummaryEmpty:
			return MessageNoSummary
		}
	}
	return MessageFailed
}

// SummarizeNotes summarizes the combined content of notes. Large inputs are
// summarized in chunks and the partial summaries summarized again. Without a
// model it falls back to an excerpt of the first words.
func (s *Service) SummarizeNotes(ctx context.Context, notes []note.Note) string {
	contents := make([]string, 0, len(notes))
	for _, n := range notes {
		contents = append(contents, n.Content)
	}
	combined := strings.Join(contents, "\n\n")
	if strings.TrimSpace(combined) == "" {
		return EmptyContentSummary
	}
	if !s.IsAvailable() {
		return Excerpt(combined, len(notes))
	}

	chunks := chunk(contents, chunkLimit)
	if len(chunks) == 1 {
		return s.SummarizeForDisplay(ctx, chunks[0])
	}

	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summarizeWorkers)
	for i, c := range chunks {
		g.Go(func() error {
			text, err := s.Summarize(gctx, c)
			if err != nil {
				return err
			}
			partials[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DisplayMessage(err)
	}
	return s.SummarizeForDisplay(ctx, strings.Join(partials, "\n\n"))
}

// Excerpt returns the first words of content, noting how many notes it
// came from when it was cut short.
func Excerpt(content string, noteCount int) string {
	words := strings.Fields(content)
	if len(words) <= excerptWords {
		return strings.Join(words, " ")
	}
	return fmt.Sprintf("%s... (Summary generated from %d notes)", strings.Join(words[:excerptWords], " "), noteCount)
}

func chunk(contents []string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	for _, c := range contents {
		if current.Len() > 0 && current.Len()+len(c)+2 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(c)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(n) / 60)
}

func burst(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
