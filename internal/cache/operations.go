package cache

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// Create adds a note with a fresh id and dispatches it to the store.
func (c *MutationCache) Create(ctx context.Context, title, content string) *Mutation {
	n, err := note.New(c.owner.ID, title, content)
	if err != nil {
		return failed(KindCreate, "", err)
	}

	m := newMutation(KindCreate, n.ID)
	finish, err := c.begin(ctx, m,
		func(notes []note.Note) []note.Note {
			return append(notes, n.Clone())
		},
		func(ctx context.Context) (note.Note, error) {
			return c.store.Create(ctx, n.Clone())
		},
	)
	if err != nil {
		return failed(KindCreate, n.ID, err)
	}
	go finish()
	return m
}

// Update replaces title and content of the note with n.ID. A nil summary
// keeps the current one. The owner is always the cache owner.
func (c *MutationCache) Update(ctx context.Context, n note.Note) *Mutation {
	edit := note.Note{
		ID:      n.ID,
		Title:   strings.TrimSpace(n.Title),
		Content: n.Content,
		Summary: n.Summary,
		UserID:  c.owner.ID,
	}
	if edit.Summary != nil {
		edit.Summary = note.Text(*edit.Summary)
	}
	if err := note.Validate(edit); err != nil {
		return failed(KindUpdate, n.ID, err)
	}

	m := newMutation(KindUpdate, edit.ID)
	finish, err := c.begin(ctx, m,
		func(notes []note.Note) []note.Note {
			if i := indexOf(notes, edit.ID); i >= 0 {
				notes[i] = notes[i].Merge(edit)
			}
			return notes
		},
		func(ctx context.Context) (note.Note, error) {
			return c.store.Update(ctx, edit.Clone())
		},
	)
	if err != nil {
		return failed(KindUpdate, edit.ID, err)
	}
	go finish()
	return m
}

// Delete removes the note with id.
func (c *MutationCache) Delete(ctx context.Context, id string) *Mutation {
	if strings.TrimSpace(id) == "" {
		return failed(KindDelete, id, apperrors.Validation(apperrors.CodeMissingNoteID, "note id is required").
			WithOperation("Delete").
			Build())
	}

	m := newMutation(KindDelete, id)
	finish, err := c.begin(ctx, m,
		func(notes []note.Note) []note.Note {
			if i := indexOf(notes, id); i >= 0 {
				return append(notes[:i], notes[i+1:]...)
			}
			return notes
		},
		func(ctx context.Context) (note.Note, error) {
			deleted, err := c.store.Delete(ctx, id, c.owner.ID)
			return note.Note{ID: deleted}, err
		},
	)
	if err != nil {
		return failed(KindDelete, id, err)
	}
	go finish()
	return m
}

// SetSummary stores an already generated summary for id.
func (c *MutationCache) SetSummary(ctx context.Context, id, summary string) *Mutation {
	if err := note.ValidateSummary(&summary); err != nil {
		return failed(KindSummarize, id, err)
	}

	m := newMutation(KindSummarize, id)
	finish, err := c.beginSummary(ctx, m, summary)
	if err != nil {
		return failed(KindSummarize, id, err)
	}
	go finish()
	return m
}

// Summarize generates a summary of the note's current content and then
// stores it. A generation failure settles the mutation without touching the
// visible notes.
func (c *MutationCache) Summarize(ctx context.Context, id string) *Mutation {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return failed(KindSummarize, id, sessionClosed("Summarize"))
	}
	i := indexOf(c.notes, id)
	if i < 0 {
		c.mu.Unlock()
		return failed(KindSummarize, id, apperrors.NotFound(apperrors.CodeNoteNotFound, "Note not found or you don't have permission to access it").
			WithOperation("Summarize").
			WithResource("note").
			WithDetails(id).
			WithUserID(c.owner.ID).
			Build())
	}
	content := c.notes[i].Content
	c.trackLocked()
	c.mu.Unlock()

	m := newMutation(KindSummarize, id)
	go func() {
		defer c.untrack()

		text, err := c.generate(ctx, content)
		if err != nil {
			c.logger.Warn("Summary generation failed", zap.String("noteID", id), zap.Error(err))
			m.settle(note.Note{}, err)
			return
		}

		finish, err := c.beginSummary(ctx, m, text)
		if err != nil {
			m.settle(note.Note{}, err)
			return
		}
		finish()
	}()
	return m
}

func (c *MutationCache) generate(ctx context.Context, content string) (string, error) {
	if c.summarizer == nil {
		return "", apperrors.Summarization(apperrors.CodeProviderMissing, "no summarizer is configured").
			WithOperation("Summarize").
			WithRetryable(false).
			Build()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.summarizer.Summarize(callCtx, content)
	if err == nil && strings.TrimSpace(text) == "" {
		err = apperrors.Summarization(apperrors.CodeSummaryEmpty, "the summary came back empty").Build()
	}
	if err != nil && apperrors.Kind(err) == "" {
		code := apperrors.CodeSummaryFailed
		if callCtx.Err() != nil {
			code = apperrors.CodeTimeout
		}
		err = apperrors.Summarization(code, "failed to generate summary").
			WithOperation("Summarize").
			WithCause(err).
			Build()
	}
	return text, err
}

func (c *MutationCache) beginSummary(ctx context.Context, m *Mutation, summary string) (func(), error) {
	id := m.noteID
	return c.begin(ctx, m,
		func(notes []note.Note) []note.Note {
			if i := indexOf(notes, id); i >= 0 {
				notes[i] = notes[i].WithSummary(summary)
			}
			return notes
		},
		func(ctx context.Context) (note.Note, error) {
			return c.store.UpdateSummary(ctx, note.Note{ID: id, UserID: c.owner.ID, Summary: note.Text(summary)})
		},
	)
}

// begin runs the local half of a mutation: it bumps the epoch, snapshots the
// visible notes and applies the change. The returned func dispatches the
// store call, rolls back on failure and settles m.
func (c *MutationCache) begin(
	ctx context.Context,
	m *Mutation,
	apply func([]note.Note) []note.Note,
	dispatch func(context.Context) (note.Note, error),
) (func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, sessionClosed(string(m.kind))
	}
	c.epoch++
	snapshot := note.CloneAll(c.notes)
	c.notes = apply(note.CloneAll(c.notes))
	c.inflight++
	c.trackLocked()
	c.mu.Unlock()

	c.logger.Debug("Mutation applied", zap.String("kind", string(m.kind)), zap.String("noteID", m.noteID))

	return func() {
		defer c.untrack()

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		result, err := dispatch(callCtx)
		cancel()
		err = normalize(err, string(m.kind))

		c.mu.Lock()
		c.epoch++
		c.inflight--
		if err != nil {
			c.notes = snapshot
		} else if m.kind == KindDelete {
			// A sibling rollback may have restored the deleted note.
			if i := indexOf(c.notes, m.noteID); i >= 0 {
				c.notes = append(c.notes[:i], c.notes[i+1:]...)
			}
		} else if result.ID == m.noteID {
			if i := indexOf(c.notes, result.ID); i >= 0 {
				c.notes[i] = result.Clone()
			}
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("Mutation rolled back",
				zap.String("kind", string(m.kind)),
				zap.String("noteID", m.noteID),
				zap.Error(err),
			)
		}

		c.scheduleRefresh()
		m.settle(result, err)
	}, nil
}

// normalize gives untyped store failures a kind.
func normalize(err error, operation string) error {
	if err == nil || apperrors.Kind(err) != "" {
		return err
	}
	return apperrors.Wrap(err, operation, "the notes store request failed")
}
