// Package session owns the review cursor and the save/navigate/generate
// operations the front ends drive. The controller is the sole mutator of the
// dataset; every save rewrites the whole output snapshot through the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/metrics"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyDataset indicates there are no rows to annotate.
	ErrEmptyDataset = errors.New("dataset has no rows to annotate")

	// ErrNothingToSave rejects empty or whitespace-only annotations. An
	// empty cell is the "not yet annotated" marker, so persisting one would
	// fake progress.
	ErrNothingToSave = errors.New("nothing to save: annotation text is empty")

	// ErrPersistence wraps a failed snapshot write. The in-memory edit is
	// kept so a retried save can succeed without re-typing.
	ErrPersistence = errors.New("failed to persist annotations")

	// ErrGenerationNotConfigured is returned when no provider is wired and
	// the tool runs as a pure review UI.
	ErrGenerationNotConfigured = errors.New("generation is not configured")
)

// Persister writes a whole dataset snapshot to the output path.
type Persister interface {
	Save(ds *models.Dataset, outPath string) error
}

// Generator produces a candidate conversation for one record.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
	GetModelInfo() map[string]interface{}
}

// Controller tracks the session position and applies edits. All methods are
// safe for concurrent use; gin serves requests concurrently even though the
// annotation model is one reviewer acting one step at a time.
type Controller struct {
	mu sync.Mutex

	ds        *models.Dataset
	schema    models.Schema
	outPath   string
	store     Persister
	generator Generator
	logger    *zap.Logger

	annotator  string
	position   int
	candidates map[int]string // in-session generation results, keyed by row
	genTimeout time.Duration
}

// Options configures a Controller.
type Options struct {
	Annotator         string
	Generator         Generator // nil disables the generate action
	GenerationTimeout time.Duration
}

// NewController builds a session over a reconciled dataset. The cursor starts
// on the first unannotated row; when every row already carries an annotation
// it starts on the last row, so the reviewer lands on their most recent work.
func NewController(ds *models.Dataset, schema models.Schema, store Persister, outPath string, opts Options, logger *zap.Logger) (*Controller, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	timeout := opts.GenerationTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	c := &Controller{
		ds:         ds,
		schema:     schema,
		outPath:    outPath,
		store:      store,
		generator:  opts.Generator,
		logger:     logger,
		annotator:  opts.Annotator,
		candidates: make(map[int]string),
		genTimeout: timeout,
	}

	c.position = c.firstUnannotated()
	if c.position < 0 {
		c.position = ds.Len() - 1
		logger.Info("All rows already annotated, starting on the last row")
	}

	return c, nil
}

// Annotator returns the reviewer identifier for display.
func (c *Controller) Annotator() string { return c.annotator }

// firstUnannotated returns the lowest unannotated index, or -1 when none.
func (c *Controller) firstUnannotated() int {
	for row := 0; row < c.ds.Len(); row++ {
		if c.ds.Cell(row, c.schema.Annotated) == "" {
			return row
		}
	}
	return -1
}

// countAnnotated is an O(n) scan recomputed on demand so it always reflects
// the latest saved state.
func (c *Controller) countAnnotated() int {
	count := 0
	for row := 0; row < c.ds.Len(); row++ {
		if c.ds.Cell(row, c.schema.Annotated) != "" {
			count++
		}
	}
	return count
}

// CountAnnotated returns the number of rows with an annotation.
func (c *Controller) CountAnnotated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countAnnotated()
}

func (c *Controller) view() models.RecordView {
	row := c.position
	reference := c.ds.Cell(row, c.schema.Generated)
	annotated := c.ds.Cell(row, c.schema.Annotated)
	if annotated == "" {
		// Prefill the editor with the candidate under review.
		annotated = reference
	}
	done := c.countAnnotated()
	completed := done == c.ds.Len()

	status := fmt.Sprintf("Row %d of %d - %d annotated so far.", row+1, c.ds.Len(), done)
	if completed {
		status = fmt.Sprintf("Annotation complete! All %d rows have been annotated.", c.ds.Len())
	}

	return models.RecordView{
		Row:       row + 1,
		Total:     c.ds.Len(),
		Done:      done,
		Title:     c.ds.Cell(row, c.schema.Title),
		Context:   c.ds.Cell(row, c.schema.Context),
		Style:     c.ds.Cell(row, c.schema.Style),
		Starter:   c.ds.Cell(row, c.schema.Starter),
		Reference: reference,
		Annotated: annotated,
		Candidate: c.candidates[row],
		Flag:      c.ds.Cell(row, c.schema.Flag),
		Status:    status,
		Completed: completed,
	}
}

// Current returns the view of the row under the cursor.
func (c *Controller) Current() models.RecordView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

// Completed reports whether every row carries an annotation.
func (c *Controller) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countAnnotated() == c.ds.Len()
}

// Save writes the edited text into the current row, classifies the edit
// against the generated reference, persists the whole snapshot and advances
// the cursor to the lowest remaining unannotated row. Re-saving an annotated
// row re-evaluates the flag; it never unsets the annotation.
func (c *Controller) Save(edited string) (models.SaveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(edited) == "" {
		return models.SaveResult{}, ErrNothingToSave
	}

	row := c.position
	reference := c.ds.Cell(row, c.schema.Generated)

	flag := models.FlagChanged
	if strings.TrimSpace(edited) == strings.TrimSpace(reference) {
		flag = models.FlagNoChange
	}

	c.ds.SetCell(row, c.schema.Annotated, edited)
	c.ds.SetCell(row, c.schema.Flag, string(flag))

	if err := c.store.Save(c.ds, c.outPath); err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		c.logger.Error("Failed to persist annotations",
			zap.String("path", c.outPath),
			zap.Error(err))
		return models.SaveResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	outcome := "changed"
	if flag == models.FlagNoChange {
		outcome = "no_change"
	}
	metrics.SavesTotal.WithLabelValues(outcome).Inc()

	done := c.countAnnotated()
	total := c.ds.Len()

	c.logger.Info("Annotation saved",
		zap.Int("row", row),
		zap.String("flag", string(flag)),
		zap.Int("done", done),
		zap.Int("total", total))

	result := models.SaveResult{
		Flag:  flag,
		Done:  done,
		Total: total,
	}

	// The cursor jumps to the lowest remaining gap, which may sit before
	// the current row when earlier rows were skipped with Next.
	if next := c.firstUnannotated(); next >= 0 {
		c.position = next
		result.Status = fmt.Sprintf("Annotation saved. %d of %d annotated. Proceed to the next item.", done, total)
	} else {
		result.Status = fmt.Sprintf("Annotation complete! All %d rows have been annotated.", total)
		result.Completed = true
	}

	result.Record = c.view()
	return result, nil
}

// Advance moves the cursor forward by one, clamped at the last row. Unsaved
// edits held by the presentation layer are discarded: only Save persists.
func (c *Controller) Advance() models.RecordView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position < c.ds.Len()-1 {
		c.position++
	}
	return c.view()
}

// Retreat moves the cursor back by one, clamped at the first row.
func (c *Controller) Retreat() models.RecordView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position > 0 {
		c.position--
	}
	return c.view()
}

// Generate asks the provider for a fresh candidate for the current row. The
// result is remembered in memory per row and never written to the dataset;
// it only becomes durable through an explicit Save.
func (c *Controller) Generate(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.generator == nil {
		c.mu.Unlock()
		return "", ErrGenerationNotConfigured
	}
	row := c.position
	req := models.GenerationRequest{
		Context: c.ds.Cell(row, c.schema.Context),
		Title:   c.ds.Cell(row, c.schema.Title),
		Style:   c.ds.Cell(row, c.schema.Style),
		Starter: c.ds.Cell(row, c.schema.Starter),
	}
	generator := c.generator
	timeout := c.genTimeout
	c.mu.Unlock()

	provider := "unknown"
	if p, ok := generator.GetModelInfo()["provider"].(string); ok {
		provider = p
	}

	// Request id correlates the attempt with provider-level log lines.
	requestID := uuid.New().String()
	c.logger.Info("Generating candidate",
		zap.String("request_id", requestID),
		zap.Int("row", row),
		zap.String("provider", provider))

	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidate, err := generator.Generate(genCtx, req)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, "error").Inc()
		c.logger.Error("Generation failed",
			zap.String("request_id", requestID),
			zap.Int("row", row),
			zap.Error(err))
		return "", fmt.Errorf("generation failed: %w", err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(provider, "success").Inc()

	c.mu.Lock()
	c.candidates[row] = candidate
	c.mu.Unlock()

	c.logger.Info("Candidate generated",
		zap.String("request_id", requestID),
		zap.Int("row", row),
		zap.String("provider", provider),
		zap.Int("length", len(candidate)))

	return candidate, nil
}

// Candidate returns the in-session generation result for the current row.
func (c *Controller) Candidate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidates[c.position]
}

// Reference returns the generated cell of the current row.
func (c *Controller) Reference() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds.Cell(c.position, c.schema.Generated)
}

// Context returns the source context cell of the current row.
func (c *Controller) Context() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds.Cell(c.position, c.schema.Context)
}
