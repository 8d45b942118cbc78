package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/dataset"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore counts snapshot writes and can be told to fail.
type memStore struct {
	saves   int
	failErr error
}

func (m *memStore) Save(ds *models.Dataset, outPath string) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	return nil
}

// stubGenerator returns a fixed candidate or error.
type stubGenerator struct {
	candidate string
	err       error
	lastReq   models.GenerationRequest
}

func (s *stubGenerator) Generate(_ context.Context, req models.GenerationRequest) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.candidate, nil
}

func (s *stubGenerator) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{"provider": "stub", "model": "stub-1"}
}

func newTestDataset(rows ...[]string) *models.Dataset {
	schema := models.DialogSchema()
	header := []string{"dialog", "generated_conversation", schema.Annotated, schema.Flag}
	return models.NewDataset(header, rows)
}

func newTestController(t *testing.T, ds *models.Dataset, store Persister, opts Options) *Controller {
	t.Helper()
	ctrl, err := NewController(ds, models.DialogSchema(), store, "out.csv", opts, zap.NewNop())
	require.NoError(t, err)
	return ctrl
}

func TestNewControllerEmptyDataset(t *testing.T) {
	_, err := NewController(newTestDataset(), models.DialogSchema(), &memStore{}, "out.csv", Options{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestInitialPositionFirstUnannotated(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "done", "Changed"},
		[]string{"d1", "g1", "", ""},
		[]string{"d2", "g2", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{Annotator: "a"})

	view := ctrl.Current()
	assert.Equal(t, 2, view.Row) // 1-based
	assert.Equal(t, "d1", view.Context)
}

func TestInitialPositionAllAnnotatedStartsOnLastRow(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "x", "Changed"},
		[]string{"d1", "g1", "y", "No Change"},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	view := ctrl.Current()
	assert.Equal(t, 2, view.Row)
	assert.True(t, view.Completed)
}

func TestSaveUnchangedTextSetsNoChange(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "same text", "", ""},
		[]string{"d1", "g1", "", ""},
		[]string{"d2", "g2", "", ""},
	)
	store := &memStore{}
	ctrl := newTestController(t, ds, store, Options{})
	schema := models.DialogSchema()

	result, err := ctrl.Save("same text")
	require.NoError(t, err)

	assert.Equal(t, models.FlagNoChange, result.Flag)
	assert.Equal(t, models.FlagNoChange, models.ModifiedFlag(ds.Cell(0, schema.Flag)))
	assert.Equal(t, 1, result.Done)
	assert.Equal(t, 2, result.Record.Row) // moved to first remaining gap
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "Annotation saved. 1 of 3 annotated. Proceed to the next item.", result.Status)
}

func TestSaveTrimsBeforeComparing(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "same text", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	result, err := ctrl.Save("  same text \n")
	require.NoError(t, err)
	assert.Equal(t, models.FlagNoChange, result.Flag)
}

func TestSaveChangedTextSetsChanged(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "original", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	result, err := ctrl.Save("rewritten")
	require.NoError(t, err)
	assert.Equal(t, models.FlagChanged, result.Flag)
}

func TestSaveEmptyTextRejected(t *testing.T) {
	ds := newTestDataset([]string{"d0", "g0", "", ""})
	store := &memStore{}
	ctrl := newTestController(t, ds, store, Options{})

	_, err := ctrl.Save("   \n")
	assert.ErrorIs(t, err, ErrNothingToSave)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 0, ctrl.CountAnnotated())
}

func TestSaveIdempotent(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})
	schema := models.DialogSchema()

	_, err := ctrl.Save("edited")
	require.NoError(t, err)

	// Re-save the same text on the same row.
	ctrl.Retreat()
	// Retreat from row 1 lands back on row 0.
	result, err := ctrl.Save("edited")
	require.NoError(t, err)

	assert.Equal(t, models.FlagChanged, result.Flag)
	assert.Equal(t, "edited", ds.Cell(0, schema.Annotated))
	assert.Equal(t, 1, result.Done)
}

func TestResaveReevaluatesFlagButNeverUnsets(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "generated", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})
	schema := models.DialogSchema()

	_, err := ctrl.Save("different")
	require.NoError(t, err)
	assert.Equal(t, "Changed", ds.Cell(0, schema.Flag))

	ctrl.Retreat()
	result, err := ctrl.Save("generated")
	require.NoError(t, err)
	assert.Equal(t, models.FlagNoChange, result.Flag)
	assert.Equal(t, "generated", ds.Cell(0, schema.Annotated))
}

func TestCountAnnotatedGrowsWithDistinctSaves(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
		[]string{"d2", "g2", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	before := ctrl.CountAnnotated()
	_, err := ctrl.Save("a")
	require.NoError(t, err)
	_, err = ctrl.Save("b")
	require.NoError(t, err)
	assert.Equal(t, before+2, ctrl.CountAnnotated())
}

func TestCursorJumpsToEarlierGap(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
		[]string{"d2", "g2", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	// Save row 0, skip to row 2 with Next, save it too.
	_, err := ctrl.Save("edit zero")
	require.NoError(t, err)
	ctrl.Advance()
	result, err := ctrl.Save("edit two")
	require.NoError(t, err)

	// Row 1 is the lowest remaining gap, wherever the cursor was.
	assert.Equal(t, 2, result.Record.Row)
	assert.Equal(t, "d1", result.Record.Context)
}

func TestFinalSaveReportsCompletion(t *testing.T) {
	ds := newTestDataset([]string{"d0", "g0", "", ""})
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	result, err := ctrl.Save("done")
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "Annotation complete! All 1 rows have been annotated.", result.Status)
	assert.True(t, ctrl.Completed())
}

func TestNavigationClampsAtBothEnds(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	view := ctrl.Retreat()
	assert.Equal(t, 1, view.Row)
	view = ctrl.Retreat()
	assert.Equal(t, 1, view.Row)

	view = ctrl.Advance()
	assert.Equal(t, 2, view.Row)
	view = ctrl.Advance()
	assert.Equal(t, 2, view.Row)
}

func TestCurrentPrefillsEditorWithReference(t *testing.T) {
	ds := newTestDataset([]string{"d0", "generated text", "", ""})
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	view := ctrl.Current()
	assert.Equal(t, "generated text", view.Annotated)
	assert.Equal(t, "generated text", view.Reference)
}

func TestPersistenceFailureKeepsEditForRetry(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	store := &memStore{failErr: errors.New("disk full")}
	ctrl := newTestController(t, ds, store, Options{})
	schema := models.DialogSchema()

	_, err := ctrl.Save("precious edit")
	require.ErrorIs(t, err, ErrPersistence)

	// The in-memory edit survives so a retried save succeeds as-is.
	assert.Equal(t, "precious edit", ds.Cell(0, schema.Annotated))
	assert.Equal(t, 1, ctrl.Current().Row, "cursor must not advance on a failed save")

	store.failErr = nil
	result, err := ctrl.Save("precious edit")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 2, result.Record.Row)
}

func TestGenerateNotConfigured(t *testing.T) {
	ds := newTestDataset([]string{"d0", "g0", "", ""})
	ctrl := newTestController(t, ds, &memStore{}, Options{})

	_, err := ctrl.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGenerationNotConfigured)
}

func TestGenerateStoresCandidatePerRowWithoutTouchingDataset(t *testing.T) {
	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	gen := &stubGenerator{candidate: `{"conversation":[]}`}
	ctrl := newTestController(t, ds, &memStore{}, Options{Generator: gen})
	schema := models.DialogSchema()

	candidate, err := ctrl.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"conversation":[]}`, candidate)
	assert.Equal(t, "d0", gen.lastReq.Context)

	// Candidate is session state, not dataset state.
	assert.Equal(t, "", ds.Cell(0, schema.Annotated))
	assert.Equal(t, `{"conversation":[]}`, ctrl.Candidate())

	// Moving away hides it; it stays keyed to its row.
	ctrl.Advance()
	assert.Equal(t, "", ctrl.Candidate())
	ctrl.Retreat()
	assert.Equal(t, `{"conversation":[]}`, ctrl.Candidate())
}

func TestGenerateErrorLeavesStateUntouched(t *testing.T) {
	ds := newTestDataset([]string{"d0", "g0", "", ""})
	gen := &stubGenerator{err: errors.New("upstream 500")}
	ctrl := newTestController(t, ds, &memStore{}, Options{Generator: gen})

	_, err := ctrl.Generate(context.Background())
	require.Error(t, err)
	assert.Equal(t, "", ctrl.Candidate())
}

func TestResumeRoundTripThroughStore(t *testing.T) {
	dir := t.TempDir()
	schema := models.DialogSchema()
	store := dataset.NewStore(zap.NewNop())
	outPath := filepath.Join(dir, "out.csv")

	ds := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	ctrl, err := NewController(ds, schema, store, outPath, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = ctrl.Save("first edit")
	require.NoError(t, err)

	// A fresh process reloads: the output file is authoritative and carries
	// the annotation; the session resumes on the remaining gap.
	src := newTestDataset(
		[]string{"d0", "g0", "", ""},
		[]string{"d1", "g1", "", ""},
	)
	reloaded, err := store.Reconcile(src, outPath, schema)
	require.NoError(t, err)
	assert.Equal(t, "first edit", reloaded.Cell(0, schema.Annotated))
	assert.Equal(t, string(models.FlagChanged), reloaded.Cell(0, schema.Flag))

	ctrl2, err := NewController(reloaded, schema, store, outPath, Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, ctrl2.Current().Row)
	assert.Equal(t, 1, ctrl2.CountAnnotated())
}
