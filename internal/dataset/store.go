package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrMissingFile indicates the input file does not exist.
var ErrMissingFile = errors.New("input file does not exist")

// ErrResumeMismatch indicates an existing output file whose row count does
// not match the input; resuming against it would misalign annotations.
var ErrResumeMismatch = errors.New("output file row count does not match input")

// SchemaError lists required columns absent from the loaded table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required columns missing from input: %s", strings.Join(e.Missing, ", "))
}

// Store loads, reconciles and persists annotation datasets. The output file
// is always rewritten as a whole snapshot via a temp file and rename, so a
// crash mid-write never leaves a truncated file as the only copy.
type Store struct {
	logger *zap.Logger
}

// NewStore creates a dataset store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Load reads the tabular file at path and validates it against the schema.
// CSV (optionally gzip/bzip2/xz compressed) and XLSX are supported; the
// format is chosen by the extension under any compression suffix.
func (s *Store) Load(path string, schema models.Schema) (*models.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}

	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	ds := models.NewDataset(NormalizeHeader(header), rows)

	var missing []string
	for _, col := range schema.Required {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	s.logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Header())))

	return ds, nil
}

// Reconcile merges the freshly loaded source dataset with a prior output
// file. When outPath exists it is authoritative (it already carries the
// annotations); any column present in src but absent from it is copied
// across by row position so the result has the union of both schemas. When
// outPath does not exist, the owned columns are appended empty and the file
// is written once, so a target file exists before any edit.
func (s *Store) Reconcile(src *models.Dataset, outPath string, schema models.Schema) (*models.Dataset, error) {
	if _, err := os.Stat(outPath); err == nil {
		header, rows, err := readTable(outPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing output file: %w", err)
		}
		out := models.NewDataset(NormalizeHeader(header), rows)

		if out.Len() != src.Len() {
			return nil, fmt.Errorf("%w: input has %d rows, %s has %d",
				ErrResumeMismatch, src.Len(), outPath, out.Len())
		}

		for _, col := range src.Header() {
			if out.HasColumn(col) {
				continue
			}
			out.AddColumn(col)
			for row := 0; row < src.Len(); row++ {
				out.SetCell(row, col, src.Cell(row, col))
			}
		}

		s.logger.Info("Resuming annotations from existing output file",
			zap.String("path", outPath))
		return out, nil
	}

	src.AddColumn(schema.Annotated)
	src.AddColumn(schema.Flag)

	if err := s.Save(src, outPath); err != nil {
		return nil, fmt.Errorf("failed to initialize output file: %w", err)
	}

	s.logger.Info("Output file initialized", zap.String("path", outPath))
	return src, nil
}

// Save serializes the whole dataset to outPath. The snapshot is written to
// a temp file in the same directory, fsynced, then renamed over the target.
func (s *Store) Save(ds *models.Dataset, outPath string) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if strings.EqualFold(filepath.Ext(outPath), ".xlsx") {
		if err := writeXLSX(ds, tmp); err != nil {
			return fail(fmt.Errorf("failed to write xlsx snapshot: %w", err))
		}
	} else {
		if err := writeCSV(ds, tmp); err != nil {
			return fail(fmt.Errorf("failed to write csv snapshot: %w", err))
		}
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync snapshot: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("failed to close snapshot: %w", err))
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}

// DeriveOutputPath builds <dir>/<base>_annotated_<annotator><ext> next to
// the input file. Compression suffixes are stripped first: the output is
// always written plain, whatever the input was wrapped in.
func DeriveOutputPath(inputPath, annotator string) string {
	plain := stripCompressionExt(inputPath)
	ext := filepath.Ext(plain)
	base := strings.TrimSuffix(filepath.Base(plain), ext)
	return filepath.Join(filepath.Dir(inputPath), fmt.Sprintf("%s_annotated_%s%s", base, annotator, ext))
}

func readTable(path string) ([]string, [][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) ([]string, [][]string, error) {
	rc, err := openMaybeCompressed(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no rows found in %s", path)
	}
	return records[0], records[1:], nil
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheets found in %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no rows found in %s", path)
	}
	return rows[0], rows[1:], nil
}

func writeCSV(ds *models.Dataset, f *os.File) error {
	writer := csv.NewWriter(f)
	if err := writer.Write(ds.Header()); err != nil {
		return err
	}
	for row := 0; row < ds.Len(); row++ {
		if err := writer.Write(ds.Row(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeXLSX(ds *models.Dataset, f *os.File) error {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)

	writeRow := func(rowIdx int, cells []string) error {
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		return book.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(1, ds.Header()); err != nil {
		return err
	}
	for row := 0; row < ds.Len(); row++ {
		if err := writeRow(row+2, ds.Row(row)); err != nil {
			return err
		}
	}
	return book.Write(f)
}
