package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

// TableWriter persists the cleaned and imputed tables as CSV. Missing cells
// are written as empty fields.
type TableWriter struct {
	cleanedPath string
	imputedPath string
}

func NewTableWriter(cleanedPath, imputedPath string) *TableWriter {
	return &TableWriter{cleanedPath: cleanedPath, imputedPath: imputedPath}
}

// WriteCleaned writes the flattened pre-imputation snapshot: StationID,
// DataTime, then one column per schema feature.
func (w *TableWriter) WriteCleaned(_ context.Context, obs []domain.FlatObservation) error {
	header := append([]string{"StationID", "DataTime"}, domain.FeatureColumns()...)

	rows := make([][]string, 0, len(obs))
	for _, o := range obs {
		row := make([]string, 0, len(header))
		row = append(row, o.StationID, o.DataTime)
		for _, v := range o.Values {
			row = append(row, formatCell(v))
		}
		rows = append(rows, row)
	}
	return writeCSV(w.cleanedPath, header, rows)
}

// WriteImputed writes the final table with station coordinates joined after
// the feature columns.
func (w *TableWriter) WriteImputed(_ context.Context, results []domain.ResultRow) error {
	header := append([]string{"StationID", "DataTime"}, domain.FeatureColumns()...)
	header = append(header, "Longitude", "Latitude", "Altitude")

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := make([]string, 0, len(header))
		row = append(row, r.StationID, r.DataTime)
		for _, v := range r.Values {
			row = append(row, formatCell(v))
		}
		row = append(row, formatCell(r.Longitude), formatCell(r.Latitude), formatCell(r.Altitude))
		rows = append(rows, row)
	}
	return writeCSV(w.imputedPath, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func formatCell(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
