package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Export writes records to w in the given format.
func Export(w io.Writer, format string, records []*types.NewsRecord) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatJSONL:
		return writeJSONL(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportFile creates outputPath and writes records to it.
func ExportFile(outputPath, format string, records []*types.NewsRecord, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Export(f, format, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	logger.Info("export written", "path", outputPath, "format", format, "records", len(records))
	return nil
}

func writeJSON(w io.Writer, records []*types.NewsRecord) error {
	if records == nil {
		records = []*types.NewsRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func writeJSONL(w io.Writer, records []*types.NewsRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
	}
	return nil
}

// writeCSV uses the fixed column order of types.CSVHeader.
func writeCSV(w io.Writer, records []*types.NewsRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	row := make([]string, len(types.CSVHeader))
	for _, r := range records {
		flat := r.ToFlatMap()
		for i, h := range types.CSVHeader {
			row[i] = flat[h]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
