package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// ImportResult summarizes a source import.
type ImportResult struct {
	Added   int
	Skipped int
}

// ImportSourcesCSV reads rows of Source_Name, URL, Category (header required,
// column order free) and adds each unknown URL as an active source.
func ImportSourcesCSV(ctx context.Context, store Store, r io.Reader) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, fmt.Errorf("read header: %w", types.ErrEmptyInput)
		}
		return res, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, okName := cols["source_name"]
	urlCol, okURL := cols["url"]
	catCol, okCat := cols["category"]
	if !okName || !okURL {
		return res, &types.ValidationError{Field: "header", Reason: "Source_Name and URL columns are required"}
	}

	existing, err := store.ListSources(ctx)
	if err != nil {
		return res, err
	}
	known := make(map[string]bool, len(existing))
	for _, src := range existing {
		known[src.URL] = true
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		url := field(row, urlCol)
		name := field(row, nameCol)
		if url == "" || name == "" || known[url] {
			res.Skipped++
			continue
		}
		src := &types.SourceDescriptor{
			Name:     name,
			URL:      url,
			Category: types.CategoryNews,
			Active:   true,
		}
		if okCat {
			src.Category = types.CoerceCategory(field(row, catCol))
		}
		created, err := store.UpsertSource(ctx, src)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		known[url] = true
		if created {
			res.Added++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
