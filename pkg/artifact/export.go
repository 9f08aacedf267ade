// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
)

// Exporter renders stored artifacts into research export formats. All
// formats carry the pseudonymised, text-free artifact form.
type Exporter struct {
	store  *Store
	logger *zap.Logger
}

func NewExporter(store *Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger}
}

// ExportJSON writes the artifacts of a session (or all artifacts for an
// empty session id) as an indented JSON array.
func (e *Exporter) ExportJSON(ctx context.Context, w io.Writer, sessionID string) error {
	artifacts, err := e.store.BySession(ctx, sessionID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifacts); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	e.logger.Info("artifacts exported",
		zap.String("format", "json"), zap.Int("count", len(artifacts)))
	return nil
}

// ExportCompressed writes the JSON export through a zstd stream, for
// archival of large studies.
func (e *Exporter) ExportCompressed(ctx context.Context, w io.Writer, sessionID string) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := e.ExportJSON(ctx, zw, sessionID); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ExportXLSX writes a spreadsheet overview: one row per artifact with
// the headline analysis numbers, plus a summary sheet with similarity
// statistics across the export.
func (e *Exporter) ExportXLSX(ctx context.Context, path, sessionID string) error {
	artifacts, err := e.store.BySession(ctx, sessionID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Artifacts"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{
		"Artifact ID", "Session ID", "User Pseudonym", "Created At",
		"Filled Fields", "Similarity", "Matches", "Hallucinations", "Missing",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for row, a := range artifacts {
		values := []any{
			a.ID, a.SessionID, a.UserPseudonym,
			a.CreatedAt.Format(time.RFC3339),
			len(a.LightRecord.FieldPaths()),
		}
		if a.DiffResult != nil {
			values = append(values,
				a.DiffResult.Similarity,
				len(a.DiffResult.Matches),
				len(a.DiffResult.Hallucinations),
				len(a.DiffResult.Missing))
		} else {
			values = append(values, "", "", "", "")
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := writeSummarySheet(f, artifacts); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	e.logger.Info("artifacts exported",
		zap.String("format", "xlsx"), zap.Int("count", len(artifacts)))
	return nil
}

// writeSummarySheet adds similarity statistics over the diffed artifacts.
func writeSummarySheet(f *excelize.File, artifacts []*pald.Artifact) error {
	if _, err := f.NewSheet("Summary"); err != nil {
		return err
	}

	var (
		diffed                         int
		sum, minSim, maxSim            float64
		matches, hallucinated, missing int
	)
	for _, a := range artifacts {
		if a.DiffResult == nil {
			continue
		}
		s := a.DiffResult.Similarity
		if diffed == 0 || s < minSim {
			minSim = s
		}
		if diffed == 0 || s > maxSim {
			maxSim = s
		}
		sum += s
		diffed++
		matches += len(a.DiffResult.Matches)
		hallucinated += len(a.DiffResult.Hallucinations)
		missing += len(a.DiffResult.Missing)
	}

	rows := [][]any{
		{"Artifacts", len(artifacts)},
		{"With diff", diffed},
		{"Total matches", matches},
		{"Total hallucinations", hallucinated},
		{"Total missing", missing},
	}
	if diffed > 0 {
		rows = append(rows,
			[]any{"Mean similarity", sum / float64(diffed)},
			[]any{"Min similarity", minSim},
			[]any{"Max similarity", maxSim})
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue("Summary", cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
