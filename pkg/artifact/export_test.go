// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportJSON_NoRawTexts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testArtifact("sess-1", time.Now().UTC())
	a.DescriptionText = "a secret description"
	a.EmbodimentCaption = "a secret caption"
	require.NoError(t, s.Save(ctx, a))

	var buf bytes.Buffer
	require.NoError(t, NewExporter(s, nil).ExportJSON(ctx, &buf, "sess-1"))

	assert.NotContains(t, buf.String(), "secret description")
	assert.NotContains(t, buf.String(), "secret caption")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, a.ID, decoded[0]["artifact_id"])
	assert.Contains(t, decoded[0], "pald_light")
	assert.Contains(t, decoded[0], "input_ids")
}

func TestExportCompressed_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := testArtifact("sess-1", time.Now().UTC())
	require.NoError(t, s.Save(ctx, a))

	var buf bytes.Buffer
	require.NoError(t, NewExporter(s, nil).ExportCompressed(ctx, &buf, ""))

	r, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, a.ID, decoded[0]["artifact_id"])
}

func TestExportXLSX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := testArtifact("sess-1", time.Now().UTC())
	require.NoError(t, s.Save(ctx, a))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, NewExporter(s, nil).ExportXLSX(ctx, path, ""))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Artifacts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Artifact ID", rows[0][0])
	assert.Equal(t, a.ID, rows[1][0])
	assert.Equal(t, "sess-1", rows[1][1])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, "Artifacts", summary[0][0])
	assert.Equal(t, "1", summary[0][1])
}

func TestExportJSON_EmptySession(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(s, nil).ExportJSON(context.Background(), &buf, "absent"))
	assert.Equal(t, "null\n", buf.String())
}
