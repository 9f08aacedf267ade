// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package artifact persists processing outcomes and exports them for
// research use. Raw description and caption texts are stored alongside
// the derived records but excluded from exports, which carry only their
// hashes.
package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/gitte-labs/pald/internal/sqlitedriver"
	"github.com/gitte-labs/pald/pkg/pald"
)

// ErrArtifactNotFound is returned when an artifact id is unknown.
var ErrArtifactNotFound = errors.New("artifact not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS artifacts (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT NOT NULL,
	user_pseudonym     TEXT NOT NULL,
	description_text   TEXT NOT NULL DEFAULT '',
	embodiment_caption TEXT NOT NULL DEFAULT '',
	light_record       TEXT NOT NULL,
	diff_result        TEXT,
	metadata           TEXT NOT NULL,
	input_hashes       TEXT NOT NULL,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
`

// Store is the sqlite-backed artifact repository.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (and if needed creates) the artifact database. WAL mode
// keeps concurrent readers from blocking the writer.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create artifact tables: %w", err)
	}

	logger.Debug("artifact store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists an artifact, raw texts included. Exports strip them
// again via the artifact's JSON tags.
func (s *Store) Save(ctx context.Context, a *pald.Artifact) error {
	light, err := json.Marshal(a.LightRecord)
	if err != nil {
		return fmt.Errorf("failed to encode light record: %w", err)
	}
	var diffJSON any
	if a.DiffResult != nil {
		b, err := json.Marshal(a.DiffResult)
		if err != nil {
			return fmt.Errorf("failed to encode diff result: %w", err)
		}
		diffJSON = string(b)
	}
	meta, err := json.Marshal(a.ProcessingMetadata)
	if err != nil {
		return fmt.Errorf("failed to encode processing metadata: %w", err)
	}
	hashes, err := json.Marshal(a.InputHashes)
	if err != nil {
		return fmt.Errorf("failed to encode input hashes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artifacts
			(id, session_id, user_pseudonym, description_text, embodiment_caption,
			 light_record, diff_result, metadata, input_hashes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.UserPseudonym, a.DescriptionText, a.EmbodimentCaption,
		string(light), diffJSON, string(meta), string(hashes), a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", a.ID, err)
	}
	return nil
}

// Get loads one artifact by id.
func (s *Store) Get(ctx context.Context, id string) (*pald.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_pseudonym, description_text, embodiment_caption,
			light_record, diff_result, metadata, input_hashes, created_at
		FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, id)
	}
	return a, err
}

// BySession returns all artifacts of one session, oldest first. An empty
// session id returns everything.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]*pald.Artifact, error) {
	query := `
		SELECT id, session_id, user_pseudonym, description_text, embodiment_caption,
			light_record, diff_result, metadata, input_hashes, created_at
		FROM artifacts`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var out []*pald.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count reports the number of stored artifacts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`).Scan(&n)
	return n, err
}

// DeleteOlderThan removes artifacts created before the cutoff and
// returns how many were deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired artifacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired artifacts deleted", zap.Int64("count", n))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*pald.Artifact, error) {
	var (
		a         pald.Artifact
		light     string
		diffJSON  sql.NullString
		meta      string
		hashes    string
		createdAt time.Time
	)
	if err := row.Scan(&a.ID, &a.SessionID, &a.UserPseudonym,
		&a.DescriptionText, &a.EmbodimentCaption,
		&light, &diffJSON, &meta, &hashes, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(light), &a.LightRecord); err != nil {
		return nil, fmt.Errorf("failed to decode light record of %s: %w", a.ID, err)
	}
	if diffJSON.Valid {
		a.DiffResult = &pald.DiffResult{}
		if err := json.Unmarshal([]byte(diffJSON.String), a.DiffResult); err != nil {
			return nil, fmt.Errorf("failed to decode diff result of %s: %w", a.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(meta), &a.ProcessingMetadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(hashes), &a.InputHashes); err != nil {
		return nil, fmt.Errorf("failed to decode input hashes of %s: %w", a.ID, err)
	}
	a.CreatedAt = createdAt.UTC()
	return &a, nil
}
