// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/pald"
)

// metaSchemaJSON validates the structural shape of a loaded schema file:
// sections are objects of field descriptors, descriptors recognise type,
// enum, minimum, maximum, and nested properties.
const metaSchemaJSON = `{
  "type": "object",
  "definitions": {
    "descriptor": {
      "type": "object",
      "properties": {
        "type": {
          "anyOf": [
            {"type": "string"},
            {"type": "array", "items": {"type": "string"}}
          ]
        },
        "enum": {"type": "array"},
        "minimum": {"type": "number"},
        "maximum": {"type": "number"},
        "properties": {
          "type": "object",
          "additionalProperties": {"$ref": "#/definitions/descriptor"}
        }
      }
    },
    "section": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/descriptor"}
    }
  },
  "properties": {
    "global_design_level": {"$ref": "#/definitions/section"},
    "middle_design_level": {"$ref": "#/definitions/section"},
    "detailed_level": {"$ref": "#/definitions/section"}
  }
}`

// maxFieldCandidates bounds the schema-evolution candidate queue.
const maxFieldCandidates = 256

// FieldCandidate records an unknown field observed during record
// validation while schema evolution is enabled.
type FieldCandidate struct {
	Path      string
	ValueType string
	FirstSeen time.Time
	Count     int
}

// Config configures a schema registry.
type Config struct {
	Path            string        // schema file path; empty means default schema only
	CacheTTL        time.Duration // max cache age before a reload check (default 5m)
	EnableEvolution bool          // queue unknown fields as candidates
	Logger          *zap.Logger
}

// Registry is the process-wide schema source. Reads are concurrent;
// reloads are serialized. Load never returns an error: parse failures fall
// back to the built-in default schema and are retrievable via LastError.
type Registry struct {
	mu       sync.RWMutex
	path     string
	ttl      time.Duration
	logger   *zap.Logger
	evolve   bool
	metaDoc  gojsonschema.JSONLoader
	schema   *Schema
	loadedAt time.Time
	lastMod  time.Time
	degraded bool
	lastErr  error

	candMu     sync.Mutex
	candidates map[string]*FieldCandidate
}

// NewRegistry creates a registry. The schema is loaded lazily on first
// Load call.
func NewRegistry(cfg Config) *Registry {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		path:       cfg.Path,
		ttl:        cfg.CacheTTL,
		logger:     cfg.Logger,
		evolve:     cfg.EnableEvolution,
		metaDoc:    gojsonschema.NewStringLoader(metaSchemaJSON),
		candidates: make(map[string]*FieldCandidate),
	}
}

// Load returns the current schema, reloading from disk when the cache is
// stale, the file changed, or a previous load degraded to the default.
func (r *Registry) Load() *Schema {
	r.mu.RLock()
	if r.schema != nil && !r.staleLocked() {
		s := r.schema
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil && !r.staleLocked() {
		return r.schema
	}
	r.reloadLocked()
	return r.schema
}

// staleLocked reports whether the cached schema needs a reload check.
// Callers hold at least the read lock.
func (r *Registry) staleLocked() bool {
	if r.degraded {
		return true
	}
	if time.Since(r.loadedAt) > r.ttl {
		return true
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return false // keep serving the cache; reload is attempted on TTL expiry
	}
	return info.ModTime().After(r.lastMod)
}

// reloadLocked reads and parses the schema file, degrading to the default
// schema on any failure. Callers hold the write lock.
func (r *Registry) reloadLocked() {
	r.loadedAt = time.Now()

	if r.path == "" {
		r.schema = DefaultSchema()
		r.degraded = false
		r.lastErr = nil
		return
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.degradeLocked(fmt.Errorf("schema file unreadable: %w", err))
		return
	}

	if err := r.metaValidate(data); err != nil {
		r.degradeLocked(err)
		return
	}

	s, err := Parse(data)
	if err != nil {
		r.degradeLocked(err)
		return
	}

	if info, err := os.Stat(r.path); err == nil {
		r.lastMod = info.ModTime()
	}
	changed := r.schema == nil || r.schema.Version != s.Version
	r.schema = s
	r.degraded = false
	r.lastErr = nil
	if changed {
		r.logger.Info("schema loaded",
			zap.String("path", r.path),
			zap.String("version", s.Version),
			zap.Int("fields", s.FieldCount()))
	}
}

func (r *Registry) degradeLocked(err error) {
	r.lastErr = err
	r.degraded = true
	if r.schema == nil || r.schema.Version != DefaultSchema().Version {
		r.schema = DefaultSchema()
	}
	r.logger.Warn("schema load failed, using built-in default",
		zap.String("path", r.path),
		zap.Error(err))
}

// metaValidate checks the raw document against the embedded meta-schema.
func (r *Registry) metaValidate(data []byte) error {
	result, err := gojsonschema.Validate(r.metaDoc, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema meta-validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema document malformed: %v", msgs)
	}
	return nil
}

// CurrentVersion returns the content-hash version of the active schema.
func (r *Registry) CurrentVersion() string {
	return r.Load().Version
}

// DetectChanges reports whether the next Load would re-read the source.
func (r *Registry) DetectChanges() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.schema == nil {
		return true
	}
	return r.staleLocked()
}

// SetTTL adjusts the cache TTL.
func (r *Registry) SetTTL(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.ttl = d
	}
}

// LastError returns the most recent load error, nil when the active schema
// came from the configured file.
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// ValidateRecord validates a record against the active schema and, when
// schema evolution is enabled, queues unknown fields as candidates.
func (r *Registry) ValidateRecord(rec pald.Record) []pald.ValidationIssue {
	issues := r.Load().ValidateRecord(rec)
	if r.evolve {
		for _, iss := range issues {
			if iss.Severity == pald.SeverityWarning && iss.Message == "field not defined in schema" {
				value, _ := rec.Value(iss.Path)
				r.recordCandidate(iss.Path, value)
			}
		}
	}
	return issues
}

func (r *Registry) recordCandidate(path string, value any) {
	r.candMu.Lock()
	defer r.candMu.Unlock()
	if c, ok := r.candidates[path]; ok {
		c.Count++
		return
	}
	if len(r.candidates) >= maxFieldCandidates {
		return
	}
	r.candidates[path] = &FieldCandidate{
		Path:      path,
		ValueType: fmt.Sprintf("%T", value),
		FirstSeen: time.Now(),
		Count:     1,
	}
}

// FieldCandidates returns the queued schema-evolution candidates sorted by
// path.
func (r *Registry) FieldCandidates() []FieldCandidate {
	r.candMu.Lock()
	defer r.candMu.Unlock()
	out := make([]FieldCandidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
