// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package prereq

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	_ "github.com/gitte-labs/pald/internal/sqlitedriver"
)

// maxStatusBody bounds how much of a status response is read and parsed.
const maxStatusBody = 4 << 10

// kindOrDefault treats an unset checker kind as recommended.
func kindOrDefault(k Kind) Kind {
	if k == "" {
		return KindRecommended
	}
	return k
}

// HTTPChecker probes an HTTP status endpoint with GET. A 2xx answer with
// an empty body, or a JSON body whose "status" field reads healthy,
// passes. Malformed bodies and unhealthy self-reports fail.
type HTTPChecker struct {
	CheckName string
	URL       string
	CheckKind Kind
	Client    *http.Client
}

func (c *HTTPChecker) Name() string { return c.CheckName }
func (c *HTTPChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *HTTPChecker) Check(ctx context.Context) CheckResult {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("invalid URL: %v", err),
			ResolutionSteps: []string{"correct the configured endpoint URL"}}
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return CheckResult{Status: StatusFailed, Message: "request timed out",
				ResolutionSteps: timeoutResolutionSteps}
		}
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("connection failed: %v", err),
			ResolutionSteps: []string{"verify the service is running and reachable from this host"}}
	}
	defer resp.Body.Close()

	details := map[string]any{"status_code": resp.StatusCode}
	if resp.StatusCode >= 400 {
		return CheckResult{
			Status:          StatusFailed,
			Message:         fmt.Sprintf("service returned status %d", resp.StatusCode),
			Details:         details,
			ResolutionSteps: []string{"inspect the service logs for the reported error status"},
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("failed to read response: %v", err), Details: details}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return CheckResult{Status: StatusPassed, Message: fmt.Sprintf("endpoint reachable (%d)", resp.StatusCode), Details: details}
	}

	var report struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return CheckResult{
			Status:          StatusFailed,
			Message:         fmt.Sprintf("malformed status response: %v", err),
			Details:         details,
			ResolutionSteps: []string{"verify the endpoint serves the expected status JSON"},
		}
	}
	details["reported_status"] = report.Status
	switch strings.ToLower(report.Status) {
	case "", "ok", "healthy", "up":
		return CheckResult{Status: StatusPassed, Message: fmt.Sprintf("endpoint reachable (%d)", resp.StatusCode), Details: details}
	default:
		return CheckResult{
			Status:          StatusFailed,
			Message:         fmt.Sprintf("service reports status %q", report.Status),
			Details:         details,
			ResolutionSteps: []string{"inspect the service's own health diagnostics"},
		}
	}
}

// ProviderChecker probes the embodiment provider with HEAD. Providers
// that reject HEAD with 405 still count as reachable.
type ProviderChecker struct {
	URL       string
	CheckKind Kind
	Client    *http.Client
}

func (c *ProviderChecker) Name() string { return CheckEmbodimentProvider }
func (c *ProviderChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *ProviderChecker) Check(ctx context.Context) CheckResult {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("invalid URL: %v", err),
			ResolutionSteps: []string{"correct the configured provider URL"}}
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return CheckResult{Status: StatusFailed, Message: "provider request timed out",
				ResolutionSteps: timeoutResolutionSteps}
		}
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("provider unreachable: %v", err),
			ResolutionSteps: []string{"check provider availability and credentials"}}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusMethodNotAllowed {
		return CheckResult{
			Status:  StatusPassed,
			Message: fmt.Sprintf("provider reachable (%d)", resp.StatusCode),
			Details: map[string]any{"status_code": resp.StatusCode},
		}
	}
	return CheckResult{
		Status:          StatusFailed,
		Message:         fmt.Sprintf("provider answered %d", resp.StatusCode),
		Details:         map[string]any{"status_code": resp.StatusCode},
		ResolutionSteps: []string{"check provider availability and credentials"},
	}
}

// DBChecker verifies database connectivity for the sqlite artifact store
// or an external postgres research mirror. When ExpectedTables is set,
// missing tables downgrade a reachable database to a warning so operators
// know to run migrations.
type DBChecker struct {
	Driver         string // "sqlite3" or "postgres"
	DSN            string
	ExpectedTables []string
	CheckKind      Kind
}

func (c *DBChecker) Name() string { return CheckDatabase }
func (c *DBChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("failed to open database: %v", err),
			ResolutionSteps: []string{"verify the database path and file permissions"}}
	}
	defer db.Close()

	details := map[string]any{"driver": c.Driver}
	if err := db.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusFailed, Message: pingFailure(err), Details: details,
			ResolutionSteps: []string{"verify the database path and file permissions", "restart the service"}}
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("query failed: %v", err), Details: details}
	}

	if len(c.ExpectedTables) > 0 {
		present, err := c.tableNames(ctx, db)
		if err != nil {
			return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("failed to list tables: %v", err), Details: details}
		}
		var missing []string
		for _, want := range c.ExpectedTables {
			if !present[want] {
				missing = append(missing, want)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			details["missing_tables"] = missing
			return CheckResult{
				Status:          StatusWarning,
				Message:         fmt.Sprintf("missing tables: %s (run migrations)", strings.Join(missing, ", ")),
				Details:         details,
				ResolutionSteps: []string{"run the database migrations"},
			}
		}
		details["tables"] = len(c.ExpectedTables)
	}
	return CheckResult{Status: StatusPassed, Message: "database reachable", Details: details}
}

func (c *DBChecker) tableNames(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table'"
	if c.Driver == "postgres" {
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'"
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	return present, rows.Err()
}

func pingFailure(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "database connection timed out"
	case strings.Contains(err.Error(), "authentication") || strings.Contains(err.Error(), "password"):
		return fmt.Sprintf("database authentication failed: %v", err)
	default:
		return fmt.Sprintf("database not reachable: %v", err)
	}
}

// ConsentStore answers whether one consent slug is currently granted.
type ConsentStore interface {
	HasConsent(ctx context.Context, slug string) (bool, error)
}

// StaticConsentStore is a fixed in-memory ConsentStore, mostly for the
// CLI and tests.
type StaticConsentStore map[string]bool

func (s StaticConsentStore) HasConsent(_ context.Context, slug string) (bool, error) {
	return s[slug], nil
}

// defaultConsentSlugs are the consents processing always depends on.
var defaultConsentSlugs = []string{"data_processing", "ai_interaction"}

// DefaultConsentSlugs returns the consent slugs checked when none are
// configured explicitly.
func DefaultConsentSlugs() []string {
	return append([]string(nil), defaultConsentSlugs...)
}

// ConsentChecker gates processing on participant consent. Every slug
// must be granted.
type ConsentChecker struct {
	Store     ConsentStore
	Slugs     []string // defaults to DefaultConsentSlugs
	CheckKind Kind
}

func (c *ConsentChecker) Name() string { return CheckConsent }
func (c *ConsentChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *ConsentChecker) Check(ctx context.Context) CheckResult {
	if c.Store == nil {
		return CheckResult{Status: StatusFailed, Message: "no consent store configured",
			ResolutionSteps: []string{"wire a consent store before processing participant data"}}
	}
	slugs := c.Slugs
	if len(slugs) == 0 {
		slugs = defaultConsentSlugs
	}

	var missing []string
	for _, slug := range slugs {
		granted, err := c.Store.HasConsent(ctx, slug)
		if err != nil {
			return CheckResult{Status: StatusFailed, Message: fmt.Sprintf("consent lookup failed: %v", err)}
		}
		if !granted {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Status:          StatusFailed,
			Message:         fmt.Sprintf("participant consent not granted for: %s", strings.Join(missing, ", ")),
			Details:         map[string]any{"missing": missing},
			ResolutionSteps: []string{"obtain or refresh participant consent before processing"},
		}
	}
	return CheckResult{Status: StatusPassed, Message: "consent granted", Details: map[string]any{"slugs": slugs}}
}

// ResourceSample is one reading of host capacity. A zero DiskTotalMB
// means disk usage is unknown and is not judged.
type ResourceSample struct {
	MemTotalMB     uint64
	MemAvailableMB uint64
	DiskTotalMB    uint64
	DiskFreeMB     uint64
	Load1          float64
	CPUs           int
}

// Sampler provides resource readings; tests substitute a fixed sampler.
type Sampler interface {
	Sample() (ResourceSample, error)
}

// Usage thresholds in percent. Crossing a fail threshold fails the
// check; crossing only a warn threshold degrades it to a warning.
const (
	memFailPct  = 90.0
	memWarnPct  = 80.0
	diskFailPct = 90.0
	diskWarnPct = 80.0
	cpuFailPct  = 95.0
	cpuWarnPct  = 85.0
)

// ResourceChecker verifies the host has capacity to process requests.
// Sampling failure is a warning, not a failure: a host we cannot measure
// is not known to be unhealthy.
type ResourceChecker struct {
	Sampler   Sampler
	CheckKind Kind
}

func (c *ResourceChecker) Name() string { return CheckSystemResources }
func (c *ResourceChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *ResourceChecker) Check(ctx context.Context) CheckResult {
	sampler := c.Sampler
	if sampler == nil {
		sampler = defaultSampler()
	}
	sample, err := sampler.Sample()
	if err != nil {
		return CheckResult{Status: StatusWarning, Message: fmt.Sprintf("resource sampling unavailable: %v", err)}
	}

	memUsed := usedPct(sample.MemTotalMB, sample.MemAvailableMB)
	diskUsed := usedPct(sample.DiskTotalMB, sample.DiskFreeMB)
	var cpuUsed float64
	if sample.CPUs > 0 {
		cpuUsed = sample.Load1 / float64(sample.CPUs) * 100
	}
	details := map[string]any{
		"mem_used_pct":  memUsed,
		"disk_used_pct": diskUsed,
		"cpu_used_pct":  cpuUsed,
		"cpus":          sample.CPUs,
	}

	var failed, elevated []string
	judge := func(name string, used, warn, fail float64) {
		switch {
		case used > fail:
			failed = append(failed, fmt.Sprintf("%s at %.0f%%", name, used))
		case used > warn:
			elevated = append(elevated, fmt.Sprintf("%s at %.0f%%", name, used))
		}
	}
	judge("memory", memUsed, memWarnPct, memFailPct)
	if sample.DiskTotalMB > 0 {
		judge("disk", diskUsed, diskWarnPct, diskFailPct)
	}
	if sample.CPUs > 0 {
		judge("cpu", cpuUsed, cpuWarnPct, cpuFailPct)
	}

	switch {
	case len(failed) > 0:
		return CheckResult{
			Status:          StatusFailed,
			Message:         fmt.Sprintf("insufficient resources: %s", strings.Join(failed, ", ")),
			Details:         details,
			ResolutionSteps: []string{"free memory or disk space", "reduce concurrent workers"},
		}
	case len(elevated) > 0:
		return CheckResult{
			Status:  StatusWarning,
			Message: fmt.Sprintf("elevated resource usage: %s", strings.Join(elevated, ", ")),
			Details: details,
		}
	default:
		return CheckResult{Status: StatusPassed, Message: "sufficient resources", Details: details}
	}
}

func usedPct(total, free uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-free) / float64(total) * 100
}

// SchemaSourceChecker verifies the schema file is readable; the registry
// falls back to the built-in default otherwise, so this never gates an
// operation harder than a warning by policy.
type SchemaSourceChecker struct {
	Path      string
	CheckKind Kind
}

func (c *SchemaSourceChecker) Name() string { return CheckSchemaSource }
func (c *SchemaSourceChecker) Kind() Kind   { return kindOrDefault(c.CheckKind) }

func (c *SchemaSourceChecker) Check(ctx context.Context) CheckResult {
	if c.Path == "" {
		return CheckResult{Status: StatusWarning, Message: "no schema file configured, using built-in default"}
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return CheckResult{
			Status:          StatusWarning,
			Message:         fmt.Sprintf("schema file unavailable, using built-in default: %v", err),
			ResolutionSteps: []string{"restore the schema file; the built-in default is active meanwhile"},
		}
	}
	return CheckResult{
		Status:  StatusPassed,
		Message: "schema file readable",
		Details: map[string]any{"size_bytes": info.Size(), "modified": info.ModTime().UTC()},
	}
}

// Interface guards.
var (
	_ Checker = (*HTTPChecker)(nil)
	_ Checker = (*ProviderChecker)(nil)
	_ Checker = (*DBChecker)(nil)
	_ Checker = (*ConsentChecker)(nil)
	_ Checker = (*ResourceChecker)(nil)
	_ Checker = (*SchemaSourceChecker)(nil)
)
