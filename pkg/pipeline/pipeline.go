// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package pipeline orchestrates one processing request end to end:
// extraction, embodiment comparison, bias scheduling, persistence and
// response assembly. Stages are failure-isolated; a request always
// yields a response, degraded at worst.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/pkg/artifact"
	"github.com/gitte-labs/pald/pkg/bias"
	"github.com/gitte-labs/pald/pkg/diff"
	"github.com/gitte-labs/pald/pkg/extract"
	"github.com/gitte-labs/pald/pkg/pald"
)

// Options tune per-pipeline behavior.
type Options struct {
	// DeferBiasByDefault queues bias analysis instead of running it
	// inline when a request does not say otherwise.
	DeferBiasByDefault bool
	// EnabledAnalyses restricts bias jobs to the configured analysis
	// types. Empty means the full suite.
	EnabledAnalyses []pald.AnalysisType
}

// defaultJobPriority is used when a request carries no priority option.
const defaultJobPriority = 1

// Pipeline wires the processing stages together. Store and bias manager
// are optional; a nil dependency skips its stage gracefully.
type Pipeline struct {
	extractor *extract.Extractor
	comparer  *diff.Comparer
	manager   *bias.Manager
	store     *artifact.Store
	pseudo    *artifact.Pseudonymizer
	logger    *zap.Logger
	opts      Options
}

func New(extractor *extract.Extractor, comparer *diff.Comparer, manager *bias.Manager,
	store *artifact.Store, pseudo *artifact.Pseudonymizer, logger *zap.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pseudo == nil {
		pseudo = artifact.NewPseudonymizer("", false)
	}
	return &Pipeline{
		extractor: extractor,
		comparer:  comparer,
		manager:   manager,
		store:     store,
		pseudo:    pseudo,
		logger:    logger,
		opts:      opts,
	}
}

// Process runs the full pipeline for one request.
func (p *Pipeline) Process(ctx context.Context, req pald.ProcessRequest) (resp *pald.ProcessResponse) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processing pipeline panicked", zap.Any("panic", r))
			resp = p.degradedResponse(fmt.Sprintf("processing failed: %v", r))
		}
	}()

	started := time.Now().UTC()
	artifactID := uuid.NewString()

	// Stage 1: attribute extraction over description and caption
	// together, so caption-only attributes still reach the light record.
	extracted := p.extractor.Extract(req.DescriptionText, req.EmbodimentCaption)
	light := extracted.Light

	resp = &pald.ProcessResponse{
		PALDLight:        light.Data,
		ValidationErrors: light.ErrorStrings(),
		Metadata: pald.ProcessingMetadata{
			ArtifactID:           artifactID,
			ExtractionConfidence: light.Confidence,
			CompressedPrompt:     extracted.CompressedPrompt,
			ProcessingTimestamp:  started,
		},
	}
	if resp.ValidationErrors == nil {
		resp.ValidationErrors = []string{}
	}

	// Stage 2: embodiment comparison, only when a caption exists. The
	// caption is extracted on its own so the diff compares like with
	// like.
	var diffResult *pald.DiffResult
	var embRecord pald.Record
	if req.EmbodimentCaption != "" {
		p.runStage("diff", func() {
			embRecord = p.extractor.Extract(req.EmbodimentCaption, "").Light.Data
			diffResult = p.comparer.Compare(light.Data, embRecord)
			resp.PALDDiffSummary = &diffResult.Summary
		})
	}

	// Stage 3: bias analysis, deferred to the queue by default.
	p.runStage("bias", func() {
		p.scheduleBias(req, light.Data, embRecord, resp)
	})

	// Stage 4: persistence. A storage failure degrades durability, not
	// the response.
	p.runStage("persist", func() {
		p.persist(ctx, artifactID, req, light, diffResult, resp)
	})

	return resp
}

// runStage isolates one stage; a panic inside it is logged and the
// pipeline moves on.
func (p *Pipeline) runStage(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline stage failed",
				zap.String("stage", name), zap.Any("panic", r))
		}
	}()
	fn()
}

func (p *Pipeline) scheduleBias(req pald.ProcessRequest, descRec, embRec pald.Record, resp *pald.ProcessResponse) {
	if p.manager == nil {
		return
	}

	deferScan := p.opts.DeferBiasByDefault
	if req.DeferBiasScan != nil {
		deferScan = *req.DeferBiasScan
	}
	priority := defaultJobPriority
	if v, ok := req.ProcessingOptions["priority"]; ok {
		switch n := v.(type) {
		case int:
			priority = n
		case float64:
			priority = int(n)
		}
	}

	if deferScan {
		jobID, err := p.manager.Create(req.SessionID, descRec, embRec, p.opts.EnabledAnalyses, priority)
		if err != nil {
			p.logger.Warn("failed to queue bias job",
				zap.String("session_id", req.SessionID), zap.Error(err))
			return
		}
		notice := fmt.Sprintf("bias analysis deferred; job %s is pending", jobID)
		resp.DeferNotice = &notice
		return
	}

	// Synchronous path: run inline, log the outcome, continue
	// regardless. The response shape does not change.
	jobID, err := p.manager.Create(req.SessionID, descRec, embRec, p.opts.EnabledAnalyses, priority)
	if err != nil {
		p.logger.Warn("failed to create synchronous bias job", zap.Error(err))
		return
	}
	if err := p.manager.ProcessOne(context.Background(), jobID); err != nil {
		p.logger.Warn("synchronous bias job did not run",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if results, err := p.manager.Results(jobID); err != nil {
		p.logger.Warn("synchronous bias analysis failed",
			zap.String("job_id", jobID), zap.Error(err))
	} else {
		p.logger.Info("synchronous bias analysis completed",
			zap.String("job_id", jobID), zap.Int("analyses", len(results)))
	}
}

func (p *Pipeline) persist(ctx context.Context, artifactID string, req pald.ProcessRequest,
	light *pald.LightRecord, diffResult *pald.DiffResult, resp *pald.ProcessResponse) {
	if p.store == nil {
		return
	}

	a := &pald.Artifact{
		ID:                artifactID,
		SessionID:         req.SessionID,
		UserPseudonym:     p.pseudo.Pseudonym(req.UserID),
		DescriptionText:   req.DescriptionText,
		EmbodimentCaption: req.EmbodimentCaption,
		LightRecord:       light.Data,
		DiffResult:        diffResult,
		ProcessingMetadata: map[string]any{
			"extraction_confidence": light.Confidence,
			"compressed_prompt":     resp.Metadata.CompressedPrompt,
			"filled_fields":         len(light.FilledFields),
			"missing_fields":        len(light.MissingFields),
		},
		CreatedAt:   resp.Metadata.ProcessingTimestamp,
		InputHashes: artifact.InputHashes(req.DescriptionText, req.EmbodimentCaption),
	}
	if err := p.store.Save(ctx, a); err != nil {
		p.logger.Error("failed to persist artifact",
			zap.String("artifact_id", artifactID), zap.Error(err))
	}
}

// degradedResponse is the outermost fallback: a minimal record, zero
// confidence, and an explicit validation error.
func (p *Pipeline) degradedResponse(reason string) *pald.ProcessResponse {
	rec := pald.Record{}
	rec.Set(pald.SectionGlobal, "type", "human")
	rec.Set(pald.SectionMiddle, "role", "assistant")

	return &pald.ProcessResponse{
		PALDLight:        rec,
		ValidationErrors: []string{reason},
		Metadata: pald.ProcessingMetadata{
			ExtractionConfidence: 0,
			CompressedPrompt:     "person",
			ProcessingTimestamp:  time.Now().UTC(),
			Error:                true,
		},
	}
}
