// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher force-reloads the registry when the schema file changes on disk,
// supplementing the registry's mtime/TTL polling. Rapid-fire editor events
// are debounced.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	timerMu sync.Mutex
	timer   *time.Timer

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates a watcher for the registry's schema file. The watch
// is registered on the containing directory so atomic rename-in-place
// saves are observed.
func NewWatcher(registry *Registry, logger *zap.Logger) (*Watcher, error) {
	if registry.path == "" {
		return nil, fmt.Errorf("schema watch requires a schema file path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(registry.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch schema directory: %w", err)
	}

	return &Watcher{
		registry: registry,
		watcher:  fsw,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.registry.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("schema watcher error", zap.Error(err))
		}
	}
}

// scheduleReload resets the debounce timer; the reload fires once the file
// has been quiet for the debounce window.
func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.registry.mu.Lock()
		w.registry.reloadLocked()
		version := w.registry.schema.Version
		w.registry.mu.Unlock()
		w.logger.Debug("schema reloaded by watcher", zap.String("version", version))
	})
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
	<-w.doneCh
}
