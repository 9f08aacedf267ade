// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitte-labs/pald/internal/log"
	"github.com/gitte-labs/pald/pkg/bias"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the deferred bias-analysis queue worker",
	Long: `Start the background runner that drains pending bias jobs on the
configured interval and evicts finished jobs past their retention
window. Runs until interrupted.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if !cfg.EnableBiasAnalysis {
		return fmt.Errorf("bias analysis is disabled in the configuration")
	}

	comps, err := buildComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	runner, err := bias.NewRunner(bias.RunnerConfig{
		Manager:         comps.manager,
		Logger:          log.Logger(),
		ProcessInterval: cfg.QueueInterval(),
		BatchSize:       cfg.BiasJobBatchSize,
		Concurrency:     cfg.MaxConcurrentBiasJobs,
		Retention:       cfg.RetentionDuration(),
	})
	if err != nil {
		return err
	}

	runner.Start()
	log.Info("worker running, press Ctrl+C to stop",
		zap.Duration("interval", cfg.QueueInterval()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}

	runner.Stop()
	return nil
}
