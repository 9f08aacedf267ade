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
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file
and PALD_* environment variables. Secrets are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	printable := *cfg
	if printable.PseudonymSecret != "" {
		printable.PseudonymSecret = "<redacted>"
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(map[string]any{
		"schema_file_path":          printable.SchemaFilePath,
		"schema_cache_ttl":          printable.SchemaCacheTTL,
		"enable_schema_evolution":   printable.EnableSchemaEvolution,
		"mandatory_pald_extraction": printable.MandatoryPALDExtraction,
		"pald_analysis_deferred":    printable.PALDAnalysisDeferred,
		"enable_bias_analysis":      printable.EnableBiasAnalysis,
		"enabled_analyses":          printable.EnabledAnalyses(),
		"bias_job_batch_size":       printable.BiasJobBatchSize,
		"bias_analysis_timeout":     printable.BiasAnalysisTimeout,
		"max_concurrent_bias_jobs":  printable.MaxConcurrentBiasJobs,
		"queue_processing_interval": printable.QueueProcessingInterval,
		"data_retention_days":       printable.DataRetentionDays,
		"enable_pseudonymization":   printable.EnablePseudonymization,
		"pseudonym_secret":          printable.PseudonymSecret,
		"database_path":             printable.DatabasePath,
		"bias_vocabulary_path":      printable.BiasVocabularyPath,
		"log_level":                 printable.LogLevel,
		"log_json":                  printable.LogJSON,
	})
}
