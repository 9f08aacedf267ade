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

	"github.com/spf13/cobra"

	"github.com/gitte-labs/pald/internal/log"
	"github.com/gitte-labs/pald/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the active attribute schema",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	registry := schema.NewRegistry(schema.Config{
		Path:            cfg.SchemaFilePath,
		CacheTTL:        cfg.SchemaCacheDuration(),
		EnableEvolution: cfg.EnableSchemaEvolution,
		Logger:          log.Logger(),
	})

	s := registry.Load()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Version:  %s\n", s.Version)
	fmt.Fprintf(out, "Fields:   %d\n", s.FieldCount())
	if cfg.SchemaFilePath == "" {
		fmt.Fprintln(out, "Source:   built-in default")
	} else {
		fmt.Fprintf(out, "Source:   %s\n", cfg.SchemaFilePath)
		if err := registry.LastError(); err != nil {
			fmt.Fprintf(out, "Degraded: %v (using built-in default)\n", err)
		}
	}

	fmt.Fprintln(out, "\nField paths:")
	for _, p := range s.FieldPaths() {
		fmt.Fprintf(out, "  %s\n", p)
	}

	if candidates := registry.FieldCandidates(); len(candidates) > 0 {
		fmt.Fprintln(out, "\nEvolution candidates:")
		for _, c := range candidates {
			fmt.Fprintf(out, "  %s (%s, seen %d times)\n", c.Path, c.ValueType, c.Count)
		}
	}
	return nil
}
