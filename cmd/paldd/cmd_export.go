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

	"github.com/spf13/cobra"

	"github.com/gitte-labs/pald/internal/log"
	"github.com/gitte-labs/pald/pkg/artifact"
)

var (
	exportFormat  string
	exportOut     string
	exportSession string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored artifacts for research use",
	Long: `Export artifacts as json, zstd-compressed json (zst) or a
spreadsheet (xlsx). Exports are pseudonymised and never contain the raw
description or caption texts.

Examples:
  paldd export --format json --out study.json
  paldd export --format zst --session study-42 --out study-42.json.zst
  paldd export --format xlsx --out overview.xlsx`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json, zst, xlsx)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (stdout for json when empty)")
	exportCmd.Flags().StringVar(&exportSession, "session", "", "restrict to one session id")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := artifact.NewStore(cfg.DatabasePath, log.Logger())
	if err != nil {
		return err
	}
	defer store.Close()
	exporter := artifact.NewExporter(store, log.Logger())

	switch exportFormat {
	case "json":
		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return exporter.ExportJSON(cmd.Context(), out, exportSession)

	case "zst":
		if exportOut == "" {
			return fmt.Errorf("--out is required for zst export")
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		return exporter.ExportCompressed(cmd.Context(), f, exportSession)

	case "xlsx":
		if exportOut == "" {
			return fmt.Errorf("--out is required for xlsx export")
		}
		return exporter.ExportXLSX(cmd.Context(), exportOut, exportSession)

	default:
		return fmt.Errorf("unknown export format %q (json, zst, xlsx)", exportFormat)
	}
}
