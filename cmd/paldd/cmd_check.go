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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gitte-labs/pald/internal/log"
	"github.com/gitte-labs/pald/pkg/prereq"
)

var (
	checkOperation   string
	checkProviderURL string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the prerequisite validation suite",
	Long: `Validate runtime prerequisites. With --operation the suite is
restricted to the checks that gate that operation; otherwise every
registered check runs.

Known operations: ` + strings.Join(prereq.Operations(), ", ") + `.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkOperation, "operation", "", "validate for one operation only")
	checkCmd.Flags().StringVar(&checkProviderURL, "provider-url", "", "embodiment provider URL to probe")
	rootCmd.AddCommand(checkCmd)
}

func buildValidator() *prereq.Validator {
	// The CLI has no consent store; operators confirm consent handling
	// out of band.
	consents := prereq.StaticConsentStore{}
	for _, slug := range prereq.DefaultConsentSlugs() {
		consents[slug] = true
	}

	v := prereq.NewValidator(prereq.Config{Logger: log.Logger()},
		&prereq.DBChecker{
			Driver:         "sqlite3",
			DSN:            cfg.DatabasePath,
			ExpectedTables: []string{"artifacts"},
			CheckKind:      prereq.KindRequired,
		},
		&prereq.SchemaSourceChecker{Path: cfg.SchemaFilePath},
		&prereq.ResourceChecker{},
		&prereq.ConsentChecker{Store: consents, CheckKind: prereq.KindRequired},
	)
	if checkProviderURL != "" {
		v.Register(&prereq.ProviderChecker{URL: checkProviderURL, CheckKind: prereq.KindRequired})
	}
	return v
}

func runCheck(cmd *cobra.Command, args []string) error {
	v := buildValidator()

	var suite *prereq.SuiteResult
	var err error
	if checkOperation != "" {
		suite, err = v.ValidateForOperation(cmd.Context(), checkOperation, true, true)
		if err != nil {
			return err
		}
	} else {
		suite = v.RunAll(cmd.Context(), true)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tKIND\tSTATUS\tMESSAGE")
	for _, r := range suite.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Kind, r.Status, r.Message)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\nOverall: %s (%.2fs)\n",
		suite.Overall, suite.Duration.Seconds())

	if recs := prereq.Recommendations(suite); len(recs) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nRecommendations:")
		for _, rec := range recs {
			fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s: %s (est. %s)\n",
				rec.Priority, rec.CheckerName, rec.Issue, rec.EstimatedTime)
			for _, step := range rec.ResolutionSteps {
				fmt.Fprintf(cmd.OutOrStdout(), "      - %s\n", step)
			}
		}
	}

	if suite.Overall == prereq.StatusFailed {
		return fmt.Errorf("required prerequisite checks failed: %s",
			strings.Join(suite.FailedRequired(), ", "))
	}
	return nil
}
