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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gitte-labs/pald/pkg/pald"
)

var (
	processUserID    string
	processSessionID string
	processText      string
	processCaption   string
	processSync      bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one description through the full pipeline",
	Long: `Extract a light record from a description, compare it against an
optional embodiment caption, queue bias analysis and persist the
artifact. Reads the description from --description or stdin.

Examples:
  paldd process --description "A friendly female teacher in a blue dress"
  echo "An animated owl tutor" | paldd process --session study-42`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processUserID, "user", "", "user id (pseudonymised in storage)")
	processCmd.Flags().StringVar(&processSessionID, "session", "", "session id (generated when empty)")
	processCmd.Flags().StringVar(&processText, "description", "", "agent description text (stdin when empty)")
	processCmd.Flags().StringVar(&processCaption, "caption", "", "embodiment caption to diff against")
	processCmd.Flags().BoolVar(&processSync, "sync-bias", false, "run bias analysis inline instead of deferring")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	text := processText
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read description from stdin: %w", err)
		}
		text = string(data)
	}
	sessionID := processSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	comps, err := buildComponents()
	if err != nil {
		return err
	}
	defer comps.close()

	req := pald.ProcessRequest{
		UserID:            processUserID,
		SessionID:         sessionID,
		DescriptionText:   text,
		EmbodimentCaption: processCaption,
	}
	if processSync {
		noDefer := false
		req.DeferBiasScan = &noDefer
	}

	resp := comps.pipeline.Process(cmd.Context(), req)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
