package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/qualify"
	"github.com/sells-group/lead-pipeline/internal/transform"
)

var dryRunHistoryFile string

// dryRunOutput shows what the pipeline would send to the CRM.
type dryRunOutput struct {
	Info          *model.LeadInfo           `json:"info"`
	Qualification model.QualificationResult `json:"qualification"`
	Payloads      *transform.Payloads       `json:"payloads,omitempty"`
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run <message>",
	Short: "Extract and qualify a message offline and print the CRM payloads it would produce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("dry-run"); err != nil {
			return err
		}

		history, err := loadHistory(dryRunHistoryFile)
		if err != nil {
			return err
		}

		catalog, err := initCatalog()
		if err != nil {
			return err
		}

		tr := transform.New(
			transform.WithAssignedTeam(cfg.Salesforce.AssignedTeam),
			transform.WithLeadSource(cfg.Salesforce.LeadSource),
		)
		return dryRun(cmd.Context(), extract.NewHeuristic(catalog), tr, args[0], history, cmd.OutOrStdout())
	},
}

func dryRun(ctx context.Context, ex extract.Extractor, tr *transform.Transformer, message string, history []model.ChatTurn, w io.Writer) error {
	info, err := ex.Extract(ctx, message, history)
	if err != nil {
		return err
	}

	out := dryRunOutput{
		Info:          info,
		Qualification: qualify.ShouldCreateLead(info),
	}
	if out.Qualification.Qualified {
		p := tr.Transform(info, message)
		out.Payloads = &p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	dryRunCmd.Flags().StringVar(&dryRunHistoryFile, "history", "", "JSON file with prior conversation turns")
	rootCmd.AddCommand(dryRunCmd)
}
