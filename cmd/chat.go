package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-pipeline/internal/chat"
	"github.com/sells-group/lead-pipeline/internal/model"
)

var (
	chatHistoryFile string
	chatClientID    string
)

// chatOutput is the chat command's JSON report. It includes the internal
// decisions the HTTP response leaves out.
type chatOutput struct {
	*chat.Response
	Stage         chat.Stage                `json:"stage"`
	FallbackUsed  bool                      `json:"fallbackUsed"`
	Verdict       model.ProtectionVerdict   `json:"verdict"`
	Qualification model.QualificationResult `json:"qualification"`
	Sync          *model.CrmSyncResult      `json:"sync,omitempty"`
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Run one chat turn through the full pipeline and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		history, err := loadHistory(chatHistoryFile)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "chat")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Pipeline.HandleChatTurn(ctx, chat.Request{
			Message:  args[0],
			History:  history,
			ClientID: chatClientID,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chatOutput{
			Response:      resp,
			Stage:         resp.Stage,
			FallbackUsed:  resp.FallbackUsed,
			Verdict:       resp.Verdict,
			Qualification: resp.Qualification,
			Sync:          resp.Sync,
		})
	},
}

// loadHistory reads a JSON array of chat turns. An empty path means no history.
func loadHistory(path string) ([]model.ChatTurn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read history file")
	}
	var history []model.ChatTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, eris.Wrapf(err, "parse history file %s", path)
	}
	return history, nil
}

func init() {
	chatCmd.Flags().StringVar(&chatHistoryFile, "history", "", "JSON file with prior conversation turns")
	chatCmd.Flags().StringVar(&chatClientID, "client-id", "cli", "client identifier used for rate limiting")
	rootCmd.AddCommand(chatCmd)
}
