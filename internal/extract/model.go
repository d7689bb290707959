package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/pkg/anthropic"
)

// recordToolName is the function the model is forced to call.
const recordToolName = "record_lead_info"

const extractSystemPrompt = `You extract sales lead details from a website chat transcript.
Only record what the VISITOR said about themselves. Never attribute names, companies or
services mentioned by the ASSISTANT to the visitor. Leave unknown fields empty.
Use "general-inquiry" for service_requested when no specific service is discussed.
Call the record_lead_info tool exactly once.`

// ModelConfig configures the model-assisted extractor.
type ModelConfig struct {
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// ModelExtractor asks the language model to fill the record_lead_info tool
// schema from the transcript.
type ModelExtractor struct {
	client anthropic.Client
	cfg    ModelConfig
}

// NewModel creates a model-assisted extractor.
func NewModel(client anthropic.Client, cfg ModelConfig) *ModelExtractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ModelExtractor{client: client, cfg: cfg}
}

// toolRecord mirrors the record_lead_info input schema.
type toolRecord struct {
	Email                string `json:"email"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Phone                string `json:"phone"`
	Company              string `json:"company"`
	Website              string `json:"website"`
	ServiceRequested     string `json:"service_requested"`
	BudgetRange          string `json:"budget_range"`
	Timeline             string `json:"timeline"`
	ProjectDescription   string `json:"project_description"`
	ConversationKeywords string `json:"conversation_keywords"`
}

func recordTool() anthropic.Tool {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	services := make([]string, len(model.ServiceCategories))
	for i, c := range model.ServiceCategories {
		services[i] = string(c)
	}
	return anthropic.Tool{
		Name:        recordToolName,
		Description: "Record the lead details the visitor has shared so far.",
		Properties: map[string]any{
			"email":      str("Visitor email address"),
			"first_name": str("Visitor first name"),
			"last_name":  str("Visitor last name"),
			"phone":      str("Visitor phone number"),
			"company":    str("Visitor company or organization"),
			"website":    str("Visitor's existing website URL"),
			"service_requested": map[string]any{
				"type":        "string",
				"enum":        services,
				"description": "Service the visitor is interested in",
			},
			"budget_range":          str("Budget exactly as stated, e.g. $5k or $10,000-$20,000"),
			"timeline":              str("Timeline exactly as stated, e.g. 1 month or ASAP"),
			"project_description":   str("One sentence summary of what the visitor wants"),
			"conversation_keywords": str("Comma separated topic tags"),
		},
		Required: []string{"service_requested"},
	}
}

// Extract calls the model with a forced tool choice. On any failure it
// returns an empty record together with the error.
func (m *ModelExtractor) Extract(ctx context.Context, message string, history []model.ChatTurn) (*model.LeadInfo, error) {
	empty := model.NewLeadInfo()
	empty.SourceMessage = message

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	temp := 0.0
	resp, err := m.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: extractSystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: transcript(message, history)}},
		Temperature: &temp,
		Tools:       []anthropic.Tool{recordTool()},
		ToolChoice:  recordToolName,
	})
	if err != nil {
		return empty, eris.Wrap(err, "extract: model call")
	}
	resp.Usage.LogCost(m.cfg.Model, "extract")

	input, ok := resp.ToolInput(recordToolName)
	if !ok {
		return empty, eris.Errorf("extract: response has no %s call", recordToolName)
	}

	var rec toolRecord
	if err := json.Unmarshal(input, &rec); err != nil {
		return empty, eris.Wrap(err, "extract: decode tool input")
	}

	info := &model.LeadInfo{
		Email:                rec.Email,
		FirstName:            rec.FirstName,
		LastName:             rec.LastName,
		Phone:                rec.Phone,
		Company:              rec.Company,
		Website:              rec.Website,
		ServiceRequested:     model.ServiceCategory(rec.ServiceRequested),
		BudgetRange:          rec.BudgetRange,
		Timeline:             rec.Timeline,
		ProjectDescription:   rec.ProjectDescription,
		ConversationKeywords: rec.ConversationKeywords,
		SourceMessage:        message,
	}
	info.Normalize()
	return info, nil
}

// transcript renders the conversation as labelled lines, oldest first.
func transcript(message string, history []model.ChatTurn) string {
	var b strings.Builder
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if t.Role == model.RoleAssistant {
			b.WriteString("ASSISTANT: ")
		} else {
			b.WriteString("VISITOR: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString("VISITOR: ")
	b.WriteString(message)
	return b.String()
}
