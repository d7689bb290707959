package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/pkg/anthropic"
)

// ReplierConfig configures the Anthropic-backed reply generator.
type ReplierConfig struct {
	Model     string
	MaxTokens int64
	// AttemptTimeout bounds each API call; retries get a fresh budget.
	AttemptTimeout time.Duration
	// MaxHistory caps how many prior turns are sent to the model.
	MaxHistory int
	Retry      resilience.RetryConfig
	Breaker    resilience.BreakerConfig
}

// AnthropicReplier generates replies with the Anthropic Messages API.
// Transient failures (network errors, 408/429/5xx) are retried with
// backoff and counted by a circuit breaker; other API errors fail at once.
type AnthropicReplier struct {
	client  anthropic.Client
	cfg     ReplierConfig
	system  []anthropic.SystemBlock
	breaker *resilience.CircuitBreaker
}

// NewAnthropicReplier creates a reply generator speaking for company.
func NewAnthropicReplier(client anthropic.Client, company Company, cfg ReplierConfig) *AnthropicReplier {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 8 * time.Second
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 20
	}

	transient := resilience.HTTPRetryPolicy(anthropic.StatusCode)
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = transient
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "reply")
	}
	if cfg.Breaker.Counts == nil {
		cfg.Breaker.Counts = func(err error) bool { return err != nil && transient(err) }
	}

	return &AnthropicReplier{
		client:  client,
		cfg:     cfg,
		system:  anthropic.BuildCachedSystemBlocks(systemPrompt(company)),
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (r *AnthropicReplier) Breaker() *resilience.CircuitBreaker {
	return r.breaker
}

// Generate implements ReplyGenerator.
func (r *AnthropicReplier) Generate(ctx context.Context, message string, history []model.ChatTurn) (*Reply, error) {
	req := anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		System:    r.system,
		Messages:  conversation(message, history, r.cfg.MaxHistory),
	}

	resp, err := resilience.DoVal(ctx, r.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
			defer cancel()
			return r.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "chat: generate reply")
	}
	resp.Usage.LogCost(r.cfg.Model, "reply")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, eris.New("chat: model returned an empty reply")
	}
	return &Reply{Text: text}, nil
}

// conversation converts the last limit turns of history plus message into
// API messages. Leading assistant turns are dropped so the conversation
// opens with the visitor, and blank turns are skipped.
func conversation(message string, history []model.ChatTurn, limit int) []anthropic.Message {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	msgs := make([]anthropic.Message, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if len(msgs) == 0 && t.Role != model.RoleUser {
			continue
		}
		msgs = append(msgs, anthropic.Message{Role: string(t.Role), Content: t.Content})
	}
	return append(msgs, anthropic.Message{Role: string(model.RoleUser), Content: message})
}

func systemPrompt(c Company) string {
	services := make([]string, 0, len(model.ServiceCategories))
	for _, s := range model.ServiceCategories {
		if !s.IsDefault() {
			services = append(services, s.Label())
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the website chat assistant for %s.\n", c.name())
	fmt.Fprintf(&b, "We offer: %s.\n", strings.Join(services, ", "))
	b.WriteString("Answer briefly and warmly in two to four sentences. Ask one question at a time.\n")
	b.WriteString("When a visitor describes a project, ask for their name and email so the team can follow up,\n")
	b.WriteString("and ask about budget and timeline if they have not mentioned them.\n")
	b.WriteString("Never quote prices or promise delivery dates.\n")
	if c.Email != "" || c.Phone != "" {
		fmt.Fprintf(&b, "Visitors who prefer a human can reach us at %s.\n",
			strings.Trim(strings.Join([]string{c.Email, c.Phone}, " / "), " /"))
	}
	return b.String()
}
