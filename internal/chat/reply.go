package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Reply is the assistant's answer to a visitor message. StructuredInfo is
// optional lead data the generator picked up on its own.
type Reply struct {
	Text           string
	StructuredInfo *model.LeadInfo
}

// ReplyGenerator produces the assistant reply for a message.
type ReplyGenerator interface {
	Generate(ctx context.Context, message string, history []model.ChatTurn) (*Reply, error)
}

// Company is the business the assistant speaks for.
type Company struct {
	Name    string
	Email   string
	Phone   string
	Website string
}

func (c Company) name() string {
	if strings.TrimSpace(c.Name) == "" {
		return "our team"
	}
	return c.Name
}

// FallbackReply is sent when the reply generator is unavailable. It always
// points the visitor at a human contact channel.
func FallbackReply(c Company) string {
	var contacts []string
	if c.Email != "" {
		contacts = append(contacts, "email "+c.Email)
	}
	if c.Phone != "" {
		contacts = append(contacts, "call "+c.Phone)
	}
	if c.Website != "" {
		contacts = append(contacts, "visit "+c.Website)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for reaching out to %s! Our assistant is having trouble responding right now.", c.name())
	switch len(contacts) {
	case 0:
		b.WriteString(" Please leave your email and a member of our team will follow up shortly.")
	case 1:
		fmt.Fprintf(&b, " You can %s and we'll get back to you shortly.", contacts[0])
	default:
		fmt.Fprintf(&b, " You can %s or %s and we'll get back to you shortly.",
			strings.Join(contacts[:len(contacts)-1], ", "), contacts[len(contacts)-1])
	}
	return b.String()
}
