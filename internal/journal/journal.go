// Package journal keeps a best-effort audit trail of CRM sync outcomes.
package journal

import (
	"context"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/pkg/notion"
)

// Entry is one synced lead.
type Entry struct {
	RequestID string
	Name      string
	Email     string
	Service   model.ServiceCategory
	Result    model.CrmSyncResult
	At        time.Time
}

// Journal records sync outcomes.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries. It is used when no journal is configured.
type Nop struct{}

// Record implements Journal.
func (Nop) Record(context.Context, Entry) error { return nil }

// NotionJournal writes one page per entry to a Notion database with the
// properties Name, Email, Service, Outcome, Contact ID, Deal ID, Ticket ID,
// Errors, Request ID and Synced At.
type NotionJournal struct {
	client notion.Client
	dbID   string
}

// NewNotion creates a journal writing to the Notion database dbID.
func NewNotion(client notion.Client, dbID string) *NotionJournal {
	return &NotionJournal{client: client, dbID: dbID}
}

// Record implements Journal.
func (j *NotionJournal) Record(ctx context.Context, e Entry) error {
	if _, err := notion.CreateDatabasePage(ctx, j.client, j.dbID, properties(e)); err != nil {
		return eris.Wrap(err, "journal: record lead")
	}
	return nil
}

func properties(e Entry) notionapi.Properties {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = "Unknown visitor"
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	props := notionapi.Properties{
		"Name":       notion.Title(name),
		"Service":    notion.Select(e.Service.Label()),
		"Outcome":    notion.Select(string(e.Result.Outcome())),
		"Request ID": notion.Text(e.RequestID),
		"Synced At":  notion.Date(at),
	}
	if e.Email != "" {
		props["Email"] = notion.Email(e.Email)
	}
	for key, obj := range map[string]*model.CrmObject{
		"Contact ID": e.Result.Contact,
		"Deal ID":    e.Result.Deal,
		"Ticket ID":  e.Result.Ticket,
	} {
		if obj != nil {
			props[key] = notion.Text(obj.ID)
		}
	}
	if msgs := append(append([]string{}, e.Result.Errors...), e.Result.Warnings...); len(msgs) > 0 {
		props["Errors"] = notion.Text(strings.Join(msgs, "; "))
	}
	return props
}
