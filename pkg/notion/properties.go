package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Notion rejects rich text segments longer than this.
const maxTextLen = 2000

// Title builds a title property.
func Title(v string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{textSegment(v)},
	}
}

// Text builds a rich text property.
func Text(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{textSegment(v)},
	}
}

// Email builds an email property.
func Email(v string) notionapi.EmailProperty {
	return notionapi.EmailProperty{
		Type:  notionapi.PropertyTypeEmail,
		Email: v,
	}
}

// Select builds a select property.
func Select(v string) notionapi.SelectProperty {
	return notionapi.SelectProperty{
		Type:   notionapi.PropertyTypeSelect,
		Select: notionapi.Option{Name: v},
	}
}

// Date builds a date property.
func Date(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &d},
	}
}

func textSegment(v string) notionapi.RichText {
	if r := []rune(v); len(r) > maxTextLen {
		v = string(r[:maxTextLen])
	}
	return notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}
}

// CreateDatabasePage adds a page with props to the database dbID and
// returns the new page ID.
func CreateDatabasePage(ctx context.Context, c Client, dbID string, props notionapi.Properties) (string, error) {
	if dbID == "" {
		return "", eris.New("notion: database id is required")
	}
	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: create page in %s", dbID)
	}
	return string(page.ID), nil
}
