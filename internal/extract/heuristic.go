package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/lead-pipeline/internal/model"
)

const maxDescriptionRunes = 500

var (
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe   = regexp.MustCompile(`(?:\+?1[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	websiteRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s,;<>"']+`)

	companyRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i:\bcompany(?:\s+name)?\s*(?:is|:|-)\s*)` + companyName),
		regexp.MustCompile(`(?i:\bwork(?:ing)?\s+(?:at|for)\s+)` + companyName),
		regexp.MustCompile(`(?i:\b(?:i'm|i am|we're|we are)\s+with\s+)` + companyName),
		regexp.MustCompile(`(?i:\b(?:i|we)\s+(?:own|run)\s+)` + companyName),
		regexp.MustCompile(`\b([A-Z][\w&'-]*(?:[ \t]+[A-Z][\w&'-]*){0,2}[ \t]+(?:Inc|LLC|Ltd|Corp|Corporation|Co)\b\.?)`),
	}

	budgetRe   = regexp.MustCompile(`(?i)(?:` + dollarAmount + `|` + suffixedAmount + `)(?:\s?(?:-|to)\s?(?:` + dollarAmount + `|` + suffixedAmount + `|` + amountNum + `))?`)
	timelineRe = regexp.MustCompile(`(?i)\b(?:timeline|timeframe|time frame|deadline|due|launch(?:ed)?|live|done|finished|completed?|ready|deliver(?:ed)?|needed|(?:want|need|get)\s+it)\b(?:\s*(?:is|of|:|-))?\s*(?:(?:by|in|within|before|around|for)\s+)?(` + timeSpan + `)`)
	urgentRe   = regexp.MustCompile(`(?i)\b(asap|as soon as possible|urgent(?:ly)?|right away)\b`)
	intentRe   = regexp.MustCompile(`(?i)\b(?:need|needs|looking for|want|wants|would like|build|rebuild|redesign|help with|interested in|planning|upgrade|migrate|set up|setup|replace)\b`)
	sentenceRe = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
)

const (
	companyName = `([A-Z][\w&.'-]*(?:[ \t]+[A-Z][\w&.'-]*){0,3})`

	// A budget needs a dollar sign or an explicit k/thousand suffix; bare
	// numbers are too often headcounts or years.
	amountNum      = `(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`
	dollarAmount   = `\$\s?` + amountNum + `(?:\s?(?:k|thousand)\b)?`
	suffixedAmount = `\b` + amountNum + `\s?(?:k|thousand)\b`

	timeUnit = `(?:days?|weeks?|months?|quarters?|years?)`
	timeSpan = `(?:(?:the\s+)?next|this|coming)\s+(?:\d+\s+)?` + timeUnit +
		`|(?:about\s+|around\s+|roughly\s+)?(?:\d+(?:\s*-\s*\d+)?|an?|one|two|three|four|six|a couple of|a few)\s*` + timeUnit +
		`|(?:the\s+)?end of (?:the\s+)?(?:week|month|quarter|year)` +
		`|q[1-4](?:\s+\d{4})?` +
		`|asap|as soon as possible|immediately|urgent(?:ly)?|right away`
)

// Heuristic extracts lead fields with regular expressions and keyword
// lookup. It needs no network and never fails.
type Heuristic struct {
	catalog *Catalog
}

// NewHeuristic creates a heuristic extractor. A nil catalog uses
// DefaultCatalog.
func NewHeuristic(catalog *Catalog) *Heuristic {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if catalog.compiled == nil {
		catalog.compile()
	}
	return &Heuristic{catalog: catalog}
}

// Extract scans the user-authored text only. Assistant turns are skipped
// so that names or services the bot mentioned are never attributed to the
// visitor. Per field, the newest user message wins.
func (h *Heuristic) Extract(_ context.Context, message string, history []model.ChatTurn) (*model.LeadInfo, error) {
	info := model.NewLeadInfo()
	info.SourceMessage = message

	msgs := model.UserMessagesNewestFirst(message, history)
	if len(msgs) == 0 {
		return info, nil
	}

	info.Email = firstMatch(msgs, func(s string) string { return emailRe.FindString(s) })
	info.Phone = firstMatch(msgs, findPhone)
	info.Website = firstMatch(msgs, findWebsite)
	info.Company = firstMatch(msgs, findCompany)
	info.BudgetRange = firstMatch(msgs, func(s string) string { return budgetRe.FindString(s) })
	info.Timeline = firstMatch(msgs, findTimeline)
	info.ProjectDescription = firstMatch(msgs, findDescription)
	info.FirstName, info.LastName = matchName(msgs)

	service, keywords := h.catalog.Detect(model.UserText(message, history))
	info.ServiceRequested = service
	info.ConversationKeywords = strings.Join(keywords, ", ")

	info.Normalize()
	return info, nil
}

func firstMatch(msgs []string, find func(string) string) string {
	for _, m := range msgs {
		if v := strings.TrimSpace(find(m)); v != "" {
			return v
		}
	}
	return ""
}

func findPhone(s string) string {
	// Strip emails first so digits inside an address are not read as a number.
	return phoneRe.FindString(emailRe.ReplaceAllString(s, " "))
}

func findWebsite(s string) string {
	return strings.TrimRight(websiteRe.FindString(s), ".)!?")
}

func findCompany(s string) string {
	for _, re := range companyRes {
		if sub := re.FindStringSubmatch(s); sub != nil {
			name := strings.TrimRight(sub[1], ".,'-")
			if name != "" && !nameStopwords[strings.ToLower(name)] {
				return name
			}
		}
	}
	return ""
}

func findTimeline(s string) string {
	if sub := timelineRe.FindStringSubmatch(s); sub != nil {
		return sub[1]
	}
	if sub := urgentRe.FindStringSubmatch(s); sub != nil {
		return sub[1]
	}
	return ""
}

// findDescription returns the first sentence of s that states what the
// visitor wants built or fixed.
func findDescription(s string) string {
	for _, sentence := range sentenceRe.Split(s, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence != "" && intentRe.MatchString(sentence) {
			return truncateRunes(sentence, maxDescriptionRunes)
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
