package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Close-date offsets by timeline wording.
const (
	urgentOffset  = 7 * 24 * time.Hour
	monthOffset   = 30 * 24 * time.Hour
	quarterOffset = 90 * 24 * time.Hour
	defaultOffset = monthOffset
)

// Placeholder names used when nothing better is known.
const (
	PlaceholderFirstName = "Prospect"
	PlaceholderLastName  = "Lead"
	GenericLastName      = "User"
	DefaultDealName      = "New Lead Project"
)

var (
	budgetNumRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:(k|thousand|million|m)\b)?`)
	localSplit  = regexp.MustCompile(`[._-]+`)
)

// NormalizeBudget turns a free-text budget into a plain number string.
// "$5k" and "5 thousand" become "5000", "$10,000 - $20,000" becomes "10000"
// (the lower bound), and anything without digits becomes "0". Normalizing
// an already normalized value returns it unchanged.
func NormalizeBudget(budget string) string {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.ToLower(budget))
	sub := budgetNumRe.FindStringSubmatch(cleaned)
	if sub == nil {
		return "0"
	}
	v, err := strconv.ParseFloat(sub[1], 64)
	if err != nil {
		return "0"
	}
	switch sub[2] {
	case "k", "thousand":
		v *= 1000
	case "m", "million":
		v *= 1_000_000
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EstimateCloseDate maps a free-text timeline to a concrete date after now.
func EstimateCloseDate(timeline string, now time.Time) time.Time {
	t := strings.ToLower(timeline)
	switch {
	case strings.Contains(t, "urgent"), strings.Contains(t, "asap"),
		strings.Contains(t, "as soon as possible"), strings.Contains(t, "immediately"):
		return now.Add(urgentOffset)
	case strings.Contains(t, "month"):
		return now.Add(monthOffset)
	case strings.Contains(t, "quarter"):
		return now.Add(quarterOffset)
	default:
		return now.Add(defaultOffset)
	}
}

// DealName returns "<service> Project", or DefaultDealName when service is
// blank.
func DealName(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return DefaultDealName
	}
	return service + " Project"
}

// ContactName fills in a display name. Extracted names are kept; when both
// are missing the email local part is split on '.', '_' and '-' and title
// cased. Without an email the placeholders are used.
func ContactName(first, last, email string) (string, string) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	switch {
	case first != "" && last != "":
		return first, last
	case first != "":
		return first, GenericLastName
	case last != "":
		return PlaceholderFirstName, last
	}

	local, _, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" {
		return PlaceholderFirstName, PlaceholderLastName
	}
	local, _, _ = strings.Cut(local, "+")

	var tokens []string
	for _, tok := range localSplit.Split(local, -1) {
		if tok != "" {
			tokens = append(tokens, titleCase(tok))
		}
	}
	switch len(tokens) {
	case 0:
		return PlaceholderFirstName, PlaceholderLastName
	case 1:
		return tokens[0], GenericLastName
	default:
		return tokens[0], tokens[len(tokens)-1]
	}
}

// titleCase builds a fresh Caser per call; a Caser keeps state between
// calls and must not be shared across goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
