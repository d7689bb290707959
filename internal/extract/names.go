package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nameMatcher finds a visitor's name in a single user message.
type nameMatcher struct {
	name string
	re   *regexp.Regexp
	// rejects, when set, vetoes a match based on the word just before it.
	rejects func(prevWord string) bool
}

// Name tokens. Case-sensitive matchers require a leading capital so that
// phrases like "I'm looking for" are not read as names.
const (
	anyToken = `([A-Za-z][A-Za-z'-]+)`
	capToken = `([A-Z][a-z'-]+)`
)

// nameMatchers are tried in order; the first that yields a usable first
// name wins.
var nameMatchers = []nameMatcher{
	{"my_name_is", regexp.MustCompile(`(?i:\bmy name is)\s+` + anyToken + `(?:[ \t]+` + anyToken + `)?`), nil},
	{"name_field", regexp.MustCompile(`(?i:\bname)\s*[:=-]\s*` + anyToken + `(?:[ \t]+` + anyToken + `)?`), isNonPersonQualifier},
	{"this_is", regexp.MustCompile(`(?i:\b(?:this is|it's|it is))\s+` + capToken + `(?:[ \t]+` + capToken + `)?`), nil},
	{"i_am", regexp.MustCompile(`(?i:\b(?:i'm|i am|im))\s+` + capToken + `(?:[ \t]+` + capToken + `)?`), nil},
	{"call_me", regexp.MustCompile(`(?i:\b(?:call me|you can call me))\s+` + anyToken), nil},
	{"sign_off", regexp.MustCompile(`(?m)(?i:\b(?:thanks|thank you|regards|best|cheers|sincerely))[,.!]?\s*-?\s*` + capToken + `(?:[ \t]+` + capToken + `)?\s*$`), nil},
}

// nameStopwords are tokens a matcher may capture that are never names.
var nameStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"from": true, "with": true, "at": true, "in": true, "on": true, "for": true,
	"of": true, "to": true, "by": true, "here": true, "just": true, "not": true,
	"looking": true, "interested": true, "trying": true, "writing": true,
	"calling": true, "reaching": true, "wondering": true, "hoping": true,
	"planning": true, "good": true, "fine": true, "ok": true, "okay": true,
	"sure": true, "also": true, "very": true, "really": true, "so": true,
	"i": true, "im": true, "me": true, "my": true, "we": true, "our": true,
	"is": true, "was": true, "are": true, "it": true, "this": true, "that": true,
	"new": true, "glad": true, "happy": true, "sorry": true, "again": true,
	"hi": true, "hello": true, "hey": true, "there": true, "everyone": true,
	"team": true, "you": true, "your": true, "all": true, "regards": true,
	"urgent": true, "important": true, "regarding": true, "about": true,
	"based": true, "located": true, "currently": true, "still": true,
	"excited": true, "thrilled": true, "eager": true, "keen": true,
	"ready": true, "available": true, "curious": true, "unsure": true,
	"thinking": true, "working": true, "building": true, "running": true,
	"starting": true, "launching": true, "opening": true, "moving": true,
	"going": true, "getting": true, "having": true, "doing": true,
	"using": true, "needing": true, "considering": true, "searching": true,
	"stuck": true, "frustrated": true, "confused": true, "busy": true,
	"able": true, "willing": true, "aware": true, "afraid": true,
	"actually": true, "definitely": true, "pretty": true, "quite": true,
	"back": true, "done": true, "owner": true, "founder": true, "part": true,
}

// nonPersonQualifiers are words that turn "name:" into some other name,
// as in "Company name: Acme".
var nonPersonQualifiers = map[string]bool{
	"company": true, "business": true, "user": true, "domain": true,
	"site": true, "website": true, "project": true, "brand": true,
	"product": true, "org": true, "organization": true, "organisation": true,
	"file": true, "account": true, "store": true, "shop": true, "app": true,
	"team": true, "event": true, "venue": true, "host": true, "server": true,
	"display": true, "screen": true, "last": true, "family": true, "pet": true,
}

var prevWordRe = regexp.MustCompile(`([A-Za-z]+)[^A-Za-z]*$`)

func isNonPersonQualifier(prevWord string) bool {
	return nonPersonQualifiers[strings.ToLower(prevWord)]
}

// matchName runs the matcher list over each message in order and returns
// the first usable first/last name pair.
func matchName(messages []string) (first, last string) {
	for _, m := range nameMatchers {
		for _, msg := range messages {
			if f, l, ok := m.match(msg); ok {
				return f, l
			}
		}
	}
	return "", ""
}

func (m nameMatcher) match(msg string) (first, last string, ok bool) {
	for _, loc := range m.re.FindAllStringSubmatchIndex(msg, -1) {
		if m.rejects != nil && m.rejects(previousWord(msg[:loc[0]])) {
			continue
		}
		first = cleanNameToken(group(msg, loc, 1))
		if first == "" {
			continue
		}
		return first, cleanNameToken(group(msg, loc, 2)), true
	}
	return "", "", false
}

// group returns submatch i from a FindAllStringSubmatchIndex entry, or ""
// when the group did not participate.
func group(msg string, loc []int, i int) string {
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return ""
	}
	return msg[loc[2*i]:loc[2*i+1]]
}

// previousWord returns the last word of s, ignoring trailing spaces and
// punctuation.
func previousWord(s string) string {
	sub := prevWordRe.FindStringSubmatch(s)
	if sub == nil {
		return ""
	}
	return sub[1]
}

func cleanNameToken(tok string) string {
	tok = strings.Trim(tok, "'-")
	if len(tok) < 2 || nameStopwords[strings.ToLower(tok)] {
		return ""
	}
	return titleCase(tok)
}

// titleCase builds a fresh Caser per call; a Caser keeps state between
// calls and must not be shared across goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
