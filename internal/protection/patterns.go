package protection

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var urlPattern = regexp.MustCompile(`(?i)\bhttps?://|\bwww\.`)

type patternDetector struct {
	maxURLs        int
	maxRepeatRun   int
	capsRatio      float64
	capsMinLetters int
	minLength      int
	maxLength      int
	vocabulary     []string
}

func newPatternDetector(cfg Config) *patternDetector {
	vocab := make([]string, 0, len(cfg.SpamVocabulary))
	for _, w := range cfg.SpamVocabulary {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			vocab = append(vocab, w)
		}
	}
	return &patternDetector{
		maxURLs:        cfg.MaxURLs,
		maxRepeatRun:   cfg.MaxRepeatRun,
		capsRatio:      cfg.CapsRatio,
		capsMinLetters: cfg.CapsMinLetters,
		minLength:      cfg.MinLength,
		maxLength:      cfg.MaxLength,
		vocabulary:     vocab,
	}
}

// detect returns one finding per matched spam signature.
func (d *patternDetector) detect(message string) []finding {
	var out []finding
	add := func(reason string) {
		out = append(out, finding{layer: "pattern", reason: reason, confidence: ConfidenceLow})
	}

	trimmed := strings.TrimSpace(message)
	length := utf8.RuneCountInString(trimmed)
	switch {
	case length < d.minLength:
		add(fmt.Sprintf("message too short (%d chars)", length))
	case length > d.maxLength:
		add(fmt.Sprintf("message too long (%d chars)", length))
	}

	if n := len(urlPattern.FindAllStringIndex(message, -1)); n > d.maxURLs {
		add(fmt.Sprintf("%d urls", n))
	}

	if run := longestRun(message); run >= d.maxRepeatRun {
		add(fmt.Sprintf("repeated character run of %d", run))
	}

	if upper, letters := caseCounts(message); letters >= d.capsMinLetters &&
		float64(upper)/float64(letters) > d.capsRatio {
		add("mostly uppercase text")
	}

	lower := strings.ToLower(message)
	for _, w := range d.vocabulary {
		if strings.Contains(lower, w) {
			add(fmt.Sprintf("spam phrase %q", w))
			break
		}
	}

	return out
}

// longestRun returns the length of the longest run of one repeated
// non-space character.
func longestRun(s string) int {
	best, cur := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev && !unicode.IsSpace(r) {
			cur++
		} else {
			cur = 1
		}
		if unicode.IsSpace(r) {
			cur = 0
		}
		if cur > best {
			best = cur
		}
		prev = r
	}
	return best
}

func caseCounts(s string) (upper, letters int) {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper, letters
}
