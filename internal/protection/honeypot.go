package protection

import (
	"fmt"
	"strings"
)

// checkHoneypot flags a request whose hidden fields were filled in.
func checkHoneypot(fields []string, values map[string]string) (finding, bool) {
	for _, name := range fields {
		if strings.TrimSpace(values[name]) != "" {
			return finding{
				layer:      "honeypot",
				reason:     fmt.Sprintf("hidden field %q was filled", name),
				confidence: ConfidenceHigh,
			}, true
		}
	}
	return finding{}, false
}
