package validators

import "strings"

// MaxRemarksLength bounds free-text remarks stored in history rows.
const MaxRemarksLength = 1000

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
