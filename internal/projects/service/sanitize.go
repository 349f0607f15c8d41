package service

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```$")
)

// SanitizeCode strips a surrounding markdown code fence (with an optional
// language tag) from model output and trims whitespace.
func SanitizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	code = leadingFence.ReplaceAllString(code, "")
	code = trailingFence.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}
