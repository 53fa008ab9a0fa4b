package racadm

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
)

var (
	postCompleteRe = regexp.MustCompile(`(?i)server\s+status\s*:\s*out\s+of\s+post`)
	criticalSELRe  = regexp.MustCompile(`(?im)^\s*severity\s*:\s*critical\b`)
)

// cleanOutput normalizes console output returned by the controller
func cleanOutput(out string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	return strings.TrimSpace(stripansi.Strip(out))
}

// postComplete reports whether a getremoteservicesstatus response shows POST has finished
func postComplete(out string) bool {
	return postCompleteRe.MatchString(out)
}

// hasCriticalEvents reports whether a getsel dump contains a critical record
func hasCriticalEvents(sel string) bool {
	return criticalSELRe.MatchString(sel)
}
