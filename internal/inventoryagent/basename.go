package inventoryagent

import (
	"regexp"
	"strings"
)

var (
	dosageTokenPattern = regexp.MustCompile(`(?i)\d+\s*(mg|ml|g|mcg|iu)\b`)
	formTokenPattern   = regexp.MustCompile(`(?i)\b(tablet|capsule|syrup|injection|cream|ointment)s?\b`)
	parenPattern       = regexp.MustCompile(`\([^)]*\)`)
)

// extractBaseName strips dosage tokens ("500mg"), form tokens
// ("tablet"/"capsule"/"syrup"/"injection"/"cream"/"ointment"), and
// parenthesized qualifiers from a medicine name, per the
// substring-match step. "Paracetamol 500mg" -> "Paracetamol".
func extractBaseName(name string) string {
	out := dosageTokenPattern.ReplaceAllString(name, "")
	out = formTokenPattern.ReplaceAllString(out, "")
	out = parenPattern.ReplaceAllString(out, "")
	return strings.Join(strings.Fields(out), " ")
}
