package insights

import (
	"fmt"
	"strconv"
	"strings"
)

// headerMarker is the frame the formatter stamps on every wrapped brief,
// and the primary signal that a text was already wrapped.
const headerMarker = "WATTWISE INSIGHTS BRIEF"

const (
	keyFindingsSection       = "## KEY FINDINGS"
	operationalStatusSection = "## OPERATIONAL STATUS"
	recommendationsSection   = "## RECOMMENDATIONS"
)

// alreadyFormatted reports whether text already carries a complete
// framed report, so wrap can pass it through untouched. The response
// rules the model is given (internal/prompt) guarantee KEY FINDINGS +
// RECOMMENDATIONS; OPERATIONAL STATUS is accepted too since a caller may
// feed this formatter pre-built operational text that predates the model
// loop entirely.
func alreadyFormatted(text string) bool {
	if strings.Contains(text, headerMarker) {
		return true
	}
	if !strings.Contains(text, keyFindingsSection) {
		return false
	}
	return strings.Contains(text, operationalStatusSection) || strings.Contains(text, recommendationsSection)
}

// wrap frames rawText with a fixed header, confidence badge, tool-count
// line, divider, the trimmed body, and a generation-time footer, unless
// rawText is already a complete framed report.
func wrap(rawText string, confidence, toolCount int, generatedAtRFC3339 string) string {
	if alreadyFormatted(rawText) {
		return rawText
	}

	var b strings.Builder
	b.WriteString("# " + headerMarker + "\n")
	b.WriteString("Confidence: " + strconv.Itoa(confidence) + "% · Tools used: " + strconv.Itoa(toolCount) + "\n")
	b.WriteString(strings.Repeat("-", 40))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(rawText))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "_Generated %s_\n", generatedAtRFC3339)
	return b.String()
}
