package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// maxNormalizedInput caps how much error text contributes to a signature.
// Long logs usually differ only in their tails (timings, summaries).
const maxNormalizedInput = 2000

// SignaturePrefix marks engine signatures.
const SignaturePrefix = "err_"

// Replacement order matters: timestamps before line numbers (a time has
// colons), paths before line suffixes (so "/a/b.ts:12:5" collapses whole).
var volatile = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?`), "<ts>"},
	{regexp.MustCompile(`file://\S+`), "<path>"},
	{regexp.MustCompile(`\b[A-Za-z]:\\[^\s:'"()]+`), "<path>"},
	{regexp.MustCompile(`(^|[\s'"(=\[])(/[^\s/:'"()]+){2,}/?`), "$1<path>"},
	{regexp.MustCompile(`:\d+(:\d+)?\b`), ":<n>"},
	{regexp.MustCompile(`\(\d+,\s*\d+\)`), "(<n>)"},
	{regexp.MustCompile(`(?i)\bline \d+(, column \d+)?`), "line <n>"},
	{regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`), "<addr>"},
	{regexp.MustCompile(`\b\d+(\.\d+)?\s?(ms|s)\b`), "<dur>"},
	{regexp.MustCompile(`\s+`), " "},
}

// Normalize strips content that varies between otherwise identical failures:
// timestamps, absolute paths, line/column numbers, memory addresses and
// durations. Everything else is kept verbatim.
func Normalize(text string) string {
	if len(text) > maxNormalizedInput {
		text = text[:maxNormalizedInput]
	}
	for _, v := range volatile {
		text = v.pattern.ReplaceAllString(text, v.replace)
	}
	return strings.TrimSpace(text)
}

// Signature derives a stable identifier from error text and the failing tool.
func Signature(text, tool string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(tool))))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(text)))
	return SignaturePrefix + hex.EncodeToString(h.Sum(nil))[:16]
}
