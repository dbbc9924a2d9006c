package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)
var runsOfUnderscore = regexp.MustCompile(`_+`)

// SanitizeFilename reduces free-form text to a safe filename stem:
// lowercase, spaces to underscores, everything outside [a-z0-9_-]
// dropped, underscore runs collapsed.
func SanitizeFilename(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = runsOfUnderscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// baseName builds the shared artifact stem for a document group.
func baseName(category, title string, ts time.Time) string {
	stem := SanitizeFilename(title)
	if stem == "" {
		stem = "document"
	}
	return fmt.Sprintf("%s_%s_%s", SanitizeFilename(category), stem, ts.UTC().Format("20060102_150405"))
}

// uniqueBase returns base, or base_2, base_3, ... until no artifact in
// dir claims the stem. Existence is checked against the original PDF
// since all three artifacts are written together. A candidate only
// counts as taken when Stat succeeds; any stat failure ends the probe
// and lets the subsequent write surface the real error.
func uniqueBase(dir, base string) string {
	candidate := base
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, candidate+".pdf")); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}
