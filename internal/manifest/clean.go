package manifest

import (
	"regexp"
	"strings"
)

// landmarkPatterns are reference phrases and unit qualifiers that confuse the
// geocoder. Each pattern is anchored at a word start so it never cuts into
// the middle of a street name.
var landmarkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpr[oó]ximo\s+(?:ao?\b|à)?\s*`),
	regexp.MustCompile(`(?i)\bao?\s+lado\s+de\b`),
	regexp.MustCompile(`(?i)\bem\s+frente\s+(?:ao?\b|à)?`),
	regexp.MustCompile(`(?i)\bponto\s+de\s+refer[êeé]ncia:?`),
	regexp.MustCompile(`(?i)\bfundos\b`),
	regexp.MustCompile(`(?i)\bbloco\s+[\p{L}\p{N}_]+`),
	regexp.MustCompile(`(?i)\bapto\.?\s*\d*`),
	regexp.MustCompile(`(?i)\bandar\s*\d*\b`),
	regexp.MustCompile(`(?i)\blote\s*\d*\b`),
	regexp.MustCompile(`(?i)\bquadra\s*\d*\b`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanAddress strips landmark phrases and unit qualifiers from a street
// address, collapses whitespace and trims surrounding separators.
func CleanAddress(addr string) string {
	out := addr
	for _, re := range landmarkPatterns {
		out = re.ReplaceAllString(out, "")
	}
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(strings.Trim(out, ",; "))
}
