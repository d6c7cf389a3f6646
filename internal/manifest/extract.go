package manifest

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/model"
)

// neighborhoodChars is the set of characters a neighborhood span may hold.
const neighborhoodChars = `[\p{L}\p{N}_\s.,/-]`

var (
	// columnGapSplit splits a street/neighborhood span on its last run of two
	// or more spaces, which is how layout-preserving text extraction renders
	// a column boundary.
	columnGapSplit = regexp.MustCompile(`^(.*\S)\s{2,}(\S` + neighborhoodChars + `*)$`)

	// lazySplit takes the shortest street whose remainder is a valid
	// neighborhood.
	lazySplit = regexp.MustCompile(`^(.+?)\s+(` + neighborhoodChars + `+)$`)

	postalCode = regexp.MustCompile(`\d{8}`)
)

// Extractor parses manifest lines into delivery records according to a
// Profile.
type Extractor struct {
	profile Profile
	line    *regexp.Regexp
	cities  []city
}

type city struct {
	name   string
	folded string
}

// NewExtractor compiles the record pattern for p.
func NewExtractor(p Profile) (*Extractor, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(p.Cities) == 0 {
		return nil, eris.New("manifest: profile needs at least one city")
	}

	// seq? code route-ref rest; rest is split into street+neighborhood,
	// postal code and city by locateCity.
	expr := `(?i)^(?:(\d+)\s+)?` +
		`([` + p.CodeLetters + `]\s*-\s*\d+)\s+` +
		`(` + regexp.QuoteMeta(p.RouteRefPrefix) + `[\p{L}\p{N}_]+)\s+` +
		`(\S.*)$`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, eris.Wrap(err, "manifest: compile record pattern")
	}

	cities := make([]city, 0, len(p.Cities))
	for _, c := range p.Cities {
		cities = append(cities, city{name: strings.TrimSpace(c), folded: Fold(c)})
	}
	// Longest first so "Santa Cruz Cabrália" wins over "Santa Cruz".
	sort.SliceStable(cities, func(i, j int) bool {
		return len(cities[i].folded) > len(cities[j].folded)
	})

	return &Extractor{profile: p, line: re, cities: cities}, nil
}

// Extract parses each line and returns the records in manifest order. Lines
// that do not match the full record pattern are skipped.
func (e *Extractor) Extract(lines []string) []model.DeliveryRecord {
	var records []model.DeliveryRecord
	seen := make(map[string]int)
	misses := 0

	for i, raw := range lines {
		rec, ok := e.ParseLine(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				misses++
			}
			continue
		}
		rec.Line = i + 1

		if rec.Sequence != "" {
			if prev, dup := seen[rec.Sequence]; dup {
				zap.L().Warn("manifest: duplicate sequence",
					zap.String("sequence", rec.Sequence),
					zap.Int("first_line", prev),
					zap.Int("line", rec.Line),
				)
			} else {
				seen[rec.Sequence] = rec.Line
			}
		}
		records = append(records, rec)
	}

	zap.L().Debug("manifest: extracted records",
		zap.Int("lines", len(lines)),
		zap.Int("records", len(records)),
		zap.Int("misses", misses),
	)
	return records
}

// ParseLine parses a single line. It reports false when the line is not a
// delivery record.
func (e *Extractor) ParseLine(raw string) (model.DeliveryRecord, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return model.DeliveryRecord{}, false
	}

	m := e.line.FindStringSubmatch(line)
	if m == nil {
		return model.DeliveryRecord{}, false
	}
	seq, code, routeRef, rest := m[1], m[2], m[3], m[4]

	span, postal, cityName, ok := e.locateCity(rest)
	if !ok {
		return model.DeliveryRecord{}, false
	}

	street, neighborhood, ok := splitStreet(span)
	if !ok {
		return model.DeliveryRecord{}, false
	}

	street = CleanAddress(street)
	neighborhood = strings.TrimSpace(neighborhood)

	return model.DeliveryRecord{
		Sequence:         seq,
		CategoryRaw:      strings.TrimSpace(code),
		CategoryCode:     NormalizeCode(code),
		RouteRef:         strings.TrimSpace(routeRef),
		StreetAddress:    street,
		Neighborhood:     neighborhood,
		PostalCode:       postal,
		City:             cityName,
		FormattedAddress: model.FormatAddress(street, neighborhood, cityName, postal),
	}, true
}

// locateCity finds the postal code that is followed by a known city. Postal
// code candidates are tried left to right, so an 8-digit number inside the
// street does not hide the real one.
func (e *Extractor) locateCity(rest string) (span, postal, cityName string, ok bool) {
	for _, loc := range postalCode.FindAllStringIndex(rest, -1) {
		start, end := loc[0], loc[1]
		if start == 0 || !isSpaceAt(rest, start-1) || end == len(rest) || !isSpaceAt(rest, end) {
			continue
		}
		span = strings.TrimSpace(rest[:start])
		tail := strings.TrimSpace(rest[end:])
		if span == "" || tail == "" {
			continue
		}
		if name, found := e.matchCity(tail); found {
			return span, rest[start:end], name, true
		}
	}
	return "", "", "", false
}

func isSpaceAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsSpace(r)
}

// matchCity reports the known city the tail starts with, ignoring case and
// accents. The city must end at a word boundary.
func (e *Extractor) matchCity(tail string) (string, bool) {
	folded := Fold(tail)
	for _, c := range e.cities {
		if !strings.HasPrefix(folded, c.folded) {
			continue
		}
		rest := folded[len(c.folded):]
		if rest == "" {
			return c.name, true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return c.name, true
		}
	}
	return "", false
}

func splitStreet(span string) (street, neighborhood string, ok bool) {
	if m := columnGapSplit.FindStringSubmatch(span); m != nil {
		return m[1], m[2], true
	}
	if m := lazySplit.FindStringSubmatch(span); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// Codes returns the sorted distinct normalized category codes in records.
func Codes(records []model.DeliveryRecord) []string {
	set := make(map[string]struct{})
	for _, r := range records {
		set[r.CategoryCode] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CodeCounts returns the number of records per normalized category code.
func CodeCounts(records []model.DeliveryRecord) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.CategoryCode]++
	}
	return counts
}
