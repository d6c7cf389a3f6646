package manifest

import (
	"github.com/sells-group/route-cli/internal/model"
)

// Selection is the operator's choice of records to route.
type Selection struct {
	Codes []string // category codes, any rendering; normalized before matching
	City  string   // optional; matched ignoring case and accents
}

// Filter returns the records whose normalized category code is selected and,
// when a city is set, whose city matches. Manifest order is preserved and the
// input slice is not modified.
func Filter(records []model.DeliveryRecord, sel Selection) []model.DeliveryRecord {
	wanted := make(map[string]struct{}, len(sel.Codes))
	for _, c := range NormalizeCodes(sel.Codes) {
		wanted[c] = struct{}{}
	}
	city := Fold(sel.City)

	out := make([]model.DeliveryRecord, 0, len(records))
	for _, r := range records {
		if _, ok := wanted[r.CategoryCode]; !ok {
			continue
		}
		if city != "" && Fold(r.City) != city {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Dedupe collapses records sharing the same street address and neighborhood,
// keeping the first occurrence in manifest order. Duplicate stops can be
// legitimate separate deliveries, so callers apply this only on request.
func Dedupe(records []model.DeliveryRecord) (kept, dropped []model.DeliveryRecord) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]model.DeliveryRecord, 0, len(records))
	for _, r := range records {
		key := r.DedupeKey()
		if _, dup := seen[key]; dup {
			dropped = append(dropped, r)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}
