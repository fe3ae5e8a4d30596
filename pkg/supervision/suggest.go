package supervision

import (
	"sort"

	"github.com/antzucaro/matchr"
)

// Suggestion is a displayed subject ranked by similarity to a target subject
type Suggestion struct {
	Subject    string  `json:"subject"`
	Similarity float64 `json:"similarity"`
}

// Suggest ranks the distinct row subjects by Jaro-Winkler similarity to subject,
// best first, returning at most limit entries.
func Suggest(rows []BookingRow, subject string, limit int) []Suggestion {
	target := Normalize(subject)
	seen := make(map[string]struct{}, len(rows))
	out := make([]Suggestion, 0, len(rows))

	for _, row := range rows {
		if _, dup := seen[row.Subject]; dup {
			continue
		}
		seen[row.Subject] = struct{}{}

		sim := matchr.JaroWinkler(Normalize(row.Subject), target, false)
		if sim <= 0 {
			continue
		}
		out = append(out, Suggestion{Subject: row.Subject, Similarity: sim})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
