package profile

import "github.com/hpungsan/slicerbridge/internal/ini"

// Score counts how many parsed field names appear in each type's mapping
// table.
func Score(fields *ini.Fields) map[Type]int {
	scores := make(map[Type]int, len(mappingTables))
	for _, t := range mappingTables {
		n := 0
		for key := range fields.All() {
			if _, ok := t.Fields[key]; ok {
				n++
			}
		}
		scores[t.Type] = n
	}
	return scores
}

// Classify returns the type whose table shares the most field names with
// fields. Ties go to the type declared first; no overlap at all yields
// TypeUnknown.
func Classify(fields *ini.Fields) Type {
	if fields == nil {
		return TypeUnknown
	}
	scores := Score(fields)
	best, bestScore := TypeUnknown, 0
	for _, t := range mappingTables {
		if s := scores[t.Type]; s > bestScore {
			best, bestScore = t.Type, s
		}
	}
	return best
}
