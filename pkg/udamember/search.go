package udamember

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

type Match struct {
	Member      Member  `json:"member"`
	Correlation float64 `json:"correlation"`
}

// Search ranks members by Jaro-Winkler similarity of their full name to
// query, most similar first. Members below minCorrelation are left out.
// Ties keep roster order.
func Search(members []Member, query string, minCorrelation float64) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var result []Match
	for _, m := range members {
		name := strings.ToLower(m.FullName())
		similarity := 1.0
		if name != query {
			similarity = matchr.JaroWinkler(query, name, false)
		}
		if similarity < minCorrelation {
			continue
		}
		result = append(result, Match{Member: m, Correlation: similarity})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Correlation > result[j].Correlation
	})
	return result
}
