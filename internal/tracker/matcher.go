package tracker

import (
	"tracklist/internal/media"
	"tracklist/internal/textutil"
)

// MatchThreshold is the similarity a title must exceed to be accepted.
const MatchThreshold = 0.7

// Match is the best list entry for a parsed title.
type Match struct {
	Item  media.Item
	Title string
	Ratio float64
}

// FindMatch compares guess against every title, alias and alternate title
// on the list. Ties go to the longer matched title, then the lower id.
func FindMatch(list map[media.ID]media.Item, altnames map[media.ID]string, guess string) (Match, bool) {
	needle := textutil.Normalize(guess)
	if needle == "" {
		return Match{}, false
	}
	var (
		best  Match
		found bool
	)
	for _, id := range media.SortedIDs(list) {
		it := list[id]
		candidates := it.Titles()
		if alt := altnames[id]; alt != "" {
			candidates = append(candidates, alt)
		}
		for _, title := range candidates {
			ratio := textutil.Ratio(needle, textutil.Normalize(title))
			if ratio <= MatchThreshold {
				continue
			}
			if !found || better(ratio, title, it.ID, best) {
				best = Match{Item: it, Title: title, Ratio: ratio}
				found = true
			}
		}
	}
	return best, found
}

func better(ratio float64, title string, id media.ID, than Match) bool {
	switch {
	case ratio != than.Ratio:
		return ratio > than.Ratio
	case len([]rune(title)) != len([]rune(than.Title)):
		return len([]rune(title)) > len([]rune(than.Title))
	default:
		return id.Less(than.Item.ID)
	}
}
