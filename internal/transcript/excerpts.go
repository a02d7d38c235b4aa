package transcript

import "sort"

// MaxExcerpts is the number of representative utterances kept per speaker.
const MaxExcerpts = 3

// SelectExcerpts groups utterances by speaker and returns, for each speaker,
// their longest utterances: at most MaxExcerpts, ordered by descending
// duration, ties kept in original transcript order. Speakers with no
// utterances never appear as keys. The input slice is not modified.
func SelectExcerpts(utts []Utterance) map[SpeakerID][]Utterance {
	groups := make(map[SpeakerID][]Utterance)
	for _, u := range utts {
		groups[u.Speaker] = append(groups[u.Speaker], u)
	}
	for sp, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Duration() > g[j].Duration()
		})
		if len(g) > MaxExcerpts {
			g = g[:MaxExcerpts]
		}
		groups[sp] = g
	}
	return groups
}
