package ranking

import (
	"sort"

	"github.com/louisbranch/council.space/internal/services/council/domain"
)

// Aggregate computes each label's consensus position across the valid
// submissions. labels must be in stage-1 emission order; labelToMember
// de-anonymizes entries for the caller. The result is sorted best first:
// lowest average rank, ties broken by vote count and then emission order.
// Labels no valid submission ranked are omitted.
func Aggregate(submissions []domain.RankingSubmission, labels []string, labelToMember map[string]string) []domain.AggregateEntry {
	position := map[string]int{}
	for i, label := range labels {
		position[label] = i
	}

	sums := map[string]int{}
	votes := map[string]int{}
	for _, submission := range submissions {
		if !submission.Valid() {
			continue
		}
		for rank, label := range submission.Labels {
			if _, known := position[label]; !known {
				continue
			}
			sums[label] += rank + 1
			votes[label]++
		}
	}

	var entries []domain.AggregateEntry
	for _, label := range labels {
		if votes[label] == 0 {
			continue
		}
		entries = append(entries, domain.AggregateEntry{
			Label:       label,
			Member:      labelToMember[label],
			AverageRank: float64(sums[label]) / float64(votes[label]),
			Votes:       votes[label],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AverageRank != entries[j].AverageRank {
			return entries[i].AverageRank < entries[j].AverageRank
		}
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return position[entries[i].Label] < position[entries[j].Label]
	})
	return entries
}
