package exam

import (
	"sort"

	"examsim-server/models"
)

// Selection is the QuotaSelector result for one section.
type Selection struct {
	Records   []models.QuestionRecord
	Shortfall int // spec.Total minus len(Records), zero when satisfied
}

// SelectQuota draws a section's exam subset from its buckets.
//
// Each difficulty bucket, then the term bucket, contributes a random
// min(required, available) questions. Remaining slots up to spec.Total are
// filled from a shuffled pool of every not yet selected question of the
// section. When even that pool runs dry the Selection carries a Shortfall.
func SelectQuota(b *models.Buckets, spec models.SectionSpec, rng Source) Selection {
	selected := make([]models.QuestionRecord, 0, spec.Total)
	used := make(map[string]bool, spec.Total)

	take := func(pool []models.QuestionRecord, count int) {
		for _, q := range firstN(shuffled(pool, rng), count) {
			selected = append(selected, q)
			used[q.ID] = true
		}
	}

	take(b.Easy, spec.Difficulty.Easy)
	take(b.Medium, spec.Difficulty.Medium)
	take(b.Hard, spec.Difficulty.Hard)
	take(b.Term, spec.Terms)

	if remaining := spec.Total - len(selected); remaining > 0 {
		leftover := make([]models.QuestionRecord, 0, b.Len())
		for _, q := range b.All() {
			if !used[q.ID] {
				leftover = append(leftover, q)
			}
		}
		take(leftover, remaining)
	}

	// The difficulty and term quotas may add up to more than the total.
	if len(selected) > spec.Total {
		selected = selected[:spec.Total]
	}
	return Selection{Records: selected, Shortfall: spec.Total - len(selected)}
}

// SelectFallback draws spec.Total questions from every section's records.
// It is only used for a section that has no questions at all.
func SelectFallback(all []models.QuestionRecord, spec models.SectionSpec, rng Source) Selection {
	selected := firstN(shuffled(all, rng), spec.Total)
	return Selection{Records: selected, Shortfall: spec.Total - len(selected)}
}

func firstN(in []models.QuestionRecord, n int) []models.QuestionRecord {
	if n <= 0 {
		return nil
	}
	if n > len(in) {
		n = len(in)
	}
	return in[:n]
}

// bankOrder sorts a selection back into bank file order in place, so grouped
// questions read top to bottom after ShuffleGroups.
func bankOrder(records []models.QuestionRecord) []models.QuestionRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].BankIndex < records[j].BankIndex })
	return records
}
