package exam

import (
	"strings"

	"github.com/google/uuid"

	"examsim-server/models"
)

const situationPrefix = "Situation"

// GroupPolicy selects the ordering strategy applied to a section.
type GroupPolicy struct {
	// Enabled keeps questions sharing a group_id together. When false every
	// question is shuffled on its own.
	Enabled bool `mapstructure:"enabled"`
	// SituationFirst moves a group's "Situation ..." question to the front
	// of the group. This can reorder a group.
	SituationFirst bool `mapstructure:"situation_first"`
	// TailGuard moves a group to the middle of the section when one of its
	// "Situation ..." questions falls within the last TailGuard positions.
	TailGuard int `mapstructure:"tail_guard"`
}

// DefaultGroupPolicy keeps groups together and leaves their order untouched.
func DefaultGroupPolicy() GroupPolicy {
	return GroupPolicy{Enabled: true}
}

// ShuffleGroups reorders a section's selected questions. Questions are
// clustered by group_id in order of first appearance, keeping their input
// order within a cluster; the clusters are then shuffled and flattened. If A
// precedes B in records and both share a group, A precedes B in the result.
func ShuffleGroups(records []models.QuestionRecord, policy GroupPolicy, rng Source) []models.QuestionRecord {
	groups := clusterGroups(records, policy.Enabled)
	if policy.SituationFirst {
		for _, g := range groups {
			situationToFront(g)
		}
	}
	groups = shuffled(groups, rng)
	if policy.TailGuard > 0 {
		groups = guardTail(groups, policy.TailGuard)
	}

	out := make([]models.QuestionRecord, 0, len(records))
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func clusterGroups(records []models.QuestionRecord, enabled bool) [][]models.QuestionRecord {
	index := make(map[string]int)
	var groups [][]models.QuestionRecord
	for _, q := range records {
		key := groupKey(q, enabled)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], q)
	}
	return groups
}

func groupKey(q models.QuestionRecord, enabled bool) string {
	if enabled && q.GroupID != nil && *q.GroupID != "" {
		return "group:" + *q.GroupID
	}
	return "single:" + uuid.NewString()
}

func isSituation(q models.QuestionRecord) bool {
	return strings.HasPrefix(strings.TrimSpace(q.Stem), situationPrefix)
}

// situationToFront moves the first situation question of g to index 0,
// keeping the others in order.
func situationToFront(g []models.QuestionRecord) {
	for i, q := range g {
		if isSituation(q) {
			copy(g[1:i+1], g[:i])
			g[0] = q
			return
		}
	}
}

// guardTail relocates the group owning a situation question in the last n
// positions to the middle of the remaining groups. Groups shorter than the
// whole section are the only ones that can be moved.
func guardTail(groups [][]models.QuestionRecord, n int) [][]models.QuestionRecord {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	pos := 0
	for gi, g := range groups {
		for _, q := range g {
			pos++
			if pos <= total-n || !isSituation(q) {
				continue
			}
			if len(groups) < 2 {
				return groups
			}
			moved := groups[gi]
			rest := make([][]models.QuestionRecord, 0, len(groups))
			rest = append(rest, groups[:gi]...)
			rest = append(rest, groups[gi+1:]...)

			// Insert at the middle question position, on a group boundary.
			target, count := 0, 0
			half := (total - len(moved)) / 2
			for target < len(rest) && count+len(rest[target]) <= half {
				count += len(rest[target])
				target++
			}
			out := make([][]models.QuestionRecord, 0, len(groups))
			out = append(out, rest[:target]...)
			out = append(out, moved)
			out = append(out, rest[target:]...)
			return out
		}
	}
	return groups
}
