package exam

import (
	"fmt"
	"testing"

	"examsim-server/models"
)

func groupedRecords() []models.QuestionRecord {
	var out []models.QuestionRecord
	for g := 0; g < 5; g++ {
		gid := fmt.Sprintf("g%d", g)
		for i := 0; i < 3; i++ {
			out = append(out, models.QuestionRecord{ID: fmt.Sprintf("%s-%d", gid, i), Stem: "part", GroupID: &gid, BankIndex: len(out)})
		}
	}
	for i := 0; i < 10; i++ {
		out = append(out, models.QuestionRecord{ID: fmt.Sprintf("single-%d", i), Stem: "single"})
	}
	return out
}

func positions(records []models.QuestionRecord) map[string]int {
	pos := make(map[string]int, len(records))
	for i, q := range records {
		pos[q.ID] = i
	}
	return pos
}

func TestShuffleGroupsKeepsGroupOrder(t *testing.T) {
	in := groupedRecords()
	for trial := int64(0); trial < 100; trial++ {
		out := ShuffleGroups(in, DefaultGroupPolicy(), NewSeededSource(trial))
		if len(out) != len(in) {
			t.Fatalf("trial %d: expected %d records, got %d", trial, len(in), len(out))
		}
		pos := positions(out)
		for g := 0; g < 5; g++ {
			first := pos[fmt.Sprintf("g%d-0", g)]
			for i := 1; i < 3; i++ {
				p := pos[fmt.Sprintf("g%d-%d", g, i)]
				if p != first+i {
					t.Fatalf("trial %d: group g%d not contiguous and ordered", trial, g)
				}
			}
		}
	}
}

func TestShuffleGroupsKeepsInputOrderWithinGroup(t *testing.T) {
	gid := "g"
	in := []models.QuestionRecord{
		{ID: "p2", GroupID: &gid, BankIndex: 2},
		{ID: "p0", GroupID: &gid, BankIndex: 0},
		{ID: "p1", GroupID: &gid, BankIndex: 1},
		{ID: "s", BankIndex: 7},
	}
	for seed := int64(0); seed < 20; seed++ {
		out := ShuffleGroups(in, DefaultGroupPolicy(), NewSeededSource(seed))
		pos := positions(out)
		if pos["p0"] != pos["p2"]+1 || pos["p1"] != pos["p2"]+2 {
			t.Fatalf("seed %d: expected input order p2 p0 p1, got %v", seed, pos)
		}
	}
}

func TestShuffleGroupsDisabledShufflesIndividually(t *testing.T) {
	in := groupedRecords()
	split := false
	for trial := int64(0); trial < 20 && !split; trial++ {
		out := ShuffleGroups(in, GroupPolicy{Enabled: false}, NewSeededSource(trial))
		pos := positions(out)
		if pos["g0-1"] != pos["g0-0"]+1 || pos["g0-2"] != pos["g0-0"]+2 {
			split = true
		}
	}
	if !split {
		t.Fatalf("expected grouping off to break groups apart at least once")
	}
}

func TestShuffleGroupsSituationFirst(t *testing.T) {
	gid := "beam"
	in := []models.QuestionRecord{
		{ID: "b1", Stem: "Find the moment", GroupID: &gid},
		{ID: "b0", Stem: "  Situation: a beam spans 10 m", GroupID: &gid},
		{ID: "b2", Stem: "Find the shear", GroupID: &gid},
	}
	out := ShuffleGroups(in, GroupPolicy{Enabled: true, SituationFirst: true}, NewSeededSource(1))
	got := []string{out[0].ID, out[1].ID, out[2].ID}
	want := []string{"b0", "b1", "b2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestGuardTailMovesSituationGroup(t *testing.T) {
	gid := "sit"
	situation := []models.QuestionRecord{
		{ID: "s0", Stem: "Situation: a soil sample", GroupID: &gid},
		{ID: "s1", Stem: "Find the porosity", GroupID: &gid},
	}
	var groups [][]models.QuestionRecord
	for i := 0; i < 8; i++ {
		groups = append(groups, []models.QuestionRecord{{ID: fmt.Sprintf("x%d", i), Stem: "plain"}})
	}
	groups = append(groups, situation)

	out := guardTail(groups, 5)
	var flat []models.QuestionRecord
	for _, g := range out {
		flat = append(flat, g...)
	}
	pos := positions(flat)
	if pos["s0"] >= len(flat)-5 {
		t.Fatalf("expected situation to leave the last 5 positions, got index %d of %d", pos["s0"], len(flat))
	}
	if pos["s1"] != pos["s0"]+1 {
		t.Fatalf("expected group order to survive the move")
	}
	if len(flat) != 10 {
		t.Fatalf("expected 10 records, got %d", len(flat))
	}
}

func TestGuardTailLeavesSafeOrder(t *testing.T) {
	var groups [][]models.QuestionRecord
	groups = append(groups, []models.QuestionRecord{{ID: "s", Stem: "Situation: early"}})
	for i := 0; i < 8; i++ {
		groups = append(groups, []models.QuestionRecord{{ID: fmt.Sprintf("x%d", i), Stem: "plain"}})
	}
	out := guardTail(groups, 5)
	if out[0][0].ID != "s" {
		t.Fatalf("expected order to be unchanged")
	}
}
