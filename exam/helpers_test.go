package exam

import (
	"fmt"

	"examsim-server/models"
)

func testSpecs() []models.SectionSpec {
	return []models.SectionSpec{
		{Name: "AMSTHEC", Total: 75, Difficulty: models.DifficultyQuota{Easy: 7, Medium: 7, Hard: 7}, Terms: 5},
		{Name: "HPGE", Total: 50, Difficulty: models.DifficultyQuota{Easy: 5, Medium: 5, Hard: 5}, Terms: 5},
		{Name: "PSAD", Total: 75, Difficulty: models.DifficultyQuota{Easy: 7, Medium: 7, Hard: 7}, Terms: 5},
	}
}

// rawQuestion builds a well-formed bank entry. difficulty 0 leaves it unset.
func rawQuestion(id, section string, difficulty int, term bool) models.RawRecord {
	r := models.RawRecord{
		"id":             id,
		"stem":           "Question " + id,
		"choices":        []any{id + "-a", id + "-b", id + "-c", id + "-d"},
		"correct_answer": "A",
		"section":        section,
	}
	if difficulty != 0 {
		r["difficulty"] = float64(difficulty)
	}
	if term {
		r["term"] = true
	}
	return r
}

// sectionBank returns easy, medium, hard, term and other questions for section.
func sectionBank(section string, easy, medium, hard, terms, other int) []models.RawRecord {
	var bank []models.RawRecord
	add := func(kind string, n, difficulty int, term bool) {
		for i := 0; i < n; i++ {
			bank = append(bank, rawQuestion(fmt.Sprintf("%s-%s-%d", section, kind, i), section, difficulty, term))
		}
	}
	add("easy", easy, 1, false)
	add("medium", medium, 2, false)
	add("hard", hard, 3, false)
	add("term", terms, 0, true)
	add("other", other, 0, false)
	return bank
}

func fullBank() []models.RawRecord {
	var bank []models.RawRecord
	bank = append(bank, sectionBank("AMSTHEC", 10, 10, 10, 8, 60)...)
	bank = append(bank, sectionBank("HPGE", 8, 8, 8, 6, 40)...)
	bank = append(bank, sectionBank("PSAD", 10, 10, 10, 8, 60)...)
	return bank
}

func mustValid(bank []models.RawRecord) []models.QuestionRecord {
	report, err := Validate(bank, testSpecs())
	if err != nil {
		panic(err)
	}
	return report.Valid
}

func countBuckets(records []models.QuestionRecord) map[string]int {
	counts := make(map[string]int)
	for _, q := range records {
		counts[BucketOf(q)]++
	}
	return counts
}
