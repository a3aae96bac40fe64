package exam

import (
	"testing"

	"examsim-server/models"
)

func TestSelectQuotaSatisfiesQuotas(t *testing.T) {
	records := mustValid(sectionBank("AMSTHEC", 10, 10, 10, 8, 60))
	b := Categorize(records, testSpecs())["AMSTHEC"]
	spec := testSpecs()[0]

	for seed := int64(1); seed <= 20; seed++ {
		sel := SelectQuota(b, spec, NewSeededSource(seed))
		if len(sel.Records) != 75 || sel.Shortfall != 0 {
			t.Fatalf("seed %d: expected 75 records and no shortfall, got %d/%d", seed, len(sel.Records), sel.Shortfall)
		}
		counts := countBuckets(sel.Records)
		for _, bucket := range []string{models.BucketEasy, models.BucketMedium, models.BucketHard} {
			if counts[bucket] < 7 {
				t.Fatalf("seed %d: expected at least 7 %s questions, got %d", seed, bucket, counts[bucket])
			}
		}
		if counts[models.BucketTerm] < 5 {
			t.Fatalf("seed %d: expected at least 5 term questions, got %d", seed, counts[models.BucketTerm])
		}
	}
}

func TestSelectQuotaNoDuplicatesAndSubset(t *testing.T) {
	records := mustValid(sectionBank("HPGE", 6, 6, 6, 6, 40))
	b := Categorize(records, testSpecs())["HPGE"]
	spec := testSpecs()[1]

	valid := make(map[string]bool)
	for _, q := range b.All() {
		valid[q.ID] = true
	}
	sel := SelectQuota(b, spec, NewSeededSource(7))
	seen := make(map[string]bool)
	for _, q := range sel.Records {
		if !valid[q.ID] {
			t.Fatalf("selected %s which is not a HPGE record", q.ID)
		}
		if seen[q.ID] {
			t.Fatalf("selected %s twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSelectQuotaReportsShortfall(t *testing.T) {
	records := mustValid(sectionBank("HPGE", 2, 2, 2, 1, 3))
	b := Categorize(records, testSpecs())["HPGE"]

	sel := SelectQuota(b, testSpecs()[1], NewSeededSource(3))
	if len(sel.Records) != 10 {
		t.Fatalf("expected every available record to be used, got %d", len(sel.Records))
	}
	if sel.Shortfall != 40 {
		t.Fatalf("expected shortfall 40, got %d", sel.Shortfall)
	}
}

func TestSelectQuotaTruncatesOverlappingQuotas(t *testing.T) {
	records := mustValid(sectionBank("HPGE", 5, 5, 5, 5, 0))
	b := Categorize(records, testSpecs())["HPGE"]
	spec := models.SectionSpec{Name: "HPGE", Total: 12, Difficulty: models.DifficultyQuota{Easy: 5, Medium: 5, Hard: 5}, Terms: 5}

	sel := SelectQuota(b, spec, NewSeededSource(11))
	if len(sel.Records) != 12 || sel.Shortfall != 0 {
		t.Fatalf("expected truncation to 12, got %d (shortfall %d)", len(sel.Records), sel.Shortfall)
	}
}

func TestSelectQuotaVariesWithSource(t *testing.T) {
	records := mustValid(sectionBank("AMSTHEC", 10, 10, 10, 8, 60))
	b := Categorize(records, testSpecs())["AMSTHEC"]
	spec := testSpecs()[0]

	a := SelectQuota(b, spec, NewSeededSource(1))
	c := SelectQuota(b, spec, NewSeededSource(2))
	same := true
	for i := range a.Records {
		if a.Records[i].ID != c.Records[i].ID {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different sources to produce different selections")
	}
}

func TestSelectFallback(t *testing.T) {
	records := mustValid(sectionBank("HPGE", 3, 3, 3, 3, 3))
	spec := testSpecs()[2]

	sel := SelectFallback(records, spec, NewSeededSource(5))
	if len(sel.Records) != 15 || sel.Shortfall != 60 {
		t.Fatalf("expected 15 records and shortfall 60, got %d/%d", len(sel.Records), sel.Shortfall)
	}
}
