package exam

import (
	"examsim-server/models"
)

// Categorize partitions validated records into the buckets of their section.
// A truthy term flag wins over difficulty; difficulty 1, 2 and 3 map to easy,
// medium and hard; anything else is other. Every declared section gets an
// entry, empty or not. Records of undeclared sections are ignored.
func Categorize(records []models.QuestionRecord, sections []models.SectionSpec) map[string]*models.Buckets {
	out := make(map[string]*models.Buckets, len(sections))
	for _, s := range sections {
		out[s.Name] = &models.Buckets{}
	}
	for _, q := range records {
		b, ok := out[q.Section]
		if !ok {
			continue
		}
		switch BucketOf(q) {
		case models.BucketTerm:
			b.Term = append(b.Term, q)
		case models.BucketEasy:
			b.Easy = append(b.Easy, q)
		case models.BucketMedium:
			b.Medium = append(b.Medium, q)
		case models.BucketHard:
			b.Hard = append(b.Hard, q)
		default:
			b.Other = append(b.Other, q)
		}
	}
	return out
}

// BucketOf returns the bucket name a record belongs to.
func BucketOf(q models.QuestionRecord) string {
	if q.Term {
		return models.BucketTerm
	}
	if q.Difficulty == nil {
		return models.BucketOther
	}
	switch *q.Difficulty {
	case 1:
		return models.BucketEasy
	case 2:
		return models.BucketMedium
	case 3:
		return models.BucketHard
	}
	return models.BucketOther
}
