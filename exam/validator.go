package exam

import (
	"fmt"
	"strings"

	"examsim-server/models"
	"examsim-server/utils"
)

// Reasons a bank record is dropped by Validate.
const (
	SkipMissingField     = "missing_field"
	SkipUnknownSection   = "unknown_section"
	SkipTooFewChoices    = "too_few_choices"
	SkipTooManyChoices   = "too_many_choices"
	SkipBadChoices       = "bad_choices"
	SkipBadCorrectAnswer = "bad_correct_answer"
	SkipDuplicateID      = "duplicate_id"
)

var requiredFields = []string{"stem", "section", "correct_answer", "choices"}

// maxChoices is the number of answer letters, A through Z.
const maxChoices = 26

// ValidationReport is the outcome of Validate.
type ValidationReport struct {
	Valid   []models.QuestionRecord
	Skipped int
	Reasons map[string]int
}

func (r *ValidationReport) skip(reason string) {
	r.Skipped++
	r.Reasons[reason]++
}

// Validate keeps the bank records that carry stem, section, correct_answer and
// choices, belong to a declared section, have between two and 26 choices and
// whose answer letter points at one of them. Dropped records are counted, not
// reported as errors. ErrBankEmpty is returned when nothing survives.
//
// Records without an id get q0001, q0002, ... by bank position, suffixed
// with -1, -2, ... when that id is already claimed elsewhere in the bank.
func Validate(bank []models.RawRecord, sections []models.SectionSpec) (ValidationReport, error) {
	report := ValidationReport{
		Valid:   make([]models.QuestionRecord, 0, len(bank)),
		Reasons: make(map[string]int),
	}
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.Name] = true
	}
	explicit := make(map[string]bool, len(bank))
	for _, raw := range bank {
		if id := utils.OptionalString(raw["id"]); id != nil && *id != "" {
			explicit[*id] = true
		}
	}
	seen := make(map[string]bool, len(bank))

	for i, raw := range bank {
		q, reason := convertRecord(i, raw, known)
		if reason != "" {
			report.skip(reason)
			continue
		}
		if q.ID == "" {
			q.ID = autoID(i, explicit, seen)
		}
		if seen[q.ID] {
			report.skip(SkipDuplicateID)
			continue
		}
		seen[q.ID] = true
		report.Valid = append(report.Valid, q)
	}

	if len(report.Valid) == 0 {
		return report, fmt.Errorf("%w (%d records skipped)", ErrBankEmpty, report.Skipped)
	}
	return report, nil
}

func autoID(index int, explicit, seen map[string]bool) string {
	base := fmt.Sprintf("q%04d", index+1)
	id := base
	for n := 1; explicit[id] || seen[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func convertRecord(index int, raw models.RawRecord, known map[string]bool) (models.QuestionRecord, string) {
	for _, f := range requiredFields {
		if _, ok := raw[f]; !ok {
			return models.QuestionRecord{}, SkipMissingField
		}
	}
	stem, ok1 := raw["stem"].(string)
	section, ok2 := raw["section"].(string)
	letter, ok3 := raw["correct_answer"].(string)
	if !ok1 || !ok2 || !ok3 {
		return models.QuestionRecord{}, SkipMissingField
	}
	if !known[section] {
		return models.QuestionRecord{}, SkipUnknownSection
	}

	choices, ok := toChoices(raw["choices"])
	if !ok {
		return models.QuestionRecord{}, SkipBadChoices
	}
	if len(choices) < 2 {
		return models.QuestionRecord{}, SkipTooFewChoices
	}
	if len(choices) > maxChoices {
		return models.QuestionRecord{}, SkipTooManyChoices
	}
	idx, err := utils.LetterToIndex(letter)
	if err != nil || idx >= len(choices) {
		return models.QuestionRecord{}, SkipBadCorrectAnswer
	}

	q := models.QuestionRecord{
		Stem:          stem,
		Choices:       choices,
		CorrectAnswer: utils.IndexToLetter(idx),
		Section:       section,
		Figure:        utils.OptionalString(raw["figure"]),
		Term:          utils.ParseBool(raw["term"]),
		GroupID:       utils.OptionalString(raw["group_id"]),
		Explanation:   utils.OptionalString(raw["explanation"]),
		BankIndex:     index,
	}
	if d, ok := utils.ParseInt(raw["difficulty"]); ok {
		q.Difficulty = &d
	}
	if id := utils.OptionalString(raw["id"]); id != nil {
		q.ID = *id
	}
	return q, ""
}

// toChoices accepts []string, or a []any of strings and numbers.
func toChoices(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, c := range t {
			switch cv := c.(type) {
			case string:
				out = append(out, cv)
			case int, int64, float64:
				out = append(out, strings.TrimSpace(fmt.Sprint(cv)))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}
