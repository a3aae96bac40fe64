package exam

import (
	"math"
	"strings"

	"examsim-server/models"
)

// Grade compares answer letters with a section's correct answers. Missing or
// empty answers count as wrong and are reported as unanswered.
func Grade(section string, questions []models.QuestionRecord, answers []string) models.SectionResult {
	res := models.SectionResult{Section: section, Total: len(questions), Wrong: []models.WrongAnswer{}}
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = strings.ToUpper(strings.TrimSpace(answers[i]))
		}
		if given != "" && given == q.CorrectAnswer {
			res.Correct++
			continue
		}
		w := models.WrongAnswer{
			Number:        i + 1,
			QuestionID:    q.ID,
			Stem:          q.Stem,
			CorrectAnswer: q.CorrectAnswer,
			Choices:       q.Choices,
			Explanation:   q.Explanation,
			Figure:        q.Figure,
		}
		if given != "" {
			w.UserAnswer = &given
		}
		res.Wrong = append(res.Wrong, w)
	}
	res.ScorePct = percent(res.Correct, res.Total)
	return res
}

// GradeExam grades every section of set present in answers.
func GradeExam(set *models.ExamSet, answers map[string][]string) models.SubmitResponse {
	resp := models.SubmitResponse{ExamSetID: set.ID}
	for _, s := range set.Sections {
		letters, ok := answers[s.Name]
		if !ok {
			continue
		}
		_, questions, _ := set.Section(s.Name)
		r := Grade(s.Name, questions, letters)
		resp.Results = append(resp.Results, r)
		resp.Correct += r.Correct
		resp.Total += r.Total
	}
	resp.ScorePct = percent(resp.Correct, resp.Total)
	return resp
}

func percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}
