package exam

import (
	"fmt"

	"examsim-server/models"
	"examsim-server/utils"
)

// PermuteChoices returns a copy of q with its choices shuffled and the
// correct answer letter moved along with the correct choice. The correct
// choice is followed by its original position, so repeated choice text
// cannot rebind the answer to another slot.
func PermuteChoices(q models.QuestionRecord, rng Source) (models.QuestionRecord, error) {
	correct, err := utils.LetterToIndex(q.CorrectAnswer)
	if err != nil || correct >= len(q.Choices) {
		return q, fmt.Errorf("question %s: correct answer %q does not index %d choices", q.ID, q.CorrectAnswer, len(q.Choices))
	}

	order := make([]int, len(q.Choices))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	out := q.Clone()
	for newPos, oldPos := range order {
		out.Choices[newPos] = q.Choices[oldPos]
		if oldPos == correct {
			out.CorrectAnswer = utils.IndexToLetter(newPos)
		}
	}
	return out, nil
}

// HasDuplicateChoices reports whether two choices of q share the same text.
func HasDuplicateChoices(q models.QuestionRecord) bool {
	seen := make(map[string]bool, len(q.Choices))
	for _, c := range q.Choices {
		if seen[c] {
			return true
		}
		seen[c] = true
	}
	return false
}
