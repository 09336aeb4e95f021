package quiz

import (
	"math"

	"studyhub/internal/domain"
)

// Score returns the percentage of questions answered correctly, rounded to the nearest integer.
func Score(questions []domain.Question, answers domain.AnswerMap) int {
	_, _, score := Grade(questions, answers)
	return score
}

// Grade counts correct answers against the option flagged correct on each question.
// An empty question set scores 0.
func Grade(questions []domain.Question, answers domain.AnswerMap) (correct, total, score int) {
	total = len(questions)
	if total == 0 {
		return 0, 0, 0
	}
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		if id, found := correctOption(q); found && id == selected {
			correct++
		}
	}
	score = int(math.Round(100 * float64(correct) / float64(total)))
	return correct, total, score
}

func correctOption(q domain.Question) (string, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID, true
		}
	}
	return "", false
}
