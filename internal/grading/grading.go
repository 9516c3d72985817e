// Package grading scores assessment submissions. It has no side effects, so a
// result can be recomputed from the stored answers at any time.
package grading

import (
	"sort"
	"strconv"

	"alcyxob/learning-platform/internal/domain"
)

// Outcome of a single question.
type Outcome string

const (
	Correct       Outcome = "correct"
	Incorrect     Outcome = "incorrect"
	Unanswered    Outcome = "unanswered"
	PendingReview Outcome = "pending_review"
)

// QuestionResult is the graded state of one question.
type QuestionResult struct {
	Index   int     `json:"index"`
	Outcome Outcome `json:"outcome"`
}

// Result is the aggregate grade of a submission.
type Result struct {
	Score         int              `json:"score"`
	MaxScore      int              `json:"maxScore"`
	PendingReview int              `json:"pendingReview"`
	Questions     []QuestionResult `json:"questions"`
}

// Percent returns Score as a percentage of MaxScore.
func (r Result) Percent() float64 {
	if r.MaxScore == 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.MaxScore)
}

// Grade scores answers against questions. Answers are keyed by question index
// in decimal. Paragraph questions are never auto-graded; they count toward
// PendingReview and are excluded from MaxScore.
func Grade(questions []domain.Question, answers map[string]domain.Answer) Result {
	res := Result{Questions: make([]QuestionResult, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		qr := QuestionResult{Index: i}

		if !q.AutoGradable() {
			qr.Outcome = PendingReview
			res.PendingReview++
			res.Questions = append(res.Questions, qr)
			continue
		}

		res.MaxScore++
		ans, ok := answers[strconv.Itoa(i)]
		switch {
		case !ok || !answered(q, ans):
			qr.Outcome = Unanswered
		case isCorrect(q, ans):
			qr.Outcome = Correct
			res.Score++
		default:
			qr.Outcome = Incorrect
		}
		res.Questions = append(res.Questions, qr)
	}
	return res
}

func answered(q *domain.Question, a domain.Answer) bool {
	if q.Type == domain.QuestionMultipleChoice {
		return len(a.Choices) > 0
	}
	return a.Choice != nil
}

func isCorrect(q *domain.Question, a domain.Answer) bool {
	switch q.Type {
	case domain.QuestionSingleChoice, domain.QuestionImageText:
		return q.CorrectAnswer != nil && *a.Choice == *q.CorrectAnswer
	case domain.QuestionMultipleChoice:
		return sameSet(a.Choices, q.CorrectAnswers)
	}
	return false
}

func sameSet(a, b []int) bool {
	x := dedupe(a)
	y := dedupe(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func dedupe(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
