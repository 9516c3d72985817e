package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionType is one of the four supported question kinds.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionParagraph      QuestionType = "paragraph"
	QuestionImageText      QuestionType = "image_text"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionParagraph, QuestionImageText:
		return true
	}
	return false
}

// Question is embedded in an assessment (or a quiz module).
type Question struct {
	Text           string       `bson:"text" json:"text"`
	Type           QuestionType `bson:"type" json:"type"`
	Options        []string     `bson:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer  *int         `bson:"correctAnswer,omitempty" json:"correctAnswer,omitempty"`
	CorrectAnswers []int        `bson:"correctAnswers,omitempty" json:"correctAnswers,omitempty"`
	ImageURL       string       `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

// Validate checks a question at position index (0-based; messages are 1-based).
func (q *Question) Validate(index int) error {
	n := index + 1
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question %d: text is required", ErrValidation, n)
	}
	if !q.Type.Valid() {
		return fmt.Errorf("%w: question %d: unknown type %q", ErrValidation, n, q.Type)
	}
	if q.Type == QuestionParagraph {
		return nil
	}

	filled := 0
	for _, o := range q.Options {
		if strings.TrimSpace(o) != "" {
			filled++
		}
	}
	if filled < 2 || filled != len(q.Options) {
		return fmt.Errorf("%w: question %d: needs at least two options and no empty ones", ErrValidation, n)
	}

	switch q.Type {
	case QuestionSingleChoice, QuestionImageText:
		if q.CorrectAnswer == nil || !q.inRange(*q.CorrectAnswer) {
			return fmt.Errorf("%w: question %d: correct answer must reference an option", ErrValidation, n)
		}
	case QuestionMultipleChoice:
		if len(q.CorrectAnswers) == 0 {
			return fmt.Errorf("%w: question %d: at least one correct answer is required", ErrValidation, n)
		}
		seen := make(map[int]bool, len(q.CorrectAnswers))
		for _, idx := range q.CorrectAnswers {
			if !q.inRange(idx) || seen[idx] {
				return fmt.Errorf("%w: question %d: correct answers must be distinct option indices", ErrValidation, n)
			}
			seen[idx] = true
		}
	}
	return nil
}

// AutoGradable reports whether the question can be scored without review.
func (q *Question) AutoGradable() bool {
	return q.Type != QuestionParagraph
}

func (q *Question) inRange(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// Assessment is a standalone graded test. Mentor-created assessments are
// linked to one of the mentor's courses through CourseID.
type Assessment struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description,omitempty" json:"description,omitempty"`
	Questions    []Question          `bson:"questions" json:"questions"`
	InstructorID primitive.ObjectID  `bson:"instructorId" json:"instructorId"`
	CreatedBy    primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	CourseID     *primitive.ObjectID `bson:"courseId,omitempty" json:"courseId,omitempty"`
	AccessCode   string              `bson:"accessCode,omitempty" json:"accessCode,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Validate runs every check required before an assessment is saved.
func (a *Assessment) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: assessment title is required", ErrValidation)
	}
	if len(a.Questions) == 0 {
		return fmt.Errorf("%w: assessment needs at least one question", ErrValidation)
	}
	for i := range a.Questions {
		if err := a.Questions[i].Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// IsOwnedBy reports whether userID authored or owns the assessment.
func (a *Assessment) IsOwnedBy(userID primitive.ObjectID) bool {
	return a.InstructorID == userID || a.CreatedBy == userID
}

// Answer is a student's response to one question. Which field is read depends
// on the question type.
type Answer struct {
	Choice  *int   `bson:"choice,omitempty" json:"choice,omitempty"`
	Choices []int  `bson:"choices,omitempty" json:"choices,omitempty"`
	Text    string `bson:"text,omitempty" json:"text,omitempty"`
}

// Submission is a student's single attempt at an assessment. Answers are keyed
// by the question index as a decimal string.
type Submission struct {
	ID            string             `bson:"_id" json:"id"` // SubmissionKey(assessmentID, studentID)
	AssessmentID  primitive.ObjectID `bson:"assessmentId" json:"assessmentId"`
	StudentID     primitive.ObjectID `bson:"studentId" json:"studentId"`
	Answers       map[string]Answer  `bson:"answers" json:"answers"`
	Score         int                `bson:"score" json:"score"`
	MaxScore      int                `bson:"maxScore" json:"maxScore"`
	PendingReview int                `bson:"pendingReview" json:"pendingReview"`
	SubmittedAt   time.Time          `bson:"submittedAt" json:"submittedAt"`
}
