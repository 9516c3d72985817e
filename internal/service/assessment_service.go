package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/grading"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadySubmitted   = errors.New("assessment already submitted")
	ErrNoAssessmentAccess = errors.New("student has no access to this assessment")
)

// AssessmentInput carries the editable assessment fields.
type AssessmentInput struct {
	Title       string
	Description string
	Questions   []domain.Question
	CourseID    *primitive.ObjectID
	// EnableAccessCode generates a redeemable code when the assessment has none.
	EnableAccessCode bool
}

// SubmissionResult pairs a stored submission with its current grade.
type SubmissionResult struct {
	Submission *domain.Submission `json:"submission"`
	Result     grading.Result     `json:"result"`
}

// AssessmentService manages assessments and student submissions.
type AssessmentService interface {
	CreateAssessment(ctx context.Context, p domain.Principal, in AssessmentInput) (*domain.Assessment, error)
	// GetAssessment strips the answer key for callers that cannot edit it.
	GetAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID) (*domain.Assessment, error)
	ListAssessments(ctx context.Context, p domain.Principal) ([]domain.Assessment, error)
	UpdateAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID, in AssessmentInput) (*domain.Assessment, error)
	DeleteAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID) error
	RedeemAccessCode(ctx context.Context, p domain.Principal, code string) (*domain.AssessmentAccess, error)
	Submit(ctx context.Context, p domain.Principal, id primitive.ObjectID, answers map[string]domain.Answer) (*SubmissionResult, error)
	// GetResult regrades the stored answers on every call.
	GetResult(ctx context.Context, p domain.Principal, id, studentID primitive.ObjectID) (*SubmissionResult, error)
	ListSubmissions(ctx context.Context, p domain.Principal, id primitive.ObjectID) ([]domain.Submission, error)
}

type assessmentService struct {
	assessmentRepo    repository.AssessmentRepository
	submissionRepo    repository.SubmissionRepository
	courseRepo        repository.CourseRepository
	mentorStudentRepo repository.MentorAssignmentRepository
	mentorCourseRepo  repository.MentorCourseAssignmentRepository
	enrollmentRepo    repository.EnrollmentRepository
	accessRepo        repository.AssessmentAccessRepository
}

// NewAssessmentService creates a new instance of assessmentService.
func NewAssessmentService(
	assessmentRepo repository.AssessmentRepository,
	submissionRepo repository.SubmissionRepository,
	courseRepo repository.CourseRepository,
	mentorStudentRepo repository.MentorAssignmentRepository,
	mentorCourseRepo repository.MentorCourseAssignmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	accessRepo repository.AssessmentAccessRepository,
) AssessmentService {
	return &assessmentService{
		assessmentRepo:    assessmentRepo,
		submissionRepo:    submissionRepo,
		courseRepo:        courseRepo,
		mentorStudentRepo: mentorStudentRepo,
		mentorCourseRepo:  mentorCourseRepo,
		enrollmentRepo:    enrollmentRepo,
		accessRepo:        accessRepo,
	}
}

// CreateAssessment validates and stores a new assessment. Mentors must link it
// to one of their assigned courses and the course instructor becomes its owner.
func (s *assessmentService) CreateAssessment(ctx context.Context, p domain.Principal, in AssessmentInput) (*domain.Assessment, error) {
	if !authz.CanCreateAssessment(p) {
		return nil, ErrAccessDenied
	}
	a := &domain.Assessment{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Questions:    in.Questions,
		InstructorID: p.UserID,
		CreatedBy:    p.UserID,
		CourseID:     in.CourseID,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if in.CourseID != nil {
		course, err := s.courseRepo.GetByID(ctx, *in.CourseID)
		if err != nil {
			return nil, notFound(err, ErrCourseNotFound)
		}
		switch p.Role {
		case domain.RoleMentor:
			ok, err := s.mentorHasCourse(ctx, p.UserID, course.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrMentorCourseNotAssigned
			}
			a.InstructorID = course.InstructorID
		case domain.RoleInstructor:
			if !course.IsTaughtBy(p.UserID) {
				return nil, ErrAccessDenied
			}
		}
	} else if p.Role == domain.RoleMentor {
		return nil, invalidf("mentors must link assessments to an assigned course")
	}

	generated := in.EnableAccessCode
	for attempt := 0; ; attempt++ {
		if generated {
			a.AccessCode = newAccessCode()
		}
		_, err := s.assessmentRepo.Create(ctx, a)
		if err == nil {
			break
		}
		if !generated || !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		if attempt+1 >= accessCodeAttempts {
			return nil, ErrAccessCodeExhausted
		}
	}

	glog.Infof("Assessment %s created by %s (%d questions)", a.ID.Hex(), p.UserID.Hex(), len(a.Questions))
	return a, nil
}

func (s *assessmentService) GetAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID) (*domain.Assessment, error) {
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if authz.CanEditAssessment(p, a) {
		return a, nil
	}
	ok, err := s.canView(ctx, p, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return withoutAnswerKey(a), nil
}

func (s *assessmentService) canView(ctx context.Context, p domain.Principal, a *domain.Assessment) (bool, error) {
	switch p.Role {
	case domain.RoleStudent:
		return hasAssessmentAccess(ctx, s.accessRepo, s.enrollmentRepo, p.UserID, a)
	case domain.RoleMentor:
		if a.CourseID == nil {
			return false, nil
		}
		return s.mentorHasCourse(ctx, p.UserID, *a.CourseID)
	case domain.RoleInstructor:
		if a.CourseID == nil {
			return false, nil
		}
		course, err := s.courseRepo.GetByID(ctx, *a.CourseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return course.IsTaughtBy(p.UserID), nil
	}
	return false, nil
}

// withoutAnswerKey returns a copy safe to show to students.
func withoutAnswerKey(a *domain.Assessment) *domain.Assessment {
	out := *a
	out.AccessCode = ""
	out.Questions = make([]domain.Question, len(a.Questions))
	for i, q := range a.Questions {
		q.CorrectAnswer = nil
		q.CorrectAnswers = nil
		out.Questions[i] = q
	}
	return &out
}

// ListAssessments is scoped by role. Students get the answer key stripped.
func (s *assessmentService) ListAssessments(ctx context.Context, p domain.Principal) ([]domain.Assessment, error) {
	switch p.Role {
	case domain.RoleAdmin:
		return s.assessmentRepo.List(ctx)
	case domain.RoleInstructor:
		return s.assessmentRepo.ListByOwner(ctx, p.UserID)
	case domain.RoleMentor:
		owned, err := s.assessmentRepo.ListByOwner(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		links, err := s.mentorCourseRepo.ListActiveByMentor(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		courseIDs := make([]primitive.ObjectID, len(links))
		for i, l := range links {
			courseIDs[i] = l.CourseID
		}
		linked, err := s.assessmentRepo.ListByCourses(ctx, courseIDs)
		if err != nil {
			return nil, err
		}
		return mergeAssessments(owned, linked), nil
	case domain.RoleStudent:
		list, err := accessibleAssessments(ctx, s.assessmentRepo, s.accessRepo, s.enrollmentRepo, p.UserID)
		if err != nil {
			return nil, err
		}
		for i := range list {
			list[i] = *withoutAnswerKey(&list[i])
		}
		return list, nil
	}
	return []domain.Assessment{}, nil
}

// accessibleAssessments returns the assessments a student was granted plus
// those linked to courses the student is actively enrolled in.
func accessibleAssessments(ctx context.Context, assessmentRepo repository.AssessmentRepository, accessRepo repository.AssessmentAccessRepository, enrollmentRepo repository.EnrollmentRepository, studentID primitive.ObjectID) ([]domain.Assessment, error) {
	grants, err := accessRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(grants))
	for i, g := range grants {
		ids[i] = g.AssessmentID
	}
	granted, err := assessmentRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	enrollments, err := enrollmentRepo.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	courseIDs := make([]primitive.ObjectID, len(enrollments))
	for i, e := range enrollments {
		courseIDs[i] = e.CourseID
	}
	linked, err := assessmentRepo.ListByCourses(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	return mergeAssessments(granted, linked), nil
}

func mergeAssessments(lists ...[]domain.Assessment) []domain.Assessment {
	seen := map[primitive.ObjectID]bool{}
	out := []domain.Assessment{}
	for _, list := range lists {
		for _, a := range list {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, a)
		}
	}
	return out
}

func (s *assessmentService) UpdateAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID, in AssessmentInput) (*domain.Assessment, error) {
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditAssessment(p, a) {
		return nil, ErrAccessDenied
	}
	a.Title = strings.TrimSpace(in.Title)
	a.Description = in.Description
	a.Questions = in.Questions
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if in.EnableAccessCode && a.AccessCode == "" {
		a.AccessCode = newAccessCode()
	}
	if err := s.assessmentRepo.Update(ctx, a); err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	return a, nil
}

// DeleteAssessment removes the assessment with its submissions and access records.
func (s *assessmentService) DeleteAssessment(ctx context.Context, p domain.Principal, id primitive.ObjectID) error {
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanEditAssessment(p, a) {
		return ErrAccessDenied
	}
	subs, err := s.submissionRepo.DeleteByAssessment(ctx, id)
	if err != nil {
		return err
	}
	grants, err := s.accessRepo.DeleteByAssessment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.assessmentRepo.Delete(ctx, id); err != nil {
		return notFound(err, ErrAssessmentNotFound)
	}
	glog.Infof("Assessment %s deleted by %s (%d submissions, %d access records)", id.Hex(), p.UserID.Hex(), subs, grants)
	return nil
}

// RedeemAccessCode grants the calling student access to the assessment with
// the given code. Redeeming twice keeps the first grant.
func (s *assessmentService) RedeemAccessCode(ctx context.Context, p domain.Principal, code string) (*domain.AssessmentAccess, error) {
	if err := authz.RequireRole(p, domain.RoleStudent); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidf("access code is required")
	}
	a, err := s.assessmentRepo.GetByAccessCode(ctx, code)
	if err != nil {
		return nil, notFound(err, ErrInvalidAccessCode)
	}
	grant := domain.AssessmentAccess{
		ID:           domain.AssessmentAccessKey(p.UserID, a.ID),
		StudentID:    p.UserID,
		AssessmentID: a.ID,
		GrantedBy:    p.UserID,
		Source:       domain.AccessFromAccessCode,
	}
	if _, err := s.accessRepo.BulkUpsert(ctx, []domain.AssessmentAccess{grant}); err != nil {
		return nil, err
	}
	stored, err := s.accessRepo.GetByKey(ctx, grant.ID)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Submit grades and stores the calling student's only attempt.
func (s *assessmentService) Submit(ctx context.Context, p domain.Principal, id primitive.ObjectID, answers map[string]domain.Answer) (*SubmissionResult, error) {
	if err := authz.RequireRole(p, domain.RoleStudent); err != nil {
		return nil, err
	}
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := hasAssessmentAccess(ctx, s.accessRepo, s.enrollmentRepo, p.UserID, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAssessmentAccess
	}
	if err := validateAnswers(a.Questions, answers); err != nil {
		return nil, err
	}

	result := grading.Grade(a.Questions, answers)
	sub := &domain.Submission{
		ID:            domain.SubmissionKey(a.ID, p.UserID),
		AssessmentID:  a.ID,
		StudentID:     p.UserID,
		Answers:       answers,
		Score:         result.Score,
		MaxScore:      result.MaxScore,
		PendingReview: result.PendingReview,
	}
	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}
	glog.Infof("Student %s submitted assessment %s: %d/%d", p.UserID.Hex(), a.ID.Hex(), result.Score, result.MaxScore)
	return &SubmissionResult{Submission: sub, Result: result}, nil
}

// validateAnswers rejects keys that are not question indices and choice
// indices outside a question's options.
func validateAnswers(questions []domain.Question, answers map[string]domain.Answer) error {
	if answers == nil {
		return invalidf("answers are required")
	}
	for key, ans := range answers {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(questions) {
			return invalidf("answer key %q does not reference a question", key)
		}
		n := len(questions[idx].Options)
		if ans.Choice != nil && (*ans.Choice < 0 || *ans.Choice >= n) {
			return invalidf("answer %d: choice %d is out of range", idx+1, *ans.Choice)
		}
		for _, c := range ans.Choices {
			if c < 0 || c >= n {
				return invalidf("answer %d: choice %d is out of range", idx+1, c)
			}
		}
	}
	return nil
}

// GetResult is visible to the student, the assessment's editors, admins and
// the student's active mentor.
func (s *assessmentService) GetResult(ctx context.Context, p domain.Principal, id, studentID primitive.ObjectID) (*SubmissionResult, error) {
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Is(studentID) && !authz.CanEditAssessment(p, a) {
		ok, err := s.isMentorOf(ctx, p, studentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAccessDenied
		}
	}
	sub, err := s.submissionRepo.GetByKey(ctx, domain.SubmissionKey(id, studentID))
	if err != nil {
		return nil, notFound(err, ErrSubmissionNotFound)
	}
	return &SubmissionResult{Submission: sub, Result: grading.Grade(a.Questions, sub.Answers)}, nil
}

func (s *assessmentService) ListSubmissions(ctx context.Context, p domain.Principal, id primitive.ObjectID) ([]domain.Submission, error) {
	a, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditAssessment(p, a) {
		return nil, ErrAccessDenied
	}
	return s.submissionRepo.ListByAssessment(ctx, id)
}

func (s *assessmentService) isMentorOf(ctx context.Context, p domain.Principal, studentID primitive.ObjectID) (bool, error) {
	if p.Role != domain.RoleMentor {
		return false, nil
	}
	link, err := s.mentorStudentRepo.GetByKey(ctx, domain.MentorStudentKey(p.UserID, studentID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return link.Status == domain.StatusActive, nil
}

func (s *assessmentService) mentorHasCourse(ctx context.Context, mentorID, courseID primitive.ObjectID) (bool, error) {
	return hasActiveMentorCourse(ctx, s.mentorCourseRepo, mentorID, courseID)
}

func (s *assessmentService) getAssessment(ctx context.Context, id primitive.ObjectID) (*domain.Assessment, error) {
	a, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	return a, nil
}
