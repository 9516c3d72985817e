package memory

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assessmentRepo struct{ *db }

func (r *assessmentRepo) Create(_ context.Context, a *domain.Assessment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.AccessCode != "" {
		for _, existing := range r.assessments {
			if existing.AccessCode == a.AccessCode {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	a.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.assessments[a.ID] = clone(*a)
	return a.ID, nil
}

func (r *assessmentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (r *assessmentRepo) GetByAccessCode(_ context.Context, code string) (*domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.assessments {
		if code != "" && a.AccessCode == code {
			a = clone(a)
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *assessmentRepo) List(_ context.Context) ([]domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.assessments, nil, byAssessmentCreated), nil
}

func (r *assessmentRepo) ListByOwner(_ context.Context, userID primitive.ObjectID) ([]domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.assessments, func(a *domain.Assessment) bool { return a.IsOwnedBy(userID) }, byAssessmentCreated), nil
}

func (r *assessmentRepo) ListByCourses(_ context.Context, courseIDs []primitive.ObjectID) ([]domain.Assessment, error) {
	set := idSet(courseIDs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.Assessment) bool { return a.CourseID != nil && set[*a.CourseID] }
	return collect(r.assessments, keep, byAssessmentCreated), nil
}

func (r *assessmentRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Assessment, error) {
	set := idSet(ids)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.assessments, func(a *domain.Assessment) bool { return set[a.ID] }, byAssessmentCreated), nil
}

func (r *assessmentRepo) Update(_ context.Context, a *domain.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.assessments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = a.Title
	stored.Description = a.Description
	stored.Questions = a.Questions
	stored.CourseID = a.CourseID
	stored.AccessCode = a.AccessCode
	stored.UpdatedAt = time.Now().UTC()
	r.assessments[a.ID] = clone(stored)
	return nil
}

func (r *assessmentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assessments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.assessments, id)
	return nil
}

func (r *assessmentRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.assessments)), nil
}

func byAssessmentCreated(a, b *domain.Assessment) bool {
	return a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID.Hex() < b.ID.Hex())
}

type submissionRepo struct{ *db }

func (r *submissionRepo) Create(_ context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.submissions[s.ID]; ok {
		return repository.ErrDuplicate
	}
	r.submissions[s.ID] = clone(*s)
	return nil
}

func (r *submissionRepo) GetByKey(_ context.Context, key string) (*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.submissions[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s = clone(s)
	return &s, nil
}

func (r *submissionRepo) ListByAssessment(_ context.Context, assessmentID primitive.ObjectID) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.submissions, func(s *domain.Submission) bool { return s.AssessmentID == assessmentID }, bySubmitted), nil
}

func (r *submissionRepo) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.submissions, func(s *domain.Submission) bool { return s.StudentID == studentID }, bySubmitted), nil
}

func (r *submissionRepo) DeleteByAssessment(_ context.Context, assessmentID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.submissions {
		if s.AssessmentID == assessmentID {
			delete(r.submissions, k)
			n++
		}
	}
	return n, nil
}

func bySubmitted(a, b *domain.Submission) bool {
	return a.SubmittedAt.Before(b.SubmittedAt) || (a.SubmittedAt.Equal(b.SubmittedAt) && a.ID < b.ID)
}
