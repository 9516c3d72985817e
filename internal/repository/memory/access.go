package memory

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mentorStudentRepo struct{ *db }

func (r *mentorStudentRepo) Upsert(_ context.Context, a *domain.MentorAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.mentorStudents[a.ID]; ok {
		a.AssignedAt = existing.AssignedAt
	} else {
		a.AssignedAt = now
	}
	a.UpdatedAt = now
	r.mentorStudents[a.ID] = clone(*a)
	return nil
}

func (r *mentorStudentRepo) GetByKey(_ context.Context, key string) (*domain.MentorAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.mentorStudents[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (r *mentorStudentRepo) ListActiveByMentor(_ context.Context, mentorID primitive.ObjectID) ([]domain.MentorAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.MentorAssignment) bool {
		return a.MentorID == mentorID && a.Status == domain.StatusActive
	}
	return collect(r.mentorStudents, keep, func(a, b *domain.MentorAssignment) bool { return a.ID < b.ID }), nil
}

func (r *mentorStudentRepo) ListActiveByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.MentorAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.MentorAssignment) bool {
		return a.StudentID == studentID && a.Status == domain.StatusActive
	}
	return collect(r.mentorStudents, keep, func(a, b *domain.MentorAssignment) bool { return a.ID < b.ID }), nil
}

func (r *mentorStudentRepo) SetStatus(_ context.Context, key string, status domain.AssignmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.mentorStudents[key]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	r.mentorStudents[key] = a
	return nil
}

type mentorCourseRepo struct{ *db }

func (r *mentorCourseRepo) Upsert(_ context.Context, a *domain.MentorCourseAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.mentorCourses[a.ID]; ok {
		a.AssignedAt = existing.AssignedAt
	} else {
		a.AssignedAt = now
	}
	a.UpdatedAt = now
	r.mentorCourses[a.ID] = clone(*a)
	return nil
}

func (r *mentorCourseRepo) GetByKey(_ context.Context, key string) (*domain.MentorCourseAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.mentorCourses[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (r *mentorCourseRepo) ListActiveByMentor(_ context.Context, mentorID primitive.ObjectID) ([]domain.MentorCourseAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.MentorCourseAssignment) bool {
		return a.MentorID == mentorID && a.Status == domain.StatusActive
	}
	return collect(r.mentorCourses, keep, func(a, b *domain.MentorCourseAssignment) bool { return a.ID < b.ID }), nil
}

func (r *mentorCourseRepo) ListActiveByCourse(_ context.Context, courseID primitive.ObjectID) ([]domain.MentorCourseAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.MentorCourseAssignment) bool {
		return a.CourseID == courseID && a.Status == domain.StatusActive
	}
	return collect(r.mentorCourses, keep, func(a, b *domain.MentorCourseAssignment) bool { return a.ID < b.ID }), nil
}

func (r *mentorCourseRepo) SetStatus(_ context.Context, key string, status domain.AssignmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.mentorCourses[key]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	r.mentorCourses[key] = a
	return nil
}

type enrollmentRepo struct{ *db }

func (r *enrollmentRepo) Upsert(_ context.Context, e *domain.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.enrollments[e.ID]; ok {
		e.EnrolledAt = existing.EnrolledAt
	} else {
		e.EnrolledAt = now
	}
	e.UpdatedAt = now
	r.enrollments[e.ID] = clone(*e)
	return nil
}

func (r *enrollmentRepo) GetByKey(_ context.Context, key string) (*domain.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enrollments[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e = clone(e)
	return &e, nil
}

func (r *enrollmentRepo) ListActiveByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.Enrollment, error) {
	return r.listActive(func(e *domain.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (r *enrollmentRepo) ListActiveByCourse(_ context.Context, courseID primitive.ObjectID) ([]domain.Enrollment, error) {
	return r.listActive(func(e *domain.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (r *enrollmentRepo) ListActiveByCourseAndMentor(_ context.Context, courseID, mentorID primitive.ObjectID) ([]domain.Enrollment, error) {
	return r.listActive(func(e *domain.Enrollment) bool {
		return e.CourseID == courseID && e.MentorID != nil && *e.MentorID == mentorID
	}), nil
}

func (r *enrollmentRepo) listActive(keep func(*domain.Enrollment) bool) []domain.Enrollment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.enrollments,
		func(e *domain.Enrollment) bool { return e.Status == domain.StatusActive && keep(e) },
		func(a, b *domain.Enrollment) bool { return a.ID < b.ID })
}

func (r *enrollmentRepo) SetStatusMany(_ context.Context, keys []string, status domain.AssignmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, k := range keys {
		e, ok := r.enrollments[k]
		if !ok || e.Status == status {
			continue
		}
		e.Status = status
		e.UpdatedAt = now
		r.enrollments[k] = e
		n++
	}
	return n, nil
}

type accessRepo struct{ *db }

func (r *accessRepo) GetByKey(_ context.Context, key string) (*domain.AssessmentAccess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessmentAccess[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (r *accessRepo) ExistingKeys(_ context.Context, keys []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := make(map[string]bool)
	for _, k := range keys {
		if _, ok := r.assessmentAccess[k]; ok {
			found[k] = true
		}
	}
	return found, nil
}

// BulkUpsert keeps the first grant for a key, matching $setOnInsert.
func (r *accessRepo) BulkUpsert(_ context.Context, grants []domain.AssessmentAccess) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted int64
	for _, g := range grants {
		if _, ok := r.assessmentAccess[g.ID]; ok {
			continue
		}
		if g.GrantedAt.IsZero() {
			g.GrantedAt = time.Now().UTC()
		}
		r.assessmentAccess[g.ID] = clone(g)
		inserted++
	}
	return inserted, nil
}

func (r *accessRepo) DeleteKeys(_ context.Context, keys []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := r.assessmentAccess[k]; ok {
			delete(r.assessmentAccess, k)
			n++
		}
	}
	return n, nil
}

func (r *accessRepo) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.AssessmentAccess, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(a *domain.AssessmentAccess) bool { return a.StudentID == studentID }
	return collect(r.assessmentAccess, keep, func(a, b *domain.AssessmentAccess) bool { return a.ID < b.ID }), nil
}

func (r *accessRepo) DeleteByAssessment(_ context.Context, assessmentID primitive.ObjectID) (int64, error) {
	return r.deleteWhere(func(a *domain.AssessmentAccess) bool { return a.AssessmentID == assessmentID }), nil
}

func (r *accessRepo) DeleteGrantedByMentor(_ context.Context, mentorID primitive.ObjectID, studentID *primitive.ObjectID, assessmentIDs []primitive.ObjectID) (int64, error) {
	set := idSet(assessmentIDs)
	return r.deleteWhere(func(a *domain.AssessmentAccess) bool {
		if a.MentorID == nil || *a.MentorID != mentorID {
			return false
		}
		if studentID != nil && a.StudentID != *studentID {
			return false
		}
		return len(set) == 0 || set[a.AssessmentID]
	}), nil
}

func (r *accessRepo) deleteWhere(match func(*domain.AssessmentAccess) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, a := range r.assessmentAccess {
		if match(&a) {
			delete(r.assessmentAccess, k)
			n++
		}
	}
	return n
}
