package memory

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type courseRepo struct{ *db }

func (r *courseRepo) Create(_ context.Context, course *domain.Course) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if course.AccessCode != "" && c.AccessCode == course.AccessCode {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	course.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	r.courses[course.ID] = clone(*course)
	return course.ID, nil
}

func (r *courseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = clone(c)
	return &c, nil
}

func (r *courseRepo) GetByAccessCode(_ context.Context, code string) (*domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.courses {
		if c.AccessCode == code {
			c = clone(c)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *courseRepo) List(_ context.Context) ([]domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.courses, nil, byCourseCreated), nil
}

func (r *courseRepo) ListByInstructor(_ context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.courses, func(c *domain.Course) bool { return c.IsTaughtBy(instructorID) }, byCourseCreated), nil
}

func (r *courseRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Course, error) {
	set := idSet(ids)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.courses, func(c *domain.Course) bool { return set[c.ID] }, byCourseCreated), nil
}

func (r *courseRepo) Update(_ context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.courses[course.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = course.Title
	stored.Description = course.Description
	stored.ThumbnailURL = course.ThumbnailURL
	stored.AccessCode = course.AccessCode
	stored.CoInstructorIDs = course.CoInstructorIDs
	stored.UpdatedAt = time.Now().UTC()
	r.courses[course.ID] = clone(stored)
	return nil
}

func (r *courseRepo) SetTotalModules(_ context.Context, id primitive.ObjectID, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalModules = total
	r.courses[id] = c
	return nil
}

func (r *courseRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *courseRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.courses)), nil
}

func byCourseCreated(a, b *domain.Course) bool {
	return a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID.Hex() < b.ID.Hex())
}

type sectionRepo struct{ *db }

func (r *sectionRepo) Create(_ context.Context, section *domain.Section) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	section.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	section.CreatedAt, section.UpdatedAt = now, now
	r.sections[section.ID] = clone(*section)
	return section.ID, nil
}

func (r *sectionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s = clone(s)
	return &s, nil
}

func (r *sectionRepo) ListByCourse(_ context.Context, courseID primitive.ObjectID, includeDeleted bool) ([]domain.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(s *domain.Section) bool {
		return s.CourseID == courseID && (includeDeleted || !s.IsDeleted())
	}
	return collect(r.sections, keep, bySectionOrder), nil
}

func (r *sectionRepo) Update(_ context.Context, section *domain.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sections[section.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Title = section.Title
	stored.Order = section.Order
	stored.Modules = section.Modules
	stored.SubSections = section.SubSections
	stored.UpdatedAt = time.Now().UTC()
	r.sections[section.ID] = clone(stored)
	return nil
}

func (r *sectionRepo) SetDeletedAt(_ context.Context, id primitive.ObjectID, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sections[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.DeletedAt = at
	s.UpdatedAt = time.Now().UTC()
	r.sections[id] = clone(s)
	return nil
}

func (r *sectionRepo) DeleteByCourse(_ context.Context, courseID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sections {
		if s.CourseID == courseID {
			delete(r.sections, id)
		}
	}
	return nil
}

func bySectionOrder(a, b *domain.Section) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.ID.Hex() < b.ID.Hex()
}
