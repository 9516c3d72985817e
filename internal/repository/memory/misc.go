package memory

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type progressRepo struct{ *db }

func (r *progressRepo) Get(_ context.Context, studentID, courseID primitive.ObjectID) (*domain.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.progress[domain.ProgressKey(studentID, courseID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = clone(p)
	return &p, nil
}

func (r *progressRepo) AddCompletedModule(_ context.Context, studentID, courseID primitive.ObjectID, moduleID string) (*domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.ProgressKey(studentID, courseID)
	p, ok := r.progress[key]
	if !ok {
		p = domain.Progress{ID: key, StudentID: studentID, CourseID: courseID}
	}
	seen := false
	for _, m := range p.CompletedModules {
		if m == moduleID {
			seen = true
			break
		}
	}
	if !seen {
		p.CompletedModules = append(p.CompletedModules, moduleID)
	}
	p.UpdatedAt = time.Now().UTC()
	r.progress[key] = clone(p)
	out := clone(p)
	return &out, nil
}

func (r *progressRepo) ListByCourse(_ context.Context, courseID primitive.ObjectID) ([]domain.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(p *domain.Progress) bool { return p.CourseID == courseID }
	return collect(r.progress, keep, func(a, b *domain.Progress) bool { return a.ID < b.ID }), nil
}

func (r *progressRepo) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]domain.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keep := func(p *domain.Progress) bool { return p.StudentID == studentID }
	return collect(r.progress, keep, func(a, b *domain.Progress) bool { return a.ID < b.ID }), nil
}

type announcementRepo struct{ *db }

func (r *announcementRepo) Create(_ context.Context, a *domain.Announcement) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.announcements[a.ID] = clone(*a)
	return a.ID, nil
}

func (r *announcementRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Announcement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.announcements[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (r *announcementRepo) ListByCourses(_ context.Context, courseIDs []primitive.ObjectID, limit int) ([]domain.Announcement, error) {
	set := idSet(courseIDs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := collect(r.announcements,
		func(a *domain.Announcement) bool { return set[a.CourseID] },
		func(a, b *domain.Announcement) bool {
			return a.CreatedAt.After(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID.Hex() > b.ID.Hex())
		})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *announcementRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.announcements[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.announcements, id)
	return nil
}

type uploadRepo struct{ *db }

func (r *uploadRepo) Create(_ context.Context, u *domain.Upload) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = primitive.NewObjectID()
	u.UploadedAt = time.Now().UTC()
	r.uploads[u.ID] = clone(*u)
	return u.ID, nil
}

func (r *uploadRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = clone(u)
	return &u, nil
}

func (r *uploadRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.uploads, id)
	return nil
}
