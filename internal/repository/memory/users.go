package memory

import (
	"context"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepo struct{ *db }

func (r *userRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = clone(*user)
	return user.ID, nil
}

func (r *userRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = clone(u)
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			u = clone(u)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	set := idSet(ids)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.users, func(u *domain.User) bool { return set[u.ID] }, byUserName), nil
}

func (r *userRepo) List(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.users, func(u *domain.User) bool { return role == "" || u.Role == role }, byUserName), nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *userRepo) CountByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[domain.Role]int64{}
	for _, u := range r.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (r *userRepo) SetPassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *userRepo) SetRole(_ context.Context, id primitive.ObjectID, role domain.Role) error {
	return r.update(id, func(u *domain.User) { u.Role = role })
}

func (r *userRepo) SetSuspended(_ context.Context, id primitive.ObjectID, suspended bool) error {
	return r.update(id, func(u *domain.User) { u.Suspended = suspended })
}

func (r *userRepo) AddBannedCourse(_ context.Context, id, courseID primitive.ObjectID) error {
	return r.update(id, func(u *domain.User) {
		if !u.IsBannedFrom(courseID) {
			u.BannedFrom = append(u.BannedFrom, courseID)
		}
	})
}

func (r *userRepo) update(id primitive.ObjectID, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = clone(u)
	return nil
}

func byUserName(a, b *domain.User) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID.Hex() < b.ID.Hex()
}
