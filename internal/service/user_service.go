package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"errors"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrCannotModifySelf = errors.New("admins cannot change their own role or suspension")

// UserService covers profile lookup and the admin user management screen.
type UserService interface {
	GetMe(ctx context.Context, p domain.Principal) (*domain.User, error)
	ListUsers(ctx context.Context, p domain.Principal, role domain.Role) ([]domain.User, error)
	CreateUser(ctx context.Context, p domain.Principal, name, email, password string, role domain.Role) (*domain.User, error)
	SetRole(ctx context.Context, p domain.Principal, userID primitive.ObjectID, role domain.Role) (*domain.User, error)
	SetSuspended(ctx context.Context, p domain.Principal, userID primitive.ObjectID, suspended bool) (*domain.User, error)
	// BanFromCourse blocks the user from the course and deactivates their enrollment.
	BanFromCourse(ctx context.Context, p domain.Principal, userID, courseID primitive.ObjectID) error
}

type userService struct {
	userRepo       repository.UserRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewUserService creates a new instance of userService.
func NewUserService(
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
) UserService {
	return &userService{
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *userService) GetMe(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	user.PasswordHash = ""
	enrollments, err := s.enrollmentRepo.ListActiveByStudent(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range enrollments {
		user.EnrolledCourses = append(user.EnrolledCourses, e.CourseID)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, p domain.Principal, role domain.Role) ([]domain.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	users, err := s.userRepo.List(ctx, role)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// CreateUser lets an admin create an account with any role.
func (s *userService) CreateUser(ctx context.Context, p domain.Principal, name, email, password string, role domain.Role) (*domain.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	user, err := createUser(ctx, s.userRepo, name, email, password, role)
	if err != nil {
		return nil, err
	}
	glog.Infof("Admin %s created %s account %s", p.UserID.Hex(), role, user.ID.Hex())
	return user, nil
}

func (s *userService) SetRole(ctx context.Context, p domain.Principal, userID primitive.ObjectID, role domain.Role) (*domain.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	if p.Is(userID) {
		return nil, ErrCannotModifySelf
	}
	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	glog.Infof("Admin %s set role of %s to %s", p.UserID.Hex(), userID.Hex(), role)
	return s.reload(ctx, userID)
}

func (s *userService) SetSuspended(ctx context.Context, p domain.Principal, userID primitive.ObjectID, suspended bool) (*domain.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if p.Is(userID) {
		return nil, ErrCannotModifySelf
	}
	if err := s.userRepo.SetSuspended(ctx, userID, suspended); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	glog.Infof("Admin %s set suspended=%t on %s", p.UserID.Hex(), suspended, userID.Hex())
	return s.reload(ctx, userID)
}

// BanFromCourse is allowed to admins and to the course's instructors.
func (s *userService) BanFromCourse(ctx context.Context, p domain.Principal, userID, courseID primitive.ObjectID) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return notFound(err, ErrCourseNotFound)
	}
	if !authz.CanEditCourse(p, course) {
		return ErrAccessDenied
	}
	if err := s.userRepo.AddBannedCourse(ctx, userID, courseID); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if _, err := s.enrollmentRepo.SetStatusMany(ctx, []string{domain.EnrollmentKey(userID, courseID)}, domain.StatusInactive); err != nil {
		return err
	}
	glog.Infof("User %s banned from course %s by %s", userID.Hex(), courseID.Hex(), p.UserID.Hex())
	return nil
}

func (s *userService) reload(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	user.PasswordHash = ""
	return user, nil
}
