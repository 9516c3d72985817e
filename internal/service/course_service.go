package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrSectionNotFound      = errors.New("section not found")
	ErrSubSectionNotFound   = errors.New("sub-section not found")
	ErrModuleNotFound       = errors.New("module not found")
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrNotEnrolled          = errors.New("student is not enrolled in this course")
	ErrAccessCodeExhausted  = errors.New("could not generate a unique access code")
)

const accessCodeAttempts = 5

// CourseInput carries the editable course fields.
type CourseInput struct {
	Title        string
	Description  string
	ThumbnailURL string
	AccessCode   string // generated when empty on create
}

// CourseDetail is a course with its curriculum.
type CourseDetail struct {
	Course   *domain.Course
	Sections []domain.Section
}

// CourseService manages courses, their curriculum, enrollment by access code,
// progress and announcements.
type CourseService interface {
	CreateCourse(ctx context.Context, p domain.Principal, in CourseInput) (*domain.Course, error)
	GetCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) (*CourseDetail, error)
	ListCourses(ctx context.Context, p domain.Principal) ([]domain.Course, error)
	UpdateCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, in CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) error
	AddCoInstructor(ctx context.Context, p domain.Principal, courseID, userID primitive.ObjectID) (*domain.Course, error)
	RemoveCoInstructor(ctx context.Context, p domain.Principal, courseID, userID primitive.ObjectID) (*domain.Course, error)

	AddSection(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, title string, order int) (*domain.Section, error)
	UpdateSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, title string, order int) (*domain.Section, error)
	DeleteSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID) error
	RestoreSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID) (*domain.Section, error)
	AddSubSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, title string, order int) (*domain.Section, error)
	RemoveSubSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, subSectionID string) (*domain.Section, error)
	// AddModule appends to the section, or to the sub-section when subSectionID is set.
	AddModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, subSectionID string, module domain.Module) (*domain.Module, error)
	UpdateModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, moduleID string, patch map[string]any) (*domain.Module, error)
	RemoveModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, moduleID string) error
	// RecomputeTotalModules rewrites the course's totalModules from its sections.
	RecomputeTotalModules(ctx context.Context, courseID primitive.ObjectID) (int, error)

	SelfEnroll(ctx context.Context, p domain.Principal, accessCode string) (*domain.Enrollment, error)
	MarkModuleComplete(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, moduleID string) (*domain.Progress, error)

	PostAnnouncement(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, title, body string) (*domain.Announcement, error)
	ListAnnouncements(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) ([]domain.Announcement, error)
	DeleteAnnouncement(ctx context.Context, p domain.Principal, courseID, announcementID primitive.ObjectID) error
}

type courseService struct {
	userRepo         repository.UserRepository
	courseRepo       repository.CourseRepository
	sectionRepo      repository.SectionRepository
	mentorCourseRepo repository.MentorCourseAssignmentRepository
	enrollmentRepo   repository.EnrollmentRepository
	progressRepo     repository.ProgressRepository
	announcementRepo repository.AnnouncementRepository
}

// NewCourseService creates a new instance of courseService.
func NewCourseService(
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	sectionRepo repository.SectionRepository,
	mentorCourseRepo repository.MentorCourseAssignmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	progressRepo repository.ProgressRepository,
	announcementRepo repository.AnnouncementRepository,
) CourseService {
	return &courseService{
		userRepo:         userRepo,
		courseRepo:       courseRepo,
		sectionRepo:      sectionRepo,
		mentorCourseRepo: mentorCourseRepo,
		enrollmentRepo:   enrollmentRepo,
		progressRepo:     progressRepo,
		announcementRepo: announcementRepo,
	}
}

// === Courses ===

func (s *courseService) CreateCourse(ctx context.Context, p domain.Principal, in CourseInput) (*domain.Course, error) {
	if !authz.CanCreateCourse(p) {
		return nil, ErrAccessDenied
	}
	course := &domain.Course{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		AccessCode:   strings.TrimSpace(in.AccessCode),
		InstructorID: p.UserID,
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}

	generated := course.AccessCode == ""
	for attempt := 0; ; attempt++ {
		if generated {
			course.AccessCode = newAccessCode()
		}
		_, err := s.courseRepo.Create(ctx, course)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		if !generated {
			return nil, invalidf("access code %q is already in use", course.AccessCode)
		}
		if attempt+1 >= accessCodeAttempts {
			return nil, ErrAccessCodeExhausted
		}
	}

	glog.Infof("Course %s created by %s", course.ID.Hex(), p.UserID.Hex())
	return course, nil
}

// newAccessCode returns an 8 character uppercase code.
func newAccessCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// GetCourse returns the course with its sections. Editors also see soft deleted
// sections; mentors must be assigned and students enrolled.
func (s *courseService) GetCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) (*CourseDetail, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	editor := authz.CanEditCourse(p, course)
	if !editor {
		ok, err := s.canView(ctx, p, course)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAccessDenied
		}
	}
	sections, err := s.sectionRepo.ListByCourse(ctx, courseID, editor)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: course, Sections: sections}, nil
}

func (s *courseService) canView(ctx context.Context, p domain.Principal, course *domain.Course) (bool, error) {
	switch p.Role {
	case domain.RoleMentor:
		return hasActiveMentorCourse(ctx, s.mentorCourseRepo, p.UserID, course.ID)
	case domain.RoleStudent:
		return isActivelyEnrolled(ctx, s.enrollmentRepo, p.UserID, course.ID)
	}
	return false, nil
}

// ListCourses is scoped by role: admins see every course, instructors the ones
// they teach, mentors their assigned ones and students their enrollments.
func (s *courseService) ListCourses(ctx context.Context, p domain.Principal) ([]domain.Course, error) {
	switch p.Role {
	case domain.RoleAdmin:
		return s.courseRepo.List(ctx)
	case domain.RoleInstructor:
		return s.courseRepo.ListByInstructor(ctx, p.UserID)
	case domain.RoleMentor:
		links, err := s.mentorCourseRepo.ListActiveByMentor(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		ids := make([]primitive.ObjectID, len(links))
		for i, l := range links {
			ids[i] = l.CourseID
		}
		return s.courseRepo.ListByIDs(ctx, ids)
	case domain.RoleStudent:
		enrollments, err := s.enrollmentRepo.ListActiveByStudent(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		ids := make([]primitive.ObjectID, len(enrollments))
		for i, e := range enrollments {
			ids[i] = e.CourseID
		}
		return s.courseRepo.ListByIDs(ctx, ids)
	}
	return []domain.Course{}, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, in CourseInput) (*domain.Course, error) {
	course, err := s.editableCourse(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	course.Title = strings.TrimSpace(in.Title)
	course.Description = in.Description
	course.ThumbnailURL = in.ThumbnailURL
	if code := strings.TrimSpace(in.AccessCode); code != "" {
		course.AccessCode = code
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Update(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidf("access code %q is already in use", course.AccessCode)
		}
		return nil, notFound(err, ErrCourseNotFound)
	}
	return course, nil
}

// DeleteCourse removes the course and all of its sections.
func (s *courseService) DeleteCourse(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteCourse(p, course) {
		return ErrAccessDenied
	}
	if err := s.sectionRepo.DeleteByCourse(ctx, courseID); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(ctx, courseID); err != nil {
		return notFound(err, ErrCourseNotFound)
	}
	glog.Infof("Course %s deleted by %s", courseID.Hex(), p.UserID.Hex())
	return nil
}

// AddCoInstructor is limited to the owner and admins.
func (s *courseService) AddCoInstructor(ctx context.Context, p domain.Principal, courseID, userID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !authz.CanDeleteCourse(p, course) {
		return nil, ErrAccessDenied
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if user.Role != domain.RoleInstructor {
		return nil, invalidf("co-instructors must have the instructor role")
	}
	if course.IsTaughtBy(userID) {
		return course, nil
	}
	course.CoInstructorIDs = append(course.CoInstructorIDs, userID)
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return course, nil
}

func (s *courseService) RemoveCoInstructor(ctx context.Context, p domain.Principal, courseID, userID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !authz.CanDeleteCourse(p, course) {
		return nil, ErrAccessDenied
	}
	kept := course.CoInstructorIDs[:0]
	for _, id := range course.CoInstructorIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	course.CoInstructorIDs = kept
	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return course, nil
}

// === Sections ===

func (s *courseService) AddSection(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, title string, order int) (*domain.Section, error) {
	if _, err := s.editableCourse(ctx, p, courseID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidf("section title is required")
	}
	section := &domain.Section{
		CourseID:    courseID,
		Title:       title,
		Order:       order,
		Modules:     []domain.Module{},
		SubSections: []domain.SubSection{},
	}
	if _, err := s.sectionRepo.Create(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *courseService) UpdateSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, title string, order int) (*domain.Section, error) {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidf("section title is required")
	}
	section.Title = title
	section.Order = order
	if err := s.sectionRepo.Update(ctx, section); err != nil {
		return nil, notFound(err, ErrSectionNotFound)
	}
	return section, nil
}

// DeleteSection soft deletes the section. Its modules stop counting toward
// totalModules until it is restored.
func (s *courseService) DeleteSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID) error {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return err
	}
	if section.IsDeleted() {
		return nil
	}
	now := time.Now().UTC()
	if err := s.sectionRepo.SetDeletedAt(ctx, sectionID, &now); err != nil {
		return notFound(err, ErrSectionNotFound)
	}
	_, err = s.RecomputeTotalModules(ctx, courseID)
	return err
}

func (s *courseService) RestoreSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID) (*domain.Section, error) {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	if section.IsDeleted() {
		if err := s.sectionRepo.SetDeletedAt(ctx, sectionID, nil); err != nil {
			return nil, notFound(err, ErrSectionNotFound)
		}
		section.DeletedAt = nil
		if _, err := s.RecomputeTotalModules(ctx, courseID); err != nil {
			return nil, err
		}
	}
	return section, nil
}

func (s *courseService) AddSubSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, title string, order int) (*domain.Section, error) {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidf("sub-section title is required")
	}
	section.SubSections = append(section.SubSections, domain.SubSection{
		ID:      uuid.NewString(),
		Title:   title,
		Order:   order,
		Modules: []domain.Module{},
	})
	if err := s.sectionRepo.Update(ctx, section); err != nil {
		return nil, notFound(err, ErrSectionNotFound)
	}
	return section, nil
}

func (s *courseService) RemoveSubSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, subSectionID string) (*domain.Section, error) {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	found := false
	kept := section.SubSections[:0]
	for _, sub := range section.SubSections {
		if sub.ID == subSectionID {
			found = true
			continue
		}
		kept = append(kept, sub)
	}
	if !found {
		return nil, ErrSubSectionNotFound
	}
	section.SubSections = kept
	if err := s.saveSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// === Modules ===

func (s *courseService) AddModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, subSectionID string, module domain.Module) (*domain.Module, error) {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	module.ID = uuid.NewString()
	if err := module.Validate(); err != nil {
		return nil, err
	}
	if subSectionID != "" {
		sub := section.FindSubSection(subSectionID)
		if sub == nil {
			return nil, ErrSubSectionNotFound
		}
		sub.Modules = append(sub.Modules, module)
	} else {
		section.Modules = append(section.Modules, module)
	}
	if err := s.saveSection(ctx, section); err != nil {
		return nil, err
	}
	return &module, nil
}

// UpdateModule applies a partial update. Unknown fields are rejected.
func (s *courseService) UpdateModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, moduleID string, raw map[string]any) (*domain.Module, error) {
	patch, err := domain.DecodeModulePatch(raw)
	if err != nil {
		return nil, err
	}
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return nil, err
	}
	module := section.FindModule(moduleID)
	if module == nil {
		return nil, ErrModuleNotFound
	}
	if err := patch.Apply(module); err != nil {
		return nil, err
	}
	updated := *module
	if err := s.sectionRepo.Update(ctx, section); err != nil {
		return nil, notFound(err, ErrSectionNotFound)
	}
	return &updated, nil
}

func (s *courseService) RemoveModule(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID, moduleID string) error {
	section, err := s.editableSection(ctx, p, courseID, sectionID)
	if err != nil {
		return err
	}
	if !section.RemoveModule(moduleID) {
		return ErrModuleNotFound
	}
	return s.saveSection(ctx, section)
}

// saveSection persists a section whose module count may have changed.
func (s *courseService) saveSection(ctx context.Context, section *domain.Section) error {
	if err := s.sectionRepo.Update(ctx, section); err != nil {
		return notFound(err, ErrSectionNotFound)
	}
	_, err := s.RecomputeTotalModules(ctx, section.CourseID)
	return err
}

func (s *courseService) RecomputeTotalModules(ctx context.Context, courseID primitive.ObjectID) (int, error) {
	sections, err := s.sectionRepo.ListByCourse(ctx, courseID, false)
	if err != nil {
		return 0, err
	}
	total := domain.TotalModules(sections)
	if err := s.courseRepo.SetTotalModules(ctx, courseID, total); err != nil {
		return 0, notFound(err, ErrCourseNotFound)
	}
	glog.V(2).Infof("Course %s totalModules=%d", courseID.Hex(), total)
	return total, nil
}

// === Enrollment and progress ===

// SelfEnroll enrolls the calling student in the course with the given access
// code.
func (s *courseService) SelfEnroll(ctx context.Context, p domain.Principal, accessCode string) (*domain.Enrollment, error) {
	if err := authz.RequireRole(p, domain.RoleStudent); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(accessCode)
	if code == "" {
		return nil, invalidf("access code is required")
	}
	course, err := s.courseRepo.GetByAccessCode(ctx, code)
	if err != nil {
		return nil, notFound(err, ErrInvalidAccessCode)
	}
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if user.Suspended {
		return nil, ErrAccountSuspended
	}
	if user.IsBannedFrom(course.ID) {
		return nil, ErrBannedFromCourse
	}

	key := domain.EnrollmentKey(p.UserID, course.ID)
	enrollment := &domain.Enrollment{
		ID:        key,
		StudentID: p.UserID,
		CourseID:  course.ID,
		Status:    domain.StatusActive,
	}
	// Keep the mentor of an earlier enrollment.
	if prev, err := s.enrollmentRepo.GetByKey(ctx, key); err == nil {
		enrollment.MentorID = prev.MentorID
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := s.enrollmentRepo.Upsert(ctx, enrollment); err != nil {
		return nil, err
	}
	glog.Infof("Student %s self-enrolled in course %s", p.UserID.Hex(), course.ID.Hex())
	return enrollment, nil
}

func (s *courseService) MarkModuleComplete(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, moduleID string) (*domain.Progress, error) {
	if err := authz.RequireRole(p, domain.RoleStudent); err != nil {
		return nil, err
	}
	enrolled, err := isActivelyEnrolled(ctx, s.enrollmentRepo, p.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}
	sections, err := s.sectionRepo.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range sections {
		if sections[i].FindModule(moduleID) != nil {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrModuleNotFound
	}
	return s.progressRepo.AddCompletedModule(ctx, p.UserID, courseID, moduleID)
}

// === Announcements ===

func (s *courseService) PostAnnouncement(ctx context.Context, p domain.Principal, courseID primitive.ObjectID, title, body string) (*domain.Announcement, error) {
	if _, err := s.editableCourse(ctx, p, courseID); err != nil {
		return nil, err
	}
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, invalidf("announcement title and body are required")
	}
	a := &domain.Announcement{
		CourseID: courseID,
		AuthorID: p.UserID,
		Title:    title,
		Body:     body,
	}
	if _, err := s.announcementRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *courseService) ListAnnouncements(ctx context.Context, p domain.Principal, courseID primitive.ObjectID) ([]domain.Announcement, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditCourse(p, course) {
		ok, err := s.canView(ctx, p, course)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAccessDenied
		}
	}
	return s.announcementRepo.ListByCourses(ctx, []primitive.ObjectID{courseID}, 0)
}

func (s *courseService) DeleteAnnouncement(ctx context.Context, p domain.Principal, courseID, announcementID primitive.ObjectID) error {
	if _, err := s.editableCourse(ctx, p, courseID); err != nil {
		return err
	}
	a, err := s.announcementRepo.GetByID(ctx, announcementID)
	if err != nil {
		return notFound(err, ErrAnnouncementNotFound)
	}
	if a.CourseID != courseID {
		return ErrAnnouncementNotFound
	}
	return notFound(s.announcementRepo.Delete(ctx, announcementID), ErrAnnouncementNotFound)
}

// --- helpers ---

func (s *courseService) getCourse(ctx context.Context, id primitive.ObjectID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return course, nil
}

func (s *courseService) editableCourse(ctx context.Context, p domain.Principal, id primitive.ObjectID) (*domain.Course, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditCourse(p, course) {
		return nil, ErrAccessDenied
	}
	return course, nil
}

// editableSection loads a section of an editable course. Soft deleted
// sections stay editable so they can be restored with their content.
func (s *courseService) editableSection(ctx context.Context, p domain.Principal, courseID, sectionID primitive.ObjectID) (*domain.Section, error) {
	if _, err := s.editableCourse(ctx, p, courseID); err != nil {
		return nil, err
	}
	section, err := s.sectionRepo.GetByID(ctx, sectionID)
	if err != nil {
		return nil, notFound(err, ErrSectionNotFound)
	}
	if section.CourseID != courseID {
		return nil, ErrSectionNotFound
	}
	return section, nil
}
