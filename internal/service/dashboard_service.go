package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/grading"
	"alcyxob/learning-platform/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// dashboardFanOut bounds concurrent per-item lookups.
const dashboardFanOut = 8

const feedLimit = 20

type AdminDashboard struct {
	UsersByRole map[domain.Role]int64 `json:"usersByRole"`
	TotalUsers  int64                 `json:"totalUsers"`
	Courses     int64                 `json:"courses"`
	Assessments int64                 `json:"assessments"`
}

type CourseStats struct {
	CourseID          primitive.ObjectID `json:"courseId"`
	Title             string             `json:"title"`
	TotalModules      int                `json:"totalModules"`
	ActiveEnrollments int                `json:"activeEnrollments"`
	AverageProgress   float64            `json:"averageProgress"`
}

type AssessmentStats struct {
	AssessmentID primitive.ObjectID `json:"assessmentId"`
	Title        string             `json:"title"`
	Submissions  int                `json:"submissions"`
	AverageScore float64            `json:"averageScore"` // percent of maxScore
}

type InstructorDashboard struct {
	Courses     []CourseStats     `json:"courses"`
	Assessments []AssessmentStats `json:"assessments"`
}

type CourseProgress struct {
	CourseID     primitive.ObjectID `json:"courseId"`
	Title        string             `json:"title"`
	TotalModules int                `json:"totalModules"`
	Completed    int                `json:"completed"`
	Percent      float64            `json:"percent"`
}

type StudentProgress struct {
	StudentID primitive.ObjectID `json:"studentId"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Courses   []CourseProgress   `json:"courses"`
}

type MentorDashboard struct {
	Courses  []domain.Course   `json:"courses"`
	Students []StudentProgress `json:"students"`
}

type AssessmentSummary struct {
	AssessmentID primitive.ObjectID `json:"assessmentId"`
	Title        string             `json:"title"`
	Submitted    bool               `json:"submitted"`
	Score        int                `json:"score,omitempty"`
	MaxScore     int                `json:"maxScore,omitempty"`
}

type StudentDashboard struct {
	Courses       []CourseProgress      `json:"courses"`
	Assessments   []AssessmentSummary   `json:"assessments"`
	Announcements []domain.Announcement `json:"announcements"`
}

// DashboardService builds read-only, role-scoped summaries.
type DashboardService interface {
	Admin(ctx context.Context, p domain.Principal) (*AdminDashboard, error)
	Instructor(ctx context.Context, p domain.Principal) (*InstructorDashboard, error)
	Mentor(ctx context.Context, p domain.Principal) (*MentorDashboard, error)
	Student(ctx context.Context, p domain.Principal) (*StudentDashboard, error)
}

type dashboardService struct {
	store *repository.Store
}

// NewDashboardService creates a new instance of dashboardService.
func NewDashboardService(store *repository.Store) DashboardService {
	return &dashboardService{store: store}
}

func (s *dashboardService) Admin(ctx context.Context, p domain.Principal) (*AdminDashboard, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	d := &AdminDashboard{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		byRole, err := s.store.Users.CountByRole(ctx)
		if err != nil {
			return err
		}
		d.UsersByRole = byRole
		for _, n := range byRole {
			d.TotalUsers += n
		}
		return nil
	})
	g.Go(func() (err error) {
		d.Courses, err = s.store.Courses.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.Assessments, err = s.store.Assessments.Count(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// Instructor summarizes the caller's courses and assessments.
func (s *dashboardService) Instructor(ctx context.Context, p domain.Principal) (*InstructorDashboard, error) {
	if err := authz.RequireRole(p, domain.RoleInstructor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	courses, err := s.store.Courses.ListByInstructor(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	assessments, err := s.store.Assessments.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	d := &InstructorDashboard{
		Courses:     make([]CourseStats, len(courses)),
		Assessments: make([]AssessmentStats, len(assessments)),
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardFanOut)
	for i := range courses {
		i, c := i, courses[i]
		g.Go(func() error {
			stats, err := s.courseStats(ctx, &c)
			if err != nil {
				return err
			}
			d.Courses[i] = *stats
			return nil
		})
	}
	for i := range assessments {
		i, a := i, assessments[i]
		g.Go(func() error {
			subs, err := s.store.Submissions.ListByAssessment(ctx, a.ID)
			if err != nil {
				return err
			}
			st := AssessmentStats{AssessmentID: a.ID, Title: a.Title, Submissions: len(subs)}
			var sum float64
			for _, sub := range subs {
				sum += grading.Grade(a.Questions, sub.Answers).Percent()
			}
			if len(subs) > 0 {
				st.AverageScore = sum / float64(len(subs))
			}
			d.Assessments[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *dashboardService) courseStats(ctx context.Context, c *domain.Course) (*CourseStats, error) {
	enrollments, err := s.store.Enrollments.ListActiveByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	progress, err := s.store.Progress.ListByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	byStudent := make(map[primitive.ObjectID]*domain.Progress, len(progress))
	for i := range progress {
		byStudent[progress[i].StudentID] = &progress[i]
	}

	st := &CourseStats{
		CourseID:          c.ID,
		Title:             c.Title,
		TotalModules:      c.TotalModules,
		ActiveEnrollments: len(enrollments),
	}
	if len(enrollments) > 0 {
		var sum float64
		for _, e := range enrollments {
			sum += byStudent[e.StudentID].Percent(c.TotalModules)
		}
		st.AverageProgress = sum / float64(len(enrollments))
	}
	return st, nil
}

// Mentor lists the caller's assigned courses and, per assigned student, their
// progress in those courses.
func (s *dashboardService) Mentor(ctx context.Context, p domain.Principal) (*MentorDashboard, error) {
	if err := authz.RequireRole(p, domain.RoleMentor); err != nil {
		return nil, err
	}
	courseLinks, err := s.store.MentorCourses.ListActiveByMentor(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	courseIDs := make([]primitive.ObjectID, len(courseLinks))
	for i, l := range courseLinks {
		courseIDs[i] = l.CourseID
	}
	courses, err := s.store.Courses.ListByIDs(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	courseByID := make(map[primitive.ObjectID]*domain.Course, len(courses))
	for i := range courses {
		courseByID[courses[i].ID] = &courses[i]
	}

	studentLinks, err := s.store.MentorStudents.ListActiveByMentor(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	studentIDs := make([]primitive.ObjectID, len(studentLinks))
	for i, l := range studentLinks {
		studentIDs[i] = l.StudentID
	}
	students, err := s.store.Users.GetByIDs(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	d := &MentorDashboard{Courses: courses, Students: make([]StudentProgress, len(students))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardFanOut)
	for i := range students {
		i, u := i, students[i]
		g.Go(func() error {
			progress, err := s.studentCourses(ctx, u.ID, func(id primitive.ObjectID) *domain.Course { return courseByID[id] })
			if err != nil {
				return err
			}
			d.Students[i] = StudentProgress{StudentID: u.ID, Name: u.Name, Email: u.Email, Courses: progress}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// studentCourses returns progress for each active enrollment whose course
// lookup returns non-nil.
func (s *dashboardService) studentCourses(ctx context.Context, studentID primitive.ObjectID, lookup func(primitive.ObjectID) *domain.Course) ([]CourseProgress, error) {
	enrollments, err := s.store.Enrollments.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	progress, err := s.store.Progress.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[primitive.ObjectID]*domain.Progress, len(progress))
	for i := range progress {
		byCourse[progress[i].CourseID] = &progress[i]
	}

	out := []CourseProgress{}
	for _, e := range enrollments {
		c := lookup(e.CourseID)
		if c == nil {
			continue
		}
		pr := byCourse[c.ID]
		cp := CourseProgress{CourseID: c.ID, Title: c.Title, TotalModules: c.TotalModules, Percent: pr.Percent(c.TotalModules)}
		if pr != nil {
			cp.Completed = len(pr.CompletedModules)
		}
		out = append(out, cp)
	}
	return out, nil
}

// Student returns the caller's courses, accessible assessments and the latest
// announcements of their courses.
func (s *dashboardService) Student(ctx context.Context, p domain.Principal) (*StudentDashboard, error) {
	if err := authz.RequireRole(p, domain.RoleStudent); err != nil {
		return nil, err
	}
	enrollments, err := s.store.Enrollments.ListActiveByStudent(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	courseIDs := make([]primitive.ObjectID, len(enrollments))
	for i, e := range enrollments {
		courseIDs[i] = e.CourseID
	}

	d := &StudentDashboard{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		courses, err := s.store.Courses.ListByIDs(gctx, courseIDs)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]*domain.Course, len(courses))
		for i := range courses {
			byID[courses[i].ID] = &courses[i]
		}
		d.Courses, err = s.studentCourses(gctx, p.UserID, func(id primitive.ObjectID) *domain.Course { return byID[id] })
		return err
	})
	g.Go(func() error {
		assessments, err := accessibleAssessments(gctx, s.store.Assessments, s.store.AssessmentAccess, s.store.Enrollments, p.UserID)
		if err != nil {
			return err
		}
		subs, err := s.store.Submissions.ListByStudent(gctx, p.UserID)
		if err != nil {
			return err
		}
		byAssessment := make(map[primitive.ObjectID]*domain.Submission, len(subs))
		for i := range subs {
			byAssessment[subs[i].AssessmentID] = &subs[i]
		}
		d.Assessments = make([]AssessmentSummary, len(assessments))
		for i, a := range assessments {
			sum := AssessmentSummary{AssessmentID: a.ID, Title: a.Title}
			if sub, ok := byAssessment[a.ID]; ok {
				sum.Submitted = true
				r := grading.Grade(a.Questions, sub.Answers)
				sum.Score, sum.MaxScore = r.Score, r.MaxScore
			}
			d.Assessments[i] = sum
		}
		return nil
	})
	g.Go(func() (err error) {
		d.Announcements, err = s.store.Announcements.ListByCourses(gctx, courseIDs, feedLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
