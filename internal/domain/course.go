package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is owned by the instructor who created it.
type Course struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	AccessCode      string               `bson:"accessCode" json:"accessCode"` // shared secret for self-enrollment
	InstructorID    primitive.ObjectID   `bson:"instructorId" json:"instructorId"`
	CoInstructorIDs []primitive.ObjectID `bson:"coInstructorIds,omitempty" json:"coInstructorIds,omitempty"`
	ThumbnailURL    string               `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	// TotalModules is denormalized from the course's sections. See TotalModules.
	TotalModules int       `bson:"totalModules" json:"totalModules"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsTaughtBy reports whether userID is the owner or a co-instructor.
func (c *Course) IsTaughtBy(userID primitive.ObjectID) bool {
	return c.InstructorID == userID || containsID(c.CoInstructorIDs, userID)
}

// Validate checks the fields a course needs before it is persisted.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: course title is required", ErrValidation)
	}
	if c.InstructorID.IsZero() {
		return fmt.Errorf("%w: course instructor is required", ErrValidation)
	}
	return nil
}

// ModuleType distinguishes the kinds of content a module can hold.
type ModuleType string

const (
	ModuleVideo ModuleType = "video"
	ModuleText  ModuleType = "text"
	ModuleQuiz  ModuleType = "quiz"
)

func (t ModuleType) Valid() bool {
	return t == ModuleVideo || t == ModuleText || t == ModuleQuiz
}

// Module is embedded inside its section (or sub-section); it is not a
// standalone document.
type Module struct {
	ID            string     `bson:"id" json:"id"`
	Title         string     `bson:"title" json:"title"`
	Type          ModuleType `bson:"type" json:"type"`
	Content       string     `bson:"content" json:"content"` // video URL or text body
	QuizQuestions []Question `bson:"quizQuestions,omitempty" json:"quizQuestions,omitempty"`
}

func (m *Module) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: module title is required", ErrValidation)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w: unknown module type %q", ErrValidation, m.Type)
	}
	switch m.Type {
	case ModuleVideo, ModuleText:
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: %s module requires content", ErrValidation, m.Type)
		}
	case ModuleQuiz:
		if len(m.QuizQuestions) == 0 {
			return fmt.Errorf("%w: quiz module requires at least one question", ErrValidation)
		}
		for i := range m.QuizQuestions {
			if err := m.QuizQuestions[i].Validate(i); err != nil {
				return err
			}
		}
	}
	return nil
}

type SubSection struct {
	ID      string   `bson:"id" json:"id"`
	Title   string   `bson:"title" json:"title"`
	Order   int      `bson:"order" json:"order"`
	Modules []Module `bson:"modules" json:"modules"`
}

// Section belongs to a course and embeds its modules and sub-sections.
// Sections are soft deleted: DeletedAt is set and the section can be restored.
type Section struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID    primitive.ObjectID `bson:"courseId" json:"courseId"`
	Title       string             `bson:"title" json:"title"`
	Order       int                `bson:"order" json:"order"`
	Modules     []Module           `bson:"modules" json:"modules"`
	SubSections []SubSection       `bson:"subSections" json:"subSections"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (s *Section) IsDeleted() bool {
	return s.DeletedAt != nil
}

// ModuleCount counts modules directly in the section and in its sub-sections.
func (s *Section) ModuleCount() int {
	n := len(s.Modules)
	for _, sub := range s.SubSections {
		n += len(sub.Modules)
	}
	return n
}

// FindModule returns a pointer into the section for the module with the given
// ID, searching sub-sections too.
func (s *Section) FindModule(moduleID string) *Module {
	for i := range s.Modules {
		if s.Modules[i].ID == moduleID {
			return &s.Modules[i]
		}
	}
	for i := range s.SubSections {
		for j := range s.SubSections[i].Modules {
			if s.SubSections[i].Modules[j].ID == moduleID {
				return &s.SubSections[i].Modules[j]
			}
		}
	}
	return nil
}

// RemoveModule deletes the module wherever it lives and reports whether it was found.
func (s *Section) RemoveModule(moduleID string) bool {
	if out, ok := removeModule(s.Modules, moduleID); ok {
		s.Modules = out
		return true
	}
	for i := range s.SubSections {
		if out, ok := removeModule(s.SubSections[i].Modules, moduleID); ok {
			s.SubSections[i].Modules = out
			return true
		}
	}
	return false
}

func (s *Section) FindSubSection(id string) *SubSection {
	for i := range s.SubSections {
		if s.SubSections[i].ID == id {
			return &s.SubSections[i]
		}
	}
	return nil
}

func removeModule(mods []Module, id string) ([]Module, bool) {
	for i := range mods {
		if mods[i].ID == id {
			return append(mods[:i:i], mods[i+1:]...), true
		}
	}
	return mods, false
}

// TotalModules sums module counts across all sections that are not deleted.
func TotalModules(sections []Section) int {
	total := 0
	for i := range sections {
		if sections[i].IsDeleted() {
			continue
		}
		total += sections[i].ModuleCount()
	}
	return total
}

// Announcement is a message posted to everyone enrolled in a course.
type Announcement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID  primitive.ObjectID `bson:"courseId" json:"courseId"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Progress tracks which modules of a course a student completed.
type Progress struct {
	ID               string             `bson:"_id" json:"id"` // ProgressKey(studentID, courseID)
	StudentID        primitive.ObjectID `bson:"studentId" json:"studentId"`
	CourseID         primitive.ObjectID `bson:"courseId" json:"courseId"`
	CompletedModules []string           `bson:"completedModules" json:"completedModules"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Percent returns completion in [0, 100] against the course's module total.
func (p *Progress) Percent(totalModules int) float64 {
	if p == nil || totalModules <= 0 {
		return 0
	}
	done := len(p.CompletedModules)
	if done > totalModules {
		done = totalModules
	}
	return float64(done) * 100 / float64(totalModules)
}
