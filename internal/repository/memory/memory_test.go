package memory

import (
	"context"
	"testing"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Users.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleStudent})
	require.NoError(t, err)
	_, err = store.Users.Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	section := &domain.Section{CourseID: primitive.NewObjectID(), Title: "s", Modules: []domain.Module{{ID: "m1", Title: "one"}}}
	id, err := store.Sections.Create(ctx, section)
	require.NoError(t, err)

	got, err := store.Sections.GetByID(ctx, id)
	require.NoError(t, err)
	got.Modules[0].Title = "changed"

	again, err := store.Sections.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "one", again.Modules[0].Title)
}

func TestSoftDeletedSectionsAreFiltered(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	courseID := primitive.NewObjectID()

	keep, _ := store.Sections.Create(ctx, &domain.Section{CourseID: courseID, Order: 1})
	gone, _ := store.Sections.Create(ctx, &domain.Section{CourseID: courseID, Order: 2})
	now := time.Now()
	require.NoError(t, store.Sections.SetDeletedAt(ctx, gone, &now))

	live, err := store.Sections.ListByCourse(ctx, courseID, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, keep, live[0].ID)

	all, err := store.Sections.ListByCourse(ctx, courseID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAccessBulkUpsertKeepsFirstGrant(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	student, assessment, mentor := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	key := domain.AssessmentAccessKey(student, assessment)

	n, err := store.AssessmentAccess.BulkUpsert(ctx, []domain.AssessmentAccess{
		{ID: key, StudentID: student, AssessmentID: assessment, MentorID: &mentor, Source: domain.AccessFromMentor},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.AssessmentAccess.BulkUpsert(ctx, []domain.AssessmentAccess{
		{ID: key, StudentID: student, AssessmentID: assessment, Source: domain.AccessFromAdmin},
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := store.AssessmentAccess.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessFromMentor, got.Source)

	removed, err := store.AssessmentAccess.DeleteGrantedByMentor(ctx, mentor, &student, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestEnrollmentSetStatusManyCountsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	course, mentor := primitive.NewObjectID(), primitive.NewObjectID()

	var keys []string
	for i := 0; i < 3; i++ {
		student := primitive.NewObjectID()
		e := &domain.Enrollment{ID: domain.EnrollmentKey(student, course), StudentID: student, CourseID: course, MentorID: &mentor, Status: domain.StatusActive}
		require.NoError(t, store.Enrollments.Upsert(ctx, e))
		keys = append(keys, e.ID)
	}

	n, err := store.Enrollments.SetStatusMany(ctx, append(keys, "missing"), domain.StatusInactive)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = store.Enrollments.SetStatusMany(ctx, keys, domain.StatusInactive)
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := store.Enrollments.ListActiveByCourseAndMentor(ctx, course, mentor)
	require.NoError(t, err)
	assert.Empty(t, active)
}
