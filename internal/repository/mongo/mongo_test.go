package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// These tests need a reachable server, e.g.
// LP_TEST_MONGO_URI=mongodb://localhost:27017 go test ./internal/repository/mongo/
func testStore(t *testing.T) *repository.Store {
	t.Helper()
	uri := os.Getenv("LP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("LP_TEST_MONGO_URI not set")
	}
	client, err := ConnectDB(uri)
	require.NoError(t, err)

	db := client.Database("lp_test_" + primitive.NewObjectID().Hex())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	EnsureIndexes(ctx, db)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = DisconnectDB(client)
	})
	return NewStore(client, db, false)
}

func TestUserRepository(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.Users.Create(ctx, &domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleMentor})
	require.NoError(t, err)

	_, err = store.Users.Create(ctx, &domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := store.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	require.NoError(t, store.Users.SetSuspended(ctx, id, true))
	got, err = store.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Suspended)

	counts, err := store.Users.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.RoleMentor])

	_, err = store.Users.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssessmentAccessBulkUpsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	mentorID, assessmentID := primitive.NewObjectID(), primitive.NewObjectID()

	grants := make([]domain.AssessmentAccess, 3)
	keys := make([]string, 3)
	for i := range grants {
		studentID := primitive.NewObjectID()
		keys[i] = domain.AssessmentAccessKey(studentID, assessmentID)
		grants[i] = domain.AssessmentAccess{
			ID:           keys[i],
			StudentID:    studentID,
			AssessmentID: assessmentID,
			MentorID:     &mentorID,
			GrantedBy:    mentorID,
			Source:       domain.AccessFromMentor,
			GrantedAt:    time.Now().UTC(),
		}
	}

	n, err := store.AssessmentAccess.BulkUpsert(ctx, grants[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.AssessmentAccess.BulkUpsert(ctx, grants)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	existing, err := store.AssessmentAccess.ExistingKeys(ctx, append(keys, "missing"))
	require.NoError(t, err)
	assert.Len(t, existing, 3)
	assert.False(t, existing["missing"])

	n, err = store.AssessmentAccess.DeleteGrantedByMentor(ctx, mentorID, &grants[0].StudentID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.AssessmentAccess.DeleteKeys(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSectionSoftDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	courseID := primitive.NewObjectID()

	id, err := store.Sections.Create(ctx, &domain.Section{CourseID: courseID, Title: "Basics", Order: 1})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.Sections.SetDeletedAt(ctx, id, &now))

	visible, err := store.Sections.ListByCourse(ctx, courseID, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := store.Sections.ListByCourse(ctx, courseID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDeleted())

	require.NoError(t, store.Sections.SetDeletedAt(ctx, id, nil))
	visible, err = store.Sections.ListByCourse(ctx, courseID, false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestAssessmentQuestionsRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	zero := 0
	questions := []domain.Question{
		{Text: "Pick one", Type: domain.QuestionSingleChoice, Options: []string{"a", "b", "c"}, CorrectAnswer: &zero},
		{Text: "Pick many", Type: domain.QuestionMultipleChoice, Options: []string{"a", "b", "c"}, CorrectAnswers: []int{2, 0}},
		{Text: "Explain", Type: domain.QuestionParagraph},
		{Text: "What is shown?", Type: domain.QuestionImageText, Options: []string{"cat", "dog"}, CorrectAnswer: &zero, ImageURL: "https://cdn.example.com/q.png"},
	}

	id, err := store.Assessments.Create(ctx, &domain.Assessment{
		Title:        "Round trip",
		Questions:    questions,
		InstructorID: primitive.NewObjectID(),
		CreatedBy:    primitive.NewObjectID(),
	})
	require.NoError(t, err)

	got, err := store.Assessments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, questions, got.Questions)
}
