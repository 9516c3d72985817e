package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository/memory"
	"alcyxob/learning-platform/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "api-test-secret"

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	auth := service.NewAuthService(store.Users, testSecret, time.Hour, time.Minute)
	svc := Services{
		Auth:  auth,
		Users: service.NewUserService(store.Users, store.Courses, store.Enrollments),
		Access: service.NewAccessService(store.Users, store.Courses, store.Assessments,
			store.MentorStudents, store.MentorCourses, store.Enrollments, store.AssessmentAccess,
			store.Tx, service.AccessOptions{}),
		Courses: service.NewCourseService(store.Users, store.Courses, store.Sections,
			store.MentorCourses, store.Enrollments, store.Progress, store.Announcements),
		Assessment: service.NewAssessmentService(store.Assessments, store.Submissions, store.Courses,
			store.MentorStudents, store.MentorCourses, store.Enrollments, store.AssessmentAccess),
		Media:     service.NewMediaService(store.Uploads, nil),
		Dashboard: service.NewDashboardService(store),
	}
	router := gin.New()
	SetupRoutes(router, nil, svc)
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signup registers through the API and returns a session token.
func (s *testServer) signup(t *testing.T, name string) (string, UserResponse) {
	t.Helper()
	email := name + "@example.com"
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": name, "email": email, "password": "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(t, email)
}

func (s *testServer) login(t *testing.T, email string) (string, UserResponse) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LoginResponse](t, w)
	return resp.Token, resp.User
}

// createUser has the admin create an account with a specific role.
func (s *testServer) createUser(t *testing.T, adminToken, name string, role domain.Role) (string, UserResponse) {
	t.Helper()
	email := name + "@example.com"
	w := s.do(t, http.MethodPost, "/api/v1/admin/users", adminToken,
		gin.H{"name": name, "email": email, "password": "password1", "role": role})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(t, email)
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.signup(t, "root")

	cases := map[string]string{
		"missing header": "",
		"garbage token":  "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/me", token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Token "+adminToken)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reset token", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", gin.H{"email": "root@example.com"})
		require.Equal(t, http.StatusAccepted, w.Code)
		resetToken := decode[map[string]string](t, w)["resetToken"]
		require.NotEmpty(t, resetToken)

		w = s.do(t, http.MethodGet, "/api/v1/me", resetToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	adminToken, admin := s.signup(t, "root")
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	studentToken, student := s.signup(t, "sam")
	assert.Equal(t, domain.RoleStudent, student.Role)

	w := s.do(t, http.MethodGet, "/api/v1/me", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[UserResponse](t, w)
	assert.Equal(t, student.ID, me.ID)
	assert.Equal(t, "sam@example.com", me.Email)

	// Duplicate email.
	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "x", "email": "sam@example.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Public registration cannot pick a staff role.
	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "x", "email": "x@example.com", "password": "password1", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "sam@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Admin routes are role-gated.
	w = s.do(t, http.MethodGet, "/api/v1/admin/users", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]UserResponse](t, w), 2)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "root")

	w := s.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", gin.H{"email": "nobody@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotContains(t, decode[map[string]string](t, w), "resetToken")

	w = s.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", gin.H{"email": "root@example.com"})
	resetToken := decode[map[string]string](t, w)["resetToken"]

	w = s.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", gin.H{"token": resetToken, "password": "new-password"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// Single use: the token is bound to the old password.
	w = s.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", gin.H{"token": resetToken, "password": "other-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "root@example.com", "password": "new-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCourseRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.signup(t, "root")
	studentToken, _ := s.signup(t, "sam")

	w := s.do(t, http.MethodPost, "/api/v1/courses", studentToken, gin.H{"title": "Go"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/courses", adminToken, gin.H{"title": "Go"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	course := decode[domain.Course](t, w)
	require.NotEmpty(t, course.AccessCode)
	coursePath := "/api/v1/courses/" + course.ID.Hex()

	w = s.do(t, http.MethodPost, coursePath+"/sections", adminToken, gin.H{"title": "Basics", "order": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	section := decode[domain.Section](t, w)

	modulesPath := fmt.Sprintf("%s/sections/%s/modules", coursePath, section.ID.Hex())
	for _, title := range []string{"Intro", "Types"} {
		w = s.do(t, http.MethodPost, modulesPath, adminToken, gin.H{"title": title, "type": "text", "content": "..."})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	module := decode[domain.Module](t, w)

	w = s.do(t, http.MethodPatch, modulesPath+"/"+module.ID, adminToken, gin.H{"title": "Type system"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Type system", decode[domain.Module](t, w).Title)

	w = s.do(t, http.MethodPatch, modulesPath+"/"+module.ID, adminToken, gin.H{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not enrolled yet.
	w = s.do(t, http.MethodGet, coursePath, studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/courses/enroll", studentToken, gin.H{"accessCode": "WRONG123"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/courses/enroll", studentToken, gin.H{"accessCode": course.AccessCode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, coursePath, studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[CourseDetailResponse](t, w)
	assert.Equal(t, 2, detail.TotalModules)
	require.Len(t, detail.Sections, 1)

	w = s.do(t, http.MethodPost, coursePath+"/modules/"+module.ID+"/complete", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/sections/%s", coursePath, section.ID.Hex()), adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, coursePath, studentToken, nil)
	assert.Equal(t, 0, decode[CourseDetailResponse](t, w).TotalModules)

	w = s.do(t, http.MethodGet, "/api/v1/courses/not-an-id", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/courses/"+primitive.NewObjectID().Hex(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnassignCourseRoute(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.signup(t, "root")
	mentorToken, mentor := s.createUser(t, adminToken, "mia", domain.RoleMentor)
	_, student := s.signup(t, "sam")
	otherMentorToken, _ := s.createUser(t, adminToken, "max", domain.RoleMentor)

	w := s.do(t, http.MethodPost, "/api/v1/courses", adminToken, gin.H{"title": "Go"})
	require.Equal(t, http.StatusCreated, w.Code)
	course := decode[domain.Course](t, w)

	mentorPath := "/api/v1/access/mentors/" + mentor.ID
	w = s.do(t, http.MethodPost, mentorPath+"/courses/"+course.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, mentorPath+"/students/"+student.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Mentors only act for themselves.
	w = s.do(t, http.MethodPost, mentorPath+"/enrollments", otherMentorToken, gin.H{"studentId": student.ID, "courseId": course.ID.Hex()})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, mentorPath+"/enrollments", mentorToken, gin.H{"studentId": student.ID, "courseId": course.ID.Hex()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusActive, decode[domain.Enrollment](t, w).Status)

	// Only admins unassign courses.
	w = s.do(t, http.MethodDelete, mentorPath+"/courses/"+course.ID.Hex(), mentorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, mentorPath+"/courses/"+course.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[service.UnassignResult](t, w)
	assert.Equal(t, int64(1), res.EnrollmentsDeactivated)

	// Repeating is harmless.
	w = s.do(t, http.MethodDelete, mentorPath+"/courses/"+course.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), decode[service.UnassignResult](t, w).EnrollmentsDeactivated)

	w = s.do(t, http.MethodDelete, mentorPath+"/courses/"+primitive.NewObjectID().Hex(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, mentorPath+"/courses", mentorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.Course](t, w))
}

func TestMediaWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.signup(t, "root")

	w := s.do(t, http.MethodPost, "/api/v1/media/upload-url", adminToken,
		gin.H{"purpose": "document", "fileName": "notes.pdf", "contentType": "application/pdf"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: title is required", domain.ErrValidation), http.StatusBadRequest},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", service.ErrAccessDenied), http.StatusForbidden},
		{service.ErrCourseNotFound, http.StatusNotFound},
		{service.ErrInvalidAccessCode, http.StatusNotFound},
		{service.ErrAlreadySubmitted, http.StatusConflict},
		{service.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("mongo exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.True(t, c.IsAborted())
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, fmt.Errorf("dial tcp 10.0.0.1: refused"))
		assert.NotContains(t, w.Body.String(), "10.0.0.1")
	})
}

func TestStoredAccountStateAppliesToIssuedTokens(t *testing.T) {
	s := newTestServer(t)
	rootToken, _ := s.signup(t, "root")
	studentToken, student := s.signup(t, "sam")
	bossToken, boss := s.createUser(t, rootToken, "boss", domain.RoleAdmin)

	w := s.do(t, http.MethodGet, "/api/v1/dashboard/student", studentToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/admin/users", bossToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+student.ID+"/suspension", rootToken, gin.H{"suspended": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/dashboard/student", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+boss.ID+"/role", rootToken, gin.H{"role": "student"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/admin/users", bossToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/me", bossToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoleStudent, decode[UserResponse](t, w).Role)

	// Lifting the suspension restores the old token.
	w = s.do(t, http.MethodPatch, "/api/v1/admin/users/"+student.ID+"/suspension", rootToken, gin.H{"suspended": false})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/dashboard/student", studentToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
