package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/user"
	testutil "github.com/trezcool/alama/tests"
)

func Test_attendanceAPI_sync(t *testing.T) {
	env := setup(t)
	ivy := env.createUser(t, "ivy", user.RoleInstructor)
	oscar := env.createUser(t, "oscar", user.RoleInstructor)
	alice := env.createUser(t, "alice", user.RoleStudent)
	bob := env.createUser(t, "bob", user.RoleStudent)
	crs := testutil.CreateCourse(t, env.courseRepo, "CS101", "Intro to CS", ivy.ID)

	sync := func(course, date string, data map[string]string) []byte {
		return marshallObj(t, echoapi.SyncRequest{Course: course, Date: date, AttendanceData: data})
	}
	entries := map[string]string{alice.ID: "Present", bob.ID: "Late", "unknown": "Present"}
	path := "/api/instructor/attendance/sync"

	runHTTPTests(t, env, []httpTest{
		{
			name:     "created",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "2024-03-04", entries),
			token:    env.token(t, ivy),
			wantCode: http.StatusOK,
			wantData: []byte(`{"success": true, "created": 2, "updated": 0}`),
		},
		{
			name:     "resubmitted",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "2024-03-04", entries),
			token:    env.token(t, ivy),
			wantCode: http.StatusOK,
			wantData: []byte(`{"success": true, "created": 0, "updated": 2}`),
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"date": "2024-03-04"}`),
			token:    env.token(t, ivy),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed date",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "04/03/2024", entries),
			token:    env.token(t, ivy),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: map[string]string{"date": "date must be a valid date (YYYY-MM-DD)"}}),
		},
		{
			name:     "unauthenticated",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "2024-03-04", entries),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong role",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "2024-03-04", entries),
			token:    env.token(t, alice),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied: instructor role required"}),
		},
		{
			name:     "foreign course",
			method:   http.MethodPost,
			path:     path,
			body:     sync(crs.ID, "2024-03-04", entries),
			token:    env.token(t, oscar),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name:     "unknown course",
			method:   http.MethodPost,
			path:     path,
			body:     sync("no-such-course", "2024-03-04", entries),
			token:    env.token(t, ivy),
			wantCode: http.StatusNotFound,
		},
	})

	recs, err := env.attendanceRepo.QueryAttendance(context.Background(), attendance.QueryFilter{CourseID: crs.ID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func Test_attendanceAPI_form(t *testing.T) {
	env := setup(t)
	ivy := env.createUser(t, "ivy", user.RoleInstructor)
	alice := env.createUser(t, "alice", user.RoleStudent)
	bob := env.createUser(t, "bob", user.RoleStudent)
	crs := testutil.CreateCourse(t, env.courseRepo, "CS101", "Intro to CS", ivy.ID)
	lo := testutil.CreateLearningOutcome(t, env.courseRepo, crs.ID, "LO1", "Write programs")
	testutil.CreateGrade(t, env.gradeRepo, alice.ID, lo, 80)
	testutil.CreateGrade(t, env.gradeRepo, bob.ID, lo, 70)
	token := env.token(t, ivy)
	path := "/api/instructor/courses/" + crs.ID + "/attendance"

	form := func(data map[string]string) []byte {
		return marshallObj(t, attendance.FormSubmission{Date: "2024-03-04", Attendance: data})
	}

	t.Run("invalid status rejects the batch", func(t *testing.T) {
		rec := env.do(http.MethodPost, path, token, form(map[string]string{alice.ID: "Present", bob.ID: "Sick"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non student rejects the batch", func(t *testing.T) {
		rec := env.do(http.MethodPost, path, token, form(map[string]string{alice.ID: "Present", ivy.ID: "Present"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		recs, err := env.attendanceRepo.QueryAttendance(context.Background(), attendance.QueryFilter{CourseID: crs.ID})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("valid", func(t *testing.T) {
		rec := env.do(http.MethodPost, path, token, form(map[string]string{alice.ID: "Present", bob.ID: "Absent"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		ok, err := jsonBytesEqual(rec.Body.Bytes(), []byte(`{"success": true, "created": 2, "updated": 0}`))
		require.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
	})

	t.Run("course day", func(t *testing.T) {
		rec := env.do(http.MethodGet, path+"?date=2024-03-04", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res echoapi.CourseDayResponse
		decode(t, rec, &res)
		assert.Equal(t, "2024-03-04", res.Date)
		require.Len(t, res.Students, 2)
		assert.Equal(t, "alice", res.Students[0].Student.Username)
		assert.Equal(t, attendance.StatusPresent, res.Students[0].Status)
		assert.Equal(t, attendance.StatusAbsent, res.Students[1].Status)

		rec = env.do(http.MethodGet, path+"?date=2024-03-05", token)
		var next echoapi.CourseDayResponse
		decode(t, rec, &next)
		require.Len(t, next.Students, 2)
		assert.Empty(t, next.Students[0].Status)
	})

	t.Run("student view", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/student/attendance", env.token(t, alice))
		require.Equal(t, http.StatusOK, rec.Code)

		var summary attendance.StudentSummary
		decode(t, rec, &summary)
		require.Len(t, summary.Courses, 1)
		assert.Equal(t, 100.0, summary.Courses[0].PresentPercentage)
	})
}
