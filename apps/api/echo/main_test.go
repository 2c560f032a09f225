package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/course"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/outcome"
	"github.com/trezcool/alama/core/user"
	emailsvc "github.com/trezcool/alama/services/email"
	logsvc "github.com/trezcool/alama/services/logger"
	boiledrepos "github.com/trezcool/alama/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
	testutil "github.com/trezcool/alama/tests"
)

const testPassword = "Str0ng!Pwd#"

type testEnv struct {
	conf           *core.Config
	app            echoapi.Server
	db             *sqlx.DB
	mailSvc        *emailsvc.ConsoleServiceMock
	usrRepo        user.Repository
	courseRepo     course.Repository
	gradeRepo      grade.Repository
	attendanceRepo attendance.Repository
}

func setup(t *testing.T) testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	env := testEnv{
		conf:           conf,
		db:             db,
		mailSvc:        emailsvc.NewConsoleServiceMock(conf, logger),
		usrRepo:        sqlxrepos.NewUserRepository(db),
		courseRepo:     sqlxrepos.NewCourseRepository(db),
		gradeRepo:      sqlxrepos.NewGradeRepository(db),
		attendanceRepo: sqlxrepos.NewAttendanceRepository(db),
	}
	stats := boiledrepos.NewStatsRepository(db)

	// set up services & server
	env.app = echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(conf, env.usrRepo, env.mailSvc),
		CourseSvc:      course.NewService(env.courseRepo, env.usrRepo),
		GradeSvc:       grade.NewService(db, env.gradeRepo, stats, env.courseRepo, env.usrRepo, logger),
		AttendanceSvc:  attendance.NewService(db, env.attendanceRepo, stats, env.courseRepo, env.usrRepo, logger),
		OutcomeSvc:     outcome.NewService(env.courseRepo, env.gradeRepo, stats, env.usrRepo),
	}, nil)
	return env
}

func (env testEnv) createUser(t *testing.T, uname string, role user.Role) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, uname, uname, uname+"@test.io", testPassword, role, true)
}

func (env testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.conf, echoapi.NewUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (env testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
