package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

func Test_home(t *testing.T) {
	env := setup(t)
	rec := env.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Alama API!", rec.Body.String())
}

func Test_userAPI_login(t *testing.T) {
	env := setup(t)
	env.createUser(t, "alice", user.RoleStudent)
	inactive := env.createUser(t, "ghost", user.RoleStudent)
	inactive.IsActive = false
	_, err := env.usrRepo.UpdateUser(context.Background(), inactive)
	require.NoError(t, err)

	authFailed := marshallObj(t, httpErr{Error: "authentication failed"})
	runHTTPTests(t, env, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marshallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marshallObj(t, echoapi.LoginRequest{Username: "alice", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marshallObj(t, echoapi.LoginRequest{Username: "bob", Password: testPassword}),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/api/users/login",
			body:     marshallObj(t, echoapi.LoginRequest{Username: "ghost", Password: testPassword}),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("valid by email", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/users/login", "",
			marshallObj(t, echoapi.LoginRequest{Username: " ALICE@test.io ", Password: testPassword}))
		require.Equal(t, http.StatusOK, rec.Code)

		var res echoapi.LoginResponse
		decode(t, rec, &res)
		require.NotEmpty(t, res.Token)

		rec = env.do(http.MethodGet, "/api/users/me", res.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		decode(t, rec, &me)
		assert.Equal(t, "alice", me.Username)
		assert.False(t, me.LastLogin.IsZero())
	})
}

func Test_userAPI_auth(t *testing.T) {
	env := setup(t)
	alice := env.createUser(t, "alice", user.RoleStudent)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/api/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "missing or malformed jwt"}),
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			path:     "/api/users/me",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "token refresh",
			method:   http.MethodPost,
			path:     "/api/users/token-refresh",
			token:    env.token(t, alice),
			wantCode: http.StatusOK,
		},
		{
			name:     "students cannot query users",
			method:   http.MethodGet,
			path:     "/api/users",
			token:    env.token(t, alice),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied: superuser role required"}),
		},
	})
}

func Test_userAPI_superuser(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "admin", user.RoleDepartmentHead)
	admin.IsSuperuser = true
	admin, err := env.usrRepo.UpdateUser(context.Background(), admin)
	require.NoError(t, err)
	env.createUser(t, "alice", user.RoleStudent)
	env.createUser(t, "ivy", user.RoleInstructor)
	token := env.token(t, admin)

	t.Run("query", func(t *testing.T) {
		v := url.Values{"role": {"student", "instructor"}, "ordering": {"-username"}}
		rec := env.do(http.MethodGet, "/api/users?"+v.Encode(), token)
		require.Equal(t, http.StatusOK, rec.Code)
		var users []user.User
		decode(t, rec, &users)
		require.Len(t, users, 2)
		assert.Equal(t, "ivy", users[0].Username)
		assert.Equal(t, "alice", users[1].Username)

		rec = env.do(http.MethodGet, "/api/users?is_active=maybe", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		nu := user.NewUser{
			FirstName:       "Bob",
			Username:        "bob",
			Email:           "bob@test.io",
			Role:            user.RoleStudent,
			Password:        "An0ther!Secret",
			PasswordConfirm: "An0ther!Secret",
		}
		rec := env.do(http.MethodPost, "/api/users", token, marshallObj(t, nu))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(http.MethodPost, "/api/users", token, marshallObj(t, nu))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "already exists"))
	})
}

func Test_userAPI_passwordReset(t *testing.T) {
	env := setup(t)
	env.createUser(t, "alice", user.RoleStudent)

	for _, email := range []string{"alice@test.io", "nobody@test.io"} {
		rec := env.do(http.MethodPost, "/api/users/password-reset", "", marshallObj(t, echoapi.PasswordResetRequest{Email: email}))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@test.io", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "/password-reset?uid=")
}

func TestNewServer_missingOptions(t *testing.T) {
	assert.Panics(t, func() { echoapi.NewServer(&echoapi.Options{Conf: core.NewTestConfig()}, nil) })
}
