package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core/attendance"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/user"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
	testutil "github.com/trezcool/alama/tests"
)

func setup(t *testing.T) *commandLine {
	db := testutil.PrepareDB(t)
	return &commandLine{
		db:             db,
		usrRepo:        sqlxrepos.NewUserRepository(db),
		courseRepo:     sqlxrepos.NewCourseRepository(db),
		gradeRepo:      sqlxrepos.NewGradeRepository(db),
		attendanceRepo: sqlxrepos.NewAttendanceRepository(db),
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "attendance_notes", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "ivy"}, pwd: "pwd", wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-username", "ivy", "-email", "ivy@x.io", "-role", "dean"}, pwd: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "ivy", "-email", "ivy@x.io"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "Ivy", "-email", "IVY@x.io", "-role", "instructor"}, pwd: "s3cret"},
		{name: "update", args: []string{"adduser", "-username", "ivy", "-email", "ivy@x.io", "-role", "instructor", "-superuser"}, pwd: "n3w"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			assert.Equal(t, tt.wantErr, cli.run(args))
		})
	}

	usrs, err := cli.usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, usrs, 1)
	usr := usrs[0]
	assert.Equal(t, "ivy", usr.Username)
	assert.Equal(t, "ivy@x.io", usr.Email)
	assert.Equal(t, user.RoleInstructor, usr.Role)
	assert.True(t, usr.IsSuperuser)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("n3w"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", user.RoleStudent, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "password not updated")
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	mockPassword(t, "demo")

	require.NoError(t, cli.run([]string{"admin", "seed"}))

	head, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "head"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleDepartmentHead, head.Role)
	assert.NoError(t, head.CheckPassword("demo"))

	pos, err := cli.courseRepo.QueryProgramOutcomes(ctx)
	require.NoError(t, err)
	assert.Len(t, pos, 3)

	grades, err := cli.gradeRepo.QueryGrades(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, grades, 2*2*3) // courses * LOs * students
	for _, g := range grades {
		assert.True(t, g.Score >= 60 && g.Score < 100, g.Score)
	}

	recs, err := cli.attendanceRepo.QueryAttendance(ctx, attendance.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 2*5*3) // courses * days * students

	assert.Equal(t, errAlreadySeeded, cli.run([]string{"admin", "seed"}))
}
