package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
	"github.com/jhoelito123/PyStart/storage/database"
	"github.com/jhoelito123/PyStart/testutil"
)

type testCLI struct {
	*commandLine
	store *database.Store
	out   *bytes.Buffer
}

func setup(t *testing.T) testCLI {
	t.Helper()
	store := database.NewMemoryStore()
	out := new(bytes.Buffer)
	cli := newCommandLine(store, &testutil.Mailer{}, testutil.NewLogger())
	cli.out = out
	return testCLI{commandLine: cli, store: store, out: out}
}

func createUser(t *testing.T, store *database.Store, uname string, roles ...string) user.User {
	t.Helper()
	usr := user.User{
		Name:     uname,
		Username: uname,
		Email:    uname + "@test.bo",
		IsActive: true,
		Roles:    roles,
	}
	require.NoError(t, usr.SetPassword("s3cret-pass"))
	usr, err := store.Users.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != database.MigrationsDir {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "quizzes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
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

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, cli.store, "awe", user.RoleStudent)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "new-pass-1"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.bo"}, extra: extra{pwd: "new-pass-2"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			refreshed, err := cli.store.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.extra.(extra).pwd))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	readPasswordFunc = func(int) ([]byte, error) { return []byte("admin-pass"), nil }

	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "root"}))

	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "Root", "-email", "Root@test.bo"}))
	usr, err := cli.store.Users.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "root@test.bo"})
	require.NoError(t, err)
	assert.Equal(t, "root", usr.Username)
	assert.True(t, usr.IsAdmin())
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("admin-pass"))

	// running it again promotes and resets the existing account
	readPasswordFunc = func(int) ([]byte, error) { return []byte("other-pass"), nil }
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "root", "-email", "root@test.bo"}))
	again, err := cli.store.Users.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "root"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, again.ID)
	assert.NoError(t, again.CheckPassword("other-pass"))
}

// staleCourse writes a course through the repositories so its derived fields and the
// progress of its single enrollment are out of date.
func staleCourse(t *testing.T, cli testCLI) (course.Course, enrollment.Enrollment) {
	t.Helper()
	ctx := context.Background()
	instructor := createUser(t, cli.store, "prof", user.RoleInstructor)
	student := createUser(t, cli.store, "anaq", user.RoleStudent)

	c, err := cli.store.Courses.CreateCourse(ctx, course.Course{Name: "Python 101", InstructorID: instructor.ID})
	require.NoError(t, err)
	first, err := cli.store.Courses.CreateSection(ctx, course.Section{Name: "Intro", CourseID: c.ID, Duration: course.Duration(10 * time.Minute)})
	require.NoError(t, err)
	_, err = cli.store.Courses.CreateSection(ctx, course.Section{Name: "Loops", CourseID: c.ID, Duration: course.Duration(20 * time.Minute)})
	require.NoError(t, err)

	_, err = cli.tracker.Enroll(ctx, student.ID, c.ID)
	require.NoError(t, err)
	_, enr, err := cli.tracker.RecordSectionCompletion(ctx, student.ID, first.ID)
	require.NoError(t, err)
	require.Equal(t, 50.0, enr.Progress)

	_, err = cli.store.Courses.CreateSection(ctx, course.Section{Name: "Functions", CourseID: c.ID, Duration: course.Duration(15 * time.Minute)})
	require.NoError(t, err)
	for _, score := range []int{4, 5} {
		_, err = cli.store.Courses.CreateComment(ctx, course.Comment{AuthorID: student.ID, Body: "good", CourseID: c.ID, Score: score})
		require.NoError(t, err)
	}
	return c, enr
}

func Test_commandLine_recompute(t *testing.T) {
	ctx := context.Background()
	cli := setup(t)
	c, enr := staleCourse(t, cli)

	assert.Equal(t, course.ErrNotFound, errors.Cause(cli.run([]string{"admin", "recompute", "-course", "99"})))

	require.NoError(t, cli.run([]string{"admin", "recompute"}))
	assert.Contains(t, cli.out.String(), "1 course(s) changed, 1 enrollment(s) updated")

	got, err := cli.store.Courses.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, course.Duration(45*time.Minute), got.Duration)
	assert.Equal(t, 4.5, got.Rating)

	enrollments, err := cli.store.Enrollments.ListEnrollments(ctx, enrollment.Filter{CourseID: c.ID})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, enr.ID, enrollments[0].ID)
	assert.Equal(t, 33.33, enrollments[0].Progress)

	// nothing left to fix
	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "recompute", "-course", strconv.Itoa(c.ID)}))
	assert.Contains(t, cli.out.String(), "duration changed=false, rating changed=false, 0 enrollment(s) updated")
}

func Test_commandLine_report(t *testing.T) {
	cli := setup(t)
	staleCourse(t, cli)
	require.NoError(t, cli.run([]string{"admin", "recompute"}))
	cli.out.Reset()

	require.NoError(t, cli.run([]string{"admin", "report"}))
	out := cli.out.String()
	assert.Contains(t, out, "1 course(s)")
	assert.Contains(t, out, "Python 101")
	assert.Contains(t, out, "00:45:00")
	assert.Contains(t, out, "4.50")
}
