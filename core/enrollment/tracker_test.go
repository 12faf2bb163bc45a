package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
	inmemdb "github.com/jhoelito123/PyStart/storage/database/inmem"
	"github.com/jhoelito123/PyStart/testutil"
)

type testEnv struct {
	tracker *enrollment.Tracker
	courses course.Repository
	mailer  *testutil.Mailer
	student user.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	courses := inmemdb.NewCourseRepository(db)
	mailer := &testutil.Mailer{}

	student, err := users.CreateUser(context.Background(), user.User{
		Name:     "Ana",
		LastName: "Quispe",
		Username: "ana",
		Email:    "ana@example.com",
		IsActive: true,
		Roles:    []string{user.RoleStudent},
	})
	require.NoError(t, err)

	return testEnv{
		tracker: enrollment.NewTracker(
			inmemdb.NewEnrollmentRepository(db),
			courses,
			user.NewService(users, db),
			db,
			mailer,
			testutil.NewLogger(),
		),
		courses: courses,
		mailer:  mailer,
		student: student,
	}
}

// courseWithSections creates a course with n sections and returns the course and section ids.
func (env testEnv) courseWithSections(t *testing.T, n int) (int, []int) {
	t.Helper()
	ctx := context.Background()
	c, err := env.courses.CreateCourse(ctx, course.Course{Name: "Python 101", InstructorID: 1})
	require.NoError(t, err)
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		s, err := env.courses.CreateSection(ctx, course.Section{Name: "Section", CourseID: c.ID, Duration: course.Duration(time.Minute)})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	return c.ID, ids
}

func TestTracker_progress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 4)

	enr, err := env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	assert.Zero(t, enr.Progress)
	assert.False(t, enr.Completed)

	_, enr, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	require.NoError(t, err)
	assert.Equal(t, 25.0, enr.Progress)
	assert.False(t, enr.Completed)
	assert.Empty(t, env.mailer.Sent())

	for _, id := range sections[1:] {
		_, enr, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 100.0, enr.Progress)
	assert.True(t, enr.Completed)

	sent := env.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "course_completed", sent[0].TemplateName)
	assert.Equal(t, "ana@example.com", sent[0].To[0].Address)

	listed, err := env.tracker.ListByStudent(ctx, env.student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 100.0, listed[0].Progress)
	assert.Equal(t, "Python 101", listed[0].CourseName)

	completions, err := env.tracker.ListCompletions(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	assert.Len(t, completions, 4)
}

func TestTracker_rounding(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 3)
	_, err := env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)

	_, enr, err := env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	require.NoError(t, err)
	assert.Equal(t, 33.33, enr.Progress)

	_, enr, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[1])
	require.NoError(t, err)
	assert.Equal(t, 66.67, enr.Progress)
}

func TestTracker_RecordSectionCompletion_errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 2)

	// not enrolled
	_, _, err := env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	assert.Equal(t, enrollment.ErrEnrollmentNotFound, errors.Cause(err))

	_, err = env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)

	_, _, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, 99)
	assert.True(t, core.IsNotFound(err))

	_, _, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	require.NoError(t, err)
	_, _, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	assert.Equal(t, enrollment.ErrDuplicateCompletion, errors.Cause(err))

	// the duplicate did not change the progress
	listed, err := env.tracker.ListByCourse(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 50.0, listed[0].Progress)
}

func TestTracker_Enroll_errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, _ := env.courseWithSections(t, 1)

	var vErr *core.ValidationError
	_, err := env.tracker.Enroll(ctx, env.student.ID, 99)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "course_id", vErr.Fields[0].Field)
	assert.Equal(t, course.ErrNotFound, errors.Cause(vErr.Err))

	_, err = env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	_, err = env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, enrollment.ErrDuplicateEnrollment, vErr.Err)
}

func TestTracker_RevokeSectionCompletion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 2)
	_, err := env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	for _, id := range sections {
		_, _, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, id)
		require.NoError(t, err)
	}

	enr, err := env.tracker.RevokeSectionCompletion(ctx, env.student.ID, sections[1])
	require.NoError(t, err)
	assert.Equal(t, 50.0, enr.Progress)
	assert.False(t, enr.Completed)

	_, err = env.tracker.RevokeSectionCompletion(ctx, env.student.ID, sections[1])
	assert.Equal(t, enrollment.ErrCompletionNotFound, errors.Cause(err))
}

func TestTracker_RecomputeCourse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 4)
	_, err := env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	for _, id := range sections {
		_, _, err = env.tracker.RecordSectionCompletion(ctx, env.student.ID, id)
		require.NoError(t, err)
	}

	_, err = env.courses.CreateSection(ctx, course.Section{Name: "Extra", CourseID: courseID})
	require.NoError(t, err)
	changed, err := env.tracker.RecomputeCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	listed, err := env.tracker.ListByCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, listed[0].Progress)
	assert.False(t, listed[0].Completed)

	changed, err = env.tracker.RecomputeCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestTracker_RecomputeCourse_completionMail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	courseID, sections := env.courseWithSections(t, 2)
	_, err := env.tracker.Enroll(ctx, env.student.ID, courseID)
	require.NoError(t, err)
	_, enr, err := env.tracker.RecordSectionCompletion(ctx, env.student.ID, sections[0])
	require.NoError(t, err)
	require.Equal(t, 50.0, enr.Progress)
	require.Empty(t, env.mailer.Sent())

	// dropping the unfinished section completes the enrollment
	require.NoError(t, env.courses.DeleteSection(ctx, sections[1]))
	changed, err := env.tracker.RecomputeCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	listed, err := env.tracker.ListByCourse(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 100.0, listed[0].Progress)
	assert.True(t, listed[0].Completed)

	sent := env.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "course_completed", sent[0].TemplateName)
	assert.Equal(t, "ana@example.com", sent[0].To[0].Address)

	// nothing changes, nothing is sent again
	changed, err = env.tracker.RecomputeCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, env.mailer.Sent(), 1)
}
