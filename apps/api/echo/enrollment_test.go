package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core/enrollment"
	"github.com/jhoelito123/PyStart/core/user"
)

func Test_enrollmentApi_progress(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	other := app.createUser(t, "other", true, user.RoleInstructor)
	ana := app.createUser(t, "ana", true, user.RoleStudent)
	eva := app.createUser(t, "eva", true, user.RoleStudent)
	ownerToken, anaToken := app.token(t, owner), app.token(t, ana)

	c := app.createCourse(t, ownerToken, "Python 101")
	s1 := app.createSection(t, ownerToken, c.ID, "00:10:00")
	s2 := app.createSection(t, ownerToken, c.ID, "00:10:00")
	complete1 := fmt.Sprintf("/v1/sections/%d/complete", s1.ID)
	complete2 := fmt.Sprintf("/v1/sections/%d/complete", s2.ID)

	rec := app.do(t, http.MethodPost, "/v1/enrollments", anaToken, enrollment.NewEnrollment{CourseID: c.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var enr enrollment.Enrollment
	decode(t, rec, &enr)
	assert.Equal(t, ana.ID, enr.StudentID)
	assert.Zero(t, enr.Progress)
	assert.False(t, enr.Completed)

	app.run(t, []httpTest{
		{
			name: "enroll twice", method: http.MethodPost, path: "/v1/enrollments",
			body: marshalObj(t, enrollment.NewEnrollment{CourseID: c.ID}), token: anaToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"course_id": enrollment.ErrDuplicateEnrollment.Error()}),
		},
		{
			name: "enroll in unknown course", method: http.MethodPost, path: "/v1/enrollments",
			body: marshalObj(t, enrollment.NewEnrollment{CourseID: 9}), token: anaToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"course_id": "course not found"}),
		},
		{
			name: "instructors cannot enroll", method: http.MethodPost, path: "/v1/enrollments",
			body: marshalObj(t, enrollment.NewEnrollment{CourseID: c.ID}), token: ownerToken, wantCode: http.StatusForbidden,
		},
		{name: "complete without enrollment", method: http.MethodPost, path: complete1, token: app.token(t, eva), wantCode: http.StatusNotFound},
		{name: "complete unknown section", method: http.MethodPost, path: "/v1/sections/99/complete", token: anaToken, wantCode: http.StatusNotFound},
	})

	completion := func(path string) completionResponse {
		t.Helper()
		rec := app.do(t, http.MethodPost, path, anaToken, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp completionResponse
		decode(t, rec, &resp)
		return resp
	}

	resp := completion(complete1)
	assert.Equal(t, s1.ID, resp.Completion.SectionID)
	assert.Equal(t, 50.0, resp.Enrollment.Progress)
	assert.False(t, resp.Enrollment.Completed)

	rec = app.do(t, http.MethodPost, complete1, anaToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), marshalObj(t, httpErr{Error: "section already completed"}))
	require.NoError(t, err)
	assert.True(t, ok, rec.Body.String())

	resp = completion(complete2)
	assert.Equal(t, 100.0, resp.Enrollment.Progress)
	assert.True(t, resp.Enrollment.Completed)
	require.Len(t, app.mailer.Sent(), 1)
	assert.Equal(t, "course_completed", app.mailer.Sent()[0].TemplateName)

	progressPath := fmt.Sprintf("/v1/students/%d/progress", ana.ID)
	app.run(t, []httpTest{
		{name: "progress: someone else", path: progressPath, token: app.token(t, eva), wantCode: http.StatusForbidden},
		{name: "students: not the owner", path: fmt.Sprintf("/v1/courses/%d/students", c.ID), token: app.token(t, other), wantCode: http.StatusForbidden},
		{name: "students: unknown course", path: "/v1/courses/9/students", token: ownerToken, wantCode: http.StatusNotFound},
	})

	rec = app.do(t, http.MethodGet, progressPath, anaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var enrs []enrollment.Enrollment
	decode(t, rec, &enrs)
	require.Len(t, enrs, 1)
	assert.Equal(t, "Python 101", enrs[0].CourseName)
	assert.True(t, enrs[0].Completed)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/courses/%d/students", c.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &enrs)
	assert.Len(t, enrs, 1)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/courses/%d/progress", c.ID), anaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var completions []enrollment.SectionProgress
	decode(t, rec, &completions)
	assert.Len(t, completions, 2)

	// revoking
	rec = app.do(t, http.MethodDelete, complete2, anaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &enr)
	assert.Equal(t, 50.0, enr.Progress)
	assert.False(t, enr.Completed)

	rec = app.do(t, http.MethodDelete, complete2, anaToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a new section lowers the progress of every enrollment
	app.createSection(t, ownerToken, c.ID, "00:10:00")
	rec = app.do(t, http.MethodGet, progressPath, anaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &enrs)
	require.Len(t, enrs, 1)
	assert.Equal(t, 33.33, enrs[0].Progress)
	assert.Len(t, app.mailer.Sent(), 1)
}
