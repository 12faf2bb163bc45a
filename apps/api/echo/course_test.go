package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/user"
)

type sectionWrite struct {
	Data     course.Section `json:"data"`
	Warnings []string       `json:"warnings"`
}

type commentWrite struct {
	Data     course.Comment `json:"data"`
	Warnings []string       `json:"warnings"`
}

func (app testApp) createCourse(t *testing.T, token, name string) course.Course {
	t.Helper()
	rec := app.do(t, http.MethodPost, "/v1/courses", token, course.NewCourse{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	decode(t, rec, &c)
	return c
}

func (app testApp) createSection(t *testing.T, token string, courseID int, duration string) course.Section {
	t.Helper()
	body := map[string]interface{}{"name": "Section", "course_id": courseID, "duration": duration}
	rec := app.do(t, http.MethodPost, "/v1/sections", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp sectionWrite
	decode(t, rec, &resp)
	assert.Empty(t, resp.Warnings)
	return resp.Data
}

func (app testApp) courseDetail(t *testing.T, id int) course.CourseDetail {
	t.Helper()
	rec := app.do(t, http.MethodGet, fmt.Sprintf("/v1/courses/%d", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail course.CourseDetail
	decode(t, rec, &detail)
	return detail
}

func Test_courseApi_permissions(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	other := app.createUser(t, "other", true, user.RoleInstructor)
	student := app.createUser(t, "student", true, user.RoleStudent)
	admin := app.createUser(t, "admin", true, user.AdminRoles...)
	c := app.createCourse(t, app.token(t, owner), "Python 101")
	assert.Equal(t, owner.ID, c.InstructorID)

	update := marshalObj(t, course.NewCourse{Name: "Python 102"})
	app.run(t, []httpTest{
		{name: "create: auth required", method: http.MethodPost, path: "/v1/courses", body: update, wantCode: http.StatusUnauthorized},
		{
			name: "create: students cannot", method: http.MethodPost, path: "/v1/courses", body: update,
			token: app.token(t, student), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "create: blank name", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, course.NewCourse{}),
			token: app.token(t, owner), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"name": "this field cannot be blank"}),
		},
		{
			name: "create: unknown language", method: http.MethodPost, path: "/v1/courses",
			body:  []byte(`{"name": "Go", "language_id": 7}`),
			token: app.token(t, owner), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"language_id": "lookup not found"}),
		},
		{name: "update: not the owner", method: http.MethodPut, path: "/v1/courses/1", body: update, token: app.token(t, other), wantCode: http.StatusForbidden},
		{name: "update: unknown course", method: http.MethodPut, path: "/v1/courses/9", body: update, token: app.token(t, owner), wantCode: http.StatusNotFound},
		{name: "update: owner", method: http.MethodPut, path: "/v1/courses/1", body: update, token: app.token(t, owner), wantCode: http.StatusOK},
		{name: "delete: not the owner", method: http.MethodDelete, path: "/v1/courses/1", token: app.token(t, other), wantCode: http.StatusForbidden},
		{
			name: "section: not the owner", method: http.MethodPost, path: "/v1/sections",
			body:  marshalObj(t, course.NewSection{Name: "Intro", CourseID: c.ID}),
			token: app.token(t, other), wantCode: http.StatusForbidden,
		},
		{
			name: "section: unknown course", method: http.MethodPost, path: "/v1/sections",
			body:  marshalObj(t, course.NewSection{Name: "Intro", CourseID: 9}),
			token: app.token(t, owner), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"course_id": "course not found"}),
		},
		{name: "delete: admin", method: http.MethodDelete, path: "/v1/courses/1", token: app.token(t, admin), wantCode: http.StatusNoContent},
		{name: "gone", path: "/v1/courses/1", wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"})},
	})
}

func Test_courseApi_sectionsKeepDuration(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	token := app.token(t, owner)
	c := app.createCourse(t, token, "Python 101")
	assert.Equal(t, "00:00:00", c.Duration.String())

	intro := app.createSection(t, token, c.ID, "00:10:00")
	loops := app.createSection(t, token, c.ID, "20:00")

	detail := app.courseDetail(t, c.ID)
	assert.Equal(t, "00:30:00", detail.Duration.String())
	require.Len(t, detail.Sections, 2)
	assert.Equal(t, []int{intro.ID, loops.ID}, []int{detail.Sections[0].ID, detail.Sections[1].ID})

	// updating the duration
	body := map[string]interface{}{"name": "Loops", "course_id": c.ID, "duration": 45 * 60}
	rec := app.do(t, http.MethodPut, fmt.Sprintf("/v1/sections/%d", loops.ID), token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp sectionWrite
	decode(t, rec, &resp)
	assert.Equal(t, "Loops", resp.Data.Name)
	assert.NotNil(t, resp.Warnings)
	assert.Equal(t, "00:55:00", app.courseDetail(t, c.ID).Duration.String())

	// deleting
	rec = app.do(t, http.MethodDelete, fmt.Sprintf("/v1/sections/%d", intro.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "00:45:00", app.courseDetail(t, c.ID).Duration.String())

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/sections?course_id=%d", c.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sections []course.Section
	decode(t, rec, &sections)
	assert.Len(t, sections, 1)

	rec = app.do(t, http.MethodGet, "/v1/sections?course_id=9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// bad duration
	body = map[string]interface{}{"name": "Bad", "course_id": c.ID, "duration": "ten minutes"}
	rec = app.do(t, http.MethodPost, "/v1/sections", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_courseApi_commentsKeepRating(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	ana := app.createUser(t, "ana", true, user.RoleStudent)
	eva := app.createUser(t, "eva", true, user.RoleStudent)
	c := app.createCourse(t, app.token(t, owner), "Python 101")

	comment := func(token string, score int) course.Comment {
		t.Helper()
		rec := app.do(t, http.MethodPost, "/v1/comments", token, course.NewComment{Body: "Nice", CourseID: c.ID, Score: score})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp commentWrite
		decode(t, rec, &resp)
		return resp.Data
	}

	anaCmt := comment(app.token(t, ana), 5)
	assert.Equal(t, ana.ID, anaCmt.AuthorID)
	evaCmt := comment(app.token(t, eva), 4)
	assert.Equal(t, 4.5, app.courseDetail(t, c.ID).Rating)

	anaPath := fmt.Sprintf("/v1/comments/%d", anaCmt.ID)
	app.run(t, []httpTest{
		{
			name: "instructors cannot comment", method: http.MethodPost, path: "/v1/comments",
			body:  marshalObj(t, course.NewComment{Body: "Mine", CourseID: c.ID, Score: 5}),
			token: app.token(t, owner), wantCode: http.StatusForbidden,
		},
		{
			name: "score out of range", method: http.MethodPost, path: "/v1/comments",
			body:  marshalObj(t, course.NewComment{Body: "Wow", CourseID: c.ID, Score: 6}),
			token: app.token(t, ana), wantCode: http.StatusBadRequest,
		},
		{
			name: "only the author edits", method: http.MethodPut, path: anaPath,
			body:  marshalObj(t, course.NewComment{Body: "Meh", CourseID: c.ID, Score: 1}),
			token: app.token(t, eva), wantCode: http.StatusForbidden,
		},
		{name: "only the author deletes", method: http.MethodDelete, path: anaPath, token: app.token(t, eva), wantCode: http.StatusForbidden},
		{name: "unknown comment", method: http.MethodDelete, path: "/v1/comments/99", token: app.token(t, eva), wantCode: http.StatusNotFound},
	})
	assert.Equal(t, 4.5, app.courseDetail(t, c.ID).Rating)

	rec := app.do(t, http.MethodPut, anaPath, app.token(t, ana), course.NewComment{Body: "Ok", CourseID: c.ID, Score: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3.5, app.courseDetail(t, c.ID).Rating)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/courses/%d/comments", c.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []course.Comment
	decode(t, rec, &comments)
	assert.Len(t, comments, 2)

	rec = app.do(t, http.MethodDelete, anaPath, app.token(t, ana), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4.0, app.courseDetail(t, c.ID).Rating)

	rec = app.do(t, http.MethodDelete, fmt.Sprintf("/v1/comments/%d", evaCmt.ID), app.token(t, eva), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, app.courseDetail(t, c.ID).Rating)
}

func Test_courseApi_listCourses(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	token := app.token(t, owner)
	b := app.createCourse(t, token, "Basic Python")
	a := app.createCourse(t, token, "Advanced Python")
	app.createCourse(t, token, "Data science")

	names := func(path string) []string {
		t.Helper()
		rec := app.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var courses []course.Course
		decode(t, rec, &courses)
		out := make([]string, 0, len(courses))
		for _, c := range courses {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Basic Python", "Advanced Python", "Data science"}, names("/v1/courses"))
	assert.Equal(t, []string{b.Name, a.Name}, names("/v1/courses?search=python"))
	assert.Equal(t, []string{a.Name, b.Name}, names("/v1/courses?search=python&ordering=name"))
	assert.Equal(t, []string{b.Name, a.Name}, names("/v1/courses?search=python&ordering=-name,lol"))
}

func Test_courseApi_quizzesAndFeedback(t *testing.T) {
	app := setup(t)
	owner := app.createUser(t, "owner", true, user.RoleInstructor)
	other := app.createUser(t, "other", true, user.RoleInstructor)
	student := app.createUser(t, "student", true, user.RoleStudent)
	token := app.token(t, owner)
	c := app.createCourse(t, token, "Python 101")
	sec := app.createSection(t, token, c.ID, "00:05:00")

	rec := app.do(t, http.MethodPost, "/v1/quizzes", token, course.NewQuiz{Name: "Basics", CourseID: c.ID, MaxScore: 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var quiz course.Quiz
	decode(t, rec, &quiz)

	question := course.NewQuestion{Prompt: "2 + 2?", Options: []string{"3", "4"}, CorrectOption: 1}
	questionsPath := fmt.Sprintf("/v1/quizzes/%d/questions", quiz.ID)
	app.run(t, []httpTest{
		{
			name: "question: not the owner", method: http.MethodPost, path: questionsPath,
			body: marshalObj(t, question), token: app.token(t, other), wantCode: http.StatusForbidden,
		},
		{
			name: "question: bad option", method: http.MethodPost, path: questionsPath,
			body:  marshalObj(t, course.NewQuestion{Prompt: "2 + 2?", Options: []string{"3", "4"}, CorrectOption: 2}),
			token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"correct_option": "must be the index of one of the options"}),
		},
		{name: "question", method: http.MethodPost, path: questionsPath, body: marshalObj(t, question), token: token, wantCode: http.StatusCreated},
		{name: "questions: quiz required", path: "/v1/questions", wantCode: http.StatusBadRequest},
		{name: "questions: unknown quiz", path: "/v1/questions?quiz=9", wantCode: http.StatusNotFound},
		{
			name: "feedback: students only", method: http.MethodPost, path: "/v1/feedback",
			body: marshalObj(t, course.NewFeedback{SectionID: sec.ID, Body: "Too fast"}), token: token, wantCode: http.StatusForbidden,
		},
		{
			name: "feedback", method: http.MethodPost, path: "/v1/feedback",
			body: marshalObj(t, course.NewFeedback{SectionID: sec.ID, Body: "Too fast"}), token: app.token(t, student), wantCode: http.StatusCreated,
		},
	})

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/quizzes/%d", quiz.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &quiz)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"3", "4"}, quiz.Questions[0].Options)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/quizzes?course_id=%d", c.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quizzes []course.Quiz
	decode(t, rec, &quizzes)
	assert.Len(t, quizzes, 1)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/sections/%d/feedback", sec.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feedback []course.Feedback
	decode(t, rec, &feedback)
	require.Len(t, feedback, 1)
	assert.Equal(t, student.ID, feedback[0].AuthorID)
}
