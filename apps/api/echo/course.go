package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	// courses
	g.GET("/courses", api.listCourses)
	g.GET("/courses/:id", api.retrieveCourse)
	g.GET("/courses/:id/comments", api.listComments)
	g.POST("/courses", api.createCourse, jwt, instructorMiddleware())
	g.PUT("/courses/:id", api.updateCourse, jwt, instructorMiddleware())
	g.DELETE("/courses/:id", api.deleteCourse, jwt, instructorMiddleware())

	// sections
	g.GET("/sections", api.listSections)
	g.GET("/sections/:id", api.retrieveSection)
	g.GET("/sections/:id/resources", api.listSectionResources)
	g.GET("/sections/:id/feedback", api.listFeedback)
	g.POST("/sections", api.createSection, jwt, instructorMiddleware())
	g.PUT("/sections/:id", api.updateSection, jwt, instructorMiddleware())
	g.DELETE("/sections/:id", api.deleteSection, jwt, instructorMiddleware())

	// comments
	g.POST("/comments", api.createComment, jwt, studentMiddleware())
	g.PUT("/comments/:id", api.updateComment, jwt)
	g.DELETE("/comments/:id", api.deleteComment, jwt)

	// quizzes
	g.GET("/quizzes", api.listQuizzes)
	g.GET("/quizzes/:id", api.retrieveQuiz)
	g.GET("/questions", api.listQuestions)
	g.POST("/quizzes", api.createQuiz, jwt, instructorMiddleware())
	g.POST("/quizzes/:id/questions", api.addQuestion, jwt, instructorMiddleware())

	// feedback
	g.POST("/feedback", api.createFeedback, jwt, studentMiddleware())
}

// checkCourseOwner passes for admins and for the instructor who owns the course.
// A missing course is left for the service to report.
func (api *courseApi) checkCourseOwner(ctx echo.Context, courseID int) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return nil
	}
	c, err := api.svc.GetCourse(ctx.Request().Context(), courseID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "getting course")
	}
	if c.InstructorID != claims.UserID() {
		return errHttpForbidden
	}
	return nil
}

// Courses

func (api *courseApi) listCourses(ctx echo.Context) error {
	var filter course.CourseFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CourseFilter")
	}
	filter.Clean()
	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.ListCourses(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieveCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.GetCourseDetail(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) createCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) updateCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.checkCourseOwner(ctx, id); err != nil {
		return err
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.svc.UpdateCourse(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) deleteCourse(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.checkCourseOwner(ctx, id); err != nil {
		return err
	}
	if err := api.svc.DeleteCourse(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *courseApi) listSections(ctx echo.Context) error {
	courseID, err := queryID(ctx, "course_id")
	if err != nil {
		return err
	}
	sections, err := api.svc.ListSections(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "listing sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *courseApi) retrieveSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sec, err := api.svc.GetSection(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *courseApi) listSectionResources(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	resources, err := api.svc.ListSectionResources(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing section resources")
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *courseApi) createSection(ctx echo.Context) error {
	var data course.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkCourseOwner(ctx, data.CourseID); err != nil {
		return err
	}
	sec, warnings, err := api.svc.CreateSection(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, newWriteResponse(sec, warnings))
}

func (api *courseApi) updateSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sec, err := api.svc.GetSection(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	if err := api.checkCourseOwner(ctx, sec.CourseID); err != nil {
		return err
	}

	var data course.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if data.CourseID != sec.CourseID {
		if err := api.checkCourseOwner(ctx, data.CourseID); err != nil {
			return err
		}
	}

	sec, warnings, err := api.svc.UpdateSection(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, newWriteResponse(sec, warnings))
}

func (api *courseApi) deleteSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	sec, err := api.svc.GetSection(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	if err := api.checkCourseOwner(ctx, sec.CourseID); err != nil {
		return err
	}
	warnings, err := api.svc.DeleteSection(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.JSON(http.StatusOK, newWriteResponse(nil, warnings))
}

// Comments

func (api *courseApi) listComments(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	comments, err := api.svc.ListComments(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *courseApi) createComment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data course.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cmt, warnings, err := api.svc.CreateComment(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, newWriteResponse(cmt, warnings))
}

// commentForAuthor returns the comment when the user wrote it or is an admin.
func (api *courseApi) commentForAuthor(ctx echo.Context) (course.Comment, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return course.Comment{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return course.Comment{}, errors.Wrap(err, "getting context claims")
	}
	cmt, err := api.svc.GetComment(ctx.Request().Context(), id)
	if err != nil {
		return course.Comment{}, errors.Wrap(err, "getting comment")
	}
	if cmt.AuthorID != claims.UserID() && !claims.IsAdmin {
		return course.Comment{}, errHttpForbidden
	}
	return cmt, nil
}

func (api *courseApi) updateComment(ctx echo.Context) error {
	cmt, err := api.commentForAuthor(ctx)
	if err != nil {
		return err
	}
	var data course.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cmt, warnings, err := api.svc.UpdateComment(ctx.Request().Context(), cmt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating comment")
	}
	return ctx.JSON(http.StatusOK, newWriteResponse(cmt, warnings))
}

func (api *courseApi) deleteComment(ctx echo.Context) error {
	cmt, err := api.commentForAuthor(ctx)
	if err != nil {
		return err
	}
	warnings, err := api.svc.DeleteComment(ctx.Request().Context(), cmt.ID)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.JSON(http.StatusOK, newWriteResponse(nil, warnings))
}

// Quizzes

func (api *courseApi) listQuizzes(ctx echo.Context) error {
	courseID, err := queryID(ctx, "course_id")
	if err != nil {
		return err
	}
	quizzes, err := api.svc.ListQuizzes(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "listing quizzes")
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *courseApi) retrieveQuiz(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *courseApi) listQuestions(ctx echo.Context) error {
	quizID, err := queryID(ctx, "quiz")
	if err != nil {
		return err
	}
	if quizID == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "quiz", Error: "quiz is required"})
	}
	questions, err := api.svc.ListQuestions(ctx.Request().Context(), quizID)
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *courseApi) createQuiz(ctx echo.Context) error {
	var data course.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkCourseOwner(ctx, data.CourseID); err != nil {
		return err
	}
	quiz, err := api.svc.CreateQuiz(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (api *courseApi) addQuestion(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	if err := api.checkCourseOwner(ctx, quiz.CourseID); err != nil {
		return err
	}
	var data course.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	q, err := api.svc.AddQuestion(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

// Feedback

func (api *courseApi) listFeedback(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	feedback, err := api.svc.ListFeedback(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing feedback")
	}
	return ctx.JSON(http.StatusOK, feedback)
}

func (api *courseApi) createFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data course.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	fb, err := api.svc.CreateFeedback(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return errors.Wrap(err, "creating feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}
