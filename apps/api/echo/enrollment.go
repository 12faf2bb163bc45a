package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/course"
	"github.com/jhoelito123/PyStart/core/enrollment"
)

type enrollmentApi struct {
	tracker  *enrollment.Tracker
	courses  *course.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	tracker *enrollment.Tracker,
	courses *course.Service,
	validate *validator.Validate,
) {
	api := enrollmentApi{tracker: tracker, courses: courses, validate: validate}

	g.POST("/enrollments", api.enroll, jwt, studentMiddleware())
	g.GET("/students/:id/progress", api.studentProgress, jwt)
	g.GET("/courses/:id/students", api.courseStudents, jwt, instructorMiddleware())
	g.GET("/courses/:id/progress", api.courseCompletions, jwt, studentMiddleware())
	g.POST("/sections/:id/complete", api.completeSection, jwt, studentMiddleware())
	g.DELETE("/sections/:id/complete", api.revokeSection, jwt, studentMiddleware())
}

type completionResponse struct {
	Completion enrollment.SectionProgress `json:"completion"`
	Enrollment enrollment.Enrollment      `json:"enrollment"`
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	enr, err := api.tracker.Enroll(ctx.Request().Context(), claims.UserID(), data.CourseID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// studentProgress lists the enrollments of a student, to themselves or to an admin.
func (api *enrollmentApi) studentProgress(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if id != claims.UserID() && !claims.IsAdmin {
		return errHttpForbidden
	}
	enrs, err := api.tracker.ListByStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing student enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) courseStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	c, err := api.courses.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	if c.InstructorID != claims.UserID() && !claims.IsAdmin {
		return errHttpForbidden
	}
	enrs, err := api.tracker.ListByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing course enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) courseCompletions(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	completions, err := api.tracker.ListCompletions(ctx.Request().Context(), claims.UserID(), id)
	if err != nil {
		return errors.Wrap(err, "listing completions")
	}
	return ctx.JSON(http.StatusOK, completions)
}

func (api *enrollmentApi) completeSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sp, enr, err := api.tracker.RecordSectionCompletion(ctx.Request().Context(), claims.UserID(), id)
	if err != nil {
		return errors.Wrap(err, "recording section completion")
	}
	return ctx.JSON(http.StatusCreated, completionResponse{Completion: sp, Enrollment: enr})
}

func (api *enrollmentApi) revokeSection(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	enr, err := api.tracker.RevokeSectionCompletion(ctx.Request().Context(), claims.UserID(), id)
	if err != nil {
		return errors.Wrap(err, "revoking section completion")
	}
	return ctx.JSON(http.StatusOK, enr)
}
