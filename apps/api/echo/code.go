package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core/analysis"
	"github.com/jhoelito123/PyStart/core/coderun"
	"github.com/jhoelito123/PyStart/core/tutor"
)

type codeApi struct {
	runner   *coderun.Service
	analyzer *analysis.Analyzer
	tutor    *tutor.Tutor
	validate *validator.Validate
}

func registerCodeAPI(
	g *echo.Group,
	runner *coderun.Service,
	analyzer *analysis.Analyzer,
	tut *tutor.Tutor,
	validate *validator.Validate,
) {
	api := codeApi{runner: runner, analyzer: analyzer, tutor: tut, validate: validate}

	g.POST("/code/execute", api.execute)
	g.POST("/code/analyze", api.analyze)
	g.POST("/ai/assistant", api.ask)
	g.POST("/ai/code-review", api.review)
}

// execute reports execution failures in the body; only malformed requests are errors.
func (api *codeApi) execute(ctx echo.Context) error {
	var data coderun.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to coderun.Request")
	}
	res, err := api.runner.Run(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *codeApi) analyze(ctx echo.Context) error {
	var data analysis.AnalyzeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnalyzeRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.analyzer.Analyze(ctx.Request().Context(), data.Code))
}

func (api *codeApi) ask(ctx echo.Context) error {
	var data tutor.AskRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AskRequest")
	}
	resp, err := api.tutor.Ask(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *codeApi) review(ctx echo.Context) error {
	var data tutor.ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	resp, err := api.tutor.ReviewCode(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}
