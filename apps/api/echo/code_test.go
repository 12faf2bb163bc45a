package echoapi

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core/analysis"
	"github.com/jhoelito123/PyStart/core/coderun"
	"github.com/jhoelito123/PyStart/core/tutor"
)

func Test_codeApi_execute(t *testing.T) {
	app := setup(t)
	request := func(code, lang string) []byte {
		return marshalObj(t, coderun.Request{Code: code, Language: lang})
	}

	app.sandbox.exec = coderun.Execution{Stdout: "hola\n", Path: "/tmp/tmpab12.py"}
	app.run(t, []httpTest{
		{
			name: "missing code", method: http.MethodPost, path: "/v1/code/execute", body: request("", "python"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"code": "this field is required"}),
		},
		{
			name: "unsupported language", method: http.MethodPost, path: "/v1/code/execute", body: request("puts 1", "Ruby"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"language": "unsupported language, supported: python"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/code/execute", body: request(`print("hola")`, "Python"),
			wantCode: http.StatusOK, wantData: marshalObj(t, coderun.Result{Output: "hola", Status: coderun.StatusSuccess}),
		},
	})

	app.sandbox.exec = coderun.Execution{TimedOut: true}
	rec := app.do(t, http.MethodPost, "/v1/code/execute", "", coderun.Request{Code: "while True: pass", Language: "python"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res coderun.Result
	decode(t, rec, &res)
	assert.Equal(t, coderun.StatusTimeout, res.Status)

	app.sandbox.exec, app.sandbox.err = coderun.Execution{}, errors.New("fork failed")
	rec = app.do(t, http.MethodPost, "/v1/code/execute", "", coderun.Request{Code: "print(1)", Language: "python"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, coderun.StatusError, res.Status)
	assert.Equal(t, 1, app.logger.Count("ERROR"))
}

func Test_codeApi_analyze(t *testing.T) {
	app := setup(t)

	rec := app.do(t, http.MethodPost, "/v1/code/analyze", "", analysis.AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/v1/code/analyze", "", analysis.AnalyzeRequest{Code: "x = 1\nprint(x)\n"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report analysis.Report
	decode(t, rec, &report)
	assert.Contains(t, report.DefinedIdentifiers, "x")
}

func Test_codeApi_tutorUnavailable(t *testing.T) {
	app := setup(t)

	app.run(t, []httpTest{
		{
			name: "ask: message required", method: http.MethodPost, path: "/v1/ai/assistant",
			body:     marshalObj(t, tutor.AskRequest{}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "review: code required", method: http.MethodPost, path: "/v1/ai/code-review",
			body:     marshalObj(t, tutor.ReviewRequest{Type: "debug"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"code": "this field is required"}),
		},
	})

	rec := app.do(t, http.MethodPost, "/v1/ai/assistant", "", tutor.AskRequest{Message: "What is a list?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var ask tutor.AskResponse
	decode(t, rec, &ask)
	assert.False(t, ask.Success)
	assert.NotEmpty(t, ask.Response)

	rec = app.do(t, http.MethodPost, "/v1/ai/code-review", "", tutor.ReviewRequest{Code: "print(1)", Type: "lol"})
	require.Equal(t, http.StatusOK, rec.Code)
	var review tutor.ReviewResponse
	decode(t, rec, &review)
	assert.False(t, review.Success)
	assert.Equal(t, tutor.ReviewGeneral, review.Type)
	assert.Equal(t, "print(1)", review.Code)
}
