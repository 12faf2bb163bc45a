package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoelito123/PyStart/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	app.createUser(t, "ana", true, user.RoleStudent)
	app.createUser(t, "naughty", false, user.RoleStudent)

	app.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "lol", Password: testPassword}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "ana", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "naughty", Password: testPassword}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	// by email, case insensitive
	rec := app.do(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "ANA@test.bo", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana", resp.User.Username)
	assert.False(t, resp.User.LastLogin.IsZero())

	// the token works
	rec = app.do(t, http.MethodGet, fmt.Sprintf("/v1/users/%d", resp.User.ID), resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/v1/users/token-refresh", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed LoginResponse
	decode(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	student := user.NewStudent{NewUser: user.NewUser{
		Name:            "Ana",
		LastName:        "Quispe",
		Email:           "anaq@test.bo",
		Password:        "Mango2024x",
		PasswordConfirm: "Mango2024x",
	}}
	rec := app.do(t, http.MethodPost, "/v1/users/students", "", student)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created user.User
	decode(t, rec, &created)
	assert.Equal(t, "anaq", created.Username)
	assert.Equal(t, []string{user.RoleStudent}, created.Roles)

	instructor := user.NewInstructor{NewUser: user.NewUser{
		Name:            "Luis",
		LastName:        "Mamani",
		Username:        "luis_m",
		Email:           "ANAQ@test.bo",
		Password:        "Mango2024x",
		PasswordConfirm: "Mango2024x",
	}}

	app.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users/instructors",
			body:     marshalObj(t, instructor),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "unknown institution", method: http.MethodPost, path: "/v1/users/students",
			body: marshalObj(t, user.NewStudent{
				NewUser: user.NewUser{
					Name: "Eva", LastName: "Choque", Email: "evach@test.bo",
					Password: "Mango2024x", PasswordConfirm: "Mango2024x",
				},
				InstitutionID: 42,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"institution_id": user.ErrInstitutionNotFound.Error()}),
		},
	})

	instructor.Email = "luis@test.bo"
	rec = app.do(t, http.MethodPost, "/v1/users/instructors", "", instructor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	assert.Equal(t, []string{user.RoleInstructor}, created.Roles)
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)
	ana := app.createUser(t, "ana", true, user.RoleStudent)
	eva := app.createUser(t, "eva", true, user.RoleStudent)
	admin := app.createUser(t, "admin", true, user.AdminRoles...)

	path := fmt.Sprintf("/v1/users/%d", ana.ID)
	app.run(t, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "self", path: path, token: app.token(t, ana), wantCode: http.StatusOK},
		{name: "admin", path: path, token: app.token(t, admin), wantCode: http.StatusOK},
		{name: "someone else", path: path, token: app.token(t, eva), wantCode: http.StatusNotFound},
		{name: "bad id", path: "/v1/users/abc", token: app.token(t, admin), wantCode: http.StatusNotFound},
		{
			name: "roles admin only", path: "/v1/users/roles", token: app.token(t, ana),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "roles", path: "/v1/users/roles", token: app.token(t, admin), wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
	})
}
