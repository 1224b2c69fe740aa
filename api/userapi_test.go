package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/bookdepot/stock-service/api"
	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/testutil"
)

func setupUserTestServer() (*httptest.Server, *user.MockUserService) {
	mockSvc := user.NewMockUserService()
	mockSvc.LoginFunc = loginFixture

	userApi := api.NewUserApi(&mockSvc)
	r := chi.NewRouter()
	r.With(api.Authenticate(&mockSvc)).Route("/", func(r chi.Router) {
		userApi.ConfigureRouter(r)
	})
	ts := httptest.NewServer(r)

	return ts, &mockSvc
}

func TestUserCreate(t *testing.T) {
	ts, mockSvc := setupUserTestServer()
	defer ts.Close()

	createRequest := func() api.CreateUserRequestDto {
		return api.CreateUserRequestDto{
			CreateUserRequest: &user.CreateUserRequest{Username: "newschool", Role: user.RoleSchool, SchoolID: 9},
			Password:          "longenoughpw",
		}
	}
	created := user.User{Username: "newschool", Role: user.RoleSchool, SchoolID: 9, Created: getTime("2023-01-04T12:00:00Z")}

	tests := []struct {
		name    string
		auth    []testutil.RequestOptions
		request func() api.CreateUserRequestDto

		loginFunc  func(ctx context.Context, username, password string) (user.User, error)
		serviceErr error

		wantReq        *user.CreateUserRequest
		wantResponse   *api.UserResponse
		wantErr        *api.ErrResponse
		wantStatusCode int
	}{
		{
			name:    "admins create users",
			auth:    []testutil.RequestOptions{asAdmin},
			request: createRequest,
			wantReq: &user.CreateUserRequest{
				Username: "newschool", Role: user.RoleSchool, SchoolID: 9, PlainTextPassword: "longenoughpw",
			},
			wantResponse: &api.UserResponse{
				Username: created.Username, Role: created.Role, SchoolID: created.SchoolID, Created: created.Created,
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "school users may not create users",
			auth:           []testutil.RequestOptions{asSchool},
			request:        createRequest,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "login failures reject the request outright",
			auth: []testutil.RequestOptions{asAdmin},
			loginFunc: func(ctx context.Context, username, password string) (user.User, error) {
				return user.User{}, errors.New("some unexpected error")
			},
			request:        createRequest,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "username is required",
			auth: []testutil.RequestOptions{asAdmin},
			request: func() api.CreateUserRequestDto {
				req := createRequest()
				req.Username = ""
				return req
			},
			wantErr:        invalidReq("missing required user fields"),
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "password is required",
			auth: []testutil.RequestOptions{asAdmin},
			request: func() api.CreateUserRequestDto {
				req := createRequest()
				req.Password = ""
				return req
			},
			wantErr:        invalidReq("missing required user fields"),
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "service validation failures read as bad requests",
			auth:           []testutil.RequestOptions{asAdmin},
			request:        createRequest,
			serviceErr:     core.Invalidf("password", "password must be at least 8 characters"),
			wantErr:        invalidReq("password: password must be at least 8 characters"),
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unexpected service error",
			auth:           []testutil.RequestOptions{asAdmin},
			request:        createRequest,
			serviceErr:     errors.New("some unexpected error"),
			wantErr:        api.ErrInternalServer,
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, test := range tests {
		var gotReq user.CreateUserRequest
		mockSvc.LoginFunc = loginFixture
		if test.loginFunc != nil {
			mockSvc.LoginFunc = test.loginFunc
		}
		mockSvc.CreateFunc = func(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
			gotReq = req
			return created, test.serviceErr
		}

		t.Run(test.name, func(t *testing.T) {
			res := testutil.Post(ts.URL, test.request(), t, test.auth...)

			if res.StatusCode != test.wantStatusCode {
				t.Errorf("status code got=%d want=%d", res.StatusCode, test.wantStatusCode)
			}

			if test.wantErr != nil {
				expectError(res, test.wantErr, t)
			} else if test.wantResponse != nil {
				got := api.UserResponse{}
				testutil.Unmarshal(res, &got, t)

				if !reflect.DeepEqual(got, *test.wantResponse) {
					t.Errorf("user\n got=%+v\nwant=%+v", got, *test.wantResponse)
				}
			}

			if test.wantReq != nil && !reflect.DeepEqual(gotReq, *test.wantReq) {
				t.Errorf("request\n got=%+v\nwant=%+v", gotReq, *test.wantReq)
			}
		})
	}
}

func TestUserGet(t *testing.T) {
	ts, mockSvc := setupUserTestServer()
	defer ts.Close()

	stMarys := user.User{Username: "stmarys", Role: user.RoleSchool, SchoolID: 7, Created: getTime("2023-01-04T12:00:00Z")}

	tests := []struct {
		name string
		url  string
		auth testutil.RequestOptions

		usr        user.User
		serviceErr error

		wantUsername   string
		wantResponse   *api.UserResponse
		wantErr        *api.ErrResponse
		wantStatusCode int
	}{
		{
			name:         "admins look at anyone",
			url:          "/stmarys",
			auth:         asAdmin,
			usr:          stMarys,
			wantUsername: "stmarys",
			wantResponse: &api.UserResponse{
				Username: stMarys.Username, Role: stMarys.Role, SchoolID: stMarys.SchoolID, Created: stMarys.Created,
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:         "users look at themselves",
			url:          "/stmarys",
			auth:         asSchool,
			usr:          stMarys,
			wantUsername: "stmarys",
			wantResponse: &api.UserResponse{
				Username: stMarys.Username, Role: stMarys.Role, SchoolID: stMarys.SchoolID, Created: stMarys.Created,
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "users may not look at anyone else",
			url:            "/gertrude",
			auth:           asSchool,
			wantErr:        api.ErrForbidden,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "unknown user",
			url:            "/nobody",
			auth:           asAdmin,
			serviceErr:     core.ErrNotFound,
			wantUsername:   "nobody",
			wantErr:        api.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, test := range tests {
		var gotUsername string
		mockSvc.GetFunc = func(ctx context.Context, username string) (user.User, error) {
			gotUsername = username
			return test.usr, test.serviceErr
		}

		t.Run(test.name, func(t *testing.T) {
			res := get(ts.URL+test.url, t, test.auth)

			if res.StatusCode != test.wantStatusCode {
				t.Errorf("status code got=%d want=%d", res.StatusCode, test.wantStatusCode)
			}

			if test.wantErr != nil {
				expectError(res, test.wantErr, t)
			} else {
				got := api.UserResponse{}
				testutil.Unmarshal(res, &got, t)

				if !reflect.DeepEqual(got, *test.wantResponse) {
					t.Errorf("user\n got=%+v\nwant=%+v", got, *test.wantResponse)
				}
			}

			if gotUsername != test.wantUsername {
				t.Errorf("username got=%s want=%s", gotUsername, test.wantUsername)
			}
		})
	}
}

func TestUserDelete(t *testing.T) {
	ts, mockSvc := setupUserTestServer()
	defer ts.Close()

	tests := []struct {
		name string
		auth []testutil.RequestOptions

		serviceErr error

		wantUsername   string
		wantErr        *api.ErrResponse
		wantStatusCode int
	}{
		{
			name:           "admins delete users",
			auth:           []testutil.RequestOptions{asAdmin},
			wantUsername:   "someuser",
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "school users may not delete users",
			auth:           []testutil.RequestOptions{asSchool},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "unexpected service error",
			auth:           []testutil.RequestOptions{asAdmin},
			serviceErr:     errors.New("some unexpected error"),
			wantUsername:   "someuser",
			wantErr:        api.ErrInternalServer,
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, test := range tests {
		var gotUsername string
		mockSvc.DeleteFunc = func(ctx context.Context, username string) error {
			gotUsername = username
			return test.serviceErr
		}

		t.Run(test.name, func(t *testing.T) {
			res := testutil.SendRequest(http.MethodDelete, ts.URL+"/someuser", nil, t, test.auth...)

			if res.StatusCode != test.wantStatusCode {
				t.Errorf("status code got=%d want=%d", res.StatusCode, test.wantStatusCode)
			}

			if test.wantErr != nil {
				expectError(res, test.wantErr, t)
			}

			if gotUsername != test.wantUsername {
				t.Errorf("username got=%s want=%s", gotUsername, test.wantUsername)
			}
		})
	}
}
