package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/kelasku/kelasku/core/user"
	testutil "github.com/kelasku/kelasku/tests"
)

type authResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "taken", "taken@test.cd", "", user.RoleUser)

	tests := []httpTest{
		{
			name: "empty payload", method: http.MethodPost, path: "/api/users/register",
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "short username", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"ab","email":"ab@test.cd","password":"secret1"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"abc","email":"nope","password":"secret1"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "short password", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"abc","email":"abc@test.cd","password":"nope"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate username", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"taken","email":"new@test.cd","password":"secret1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "a user with this username already exists", Code: "conflict"}),
		},
		{
			name: "duplicate email", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"newone","email":"taken@test.cd","password":"secret1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "a user with this email already exists", Code: "conflict"}),
		},
		{
			name: "ok", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"newbie","email":"newbie@test.cd","password":"secret1"}`),
			wantCode: http.StatusCreated,
		},
		{
			name: "ok with admin role", method: http.MethodPost, path: "/api/users/register",
			body:     []byte(`{"username":"chief","email":"chief@test.cd","password":"secret1","role":"admin"}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if rec.Code == http.StatusCreated {
				var resp authResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.UserID == "" {
					t.Error("expected a userId in the response")
				}
				if resp.Message != "registration successful" {
					t.Errorf("message = %q", resp.Message)
				}
			}
		})
	}

	// the defaulted role is user
	t.Run("role defaults to user", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/users/register",
			[]byte(`{"username":"plain","email":"plain@test.cd","password":"secret1"}`))
		app.ServeHTTP(rec, req)

		var resp authResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Role != user.RoleUser {
			t.Errorf("role = %q; want %q", resp.Role, user.RoleUser)
		}
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "secret1", user.RoleUser)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/api/users/login",
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown username", method: http.MethodPost, path: "/api/users/login",
			body:     []byte(`{"username":"lol","password":"secret1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "invalid username or password", Code: "bad_request"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/users/login",
			body:     []byte(`{"username":"awe","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "invalid username or password", Code: "bad_request"}),
		},
		{
			name: "ok", method: http.MethodPost, path: "/api/users/login",
			body:     []byte(`{"username":"awe","password":"secret1"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, authResponse{Message: "login successful", UserID: usr.ID, Username: "awe", Role: user.RoleUser}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			} else if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
		})
	}
}

func Test_userApi_queryAll(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "", user.RoleAdmin)
	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "", user.RoleUser)

	tests := []httpTest{
		{
			name: "ID required", path: "/api/users/admin/all", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "user ID is required", Code: "bad_request"}),
		},
		{
			name: "unknown ID", path: "/api/users/admin/all?adminId=nope", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Message: "user not found", Code: "not_found"}),
		},
		{
			name: "admin required", path: "/api/users/admin/all?adminId=" + usr.ID, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Message: "permission denied", Code: "forbidden"}),
		},
		{
			name: "ok", path: "/api/users/admin/all?adminId=" + admin.ID, wantCode: http.StatusOK,
			wantData: marchallList(t, admin, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "", user.RoleUser)

	tests := []httpTest{
		{
			name: "not found", path: "/api/users/nope", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Message: "user not found", Code: "not_found"}),
		},
		{name: "ok", path: "/api/users/" + usr.ID, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
