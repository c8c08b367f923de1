package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kinga/apps/api/echo"
	"github.com/trezcool/kinga/core/user"
	testutil "github.com/trezcool/kinga/tests"
)

func TestUserRegister(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)

	tests := []httpTest{
		{
			name: "ok",
			body: marchallObj(t, user.NewUser{
				Name: "Bob Bob", Email: "bob@school.test", Role: user.RoleStaff,
				Password: password, PasswordConfirm: password,
			}),
			wantCode: http.StatusCreated,
		},
		{
			name: "direction accounts cannot self-register",
			body: marchallObj(t, user.NewUser{
				Name: "Eve Eve", Email: "eve@school.test", Role: user.RoleDirection,
				Password: password, PasswordConfirm: password,
			}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "duplicate email fails",
			body: marchallObj(t, user.NewUser{
				Name: "Alice Again", Email: "alice@school.test", Role: user.RoleStudent,
				Password: password, PasswordConfirm: password,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("failed to parse User: %v", err)
				}
				assert.NotEmpty(t, usr.ID)
				assert.Equal(t, "bob@school.test", usr.Email)
				assert.True(t, usr.Active())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserRegisterValidation(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/v1/users/register", marchallObj(t, user.NewUser{
		Name: "Bob Bob", Email: "bob@school.test", Role: user.RoleStaff,
		Password: password, PasswordConfirm: "mismatch",
	}))
	app.ServeHTTP(rec, req)
	checkFieldErrors(t, rec, "password_confirm")
}

func TestUserQuery(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	// listing is direction only
	req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users", getToken(t, direction))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var users []user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to parse users: %v", err)
	}
	assert.Len(t, users, 3)

	// filtered
	req, rec = newAuthRequest(http.MethodGet, "/v1/users?role=staff", getToken(t, direction))
	app.ServeHTTP(rec, req)
	users = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to parse users: %v", err)
	}
	if assert.Len(t, users, 1) {
		assert.Equal(t, "bob@school.test", users[0].Email)
	}
}

func TestUserRetrieve(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	tests := []httpTest{
		{
			name:     "own account",
			path:     "/v1/users/" + student.ID,
			token:    getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, student),
		},
		{
			name:     "someone else's account reads as missing",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, student),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "direction reads any account",
			path:     "/v1/users/" + staff.ID,
			token:    getToken(t, direction),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, staff),
		},
		{
			name:     "missing token",
			path:     "/v1/users/" + student.ID,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserBanUnban(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	staff := testutil.CreateUser(t, usrRepo, "Bob Bob", "bob@school.test", password, user.RoleStaff, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	banBody := marchallObj(t, BanRequest{Email: "alice@school.test"})

	// staff may not ban
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/ban", getToken(t, staff), banBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	// direction bans
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/ban", getToken(t, direction), banBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("failed to parse User: %v", err)
	}
	assert.False(t, usr.Active())

	// the banned account can no longer log in
	req, rec = newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, LoginRequest{Email: "alice@school.test", Password: password}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)

	// unban restores access, data intact
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/unban", getToken(t, direction), banBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	usr = user.User{}
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("failed to parse User: %v", err)
	}
	assert.True(t, usr.Active())
	assert.Equal(t, "Alice Alice", usr.Name)

	// unknown account
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/ban", getToken(t, direction), marchallObj(t, BanRequest{Email: "nobody@school.test"}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"})}, rec)
}

func TestUserDestroy(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Alice Alice", "alice@school.test", password, user.RoleStudent, true)
	direction := testutil.CreateUser(t, usrRepo, "Dan Dan", "dan@school.test", password, user.RoleDirection, true)

	// accounts cannot delete themselves
	req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+direction.ID, getToken(t, direction))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+student.ID, getToken(t, direction))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusNoContent, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, getToken(t, direction))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}
