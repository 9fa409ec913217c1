package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/rollcall/tests"
)

func Test_teacherApi_login(t *testing.T) {
	f := setup(t)

	tch := testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "LesPoulesAuxYeuxDor")

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "unknown email",
			body:     []byte(`{"email":"lol@test.cd","password":"lol"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"authentication failed"}`),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"email":"banza@test.cd","password":"lol"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"authentication failed"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/auth/login", tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/login",
			[]byte(`{"email":"banza@test.cd","password":"LesPoulesAuxYeuxDor"}`))
		f.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("login code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("login did not return a token")
		}
	})

	t.Run("token refresh", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/auth/token-refresh", getToken(t, tch))
		f.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("token-refresh code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("token-refresh did not return a token")
		}
	})

	t.Run("token refresh requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/token-refresh")
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}, rec)
	})
}

func Test_teacherApi_create(t *testing.T) {
	f := setup(t)

	testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "")

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required","teacher_id":"this field is required",` +
				`"email":"this field is required","password":"this field is required","password_confirm":"this field is required"}`),
		},
		{
			name: "password mismatch",
			body: []byte(`{"name":"Mr Door","teacher_id":2,"email":"door@test.cd",` +
				`"password":"abc","password_confirm":"def"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password_confirm":"password_confirm must be equal to Password"}`),
		},
		{
			name: "duplicate email",
			body: []byte(`{"name":"Mr Door","teacher_id":2,"email":"banza@test.cd",` +
				`"password":"abc","password_confirm":"abc"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a teacher with this email already exists"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/teachers", tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/teachers",
			[]byte(`{"name":"Mr Door","teacher_id":2,"email":"door@test.cd","password":"abc","password_confirm":"abc"}`))
		f.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if body["teacher_uuid"] == "" {
			t.Error("create did not assign an ID")
		}
		if _, leaked := body["password_hash"]; leaked {
			t.Error("create leaked the password hash")
		}
	})
}

func Test_teacherApi_retrieve(t *testing.T) {
	f := setup(t)

	tch := testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "")

	tests := []httpTest{
		{
			name:     "not found",
			path:     "/api/teachers/00000000-0000-0000-0000-000000000000",
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"not found"}`),
		},
		{
			name:     "ok",
			path:     "/api/teachers/" + tch.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, tch),
		},
		{
			name:     "list",
			path:     "/api/teachers",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []interface{}{tch}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
