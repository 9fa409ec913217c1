package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/tests"
)

func Test_lessonApi_create(t *testing.T) {
	f := setup(t)

	tch := testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "")
	token := getToken(t, tch)

	tests := []httpTest{
		{
			name:     "no token",
			body:     []byte(`{"name":"Algebra"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "empty body",
			token:    token,
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/lessons", tt.token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons", token, []byte(`{"name":"Algebra"}`))
		f.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var lsn lesson.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &lsn); err != nil {
			t.Fatalf("unmarshalling Lesson: %v", err)
		}
		if lsn.ID == "" {
			t.Error("create did not assign an ID")
		}
		if lsn.TeacherID != tch.ID {
			t.Errorf("lesson teacher = %s, want token subject %s", lsn.TeacherID, tch.ID)
		}
		if lsn.Status != lesson.StatusScheduled {
			t.Errorf("lesson status = %v, want %v", lsn.Status, lesson.StatusScheduled)
		}
	})
}

// Drives a full session over HTTP: enroll, start, heartbeat, reconcile, end.
func Test_lessonApi_lifecycle(t *testing.T) {
	f := setup(t)

	tch := testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "")
	other := testutil.CreateTeacher(t, f.tchRepo, "Mr Door", 2, "door@test.cd", "")
	stdA := testutil.CreateStudent(t, f.stdRepo, "Awe", 1, "dev-a", "")
	stdB := testutil.CreateStudent(t, f.stdRepo, "Ben", 2, "dev-b", "")
	lsn := testutil.CreateLesson(t, f.lsnRepo, "Algebra", tch.ID, lesson.StatusScheduled)

	token := getToken(t, tch)
	otherToken := getToken(t, other)

	t.Run("presence before any session", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/presence", []byte(`{"device_ids":["dev-a"]}`))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"no lesson is in session"}`),
		}, rec)
	})

	t.Run("enroll", func(t *testing.T) {
		for _, std := range []string{stdA.ID, stdB.ID} {
			req, rec := newRequest(http.MethodPost, "/api/enrollments",
				marchallObj(t, lesson.NewEnrollment{StudentID: std, LessonID: lsn.ID}))
			f.app.ServeHTTP(rec, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("enroll code = %v; body %s", rec.Code, rec.Body.String())
			}
		}
	})

	t.Run("enroll twice", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/enrollments",
			marchallObj(t, lesson.NewEnrollment{StudentID: stdA.ID, LessonID: lsn.ID}))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_uuid":"student is already enrolled in this lesson"}`),
		}, rec)
	})

	t.Run("start by another teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/start", otherToken)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error":"lesson belongs to another teacher"}`),
		}, rec)
	})

	t.Run("start", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/start", token)
		f.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("start code = %v; body %s", rec.Code, rec.Body.String())
		}
		var started lesson.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
			t.Fatalf("unmarshalling Lesson: %v", err)
		}
		if started.Status != lesson.StatusInSession {
			t.Errorf("start status = %v, want %v", started.Status, lesson.StatusInSession)
		}
	})

	t.Run("start twice", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/start", token)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: []byte(`{"error":"lesson is no longer scheduled"}`),
		}, rec)
	})

	t.Run("enroll after start", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/enrollments",
			marchallObj(t, lesson.NewEnrollment{StudentID: stdA.ID, LessonID: lsn.ID}))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: []byte(`{"error":"lesson is no longer scheduled"}`),
		}, rec)
	})

	t.Run("presence", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/presence", []byte(`{"device_ids":["dev-a","dev-unknown"]}`))
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusAccepted,
			wantData: []byte(`{"success":"presence recorded"}`),
		}, rec)
	})

	t.Run("reconcile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/reconcile", token)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ReconcileResponse{MarkedPresent: []string{stdA.ID}}),
		}, rec)
	})

	t.Run("reconcile again is a no-op", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/reconcile", token)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"marked_present":[]}`),
		}, rec)
	})

	t.Run("end", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/end", token)
		f.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("end code = %v; body %s", rec.Code, rec.Body.String())
		}
		var ended lesson.Lesson
		if err := json.Unmarshal(rec.Body.Bytes(), &ended); err != nil {
			t.Fatalf("unmarshalling Lesson: %v", err)
		}
		if ended.Status != lesson.StatusEnded {
			t.Errorf("end status = %v, want %v", ended.Status, lesson.StatusEnded)
		}
	})

	t.Run("attendances after end", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/lessons/"+lsn.ID+"/attendances")
		f.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attendances code = %v; body %s", rec.Code, rec.Body.String())
		}
		var attendances []lesson.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &attendances); err != nil {
			t.Fatalf("unmarshalling attendances: %v", err)
		}
		byStudent := make(map[string]lesson.AttendanceStatus, len(attendances))
		for _, att := range attendances {
			byStudent[att.StudentID] = att.Status
		}
		if byStudent[stdA.ID] != lesson.AttendancePresent {
			t.Errorf("student A status = %v, want Present", byStudent[stdA.ID])
		}
		if byStudent[stdB.ID] != lesson.AttendanceAbsent {
			t.Errorf("student B status = %v, want Absent", byStudent[stdB.ID])
		}
	})

	t.Run("end twice", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons/"+lsn.ID+"/end", token)
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: []byte(`{"error":"lesson is not in session"}`),
		}, rec)
	})
}

func Test_lessonApi_retrieve(t *testing.T) {
	f := setup(t)

	tch := testutil.CreateTeacher(t, f.tchRepo, "Ms Banza", 1, "banza@test.cd", "")
	lsn := testutil.CreateLesson(t, f.lsnRepo, "Algebra", tch.ID, lesson.StatusScheduled)

	tests := []httpTest{
		{
			name:     "not found",
			path:     "/api/lessons/00000000-0000-0000-0000-000000000000",
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"not found"}`),
		},
		{
			name:     "ok",
			path:     "/api/lessons/" + lsn.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, lsn),
		},
		{
			name:     "list",
			path:     "/api/lessons",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []interface{}{lsn}),
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
