package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/core/student"
	"github.com/trezcool/rollcall/core/teacher"
	emailsvc "github.com/trezcool/rollcall/services/email"
	logsvc "github.com/trezcool/rollcall/services/logger"
	notifysvc "github.com/trezcool/rollcall/services/notify"
	dummydb "github.com/trezcool/rollcall/storage/database/dummy"
	"github.com/trezcool/rollcall/storage/keyval"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type apiFixture struct {
	app     Server
	stdRepo student.Repository
	tchRepo teacher.Repository
	lsnRepo lesson.Repository
	stdSvc  student.ServiceInterface
	tchSvc  teacher.ServiceInterface
	lsnSvc  lesson.ServiceInterface
	signals *keyval.MemStore
}

func setup(t *testing.T) *apiFixture {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	f := &apiFixture{
		stdRepo: dummydb.NewStudentRepository(db),
		tchRepo: dummydb.NewTeacherRepository(db),
		lsnRepo: dummydb.NewLessonRepository(db),
		signals: keyval.NewMemStore(),
	}

	logger := logsvc.NewTestLogger()
	mailSvc := emailsvc.NewConsoleServiceMock()

	f.stdSvc = student.NewService(f.stdRepo)
	f.tchSvc = teacher.NewService(f.tchRepo)
	notifier := notifysvc.NewEmailNotifier(f.stdSvc, mailSvc, logger)
	f.lsnSvc = lesson.NewService(f.lsnRepo, f.signals, notifier, logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	f.app = NewServer(
		"", /* addr */
		ServerDeps{
			Conf:       core.Conf,
			Logger:     logger,
			StudentSvc: f.stdSvc,
			TeacherSvc: f.tchSvc,
			LessonSvc:  f.lsnSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	return f
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, tch teacher.Teacher) string {
	claims := GetTeacherClaims(tch)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
