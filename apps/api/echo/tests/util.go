package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/kelasku/kelasku/apps/api/echo"
	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/assignment"
	"github.com/kelasku/kelasku/core/user"
	emailsvc "github.com/kelasku/kelasku/services/email"
	mediasvc "github.com/kelasku/kelasku/services/media"
	inmemdb "github.com/kelasku/kelasku/storage/database/inmem"
	testutil "github.com/kelasku/kelasku/tests"
)

var (
	usrRepo    user.Repository
	assignRepo assignment.Repository
	mediaSvc   *mediasvc.DummyService
)

func setup(t *testing.T) Server {
	t.Helper()

	conf := testutil.NewConfig()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	assignRepo = inmemdb.NewAssignmentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	mediaSvc = mediasvc.NewDummyService()
	gate := user.NewGate(usrRepo)
	usrSvc := user.NewService(usrRepo, gate)
	assignSvc := assignment.NewService(assignRepo, gate, mailSvc)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        testLogger{std: log.New(io.Discard, "", 0)},
			UserSvc:       usrSvc,
			AssignmentSvc: assignSvc,
			MediaSvc:      mediaSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type testLogger struct {
	std *log.Logger
}

func (l testLogger) Enable(bool) {}
func (l testLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.std.Println(msg, args) }

type httpErr struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

type formFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func newMultipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newMultipartRequest(): %v", err)
		}
	}
	for _, f := range files {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.name + `"`}
		hdr["Content-Type"] = []string{f.contentType}
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("newMultipartRequest(): %v", err)
		}
		if _, err = part.Write(f.content); err != nil {
			t.Fatalf("newMultipartRequest(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newMultipartRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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
	t.Helper()

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

func futureDeadline() time.Time {
	return time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
}
