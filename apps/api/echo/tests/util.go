package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kinga/apps/api/echo"
	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/auth"
	"github.com/trezcool/kinga/core/safety"
	"github.com/trezcool/kinga/core/user"
	notifsvc "github.com/trezcool/kinga/services/notification"
	inmemdb "github.com/trezcool/kinga/storage/database/inmem"
	testutil "github.com/trezcool/kinga/tests"
)

const password = "T3leph0ne-b00th"

var (
	usrRepo  user.Repository
	dispatch *notifsvc.RecorderDispatcher

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	t.Helper()

	// stable error bodies
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	usrRepo = inmemdb.NewUserRepository(db)

	// set up services
	usrSvc := user.NewService(usrRepo, testutil.NewLogger())
	authMgr := auth.NewManager(usrSvc, testutil.NewLogger())
	dispatch = notifsvc.NewRecorderDispatcher()
	safetySvc := safety.NewService(inmemdb.NewSafetyRepository(db), usrSvc, authMgr, dispatch, testutil.NewLogger())

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         testutil.NewLogger(),
			UserSvc:        usrSvc,
			AuthMgr:        authMgr,
			SafetySvc:      safetySvc,
		},
	)
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

// getToken signs a token for usr the way a fresh login would.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	now := time.Now()
	sess := &auth.Session{
		ID:        uuid.New().String(),
		Account:   usr,
		CreatedAt: now,
		ExpiresAt: now.Add(core.Conf.SessionTTL),
	}
	token, err := GenerateToken(GetSessionClaims(sess))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
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
	return assert.ObjectsAreEqual(j1, j2), nil
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

// checkFieldErrors asserts a 400 field-error body keyed by the given fields.
func checkFieldErrors(t *testing.T, rec *httptest.ResponseRecorder, fields ...string) {
	t.Helper()
	if rec.Code != http.StatusBadRequest {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}
	var fldErrs map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
		t.Fatalf("failed to parse field errors from %v: %v", rec.Body.String(), err)
	}
	for _, fld := range fields {
		if _, ok := fldErrs[fld]; !ok {
			t.Errorf("failed! data = %v; want a %q field error", rec.Body.String(), fld)
		}
	}
}
