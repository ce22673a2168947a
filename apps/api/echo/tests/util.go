package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/credeval/apps/api/echo"
	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	"github.com/trezcool/credeval/storage/database/inmem"
	"github.com/trezcool/credeval/tests"
)

var (
	scaleRepo   scale.Repository
	studentRepo student.Repository
)

func setup(t *testing.T) *echoapi.Server {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	scaleRepo = inmemdb.NewScaleRepository(db)
	studentRepo = inmemdb.NewStudentRepository(db)

	// set up services
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	validator := core.NewValidator()
	scaleSvc := scale.NewService(scaleRepo, validator, logger)
	studentSvc := student.NewService(studentRepo, scaleSvc, validator, logger, conf)
	scaleSvc.Subscribe(studentSvc.OnScaleChanged)

	// set up server
	return echoapi.NewServer(conf, logger, validator, scaleSvc, studentSvc)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
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

func do(srv http.Handler, method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	srv.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; body %s", err, rec.Body.String())
	}
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
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func ctx() context.Context {
	return context.Background()
}
