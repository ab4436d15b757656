package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/masomo-emis/apps/api/echo"
	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/services/email"
	"github.com/trezcool/masomo-emis/services/metrics"
	"github.com/trezcool/masomo-emis/storage/database/dummy"
	"github.com/trezcool/masomo-emis/storage/session"
	"github.com/trezcool/masomo-emis/tests"
)

type fixture struct {
	app    *Server
	repo   enrollment.Repository
	mailer *emailsvc.ConsoleServiceMock
}

type enrollFunc func(ctx context.Context, req enrollment.EnrollmentRequest) (enrollment.Receipt, error)

func (fn enrollFunc) Enroll(ctx context.Context, req enrollment.EnrollmentRequest) (enrollment.Receipt, error) {
	return fn(ctx, req)
}

// setup builds the API over in-memory storage. Submissions go to the local Registrar unless enroller is given.
func setup(t *testing.T, enroller ...enrollment.Enroller) *fixture {
	t.Helper()
	conf := testutil.NewConfig()
	conf.Server.DisableReqLogs = true
	logger := testutil.NewLogger(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := dummydb.NewEnrollmentRepository(db)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	registrar := enrollment.NewRegistrar(repo, validate, translator, mailer, logger)

	var enr enrollment.Enroller = registrar
	if len(enroller) > 0 {
		enr = enroller[0]
	}
	metrics := metricsvc.NewMetrics()
	svc := enrollment.NewService(session.NewMemoryStore(), enr, metrics, logger, conf)

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Wizards:    svc,
		Registry:   registrar,
		Metrics:    metrics.Handler(),
		Validate:   validate,
		Translator: translator,
	})
	return &fixture{app: app, repo: repo, mailer: mailer}
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

// do serves a request & returns the recorded response.
func (f *fixture) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// wizardView is the subset of the wizard's JSON the tests look at.
type wizardView struct {
	ID             string `json:"id"`
	CurrentStep    int    `json:"current_step"`
	CompletedSteps []int  `json:"completed_steps"`
	CanAdvance     bool   `json:"can_advance"`
	Data           struct {
		FirstName string `json:"first_name"`
		Grade     string `json:"grade"`
	} `json:"data"`
	Tuition    enrollment.Tuition `json:"tuition"`
	Submission struct {
		Status    enrollment.SubmissionStatus `json:"status"`
		Attempts  int                         `json:"attempts"`
		CanSubmit bool                        `json:"can_submit"`
		Error     *enrollment.SubmitError     `json:"error"`
	} `json:"submission"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
