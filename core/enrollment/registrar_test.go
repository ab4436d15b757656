package enrollment_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/services/email"
	"github.com/trezcool/masomo-emis/storage/database/dummy"
	"github.com/trezcool/masomo-emis/tests"
)

type registrarFixture struct {
	registrar *enrollment.Registrar
	repo      enrollment.Repository
	mailer    *emailsvc.ConsoleServiceMock
}

func newRegistrar(t *testing.T) registrarFixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewEnrollmentRepository(db)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)

	return registrarFixture{
		registrar: enrollment.NewRegistrar(repo, validate, translator, mailer, logger),
		repo:      repo,
		mailer:    mailer,
	}
}

func TestRegistrar_Enroll(t *testing.T) {
	f := newRegistrar(t)
	ctx := context.Background()
	w := testutil.ReadyWizard(t)
	req := enrollment.NewEnrollmentRequest(w, "school-1", "2026-2027")

	receipt, err := f.registrar.Enroll(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.EnrollmentID)
	assert.NotEmpty(t, receipt.StudentID)
	assert.Equal(t, enrollment.StatusPending, receipt.Status)

	enr, err := f.repo.GetEnrollmentByReference(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.EnrollmentID, enr.ID)
	assert.Equal(t, "grade-5", enr.Grade)
	assert.Equal(t, 9025.0, enr.TuitionAmount)
	assert.Equal(t, "John Doe", enr.Student.FullName())

	// the primary guardian is notified
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, "jane.doe@test.test", msg.To[0].Address)
	assert.Equal(t, "Jane Doe", msg.To[0].Name)
	assert.Equal(t, "Enrollment of John Doe received", msg.Subject)
	assert.Contains(t, msg.TextContent, "Hello Jane Doe")
	assert.Contains(t, msg.TextContent, "Grade 5")
	assert.Contains(t, msg.TextContent, "9,025.00")
	assert.Contains(t, msg.TextContent, "Full payment discount: 475.00")
	assert.NotContains(t, msg.TextContent, "installments of")
	assert.NotEmpty(t, msg.HTMLContent)
}

func TestRegistrar_Enroll_retryReturnsFirstOutcome(t *testing.T) {
	f := newRegistrar(t)
	ctx := context.Background()
	req := enrollment.NewEnrollmentRequest(testutil.ReadyWizard(t), "school-1", "2026-2027")

	first, err := f.registrar.Enroll(ctx, req)
	require.NoError(t, err)
	second, err := f.registrar.Enroll(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	enrs, err := f.registrar.Enrollments(ctx, enrollment.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, enrs, 1)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestRegistrar_Enroll_invalidRequest(t *testing.T) {
	f := newRegistrar(t)
	req := enrollment.NewEnrollmentRequest(testutil.ReadyWizard(t), "school-1", "2026-2027")
	req.Student.Email = "not-an-email"
	req.Enrollment.SchoolID = ""

	_, err := f.registrar.Enroll(context.Background(), req)
	require.Error(t, err)

	var valErr *core.ValidationError
	require.True(t, errors.As(err, &valErr))
	fields := make(map[string]string, len(valErr.Fields))
	for _, fe := range valErr.Fields {
		fields[fe.Field] = fe.Error
	}
	assert.Equal(t, map[string]string{
		"student.email":       "email must be a valid email address",
		"enrollment.schoolId": "this field is required",
	}, fields)

	assert.Equal(t, enrollment.ErrorValidation, enrollment.ClassifySubmitError(err).Kind)
	assert.Empty(t, f.mailer.Sent())
}

func TestRegistrar_Enroll_duplicateStudent(t *testing.T) {
	f := newRegistrar(t)
	testutil.CreateEnrollment(t, f.repo, "Jon", "Doe", "2015-04-12", "grade-5")
	testutil.CreateEnrollment(t, f.repo, "John", "Doe", "2014-04-12", "grade-6") // born another day

	req := enrollment.NewEnrollmentRequest(testutil.ReadyWizard(t), "school-1", "2026-2027")
	_, err := f.registrar.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, enrollment.ErrDuplicateStudent))

	subErr := enrollment.ClassifySubmitError(err)
	assert.Equal(t, enrollment.ErrorValidation, subErr.Kind)
	assert.Equal(t, enrollment.ErrDuplicateStudent.Error(), subErr.Message)
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, enrollment.NameSimilarity("John Doe", " JOHN doe "))
	assert.GreaterOrEqual(t, enrollment.NameSimilarity("John Doe", "Jon Doe"), enrollment.DuplicateNameRatio)
	assert.Less(t, enrollment.NameSimilarity("John Doe", "Patrice Lumumba"), enrollment.DuplicateNameRatio)
}
