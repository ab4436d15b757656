package enrollment_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/tests"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	return validate
}

func TestNewEnrollmentRequest(t *testing.T) {
	w := testutil.ReadyWizard(t)
	addrs := append(w.Data.Addresses, enrollment.Address{Street: "incomplete"})
	guardians := []enrollment.Guardian{
		w.Data.Guardians[0],
		{
			FirstName: "Joe", LastName: "Doe", Relationship: "father", Email: "JOE@test.test", Phone: "+243", // lives elsewhere
			Addresses: []enrollment.Address{{Street: "9 Rue", City: "Kisangani", State: "Tshopo", PostalCode: "9", Country: "DR Congo"}},
		},
	}
	w.Data.Apply(enrollment.FormPatch{Addresses: &addrs, Guardians: &guardians, MiddleName: strPtr("  K ")})

	req := enrollment.NewEnrollmentRequest(w, "school-1", "2026-2027")

	student := req.Student
	assert.Equal(t, "K", student.MiddleName)
	assert.Equal(t, w.ID, student.Reference)
	require.Len(t, student.Addresses, 1, "incomplete addresses are left out")
	assert.True(t, student.Addresses[0].IsPrimary)
	require.Len(t, student.Guardians, 2)
	assert.Empty(t, student.Guardians[0].Addresses, "same address as the student")
	require.Len(t, student.Guardians[1].Addresses, 1)
	assert.True(t, student.Guardians[1].Addresses[0].IsPrimary)
	assert.Equal(t, "joe@test.test", student.Guardians[1].Email)

	assert.Equal(t, enrollment.CreateEnrollmentRequest{
		SchoolID:       "school-1",
		AcademicYearID: "2026-2027",
		Grade:          "grade-5",
		GradeLevel:     5,
		EnrollmentDate: "2026-09-01",
		Status:         enrollment.StatusPending,
		TuitionOption:  enrollment.TuitionFull,
		TuitionAmount:  9025,
		Reference:      w.ID,
	}, req.Enrollment)

	assert.NoError(t, newValidate().Struct(req))
}

func TestNewEnrollmentRequest_unknownGradeIsRejected(t *testing.T) {
	w := testutil.ReadyWizard(t)
	w.Data.Grade = "grade-42"

	req := enrollment.NewEnrollmentRequest(w, "school-1", "2026-2027")
	assert.Equal(t, 0.0, req.Enrollment.TuitionAmount)

	err := newValidate().Struct(req)
	require.Error(t, err)
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	fields := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, fe.Namespace())
	}
	assert.ElementsMatch(t, []string{
		"EnrollmentRequest.enrollment.grade",
		"EnrollmentRequest.enrollment.tuitionAmount",
	}, fields)
}
