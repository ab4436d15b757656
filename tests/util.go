package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/services/logger"
	"github.com/trezcool/masomo-emis/storage/database"
)

// NewConfig returns the default configuration in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.Enrollment.SchoolID = "school-1"
	conf.Enrollment.AcademicYearID = "2026-2027"
	conf.Enrollment.Backend = core.BackendLocal
	conf.Enrollment.SessionStore = core.SessionStoreMemory
	return conf
}

// NewLogger returns a silent logger that reports nothing.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func strPtr(s string) *string { return &s }

// StudentInformationPatch fills every required field of the student information step.
func StudentInformationPatch() enrollment.FormPatch {
	return enrollment.FormPatch{
		FirstName:   strPtr("John"),
		LastName:    strPtr("Doe"),
		DateOfBirth: strPtr("2015-04-12"),
		Gender:      strPtr("male"),
		Nationality: strPtr("Congolese"),
	}
}

func ContactDetailsPatch() enrollment.FormPatch {
	addrs := []enrollment.Address{{
		Type:       enrollment.AddressHome,
		Street:     "12 Avenue Kasa-Vubu",
		City:       "Kinshasa",
		State:      "Kinshasa",
		PostalCode: "12345",
		Country:    "DR Congo",
	}}
	guardians := []enrollment.Guardian{{
		FirstName:            "Jane",
		LastName:             "Doe",
		Relationship:         "mother",
		Email:                "jane.doe@test.test",
		Phone:                "+243810000000",
		IsPrimaryGuardian:    true,
		IsEmergencyContact:   true,
		SameAddressAsStudent: true,
	}}
	return enrollment.FormPatch{
		Email:     strPtr("john.doe@test.test"),
		Phone:     strPtr("+243820000000"),
		Addresses: &addrs,
		Guardians: &guardians,
	}
}

func AcademicsPatch(grade string, option enrollment.TuitionOption) enrollment.FormPatch {
	return enrollment.FormPatch{
		Grade:          strPtr(grade),
		EnrollmentDate: strPtr("2026-09-01"),
		TuitionOption:  &option,
	}
}

// ReadyWizard returns a wizard on the review step with every step valid, consent & initials included.
func ReadyWizard(t *testing.T) *enrollment.Wizard {
	t.Helper()
	w := enrollment.NewWizard(time.Now(), false)
	for _, p := range []enrollment.FormPatch{
		StudentInformationPatch(),
		ContactDetailsPatch(),
		AcademicsPatch("grade-5", enrollment.TuitionFull),
	} {
		if err := w.Apply(p); err != nil {
			t.Fatalf("ReadyWizard() failed: %v", err)
		}
		if !w.Next() {
			t.Fatalf("ReadyWizard() failed: step %d is not valid", w.Current())
		}
	}
	if err := w.Acknowledge(true, "JD"); err != nil {
		t.Fatalf("ReadyWizard() failed: %v", err)
	}
	return w
}

// CreateEnrollment records an enrollment of a student named first & last, born on dob.
func CreateEnrollment(
	t *testing.T,
	repo enrollment.Repository,
	first, last, dob, grade string,
	createdAt ...time.Time,
) enrollment.Enrollment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	g, _ := enrollment.LookupGrade(grade)
	student := enrollment.Student{
		ID:          uuid.NewString(),
		FirstName:   first,
		LastName:    last,
		DateOfBirth: dob,
		Gender:      "female",
		Nationality: "Congolese",
		Email:       "student@test.test",
		Phone:       "+243820000000",
		Addresses: []enrollment.Address{{
			ID: uuid.NewString(), Type: enrollment.AddressHome, IsPrimary: true,
			Street: "1 Main St", City: "Lubumbashi", State: "Haut-Katanga", PostalCode: "001", Country: "DR Congo",
		}},
		CreatedAt: tstamp,
	}
	enr := enrollment.Enrollment{
		ID:             uuid.NewString(),
		StudentID:      student.ID,
		SchoolID:       "school-1",
		AcademicYearID: "2026-2027",
		Grade:          grade,
		GradeLevel:     g.Level,
		EnrollmentDate: "2026-09-01",
		Status:         enrollment.StatusPending,
		TuitionOption:  enrollment.TuitionInstallment,
		TuitionAmount:  g.Rate,
		Reference:      uuid.NewString(),
		CreatedAt:      tstamp,
	}
	enr, err := repo.CreateEnrollment(context.Background(), student, enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

// PrepareDB opens the test database, migrates it & empties its tables.
// The test is skipped unless DATABASE_TESTS is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("DATABASE_TESTS") == "" {
		t.Skip("DATABASE_TESTS is not set")
	}

	conf := NewConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE enrollments, addresses, guardians, students CASCADE"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
