package enrollment

import "github.com/trezcool/masomo-emis/core"

// Request shapes of the "create enrollment" operation.
type (
	AddressRequest struct {
		Type       AddressType `json:"type" validate:"oneof=home mailing"`
		Street     string      `json:"street" validate:"required,max=255"`
		City       string      `json:"city" validate:"required,max=100"`
		State      string      `json:"state" validate:"required,max=100"`
		PostalCode string      `json:"postalCode" validate:"required,max=20"`
		Country    string      `json:"country" validate:"required,max=100"`
		IsPrimary  bool        `json:"isPrimary"`
	}

	GuardianRequest struct {
		FirstName          string           `json:"firstName" validate:"required,max=100"`
		LastName           string           `json:"lastName" validate:"required,max=100"`
		Relationship       string           `json:"relationship" validate:"required,max=50"`
		Email              string           `json:"email" validate:"required,email"`
		Phone              string           `json:"phone" validate:"required,max=50"`
		Occupation         string           `json:"occupation,omitempty" validate:"max=100"`
		IsPrimaryGuardian  bool             `json:"isPrimaryGuardian"`
		IsEmergencyContact bool             `json:"isEmergencyContact"`
		Addresses          []AddressRequest `json:"addresses,omitempty" validate:"omitempty,dive"`
	}

	CreateStudentRequest struct {
		FirstName      string            `json:"firstName" validate:"required,max=100"`
		MiddleName     string            `json:"middleName,omitempty" validate:"max=100"`
		LastName       string            `json:"lastName" validate:"required,max=100"`
		DateOfBirth    string            `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
		Gender         string            `json:"gender" validate:"required,max=20"`
		Nationality    string            `json:"nationality" validate:"required,max=100"`
		Email          string            `json:"email" validate:"required,email"`
		Phone          string            `json:"phone" validate:"required,max=50"`
		PreviousSchool string            `json:"previousSchool,omitempty" validate:"max=255"`
		Addresses      []AddressRequest  `json:"addresses" validate:"required,min=1,dive"`
		Guardians      []GuardianRequest `json:"guardians" validate:"required,min=1,dive"`
		// Reference identifies the submitting wizard; the backend creates one student per reference.
		Reference string `json:"externalReference" validate:"required,notblank"`
	}

	CreateEnrollmentRequest struct {
		StudentID      string           `json:"studentId,omitempty"` // set once the student exists
		SchoolID       string           `json:"schoolId" validate:"required,notblank"`
		AcademicYearID string           `json:"academicYearId" validate:"required,notblank"`
		Grade          string           `json:"grade" validate:"required,grade"`
		GradeLevel     int              `json:"gradeLevel" validate:"gte=0,lte=12"`
		EnrollmentDate string           `json:"enrollmentDate" validate:"required,datetime=2006-01-02"`
		Status         EnrollmentStatus `json:"status" validate:"required,oneof=PENDING ACTIVE"`
		TuitionOption  TuitionOption    `json:"tuitionOption" validate:"required,tuition_option"`
		TuitionAmount  float64          `json:"tuitionAmount" validate:"gt=0"`
		// Reference identifies the submitting wizard; retries reuse it.
		Reference string `json:"externalReference" validate:"required,notblank"`
	}

	EnrollmentRequest struct {
		Student    CreateStudentRequest    `json:"student"`
		Enrollment CreateEnrollmentRequest `json:"enrollment"`
	}
)

// NewEnrollmentRequest flattens the wizard's form data into the create enrollment request.
// Addresses of guardians living with the student are left out; so are incomplete addresses.
func NewEnrollmentRequest(w *Wizard, schoolID, academicYearID string) EnrollmentRequest {
	d := w.Data

	student := CreateStudentRequest{
		FirstName:      core.CleanString(d.FirstName),
		MiddleName:     core.CleanString(d.MiddleName),
		LastName:       core.CleanString(d.LastName),
		DateOfBirth:    core.CleanString(d.DateOfBirth),
		Gender:         core.CleanString(d.Gender),
		Nationality:    core.CleanString(d.Nationality),
		Email:          core.CleanString(d.Email, true /* lower */),
		Phone:          core.CleanString(d.Phone),
		PreviousSchool: core.CleanString(d.PreviousSchool),
		Addresses:      addressRequests(d.Addresses),
		Guardians:      make([]GuardianRequest, 0, len(d.Guardians)),
		Reference:      w.ID,
	}
	for _, g := range d.Guardians {
		gr := GuardianRequest{
			FirstName:          core.CleanString(g.FirstName),
			LastName:           core.CleanString(g.LastName),
			Relationship:       core.CleanString(g.Relationship),
			Email:              core.CleanString(g.Email, true /* lower */),
			Phone:              core.CleanString(g.Phone),
			Occupation:         core.CleanString(g.Occupation),
			IsPrimaryGuardian:  g.IsPrimaryGuardian,
			IsEmergencyContact: g.IsEmergencyContact,
		}
		if !g.SameAddressAsStudent {
			gr.Addresses = addressRequests(g.Addresses)
		}
		student.Guardians = append(student.Guardians, gr)
	}

	tuition := w.Tuition()
	grade, _ := LookupGrade(d.Grade)
	return EnrollmentRequest{
		Student: student,
		Enrollment: CreateEnrollmentRequest{
			SchoolID:       schoolID,
			AcademicYearID: academicYearID,
			Grade:          d.Grade,
			GradeLevel:     grade.Level,
			EnrollmentDate: core.CleanString(d.EnrollmentDate),
			Status:         StatusPending,
			TuitionOption:  d.TuitionOption,
			TuitionAmount:  tuition.FinalAmount,
			Reference:      w.ID,
		},
	}
}

func addressRequests(addrs []Address) []AddressRequest {
	reqs := make([]AddressRequest, 0, len(addrs))
	for _, a := range addrs {
		if !a.Complete() {
			continue
		}
		reqs = append(reqs, AddressRequest{
			Type:       a.Type,
			Street:     core.CleanString(a.Street),
			City:       core.CleanString(a.City),
			State:      core.CleanString(a.State),
			PostalCode: core.CleanString(a.PostalCode),
			Country:    core.CleanString(a.Country),
			IsPrimary:  a.IsPrimary,
		})
	}
	// the first complete address becomes the primary one
	for i := range reqs {
		reqs[i].IsPrimary = i == 0
	}
	return reqs
}
