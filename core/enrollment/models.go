package enrollment

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-emis/core"
)

const DateLayout = "2006-01-02"

type AddressType string

const (
	AddressHome    AddressType = "home"
	AddressMailing AddressType = "mailing"
)

type TuitionOption string

const (
	TuitionFull        TuitionOption = "full"
	TuitionInstallment TuitionOption = "installment"
)

type EnrollmentStatus string

const (
	StatusPending EnrollmentStatus = "PENDING"
	StatusActive  EnrollmentStatus = "ACTIVE"
)

type (
	Address struct {
		ID         string      `json:"id"`
		Type       AddressType `json:"type"`
		Street     string      `json:"street"`
		City       string      `json:"city"`
		State      string      `json:"state"`
		PostalCode string      `json:"postal_code"`
		Country    string      `json:"country"`
		IsPrimary  bool        `json:"is_primary"`
	}

	Guardian struct {
		ID                 string `json:"id"`
		FirstName          string `json:"first_name"`
		LastName           string `json:"last_name"`
		Relationship       string `json:"relationship"`
		Email              string `json:"email"`
		Phone              string `json:"phone"`
		Occupation         string `json:"occupation,omitempty"`
		IsPrimaryGuardian  bool   `json:"is_primary_guardian"`
		IsEmergencyContact bool   `json:"is_emergency_contact"`
		// SameAddressAsStudent makes consumers ignore Addresses (they are kept as entered).
		SameAddressAsStudent bool      `json:"same_address_as_student"`
		Addresses            []Address `json:"addresses"`
	}

	// FormData aggregates the fields of every wizard step.
	FormData struct {
		// student information
		FirstName   string `json:"first_name"`
		MiddleName  string `json:"middle_name"`
		LastName    string `json:"last_name"`
		DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
		Gender      string `json:"gender"`
		Nationality string `json:"nationality"`

		// contact details
		Email     string     `json:"email"`
		Phone     string     `json:"phone"`
		Addresses []Address  `json:"addresses"` // the first one is the primary address & cannot be removed
		Guardians []Guardian `json:"guardians"`

		// academics
		Grade          string        `json:"grade"`
		EnrollmentDate string        `json:"enrollment_date"` // YYYY-MM-DD
		PreviousSchool string        `json:"previous_school"`
		TuitionOption  TuitionOption `json:"tuition_option"`
	}

	// FormPatch is a partial FormData update: nil fields are left untouched,
	// lists are replaced as a whole.
	FormPatch struct {
		FirstName   *string `json:"first_name"`
		MiddleName  *string `json:"middle_name"`
		LastName    *string `json:"last_name"`
		DateOfBirth *string `json:"date_of_birth"`
		Gender      *string `json:"gender"`
		Nationality *string `json:"nationality"`

		Email     *string     `json:"email"`
		Phone     *string     `json:"phone"`
		Addresses *[]Address  `json:"addresses"`
		Guardians *[]Guardian `json:"guardians"`

		Grade          *string        `json:"grade"`
		EnrollmentDate *string        `json:"enrollment_date"`
		PreviousSchool *string        `json:"previous_school"`
		TuitionOption  *TuitionOption `json:"tuition_option" validate:"omitempty,tuition_option"`
	}

	// Student & Enrollment are the records created by a successful submission.
	Student struct {
		ID             string     `json:"id"`
		FirstName      string     `json:"first_name"`
		MiddleName     string     `json:"middle_name"`
		LastName       string     `json:"last_name"`
		DateOfBirth    string     `json:"date_of_birth"`
		Gender         string     `json:"gender"`
		Nationality    string     `json:"nationality"`
		Email          string     `json:"email"`
		Phone          string     `json:"phone"`
		PreviousSchool string     `json:"previous_school,omitempty"`
		Addresses      []Address  `json:"addresses,omitempty"`
		Guardians      []Guardian `json:"guardians,omitempty"`
		CreatedAt      time.Time  `json:"created_at"` // UTC
	}

	Enrollment struct {
		ID             string           `json:"id"`
		StudentID      string           `json:"student_id"`
		SchoolID       string           `json:"school_id"`
		AcademicYearID string           `json:"academic_year_id"`
		Grade          string           `json:"grade"`
		GradeLevel     int              `json:"grade_level"`
		EnrollmentDate string           `json:"enrollment_date"`
		Status         EnrollmentStatus `json:"status"`
		TuitionOption  TuitionOption    `json:"tuition_option"`
		TuitionAmount  float64          `json:"tuition_amount"`
		Reference      string           `json:"reference,omitempty"` // wizard ID
		CreatedAt      time.Time        `json:"created_at"`          // UTC
		Student        Student          `json:"student"`             // identity fields only when queried
	}

	Receipt struct {
		EnrollmentID string           `json:"enrollment_id"`
		StudentID    string           `json:"student_id"`
		Status       EnrollmentStatus `json:"status"`
		SubmittedAt  time.Time        `json:"submitted_at"` // UTC
	}

	QueryFilter struct {
		// Search does a case-insensitive match on the student's first, middle or last name.
		Search string
		Grade  string
		Status EnrollmentStatus
	}
)

// OrderingFields maps the public ordering fields of QueryEnrollments.
var OrderingFields = map[string]string{
	"created_at":      "created_at",
	"enrollment_date": "enrollment_date",
	"last_name":       "last_name",
	"grade_level":     "grade_level",
}

// NewFormData returns the defaults of a fresh wizard.
func NewFormData(now time.Time) FormData {
	return FormData{
		Addresses:      []Address{{ID: uuid.NewString(), Type: AddressHome, IsPrimary: true}},
		Guardians:      []Guardian{},
		EnrollmentDate: now.Format(DateLayout),
		TuitionOption:  TuitionInstallment,
	}
}

// Apply shallow-merges the patch into the form data.
// An empty address list is ignored: the primary address cannot be removed.
func (d *FormData) Apply(p FormPatch) {
	setString(&d.FirstName, p.FirstName)
	setString(&d.MiddleName, p.MiddleName)
	setString(&d.LastName, p.LastName)
	setString(&d.DateOfBirth, p.DateOfBirth)
	setString(&d.Gender, p.Gender)
	setString(&d.Nationality, p.Nationality)
	setString(&d.Email, p.Email)
	setString(&d.Phone, p.Phone)
	setString(&d.Grade, p.Grade)
	setString(&d.EnrollmentDate, p.EnrollmentDate)
	setString(&d.PreviousSchool, p.PreviousSchool)
	if p.TuitionOption != nil {
		d.TuitionOption = *p.TuitionOption
	}

	if p.Addresses != nil && len(*p.Addresses) > 0 {
		d.Addresses = normalizeAddresses(*p.Addresses, true)
	}
	if p.Guardians != nil {
		guardians := make([]Guardian, len(*p.Guardians))
		for i, g := range *p.Guardians {
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			g.Addresses = normalizeAddresses(g.Addresses, false)
			guardians[i] = g
		}
		d.Guardians = guardians
	}
}

// PrimaryGuardian returns the guardian flagged primary, or the first one.
func (d FormData) PrimaryGuardian() (Guardian, bool) {
	for _, g := range d.Guardians {
		if g.IsPrimaryGuardian {
			return g, true
		}
	}
	if len(d.Guardians) > 0 {
		return d.Guardians[0], true
	}
	return Guardian{}, false
}

func (d FormData) FullName() string {
	return fullName(d.FirstName, d.MiddleName, d.LastName)
}

func (s Student) FullName() string {
	return fullName(s.FirstName, s.MiddleName, s.LastName)
}

func fullName(names ...string) string {
	var full string
	for _, n := range names {
		if n = core.CleanString(n); n != "" {
			if full != "" {
				full += " "
			}
			full += n
		}
	}
	return full
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func normalizeAddresses(addrs []Address, fixPrimary bool) []Address {
	out := make([]Address, len(addrs))
	for i, a := range addrs {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Type == "" {
			a.Type = AddressHome
		}
		if fixPrimary {
			a.IsPrimary = i == 0
		}
		out[i] = a
	}
	return out
}
