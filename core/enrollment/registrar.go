package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-emis/core"
)

const (
	// DuplicateNameRatio is the name similarity above which a student born on the same day is a duplicate.
	DuplicateNameRatio = 0.85

	confirmationTemplate = "enrollment_confirmation"
)

var ErrDuplicateStudent = errors.New("a student with a similar name and the same date of birth is already enrolled")

type (
	Repository interface {
		// CreateEnrollment saves the student, its addresses & guardians and the enrollment at once.
		CreateEnrollment(ctx context.Context, student Student, enr Enrollment) (Enrollment, error)
		// GetEnrollmentByReference returns ErrEnrollmentNotFound if nothing was enrolled with the reference.
		GetEnrollmentByReference(ctx context.Context, ref string) (Enrollment, error)
		FindStudentsByBirthDate(ctx context.Context, dateOfBirth string) ([]Student, error)
		// QueryEnrollments applies AND operation on available QueryFilter fields.
		QueryEnrollments(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
	}

	// Registrar is the local Enroller: it records enrollments in the school's database.
	Registrar struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		mailer     core.EmailService
		logger     core.Logger
		now        func() time.Time
	}

	ConfirmationData struct {
		RecipientName     string
		StudentName       string
		GradeName         string
		EnrollmentDate    string
		EnrollmentID      string
		Status            EnrollmentStatus
		TuitionOption     TuitionOption
		FinalAmount       string
		Discount          string // empty when no discount
		InstallmentAmount string // empty unless paying in installments
		Installments      int
	}
)

var _ Enroller = (*Registrar)(nil) // interface compliance check

// NewRegistrar expects `validate` to be initialized with InitValidators.
func NewRegistrar(
	repo Repository,
	validate *validator.Validate,
	translator ut.Translator,
	mailer core.EmailService,
	logger core.Logger,
) *Registrar {
	return &Registrar{
		repo:       repo,
		validate:   validate,
		translator: translator,
		mailer:     mailer,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registrar) Enroll(ctx context.Context, req EnrollmentRequest) (Receipt, error) {
	// a retried submission returns the first outcome
	if req.Enrollment.Reference != "" {
		enr, err := r.repo.GetEnrollmentByReference(ctx, req.Enrollment.Reference)
		switch {
		case err == nil:
			return newReceipt(enr), nil
		case !errors.Is(err, ErrEnrollmentNotFound):
			return Receipt{}, errors.Wrap(err, "checking reference")
		}
	}

	if err := r.validate.StructCtx(ctx, req); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return Receipt{}, r.validationError(vErrs)
		}
		return Receipt{}, err
	}

	if err := r.checkDuplicate(ctx, req.Student); err != nil {
		return Receipt{}, err
	}

	now := r.now()
	student := newStudent(req.Student, now)
	enr := Enrollment{
		ID:             uuid.NewString(),
		StudentID:      student.ID,
		SchoolID:       req.Enrollment.SchoolID,
		AcademicYearID: req.Enrollment.AcademicYearID,
		Grade:          req.Enrollment.Grade,
		GradeLevel:     req.Enrollment.GradeLevel,
		EnrollmentDate: req.Enrollment.EnrollmentDate,
		Status:         req.Enrollment.Status,
		TuitionOption:  req.Enrollment.TuitionOption,
		TuitionAmount:  req.Enrollment.TuitionAmount,
		Reference:      req.Enrollment.Reference,
		CreatedAt:      now,
	}

	enr, err := r.repo.CreateEnrollment(ctx, student, enr)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "creating enrollment")
	}
	enr.Student = student
	r.logger.Info("enrollment created", map[string]interface{}{
		"enrollment_id": enr.ID,
		"student_id":    enr.StudentID,
		"reference":     enr.Reference,
	})

	r.sendConfirmation(enr, req)
	return newReceipt(enr), nil
}

// Enrollments lists the enrollments recorded locally.
func (r *Registrar) Enrollments(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error) {
	return r.repo.QueryEnrollments(ctx, filter, ordering...)
}

func (r *Registrar) validationError(vErrs validator.ValidationErrors) error {
	flds := make([]core.FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		// drop the root struct name: EnrollmentRequest.student.firstName -> student.firstName
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		flds = append(flds, core.FieldError{Field: ns, Error: fe.Translate(r.translator)})
	}
	return core.NewValidationError(nil, flds...)
}

// checkDuplicate rejects a student whose name is close to one of the students born the same day.
func (r *Registrar) checkDuplicate(ctx context.Context, sr CreateStudentRequest) error {
	students, err := r.repo.FindStudentsByBirthDate(ctx, sr.DateOfBirth)
	if err != nil {
		return errors.Wrap(err, "finding students")
	}
	name := fullName(sr.FirstName, sr.MiddleName, sr.LastName)
	for _, s := range students {
		if NameSimilarity(name, s.FullName()) >= DuplicateNameRatio {
			return core.NewValidationError(ErrDuplicateStudent, core.FieldError{
				Field: "student",
				Error: ErrDuplicateStudent.Error(),
			})
		}
	}
	return nil
}

// NameSimilarity returns the case-insensitive similarity ratio of two names, in [0, 1].
func NameSimilarity(a, b string) float64 {
	a, b = core.CleanString(a, true /* lower */), core.CleanString(b, true /* lower */)
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func (r *Registrar) sendConfirmation(enr Enrollment, req EnrollmentRequest) {
	to, name := r.confirmationRecipient(req.Student)
	if to == "" {
		return
	}

	tuition := ComputeTuition(enr.Grade, enr.TuitionOption)
	grade, _ := LookupGrade(enr.Grade)
	data := ConfirmationData{
		RecipientName:  name,
		StudentName:    enr.Student.FullName(),
		GradeName:      grade.Name,
		EnrollmentDate: enr.EnrollmentDate,
		EnrollmentID:   enr.ID,
		Status:         enr.Status,
		TuitionOption:  enr.TuitionOption,
		FinalAmount:    FormatAmount(tuition.FinalAmount),
	}
	if tuition.Discount > 0 {
		data.Discount = FormatAmount(tuition.Discount)
	}
	if tuition.InstallmentAmount != nil {
		data.InstallmentAmount = FormatAmount(*tuition.InstallmentAmount)
		data.Installments = tuition.Installments
	}

	r.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: to}},
		Subject:      fmt.Sprintf("Enrollment of %s received", data.StudentName),
		TemplateName: confirmationTemplate,
		TemplateData: data,
	})
}

// confirmationRecipient is the primary guardian, falling back on the first guardian then the student.
func (r *Registrar) confirmationRecipient(sr CreateStudentRequest) (email, name string) {
	for _, g := range sr.Guardians {
		if g.IsPrimaryGuardian {
			return g.Email, fullName(g.FirstName, g.LastName)
		}
	}
	if len(sr.Guardians) > 0 {
		g := sr.Guardians[0]
		return g.Email, fullName(g.FirstName, g.LastName)
	}
	return sr.Email, fullName(sr.FirstName, sr.LastName)
}

func newStudent(sr CreateStudentRequest, now time.Time) Student {
	s := Student{
		ID:             uuid.NewString(),
		FirstName:      sr.FirstName,
		MiddleName:     sr.MiddleName,
		LastName:       sr.LastName,
		DateOfBirth:    sr.DateOfBirth,
		Gender:         sr.Gender,
		Nationality:    sr.Nationality,
		Email:          sr.Email,
		Phone:          sr.Phone,
		PreviousSchool: sr.PreviousSchool,
		Addresses:      newAddresses(sr.Addresses),
		Guardians:      make([]Guardian, 0, len(sr.Guardians)),
		CreatedAt:      now,
	}
	for _, g := range sr.Guardians {
		s.Guardians = append(s.Guardians, Guardian{
			ID:                 uuid.NewString(),
			FirstName:          g.FirstName,
			LastName:           g.LastName,
			Relationship:       g.Relationship,
			Email:              g.Email,
			Phone:              g.Phone,
			Occupation:         g.Occupation,
			IsPrimaryGuardian:  g.IsPrimaryGuardian,
			IsEmergencyContact: g.IsEmergencyContact,
			Addresses:          newAddresses(g.Addresses),
		})
	}
	return s
}

func newAddresses(reqs []AddressRequest) []Address {
	addrs := make([]Address, 0, len(reqs))
	for _, a := range reqs {
		addrs = append(addrs, Address{
			ID:         uuid.NewString(),
			Type:       a.Type,
			Street:     a.Street,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			IsPrimary:  a.IsPrimary,
		})
	}
	return addrs
}

func newReceipt(enr Enrollment) Receipt {
	return Receipt{
		EnrollmentID: enr.ID,
		StudentID:    enr.StudentID,
		Status:       enr.Status,
		SubmittedAt:  enr.CreatedAt,
	}
}
