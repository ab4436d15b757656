package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

type (
	studentRow struct {
		ID             string      `db:"id"`
		FirstName      string      `db:"first_name"`
		MiddleName     string      `db:"middle_name"`
		LastName       string      `db:"last_name"`
		DateOfBirth    time.Time   `db:"date_of_birth"`
		Gender         string      `db:"gender"`
		Nationality    string      `db:"nationality"`
		Email          string      `db:"email"`
		Phone          string      `db:"phone"`
		PreviousSchool null.String `db:"previous_school"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	guardianRow struct {
		ID                 string      `db:"id"`
		StudentID          string      `db:"student_id"`
		FirstName          string      `db:"first_name"`
		LastName           string      `db:"last_name"`
		Relationship       string      `db:"relationship"`
		Email              string      `db:"email"`
		Phone              string      `db:"phone"`
		Occupation         null.String `db:"occupation"`
		IsPrimaryGuardian  bool        `db:"is_primary_guardian"`
		IsEmergencyContact bool        `db:"is_emergency_contact"`
		Position           int         `db:"position"`
	}

	addressRow struct {
		ID         string      `db:"id"`
		StudentID  null.String `db:"student_id"`
		GuardianID null.String `db:"guardian_id"`
		Type       string      `db:"type"`
		Street     string      `db:"street"`
		City       string      `db:"city"`
		State      string      `db:"state"`
		PostalCode string      `db:"postal_code"`
		Country    string      `db:"country"`
		IsPrimary  bool        `db:"is_primary"`
		Position   int         `db:"position"`
	}

	enrollmentRow struct {
		ID             string      `db:"id"`
		StudentID      string      `db:"student_id"`
		SchoolID       string      `db:"school_id"`
		AcademicYearID string      `db:"academic_year_id"`
		Grade          string      `db:"grade"`
		GradeLevel     int         `db:"grade_level"`
		EnrollmentDate time.Time   `db:"enrollment_date"`
		Status         string      `db:"status"`
		TuitionOption  string      `db:"tuition_option"`
		TuitionAmount  float64     `db:"tuition_amount"`
		WizardID       null.String `db:"wizard_id"`
		CreatedAt      time.Time   `db:"created_at"`

		// joined student identity
		StudentFirstName   null.String `db:"student_first_name"`
		StudentMiddleName  null.String `db:"student_middle_name"`
		StudentLastName    null.String `db:"student_last_name"`
		StudentDateOfBirth null.Time   `db:"student_date_of_birth"`
		StudentEmail       null.String `db:"student_email"`
	}
)

const (
	insertStudent = `INSERT INTO students
		(id, first_name, middle_name, last_name, date_of_birth, gender, nationality, email, phone, previous_school, created_at)
		VALUES (:id, :first_name, :middle_name, :last_name, :date_of_birth, :gender, :nationality, :email, :phone, :previous_school, :created_at)`

	insertGuardian = `INSERT INTO guardians
		(id, student_id, first_name, last_name, relationship, email, phone, occupation, is_primary_guardian, is_emergency_contact, position)
		VALUES (:id, :student_id, :first_name, :last_name, :relationship, :email, :phone, :occupation, :is_primary_guardian, :is_emergency_contact, :position)`

	insertAddress = `INSERT INTO addresses
		(id, student_id, guardian_id, type, street, city, state, postal_code, country, is_primary, position)
		VALUES (:id, :student_id, :guardian_id, :type, :street, :city, :state, :postal_code, :country, :is_primary, :position)`

	insertEnrollment = `INSERT INTO enrollments
		(id, student_id, school_id, academic_year_id, grade, grade_level, enrollment_date, status, tuition_option, tuition_amount, wizard_id, created_at)
		VALUES (:id, :student_id, :school_id, :academic_year_id, :grade, :grade_level, :enrollment_date, :status, :tuition_option, :tuition_amount, :wizard_id, :created_at)`

	selectEnrollments = `SELECT e.id, e.student_id, e.school_id, e.academic_year_id, e.grade, e.grade_level, e.enrollment_date,
		e.status, e.tuition_option, e.tuition_amount, e.wizard_id, e.created_at,
		s.first_name AS student_first_name, s.middle_name AS student_middle_name, s.last_name AS student_last_name,
		s.date_of_birth AS student_date_of_birth, s.email AS student_email
		FROM enrollments e LEFT JOIN students s ON s.id = e.student_id`
)

// orderingColumns maps enrollment.OrderingFields to qualified columns.
var orderingColumns = map[string]string{
	"created_at":      "e.created_at",
	"enrollment_date": "e.enrollment_date",
	"last_name":       "s.last_name",
	"grade_level":     "e.grade_level",
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to enrollment.ErrEnrollmentNotFound
func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return enrollment.ErrEnrollmentNotFound
	}
	return errors.Wrap(err, msg)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(enrollment.DateLayout, s)
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(enrollment.DateLayout)
}

func toStudentRow(s enrollment.Student) studentRow {
	return studentRow{
		ID:             s.ID,
		FirstName:      s.FirstName,
		MiddleName:     s.MiddleName,
		LastName:       s.LastName,
		DateOfBirth:    parseDate(s.DateOfBirth),
		Gender:         s.Gender,
		Nationality:    s.Nationality,
		Email:          s.Email,
		Phone:          s.Phone,
		PreviousSchool: null.NewString(s.PreviousSchool, s.PreviousSchool != ""),
		CreatedAt:      s.CreatedAt.UTC(),
	}
}

func (r studentRow) student() enrollment.Student {
	return enrollment.Student{
		ID:             r.ID,
		FirstName:      r.FirstName,
		MiddleName:     r.MiddleName,
		LastName:       r.LastName,
		DateOfBirth:    formatDate(r.DateOfBirth),
		Gender:         r.Gender,
		Nationality:    r.Nationality,
		Email:          r.Email,
		Phone:          r.Phone,
		PreviousSchool: r.PreviousSchool.String,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

func toAddressRow(a enrollment.Address, owner null.String, guardian null.String, pos int) addressRow {
	return addressRow{
		ID:         a.ID,
		StudentID:  owner,
		GuardianID: guardian,
		Type:       string(a.Type),
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsPrimary:  a.IsPrimary,
		Position:   pos,
	}
}

func toEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:             enr.ID,
		StudentID:      enr.StudentID,
		SchoolID:       enr.SchoolID,
		AcademicYearID: enr.AcademicYearID,
		Grade:          enr.Grade,
		GradeLevel:     enr.GradeLevel,
		EnrollmentDate: parseDate(enr.EnrollmentDate),
		Status:         string(enr.Status),
		TuitionOption:  string(enr.TuitionOption),
		TuitionAmount:  enr.TuitionAmount,
		WizardID:       null.NewString(enr.Reference, enr.Reference != ""),
		CreatedAt:      enr.CreatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:             r.ID,
		StudentID:      r.StudentID,
		SchoolID:       r.SchoolID,
		AcademicYearID: r.AcademicYearID,
		Grade:          r.Grade,
		GradeLevel:     r.GradeLevel,
		EnrollmentDate: formatDate(r.EnrollmentDate),
		Status:         enrollment.EnrollmentStatus(r.Status),
		TuitionOption:  enrollment.TuitionOption(r.TuitionOption),
		TuitionAmount:  r.TuitionAmount,
		Reference:      r.WizardID.String,
		CreatedAt:      r.CreatedAt.UTC(),
		Student: enrollment.Student{
			ID:          r.StudentID,
			FirstName:   r.StudentFirstName.String,
			MiddleName:  r.StudentMiddleName.String,
			LastName:    r.StudentLastName.String,
			DateOfBirth: formatDate(r.StudentDateOfBirth.Time),
			Email:       r.StudentEmail.String,
		},
	}
}

// CreateEnrollment inserts the student, its addresses, its guardians & the enrollment in one transaction.
func (repo enrollmentRepository) CreateEnrollment(
	ctx context.Context,
	student enrollment.Student,
	enr enrollment.Enrollment,
) (_ enrollment.Enrollment, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertStudent, toStudentRow(student)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting student")
	}
	studentID := null.StringFrom(student.ID)
	for i, a := range student.Addresses {
		if _, err = tx.NamedExecContext(ctx, insertAddress, toAddressRow(a, studentID, null.String{}, i)); err != nil {
			return enrollment.Enrollment{}, errors.Wrap(err, "inserting student address")
		}
	}

	for i, g := range student.Guardians {
		row := guardianRow{
			ID:                 g.ID,
			StudentID:          student.ID,
			FirstName:          g.FirstName,
			LastName:           g.LastName,
			Relationship:       g.Relationship,
			Email:              g.Email,
			Phone:              g.Phone,
			Occupation:         null.NewString(g.Occupation, g.Occupation != ""),
			IsPrimaryGuardian:  g.IsPrimaryGuardian,
			IsEmergencyContact: g.IsEmergencyContact,
			Position:           i,
		}
		if _, err = tx.NamedExecContext(ctx, insertGuardian, row); err != nil {
			return enrollment.Enrollment{}, errors.Wrap(err, "inserting guardian")
		}
		guardianID := null.StringFrom(g.ID)
		for j, a := range g.Addresses {
			if _, err = tx.NamedExecContext(ctx, insertAddress, toAddressRow(a, null.String{}, guardianID, j)); err != nil {
				return enrollment.Enrollment{}, errors.Wrap(err, "inserting guardian address")
			}
		}
	}

	enr.StudentID = student.ID
	if _, err = tx.NamedExecContext(ctx, insertEnrollment, toEnrollmentRow(enr)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing enrollment")
	}

	student.Addresses, student.Guardians = nil, nil
	enr.Student = student
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollmentByReference(ctx context.Context, ref string) (enrollment.Enrollment, error) {
	if _, err := uuid.Parse(ref); err != nil {
		return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, selectEnrollments+" WHERE e.wizard_id = $1", ref); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment by reference")
	}
	return row.enrollment(), nil
}

// FindStudentsByBirthDate returns the students' identity fields only.
func (repo enrollmentRepository) FindStudentsByBirthDate(ctx context.Context, dob string) ([]enrollment.Student, error) {
	date, err := time.Parse(enrollment.DateLayout, dob)
	if err != nil {
		return []enrollment.Student{}, nil
	}
	var rows []studentRow
	err = repo.db.SelectContext(ctx, &rows, `SELECT id, first_name, middle_name, last_name, date_of_birth, gender,
		nationality, email, phone, previous_school, created_at FROM students WHERE date_of_birth = $1`, date)
	if err != nil {
		return nil, errors.Wrap(err, "finding students by date of birth")
	}
	students := make([]enrollment.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo enrollmentRepository) QueryEnrollments(
	ctx context.Context,
	filter enrollment.QueryFilter,
	ordering ...core.DBOrdering,
) ([]enrollment.Enrollment, error) {
	var (
		conds []string
		args  []interface{}
	)
	// enrollments of students with a first, middle or last name matching the search keyword
	if search := core.CleanString(filter.Search); search != "" {
		val := "%" + search + "%"
		conds = append(conds, "(s.first_name ILIKE ? OR s.middle_name ILIKE ? OR s.last_name ILIKE ?)")
		args = append(args, val, val, val)
	}
	if filter.Grade != "" {
		conds = append(conds, "e.grade = ?")
		args = append(args, filter.Grade)
	}
	if filter.Status != "" {
		conds = append(conds, "e.status = ?")
		args = append(args, string(filter.Status))
	}

	query := selectEnrollments
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := orderingColumns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "e.id ASC")
	query += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.enrollment())
	}
	return enrs, nil
}
