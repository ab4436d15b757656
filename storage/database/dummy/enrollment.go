package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

// withStudent joins the student's identity fields.
func (repo *enrollmentRepository) withStudent(enr enrollment.Enrollment) enrollment.Enrollment {
	if s, ok := repo.db.students[enr.StudentID]; ok {
		student := *s
		student.Addresses, student.Guardians = nil, nil
		enr.Student = student
	}
	return enr
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, student enrollment.Student, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[student.ID]; ok {
		return enrollment.Enrollment{}, errors.Errorf("student %s already exists", student.ID)
	}
	for _, e := range repo.db.enrollments {
		if enr.Reference != "" && e.Reference == enr.Reference {
			return enrollment.Enrollment{}, errors.Errorf("enrollment reference %s already exists", enr.Reference)
		}
	}

	enr.StudentID = student.ID
	repo.db.students[student.ID] = &student
	repo.db.enrollments[enr.ID] = &enr
	return repo.withStudent(enr), nil
}

func (repo *enrollmentRepository) GetEnrollmentByReference(_ context.Context, ref string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.Reference == ref {
			return repo.withStudent(*e), nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) FindStudentsByBirthDate(_ context.Context, dob string) ([]enrollment.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]enrollment.Student, 0)
	for _, s := range repo.db.students {
		if s.DateOfBirth == dob {
			students = append(students, *s)
		}
	}
	return students, nil
}

func (repo *enrollmentRepository) QueryEnrollments(
	_ context.Context,
	filter enrollment.QueryFilter,
	ordering ...core.DBOrdering,
) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := core.CleanString(filter.Search, true /* lower */)
	enrs := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		enr := repo.withStudent(*e)
		if filter.Grade != "" && enr.Grade != filter.Grade {
			continue
		}
		if filter.Status != "" && enr.Status != filter.Status {
			continue
		}
		if search != "" && !matchesName(enr.Student, search) {
			continue
		}
		enrs = append(enrs, enr)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sort.SliceStable(enrs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(enrs[i], enrs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return enrs[i].ID < enrs[j].ID
	})
	return enrs, nil
}

func matchesName(s enrollment.Student, search string) bool {
	for _, n := range []string{s.FirstName, s.MiddleName, s.LastName} {
		if strings.Contains(strings.ToLower(n), search) {
			return true
		}
	}
	return false
}

// compare orders two enrollments on one of enrollment.OrderingFields.
func compare(a, b enrollment.Enrollment, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	case "enrollment_date":
		return strings.Compare(a.EnrollmentDate, b.EnrollmentDate)
	case "last_name":
		return strings.Compare(strings.ToLower(a.Student.LastName), strings.ToLower(b.Student.LastName))
	case "grade_level":
		return a.GradeLevel - b.GradeLevel
	}
	return 0
}
