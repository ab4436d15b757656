package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/tests"
)

func TestEnrollmentRepository_CreateEnrollment(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	student := enrollment.Student{
		ID: uuid.NewString(), FirstName: "John", LastName: "Doe", DateOfBirth: "2015-04-12",
		Gender: "male", Nationality: "Congolese", Email: "john@test.test", Phone: "+243820000000",
		Addresses: []enrollment.Address{{
			ID: uuid.NewString(), Type: enrollment.AddressHome, IsPrimary: true,
			Street: "1 Main St", City: "Goma", State: "Nord-Kivu", PostalCode: "001", Country: "DR Congo",
		}},
		Guardians: []enrollment.Guardian{{
			ID: uuid.NewString(), FirstName: "Jane", LastName: "Doe", Relationship: "mother",
			Email: "jane@test.test", Phone: "+243810000000", IsPrimaryGuardian: true,
			Addresses: []enrollment.Address{{
				ID: uuid.NewString(), Type: enrollment.AddressMailing, IsPrimary: true,
				Street: "2 Main St", City: "Goma", State: "Nord-Kivu", PostalCode: "001", Country: "DR Congo",
			}},
		}},
		CreatedAt: now,
	}
	ref := uuid.NewString()
	enr, err := repo.CreateEnrollment(ctx, student, enrollment.Enrollment{
		ID: uuid.NewString(), SchoolID: "school-1", AcademicYearID: "2026-2027",
		Grade: "grade-5", GradeLevel: 5, EnrollmentDate: "2026-09-01", Status: enrollment.StatusPending,
		TuitionOption: enrollment.TuitionFull, TuitionAmount: 9025, Reference: ref, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, student.ID, enr.StudentID)

	got, err := repo.GetEnrollmentByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, enr.ID, got.ID)
	assert.Equal(t, 9025.0, got.TuitionAmount)
	assert.Equal(t, "2026-09-01", got.EnrollmentDate)
	assert.Equal(t, "Doe", got.Student.LastName)

	_, err = repo.GetEnrollmentByReference(ctx, uuid.NewString())
	assert.Equal(t, enrollment.ErrEnrollmentNotFound, err)
	_, err = repo.GetEnrollmentByReference(ctx, "not-a-uuid")
	assert.Equal(t, enrollment.ErrEnrollmentNotFound, err)

	students, err := repo.FindStudentsByBirthDate(ctx, "2015-04-12")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "John Doe", students[0].FullName())

	// the reference is unique: nothing is left behind
	student.ID = uuid.NewString()
	student.Addresses, student.Guardians = nil, nil
	_, err = repo.CreateEnrollment(ctx, student, enrollment.Enrollment{
		ID: uuid.NewString(), SchoolID: "school-1", AcademicYearID: "2026-2027",
		Grade: "grade-5", GradeLevel: 5, EnrollmentDate: "2026-09-01", Status: enrollment.StatusPending,
		TuitionOption: enrollment.TuitionFull, TuitionAmount: 9025, Reference: ref, CreatedAt: now,
	})
	require.Error(t, err)
	students, err = repo.FindStudentsByBirthDate(ctx, "2015-04-12")
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestEnrollmentRepository_QueryEnrollments(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	now := time.Now()
	kabila := testutil.CreateEnrollment(t, repo, "Joseph", "Kabila", "2014-06-04", "grade-6", now.Add(-3*time.Hour))
	lumumba := testutil.CreateEnrollment(t, repo, "Patrice", "Lumumba", "2015-07-02", "grade-5", now.Add(-2*time.Hour))
	mobutu := testutil.CreateEnrollment(t, repo, "Joseph", "Mobutu", "2016-10-14", "grade-1", now.Add(-time.Hour))

	ids := func(enrs []enrollment.Enrollment) []string {
		res := make([]string, 0, len(enrs))
		for _, e := range enrs {
			res = append(res, e.ID)
		}
		return res
	}

	tests := []struct {
		name     string
		filter   enrollment.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all (newest first)", want: []string{mobutu.ID, lumumba.ID, kabila.ID}},
		{name: "search", filter: enrollment.QueryFilter{Search: "JOSE"}, want: []string{mobutu.ID, kabila.ID}},
		{name: "grade", filter: enrollment.QueryFilter{Grade: "grade-5"}, want: []string{lumumba.ID}},
		{name: "status", filter: enrollment.QueryFilter{Status: enrollment.StatusActive}, want: []string{}},
		{
			name:     "order by last_name",
			ordering: []core.DBOrdering{{Field: "last_name", Ascending: true}},
			want:     []string{kabila.ID, lumumba.ID, mobutu.ID},
		},
		{
			name:     "order by -grade_level",
			ordering: []core.DBOrdering{{Field: "grade_level"}},
			want:     []string{kabila.ID, lumumba.ID, mobutu.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrs, err := repo.QueryEnrollments(ctx, tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(enrs))
		})
	}
}
