package dummydb

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

func newRepo(t *testing.T) enrollment.Repository {
	db, err := Open()
	require.NoError(t, err)
	return NewEnrollmentRepository(db)
}

func TestEnrollmentRepository_GetEnrollmentByReference(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	enr := testutil.CreateEnrollment(t, repo, "Patrice", "Lumumba", "2015-07-02", "grade-5")
	got, err := repo.GetEnrollmentByReference(ctx, enr.Reference)
	require.NoError(t, err)
	assert.Equal(t, enr.ID, got.ID)
	assert.Equal(t, "Lumumba", got.Student.LastName)
	assert.Empty(t, got.Student.Addresses)

	_, err = repo.GetEnrollmentByReference(ctx, uuid.NewString())
	assert.Equal(t, enrollment.ErrEnrollmentNotFound, err)

	// references are unique
	_, err = repo.CreateEnrollment(ctx, enrollment.Student{ID: uuid.NewString()}, enrollment.Enrollment{
		ID: uuid.NewString(), Reference: enr.Reference,
	})
	assert.Error(t, err)
}

func TestEnrollmentRepository_FindStudentsByBirthDate(t *testing.T) {
	repo := newRepo(t)
	testutil.CreateEnrollment(t, repo, "Patrice", "Lumumba", "2015-07-02", "grade-5")
	testutil.CreateEnrollment(t, repo, "Pauline", "Lumumba", "2015-07-02", "grade-5")
	testutil.CreateEnrollment(t, repo, "Joseph", "Kasa-Vubu", "2014-07-02", "grade-6")

	students, err := repo.FindStudentsByBirthDate(context.Background(), "2015-07-02")
	require.NoError(t, err)
	assert.Len(t, students, 2)

	students, err = repo.FindStudentsByBirthDate(context.Background(), "2000-01-01")
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestEnrollmentRepository_QueryEnrollments(t *testing.T) {
	repo := newRepo(t)
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
		{name: "search", filter: enrollment.QueryFilter{Search: " jose "}, want: []string{mobutu.ID, kabila.ID}},
		{name: "search (unknown)", filter: enrollment.QueryFilter{Search: "lol"}, want: []string{}},
		{name: "grade", filter: enrollment.QueryFilter{Grade: "grade-5"}, want: []string{lumumba.ID}},
		{name: "status", filter: enrollment.QueryFilter{Status: enrollment.StatusPending}, want: []string{mobutu.ID, lumumba.ID, kabila.ID}},
		{name: "search & grade", filter: enrollment.QueryFilter{Search: "joseph", Grade: "grade-1"}, want: []string{mobutu.ID}},
		{
			name:     "order by created_at",
			ordering: core.ParseOrdering("created_at", enrollment.OrderingFields),
			want:     []string{kabila.ID, lumumba.ID, mobutu.ID},
		},
		{
			name:     "order by last_name",
			ordering: core.ParseOrdering("last_name", enrollment.OrderingFields),
			want:     []string{kabila.ID, lumumba.ID, mobutu.ID},
		},
		{
			name:     "order by -grade_level",
			ordering: core.ParseOrdering("-grade_level", enrollment.OrderingFields),
			want:     []string{kabila.ID, lumumba.ID, mobutu.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrs, err := repo.QueryEnrollments(context.Background(), tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(enrs))
		})
	}
}
