package dummydb

import (
	"sync"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

type (
	DB struct {
		enrollment *enrollmentTable
	}

	enrollmentTable struct {
		sync.RWMutex
		students    map[string]*enrollment.Student
		enrollments map[string]*enrollment.Enrollment
	}
)

func Open() (*DB, error) {
	db := &DB{
		enrollment: &enrollmentTable{
			students:    make(map[string]*enrollment.Student),
			enrollments: make(map[string]*enrollment.Enrollment),
		},
	}
	return db, nil
}
