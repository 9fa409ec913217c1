// Package dummydb provides in-memory repositories for tests and local
// development. Tables are guarded by RWMutexes so the conditional attendance
// update keeps its atomicity under concurrent reconciliation.
package dummydb

import (
	"sync"

	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/core/student"
	"github.com/trezcool/rollcall/core/teacher"
)

type (
	DB struct {
		student *studentTable
		teacher *teacherTable
		lesson  *lessonTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*teacher.Teacher
	}

	lessonTable struct {
		sync.RWMutex
		table       map[string]*lesson.Lesson
		enrollments map[string][]*lesson.Enrollment           // lessonID -> rows
		attendances map[string]map[string]*lesson.Attendance  // lessonID -> studentID -> row
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		teacher: &teacherTable{table: make(map[string]*teacher.Teacher)},
		lesson: &lessonTable{
			table:       make(map[string]*lesson.Lesson),
			enrollments: make(map[string][]*lesson.Enrollment),
			attendances: make(map[string]map[string]*lesson.Attendance),
		},
	}
	return db, nil
}
