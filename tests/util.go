package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/core/student"
	"github.com/trezcool/rollcall/core/teacher"
)

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name string,
	number int,
	deviceID, email string,
) student.Student {
	tstamp := time.Now().UTC()
	std := student.Student{
		Name:      name,
		StudentNo: number,
		DeviceID:  deviceID,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateTeacher(
	t *testing.T,
	repo teacher.Repository,
	name string,
	number int,
	email, pwd string,
) teacher.Teacher {
	tstamp := time.Now().UTC()
	tch := teacher.Teacher{
		Name:      name,
		TeacherNo: number,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := tch.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tch, err := repo.CreateTeacher(context.Background(), tch)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tch
}

func CreateLesson(
	t *testing.T,
	repo lesson.Repository,
	name, teacherID string,
	status lesson.Status,
) lesson.Lesson {
	tstamp := time.Now().UTC()
	lsn := lesson.Lesson{
		Name:      name,
		TeacherID: teacherID,
		Status:    lesson.StatusScheduled,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	lsn, err := repo.CreateLesson(context.Background(), lsn)
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	if status != lesson.StatusScheduled {
		if err = repo.SetLessonStatus(context.Background(), lsn.ID, lesson.StatusScheduled, lesson.StatusInSession); err != nil {
			t.Fatalf("CreateLesson() failed: %v", err)
		}
		lsn.Status = lesson.StatusInSession
		if status == lesson.StatusEnded {
			if err = repo.SetLessonStatus(context.Background(), lsn.ID, lesson.StatusInSession, lesson.StatusEnded); err != nil {
				t.Fatalf("CreateLesson() failed: %v", err)
			}
			lsn.Status = lesson.StatusEnded
		}
	}
	return lsn
}

func Enroll(t *testing.T, repo lesson.Repository, studentID, lessonID string) lesson.Enrollment {
	enr := lesson.Enrollment{
		StudentID: studentID,
		LessonID:  lessonID,
		CreatedAt: time.Now().UTC(),
	}
	enr, err := repo.CreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}
