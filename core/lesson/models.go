package lesson

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/rollcall/core"
)

// Status is a Lesson's lifecycle state. The integer values are persisted and
// exposed on the wire as-is; do not renumber.
type Status int

const (
	StatusScheduled Status = 0
	StatusInSession Status = 1
	StatusEnded     Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusInSession:
		return "in_session"
	case StatusEnded:
		return "ended"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// CanTransitionTo reports whether moving to `next` is a valid lifecycle
// advance. Status only ever moves forward; StatusEnded is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusInSession
	case StatusInSession:
		return next == StatusEnded
	}
	return false
}

// AttendanceStatus of a student for one lesson session. Persisted integer
// values; do not renumber.
type AttendanceStatus int

const (
	AttendanceAbsent  AttendanceStatus = -1
	AttendancePending AttendanceStatus = 0
	AttendancePresent AttendanceStatus = 1
)

func (s AttendanceStatus) String() string {
	switch s {
	case AttendanceAbsent:
		return "absent"
	case AttendancePending:
		return "pending"
	case AttendancePresent:
		return "present"
	}
	return fmt.Sprintf("AttendanceStatus(%d)", int(s))
}

type Lesson struct {
	ID        string    `json:"lesson_uuid"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_uuid"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Enrollment registers a student to a lesson. Immutable once created; only
// possible while the lesson is still Scheduled.
type Enrollment struct {
	ID        string    `json:"join_lesson_uuid"`
	StudentID string    `json:"student_uuid"`
	LessonID  string    `json:"lesson_uuid"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Enrollee is one entry of a lesson's roster: the enrolled student together
// with the device ID that identifies them in presence signals.
type Enrollee struct {
	StudentID string `json:"student_uuid"`
	DeviceID  string `json:"device_id"`
}

type Attendance struct {
	ID        string           `json:"attendance_uuid"`
	StudentID string           `json:"student_uuid"`
	LessonID  string           `json:"lesson_uuid"`
	Status    AttendanceStatus `json:"status"`
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Name string `json:"name" validate:"required"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}

// NewEnrollment contains information needed to enroll a student.
type NewEnrollment struct {
	StudentID string `json:"student_uuid" validate:"required"`
	LessonID  string `json:"lesson_uuid" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.LessonID = core.CleanString(ne.LessonID)
	return validate.Struct(ne)
}
